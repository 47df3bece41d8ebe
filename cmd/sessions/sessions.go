package sessions

import "github.com/spf13/cobra"

func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Recurring session generation tools",
	}

	cmd.AddCommand(NewPreviewCommand())

	return cmd
}
