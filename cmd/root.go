package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/tutorly/tutorly_backend/cmd/http"
	sessionscmd "github.com/tutorly/tutorly_backend/cmd/sessions"
	systemcmd "github.com/tutorly/tutorly_backend/cmd/system"
	"github.com/tutorly/tutorly_backend/pkg/constants"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Tutorly multi-tenant operations platform for tutoring organizations.",
	Long: `Tutorly runs centers, tutors, students and groups for tutoring organizations.
This binary serves the HTTP API and carries the maintenance tooling around it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
	rootCmd.AddCommand(sessionscmd.NewSessionsCommand())
}
