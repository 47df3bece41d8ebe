package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tutorly/tutorly_backend/config"
	"github.com/tutorly/tutorly_backend/internal/api/http/handler"
	"github.com/tutorly/tutorly_backend/internal/app"
	"github.com/tutorly/tutorly_backend/internal/repo"
	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
	"github.com/tutorly/tutorly_backend/pkg/database"
	"github.com/tutorly/tutorly_backend/pkg/logs"
)

func NewPreviewCommand() *cobra.Command {
	var (
		tenant string
		actor  string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the plan a recurrence would produce, without writing",
		Long: `Reads a generate request (the same JSON body the preview endpoint accepts)
from --file, or stdin when --file is "-", and prints the resulting plan summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			actorID := uuid.Nil
			if actor != "" {
				if actorID, err = uuid.Parse(actor); err != nil {
					return fmt.Errorf("invalid --actor: %w", err)
				}
			}

			spec, err := readSpec(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			logger, flush := logs.New(cfg)
			defer flush()

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			svc := app.NewSchedulingService(repo.NewClient(database.NewDriver(db)), nil, cfg, logger)
			return printPlan(ctx, cmd.OutOrStdout(), svc, tenantID, actorID, spec, logger)
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant id the recurrence belongs to")
	cmd.Flags().StringVar(&actor, "actor", "", "Acting user id (optional)")
	cmd.Flags().StringVar(&file, "file", "-", "Path to the JSON request, - for stdin")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func readSpec(stdin io.Reader, path string) (scheduling.RecurrenceSpec, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return scheduling.RecurrenceSpec{}, fmt.Errorf("failed to open request file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req scheduling.GenerateRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return scheduling.RecurrenceSpec{}, fmt.Errorf("malformed request JSON: %w", err)
	}
	return scheduling.ParseRequest(req)
}

func printPlan(ctx context.Context, w io.Writer, svc scheduling.Service, tenantID, actorID uuid.UUID, spec scheduling.RecurrenceSpec, log *slog.Logger) error {
	plan, err := svc.BuildPlan(ctx, tenantID, actorID, spec)
	if err != nil {
		return err
	}
	log.Debug("plan built", "lines", len(plan.Lines))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(handler.NewPreviewResponse(plan))
}
