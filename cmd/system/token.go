package system

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tutorly/tutorly_backend/config"
	"github.com/tutorly/tutorly_backend/internal/api/http/middleware"
	pasetotoken "github.com/tutorly/tutorly_backend/pkg/paseto"
	redispkg "github.com/tutorly/tutorly_backend/pkg/redis"
)

// NewTokenCommand issues an access token for an existing user and registers
// its session in Redis. Login lives outside this service; this is for
// operators and local development.
func NewTokenCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token and session for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			mgr, err := pasetotoken.NewPasetoManager(cfg)
			if err != nil {
				return fmt.Errorf("failed to build token manager: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			rdb, err := redispkg.NewRedisFromCentral(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			sid := uuid.New()
			ttl := time.Duration(cfg.Authentication.SessionTTLMinutes) * time.Minute
			if err := rdb.Set(ctx, middleware.SessionKey(sid), uid.String(), ttl).Err(); err != nil {
				return fmt.Errorf("failed to store session: %w", err)
			}

			tok, err := mgr.IssueAccess(uid, sid)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			fmt.Println(tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id the token is issued for")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
