package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/tutorly/tutorly_backend/config"
	"github.com/tutorly/tutorly_backend/internal/events"
	"github.com/tutorly/tutorly_backend/internal/repo"
	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
	pasetotoken "github.com/tutorly/tutorly_backend/pkg/paseto"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideSchedulingService,
		ProvidePasetoManager,
	),
)

func ProvideSchedulingService(db *repo.Client, nc *nats.Conn, cfg *config.Config) scheduling.Service {
	return NewSchedulingService(db, nc, cfg, slog.Default())
}

// NewSchedulingService wires the service outside fx as well, for CLI use.
// A nil nc disables event publication.
func NewSchedulingService(db *repo.Client, nc *nats.Conn, cfg *config.Config, log *slog.Logger) scheduling.Service {
	opts := scheduling.Options{
		MaxRangeDays: cfg.Scheduling.MaxRangeDays,
		SampleLimit:  cfg.Scheduling.SampleLimit,
		Logger:       log,
	}
	if nc != nil {
		opts.Publisher = events.NewPublisher(nc, cfg.Nats.SubjectPrefix, log)
	}
	return scheduling.New(db, db, opts)
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
