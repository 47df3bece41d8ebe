package events

import (
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subscriber is the subset of *nats.Conn used by workers.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

var _ Subscriber = (*nats.Conn)(nil)

// AuditHandler logs every generated batch. It returns the handler so tests
// can feed messages without a server.
func AuditHandler(log *slog.Logger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ev, err := DecodeBatchCreated(msg.Data)
		if err != nil {
			log.Warn("audit_worker: dropping malformed event", "subject", msg.Subject, "err", err)
			return
		}
		log.Info("audit_worker: sessions generated",
			"tenant_id", ev.TenantID,
			"actor_id", ev.ActorID,
			"center_id", ev.CenterID,
			"tutor_id", ev.TutorID,
			"session_type", ev.SessionType,
			"created", ev.CreatedCount,
			"skipped_duplicate", ev.SkippedDuplicateCount,
			"conflicts", ev.ConflictCount,
			"drift", ev.DriftCount,
			"range_from", ev.RangeFrom,
			"range_to", ev.RangeTo,
		)
	}
}

// StartAuditWorker subscribes the audit handler to every tenant's batches.
func StartAuditWorker(sub Subscriber, prefix string, log *slog.Logger) (*nats.Subscription, error) {
	return sub.Subscribe(SessionsGeneratedSubject(prefix, "*"), AuditHandler(log))
}
