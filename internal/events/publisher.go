// Package events publishes scheduling domain events on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
)

const (
	EventSessionsGenerated = "sessions.generated"

	// SubjectSessionsGenerated is suffixed with the tenant id.
	SubjectSessionsGenerated = "sessions.generated"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
}

var _ Conn = (*nats.Conn)(nil)

// BatchCreatedEvent is the wire form of scheduling.BatchCreated.
type BatchCreatedEvent struct {
	EventType             string      `json:"event_type"`
	TenantID              uuid.UUID   `json:"tenant_id"`
	ActorID               uuid.UUID   `json:"actor_id"`
	CenterID              uuid.UUID   `json:"center_id"`
	TutorID               uuid.UUID   `json:"tutor_id"`
	SessionType           string      `json:"session_type"`
	CreatedCount          int         `json:"created_count"`
	SkippedDuplicateCount int         `json:"skipped_duplicate_count"`
	ConflictCount         int         `json:"conflict_count"`
	DriftCount            int         `json:"drift_count"`
	CreatedIDs            []uuid.UUID `json:"created_ids"`
	RangeFrom             time.Time   `json:"range_from"`
	RangeTo               time.Time   `json:"range_to"`
	OccurredAt            time.Time   `json:"occurred_at"`
}

type Publisher struct {
	conn   Conn
	prefix string
	log    *slog.Logger
}

var _ scheduling.Publisher = (*Publisher)(nil)

// NewPublisher returns a publisher writing under prefix, e.g. "tutorly".
func NewPublisher(conn Conn, prefix string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

// Subject returns the subject a tenant's batch events are published on.
func (p *Publisher) Subject(tenantID uuid.UUID) string {
	return SessionsGeneratedSubject(p.prefix, tenantID.String())
}

// SessionsGeneratedSubject joins prefix, the event subject and tenant.
// Pass "*" as tenant to build a subscription wildcard.
func SessionsGeneratedSubject(prefix, tenant string) string {
	if prefix == "" {
		return SubjectSessionsGenerated + "." + tenant
	}
	return prefix + "." + SubjectSessionsGenerated + "." + tenant
}

func (p *Publisher) PublishBatchCreated(ctx context.Context, b scheduling.BatchCreated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ids := b.CreatedIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(BatchCreatedEvent{
		EventType:             EventSessionsGenerated,
		TenantID:              b.TenantID,
		ActorID:               b.ActorID,
		CenterID:              b.CenterID,
		TutorID:               b.TutorID,
		SessionType:           string(b.SessionType),
		CreatedCount:          b.Result.CreatedCount,
		SkippedDuplicateCount: b.Result.SkippedDuplicateCount,
		ConflictCount:         b.Result.ConflictCount,
		DriftCount:            b.Result.DriftCount,
		CreatedIDs:            ids,
		RangeFrom:             b.Result.Range.From.UTC(),
		RangeTo:               b.Result.Range.To.UTC(),
		OccurredAt:            b.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("events: marshal batch created: %w", err)
	}

	subject := p.Subject(b.TenantID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}

	p.log.DebugContext(ctx, "published event", "subject", subject, "created", b.Result.CreatedCount)
	return nil
}

// DecodeBatchCreated parses a sessions.generated payload.
func DecodeBatchCreated(data []byte) (BatchCreatedEvent, error) {
	var ev BatchCreatedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return BatchCreatedEvent{}, fmt.Errorf("events: decode batch created: %w", err)
	}
	if ev.EventType != EventSessionsGenerated {
		return BatchCreatedEvent{}, fmt.Errorf("events: unexpected event type %q", ev.EventType)
	}
	return ev, nil
}
