package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (s *schedulingService) Commit(ctx context.Context, tenantID, actorID uuid.UUID, spec RecurrenceSpec) (*CommitResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.Commit", trace.WithAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("session.type", string(spec.SessionType)),
	))
	defer span.End()

	plan, err := s.buildPlan(ctx, tenantID, actorID, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, ids, err := s.execute(ctx, plan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.ErrorContext(ctx, "session batch commit failed",
			"tenant_id", tenantID,
			"tutor_id", spec.TutorID,
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("commit.created", res.CreatedCount),
		attribute.Int("commit.drift", res.DriftCount),
	)
	s.created.Add(ctx, int64(res.CreatedCount))
	if res.DriftCount > 0 {
		s.drift.Add(ctx, int64(res.DriftCount))
		s.log.WarnContext(ctx, "session batch lost lines to concurrent writers",
			"tenant_id", tenantID,
			"tutor_id", spec.TutorID,
			"drift", res.DriftCount,
		)
	}

	s.publish(ctx, plan, res, ids)
	return res, nil
}

// execute inserts every Create line of plan in a single batch. A line that
// hits an identity collision is counted as drift; any other failure discards
// the whole batch.
func (s *schedulingService) execute(ctx context.Context, plan *Plan) (*CommitResult, []uuid.UUID, error) {
	res := &CommitResult{
		SkippedDuplicateCount: plan.WouldSkipDuplicateCount,
		ConflictCount:         plan.WouldConflictCount,
		Range:                 plan.Range,
	}
	if plan.WouldCreateCount == 0 {
		return res, nil, nil
	}

	tx, err := s.bookings.BeginBatch(ctx)
	if err != nil {
		return nil, nil, persistenceErr("begin batch", err)
	}

	createdIDs := make([]uuid.UUID, 0, plan.WouldCreateCount)
	for _, line := range plan.Lines {
		cl, ok := line.(CreateLine)
		if !ok {
			continue
		}

		id, err := uuid.NewV7()
		if err != nil {
			_ = tx.Rollback()
			return nil, nil, persistenceErr("generate booking id", err)
		}
		b := cl.Booking
		b.ID = id

		if err := tx.InsertBooking(ctx, b); err != nil {
			if errors.Is(err, ErrDuplicateBooking) {
				res.DriftCount++
				continue
			}
			_ = tx.Rollback()
			return nil, nil, persistenceErr("insert booking", err)
		}
		createdIDs = append(createdIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, persistenceErr("commit batch", err)
	}

	res.CreatedCount = len(createdIDs)
	res.SkippedDuplicateCount += res.DriftCount
	res.CreatedSampleIDs = createdIDs[:min(len(createdIDs), s.sampleLimit)]
	return res, createdIDs, nil
}

func (s *schedulingService) publish(ctx context.Context, plan *Plan, res *CommitResult, ids []uuid.UUID) {
	if s.pub == nil || res.CreatedCount == 0 {
		return
	}
	ev := BatchCreated{
		TenantID:    plan.TenantID,
		ActorID:     plan.ActorID,
		CenterID:    plan.Spec.CenterID,
		TutorID:     plan.Spec.TutorID,
		SessionType: plan.Spec.SessionType,
		Result:      *res,
		CreatedIDs:  ids,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.pub.PublishBatchCreated(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish session batch event failed",
			"tenant_id", plan.TenantID,
			"error", err,
		)
	}
}
