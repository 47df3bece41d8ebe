package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func (s *schedulingService) BuildPlan(ctx context.Context, tenantID, actorID uuid.UUID, spec RecurrenceSpec) (*Plan, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.BuildPlan", trace.WithAttributes(
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

	span.SetAttributes(
		attribute.Int("plan.create", plan.WouldCreateCount),
		attribute.Int("plan.duplicate", plan.WouldSkipDuplicateCount),
		attribute.Int("plan.conflict", plan.WouldConflictCount),
	)
	return plan, nil
}

func (s *schedulingService) buildPlan(ctx context.Context, tenantID, actorID uuid.UUID, spec RecurrenceSpec) (*Plan, error) {
	if _, err := validateRecurrence(spec); err != nil {
		return nil, err
	}
	if err := checkShape(spec); err != nil {
		return nil, err
	}
	if days := spec.StartDate.DaysUntil(spec.EndDate); days > s.maxRangeDays {
		return nil, invalidField("endDate", fmt.Sprintf("date range must not exceed %d days", s.maxRangeDays))
	}

	if err := s.checkReferences(ctx, tenantID, spec); err != nil {
		return nil, err
	}

	roster, err := s.resolveRoster(ctx, tenantID, spec)
	if err != nil {
		return nil, err
	}

	zoomLink, applied, err := normalizeZoomLink(spec.ZoomLink)
	if err != nil {
		return nil, err
	}

	occurrences, err := Generate(spec)
	if err != nil {
		return nil, err
	}
	rng, err := DateRange(spec)
	if err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(occurrences))
	for _, occ := range occurrences {
		starts = append(starts, occ.StartAt)
	}
	index, err := s.bookings.LoadBookings(ctx, tenantID, starts)
	if err != nil {
		return nil, persistenceErr("load bookings", err)
	}

	plan := &Plan{
		TenantID:        tenantID,
		ActorID:         actorID,
		Spec:            spec,
		Range:           rng,
		Lines:           make([]PlanLine, 0, len(occurrences)),
		ZoomLinkApplied: applied,
		ZoomLink:        zoomLink,
	}
	for _, occ := range occurrences {
		line := Classify(occ, spec, roster, index)
		if cl, ok := line.(CreateLine); ok {
			cl.Booking = plan.bookingFor(cl)
			line = cl
		}
		plan.Lines = append(plan.Lines, line)

		switch l := line.(type) {
		case CreateLine:
			plan.WouldCreateCount++
		case DuplicateLine:
			plan.WouldSkipDuplicateCount++
			if len(plan.DuplicateSamples) < s.sampleLimit {
				plan.DuplicateSamples = append(plan.DuplicateSamples, SkipSample{
					StartAt: occ.StartAt, EndAt: occ.EndAt, Reason: l.Reason(), ExistingID: l.ExistingID,
				})
			}
		case ConflictLine:
			plan.WouldConflictCount++
			if len(plan.ConflictSamples) < s.sampleLimit {
				plan.ConflictSamples = append(plan.ConflictSamples, SkipSample{
					StartAt: occ.StartAt, EndAt: occ.EndAt, Reason: l.Reason, ExistingID: l.ExistingID,
				})
			}
		}
	}

	s.planned.Add(ctx, int64(plan.WouldCreateCount), metric.WithAttributes(attribute.String("outcome", "create")))
	s.planned.Add(ctx, int64(plan.WouldSkipDuplicateCount), metric.WithAttributes(attribute.String("outcome", "duplicate")))
	s.planned.Add(ctx, int64(plan.WouldConflictCount), metric.WithAttributes(attribute.String("outcome", "conflict")))

	s.log.DebugContext(ctx, "session plan built",
		"tenant_id", tenantID,
		"tutor_id", spec.TutorID,
		"occurrences", len(occurrences),
		"existing_bookings", index.Len(),
		"create", plan.WouldCreateCount,
		"duplicate", plan.WouldSkipDuplicateCount,
		"conflict", plan.WouldConflictCount,
	)
	return plan, nil
}

// ---------------------------------------------------------------------------
// Cross-entity checks
// ---------------------------------------------------------------------------

func (s *schedulingService) checkReferences(ctx context.Context, tenantID uuid.UUID, spec RecurrenceSpec) error {
	ok, err := s.dir.CenterExists(ctx, tenantID, spec.CenterID)
	if err != nil {
		return persistenceErr("lookup center", err)
	}
	if !ok {
		return &NotFoundError{Entity: "center", Field: "centerId", ID: spec.CenterID}
	}

	ok, err = s.dir.HasRole(ctx, tenantID, spec.TutorID, RoleTutor)
	if err != nil {
		return persistenceErr("lookup tutor", err)
	}
	if !ok {
		return &NotFoundError{Entity: "tutor", Field: "tutorId", ID: spec.TutorID}
	}

	ok, err = s.dir.TutorAssigned(ctx, tenantID, spec.TutorID, spec.CenterID)
	if err != nil {
		return persistenceErr("lookup tutor assignment", err)
	}
	if !ok {
		return invalidField("tutorId", "tutor is not assigned to the center")
	}

	if spec.SessionType.GroupBased() {
		g, err := s.dir.FindGroup(ctx, tenantID, *spec.GroupID)
		if err != nil {
			return persistenceErr("lookup group", err)
		}
		if g == nil {
			return &NotFoundError{Entity: "group", Field: "groupId", ID: *spec.GroupID}
		}
		if g.CenterID != spec.CenterID {
			return invalidField("groupId", "group does not belong to the center")
		}
		if g.Type != spec.SessionType {
			return invalidField("groupId", fmt.Sprintf("group type %s does not match session type %s", g.Type, spec.SessionType))
		}
		return nil
	}

	ok, err = s.dir.StudentExists(ctx, tenantID, *spec.StudentID)
	if err != nil {
		return persistenceErr("lookup student", err)
	}
	if !ok {
		return &NotFoundError{Entity: "student", Field: "studentId", ID: *spec.StudentID}
	}
	return nil
}

func (s *schedulingService) resolveRoster(ctx context.Context, tenantID uuid.UUID, spec RecurrenceSpec) (Roster, error) {
	if !spec.SessionType.GroupBased() {
		return Roster{*spec.StudentID}, nil
	}
	ids, err := s.dir.GroupRoster(ctx, tenantID, *spec.GroupID)
	if err != nil {
		return nil, persistenceErr("load group roster", err)
	}
	return Roster(ids), nil
}

// bookingFor fills the row a Create line will insert.
func (p *Plan) bookingFor(cl CreateLine) NewBooking {
	b := NewBooking{
		TenantID:    p.TenantID,
		CenterID:    p.Spec.CenterID,
		TutorID:     p.Spec.TutorID,
		SessionType: p.Spec.SessionType,
		StartAt:     cl.Occurrence.StartAt,
		EndAt:       cl.Occurrence.EndAt,
		CreatedBy:   p.ActorID,
		StudentIDs:  cl.Roster,
	}
	if p.ZoomLinkApplied {
		link := p.ZoomLink
		b.ZoomLink = &link
	}
	if p.Spec.SessionType.GroupBased() {
		b.GroupID = p.Spec.GroupID
	} else {
		b.StudentID = p.Spec.StudentID
	}
	return b
}
