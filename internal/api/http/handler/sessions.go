package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/tutorly/tutorly_backend/internal/service/scheduling"
	"github.com/tutorly/tutorly_backend/pkg/reqctx"
)

type SessionHandler struct {
	svc     scheduling.Service
	timeout time.Duration
	log     *slog.Logger
}

// NewSessionHandler bounds every call with timeout when it is positive.
func NewSessionHandler(svc scheduling.Service, timeout time.Duration, log *slog.Logger) *SessionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SessionHandler{svc: svc, timeout: timeout, log: log}
}

func mapScheduleError(c fiber.Ctx, log *slog.Logger, err error) error {
	var (
		verrs    scheduling.ValidationErrors
		verr     *scheduling.ValidationError
		notFound *scheduling.NotFoundError
	)
	switch {
	case errors.As(err, &verrs):
		details := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			details = append(details, FieldError{Field: e.Field, Message: e.Message})
		}
		return validationFailed(c, details)
	case errors.As(err, &verr):
		return validationFailed(c, []FieldError{{Field: verr.Field, Message: verr.Message}})
	case errors.As(err, &notFound):
		return validationFailed(c, []FieldError{{Field: notFound.Field, Message: notFound.Entity + " not found"}})
	case errors.Is(err, context.DeadlineExceeded):
		return serviceUnavailable(c)
	default:
		log.ErrorContext(c.Context(), "session generation failed",
			append(reqctx.LogAttrs(c.Context()), "err", err)...)
		return internalError(c)
	}
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type rangeDTO struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type skipSampleDTO struct {
	StartAt           time.Time `json:"startAt"`
	EndAt             time.Time `json:"endAt"`
	Reason            string    `json:"reason"`
	ExistingBookingID uuid.UUID `json:"existingBookingId"`
}

type summaryDTO struct {
	Count  int             `json:"count"`
	Sample []skipSampleDTO `json:"sample"`
}

type PreviewResponse struct {
	Range                   rangeDTO   `json:"range"`
	WouldCreateCount        int        `json:"wouldCreateCount"`
	WouldSkipDuplicateCount int        `json:"wouldSkipDuplicateCount"`
	WouldConflictCount      int        `json:"wouldConflictCount"`
	DuplicatesSummary       summaryDTO `json:"duplicatesSummary"`
	ConflictsSummary        summaryDTO `json:"conflictsSummary"`
	ZoomLinkApplied         bool       `json:"zoomLinkApplied"`
}

type CommitResponse struct {
	CreatedCount          int         `json:"createdCount"`
	SkippedDuplicateCount int         `json:"skippedDuplicateCount"`
	ConflictCount         int         `json:"conflictCount"`
	Range                 rangeDTO    `json:"range"`
	CreatedSampleIDs      []uuid.UUID `json:"createdSampleIds"`
}

func toRange(r scheduling.TimeRange) rangeDTO {
	return rangeDTO{From: r.From.UTC(), To: r.To.UTC()}
}

func toSummary(count int, samples []scheduling.SkipSample) summaryDTO {
	out := summaryDTO{Count: count, Sample: make([]skipSampleDTO, 0, len(samples))}
	for _, s := range samples {
		out.Sample = append(out.Sample, skipSampleDTO{
			StartAt:           s.StartAt.UTC(),
			EndAt:             s.EndAt.UTC(),
			Reason:            string(s.Reason),
			ExistingBookingID: s.ExistingID,
		})
	}
	return out
}

// NewPreviewResponse renders a plan for API and CLI callers.
func NewPreviewResponse(p *scheduling.Plan) PreviewResponse {
	return PreviewResponse{
		Range:                   toRange(p.Range),
		WouldCreateCount:        p.WouldCreateCount,
		WouldSkipDuplicateCount: p.WouldSkipDuplicateCount,
		WouldConflictCount:      p.WouldConflictCount,
		DuplicatesSummary:       toSummary(p.WouldSkipDuplicateCount, p.DuplicateSamples),
		ConflictsSummary:        toSummary(p.WouldConflictCount, p.ConflictSamples),
		ZoomLinkApplied:         p.ZoomLinkApplied,
	}
}

func NewCommitResponse(r *scheduling.CommitResult) CommitResponse {
	ids := r.CreatedSampleIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return CommitResponse{
		CreatedCount:          r.CreatedCount,
		SkippedDuplicateCount: r.SkippedDuplicateCount,
		ConflictCount:         r.ConflictCount,
		Range:                 toRange(r.Range),
		CreatedSampleIDs:      ids,
	}
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

// bind decodes and validates the body. On failure the response has already
// been written and the returned error must be passed back to fiber.
func (h *SessionHandler) bind(c fiber.Ctx) (scheduling.RecurrenceSpec, reqctx.Actor, bool, error) {
	actor, found := reqctx.ActorFromContext(c.Context())
	if !found {
		return scheduling.RecurrenceSpec{}, actor, false, unauthorized(c)
	}

	var req scheduling.GenerateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return scheduling.RecurrenceSpec{}, actor, false,
			validationFailed(c, []FieldError{{Field: "body", Message: "malformed JSON"}})
	}

	spec, err := scheduling.ParseRequest(req)
	if err != nil {
		return scheduling.RecurrenceSpec{}, actor, false, mapScheduleError(c, h.log, err)
	}
	return spec, actor, true, nil
}

func (h *SessionHandler) withTimeout(c fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Context())
	}
	return context.WithTimeout(c.Context(), h.timeout)
}

// POST /sessions/generate/preview
func (h *SessionHandler) Preview(c fiber.Ctx) error {
	spec, actor, valid, err := h.bind(c)
	if !valid {
		return err
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	plan, err := h.svc.BuildPlan(ctx, actor.TenantID, actor.UserID, spec)
	if err != nil {
		return mapScheduleError(c, h.log, err)
	}

	return ok(c, NewPreviewResponse(plan))
}

// POST /sessions/generate/commit
func (h *SessionHandler) Commit(c fiber.Ctx) error {
	spec, actor, valid, err := h.bind(c)
	if !valid {
		return err
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	res, err := h.svc.Commit(ctx, actor.TenantID, actor.UserID, spec)
	if err != nil {
		return mapScheduleError(c, h.log, err)
	}

	h.log.InfoContext(c.Context(), "session batch committed",
		append(reqctx.LogAttrs(c.Context()),
			"created", res.CreatedCount,
			"skipped_duplicate", res.SkippedDuplicateCount,
			"conflicts", res.ConflictCount,
		)...)

	return ok(c, NewCommitResponse(res))
}
