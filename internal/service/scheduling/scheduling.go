package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tutorly/tutorly_backend/internal/service/scheduling"

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

type Group struct {
	ID       uuid.UUID
	CenterID uuid.UUID
	Type     SessionType
}

// Directory answers the cross-entity questions asked before planning.
type Directory interface {
	CenterExists(ctx context.Context, tenantID, centerID uuid.UUID) (bool, error)
	HasRole(ctx context.Context, tenantID, userID uuid.UUID, role string) (bool, error)
	TutorAssigned(ctx context.Context, tenantID, tutorID, centerID uuid.UUID) (bool, error)
	StudentExists(ctx context.Context, tenantID, studentID uuid.UUID) (bool, error)
	// FindGroup returns nil when the group does not exist in the tenant.
	FindGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*Group, error)
	GroupRoster(ctx context.Context, tenantID, groupID uuid.UUID) ([]uuid.UUID, error)
}

// BookingStore reads existing bookings and opens write batches.
type BookingStore interface {
	LoadBookings(ctx context.Context, tenantID uuid.UUID, starts []time.Time) (*BookingIndex, error)
	BeginBatch(ctx context.Context) (BookingTx, error)
}

// BookingTx is one all-or-nothing write batch. InsertBooking isolates each
// booking so that ErrDuplicateBooking leaves the batch usable.
type BookingTx interface {
	InsertBooking(ctx context.Context, b NewBooking) error
	Commit() error
	Rollback() error
}

// BatchCreated is published after a commit wrote at least one booking.
type BatchCreated struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	CenterID    uuid.UUID
	TutorID     uuid.UUID
	SessionType SessionType
	Result      CommitResult
	CreatedIDs  []uuid.UUID
	OccurredAt  time.Time
}

type Publisher interface {
	PublishBatchCreated(ctx context.Context, ev BatchCreated) error
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// BuildPlan classifies every occurrence of spec without writing anything.
	BuildPlan(ctx context.Context, tenantID, actorID uuid.UUID, spec RecurrenceSpec) (*Plan, error)
	// Commit rebuilds the plan and inserts its Create lines.
	Commit(ctx context.Context, tenantID, actorID uuid.UUID, spec RecurrenceSpec) (*CommitResult, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

const (
	DefaultMaxRangeDays = 366
	DefaultSampleLimit  = 10
	RoleTutor           = "TUTOR"
)

type Options struct {
	MaxRangeDays int
	SampleLimit  int
	Logger       *slog.Logger
	Publisher    Publisher
	Clock        func() time.Time
}

type schedulingService struct {
	dir      Directory
	bookings BookingStore
	pub      Publisher
	log      *slog.Logger
	now      func() time.Time

	maxRangeDays int
	sampleLimit  int

	tracer  trace.Tracer
	planned metric.Int64Counter
	created metric.Int64Counter
	drift   metric.Int64Counter
}

func New(dir Directory, bookings BookingStore, opts Options) Service {
	s := &schedulingService{
		dir:          dir,
		bookings:     bookings,
		pub:          opts.Publisher,
		log:          opts.Logger,
		now:          opts.Clock,
		maxRangeDays: opts.MaxRangeDays,
		sampleLimit:  opts.SampleLimit,
		tracer:       otel.Tracer(instrumentationName),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxRangeDays <= 0 {
		s.maxRangeDays = DefaultMaxRangeDays
	}
	if s.sampleLimit <= 0 {
		s.sampleLimit = DefaultSampleLimit
	}

	meter := otel.Meter(instrumentationName)
	s.planned, _ = meter.Int64Counter("sessions_planned_total",
		metric.WithDescription("Occurrences classified by plan outcome"))
	s.created, _ = meter.Int64Counter("sessions_created_total",
		metric.WithDescription("Bookings inserted by commits"))
	s.drift, _ = meter.Int64Counter("sessions_drift_total",
		metric.WithDescription("Create lines lost to concurrent writers at commit"))
	return s
}
