package scheduling

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Session types & skip reasons
// ---------------------------------------------------------------------------

type SessionType string

const (
	SessionOneOnOne SessionType = "ONE_ON_ONE"
	SessionGroup    SessionType = "GROUP"
	SessionClass    SessionType = "CLASS"
)

func (t SessionType) Valid() bool {
	switch t {
	case SessionOneOnOne, SessionGroup, SessionClass:
		return true
	}
	return false
}

// GroupBased reports whether the session is attached to a group rather than a
// single student.
func (t SessionType) GroupBased() bool {
	return t == SessionGroup || t == SessionClass
}

type SkipReason string

const (
	ReasonDuplicateSession      SkipReason = "DUPLICATE_SESSION_EXISTS"
	ReasonTutorStartCollision   SkipReason = "TUTOR_START_COLLISION"
	ReasonStudentStartCollision SkipReason = "STUDENT_START_COLLISION"
)

// ---------------------------------------------------------------------------
// Calendar values
// ---------------------------------------------------------------------------

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	return d.In(time.UTC).Before(o.In(time.UTC))
}

// DaysUntil returns the number of calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.In(time.UTC).Sub(d.In(time.UTC)).Hours() / 24)
}

// Clock is a local wall-clock time with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, err
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// On combines the clock with date d in loc. The second result is false when
// the wall time does not exist on that date (spring-forward gap).
func (c Clock) On(d Date, loc *time.Location) (time.Time, bool) {
	t := time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
	return t, c.matches(t)
}

func (c Clock) matches(t time.Time) bool {
	return t.Hour() == c.Hour && t.Minute() == c.Minute
}

// ---------------------------------------------------------------------------
// Recurrence input
// ---------------------------------------------------------------------------

// RecurrenceSpec is a validated request to generate weekly sessions.
type RecurrenceSpec struct {
	CenterID    uuid.UUID
	TutorID     uuid.UUID
	SessionType SessionType
	StudentID   *uuid.UUID
	GroupID     *uuid.UUID

	StartDate Date
	EndDate   Date
	// Weekdays uses 1=Monday .. 7=Sunday.
	Weekdays  []int
	StartTime Clock
	EndTime   Clock
	Timezone  string

	ZoomLink *string
}

// Occurrence is one concrete session instance produced by the generator.
type Occurrence struct {
	LocalDate Date
	StartAt   time.Time
	EndAt     time.Time
}

// TimeRange is a half-open UTC interval.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Roster is the set of students attending a generated session.
type Roster []uuid.UUID

func (r Roster) Contains(id uuid.UUID) bool {
	return slices.Contains(r, id)
}

// Overlaps reports whether any roster student is in ids.
func (r Roster) Overlaps(ids []uuid.UUID) bool {
	for _, id := range ids {
		if r.Contains(id) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Existing bookings
// ---------------------------------------------------------------------------

type ExistingBooking struct {
	ID          uuid.UUID
	CenterID    uuid.UUID
	TutorID     uuid.UUID
	GroupID     *uuid.UUID
	SessionType SessionType
	StartAt     time.Time
	StudentIDs  []uuid.UUID
}

// BookingIndex groups a tenant's bookings by exact UTC start instant.
// It is filled by the loader and read-only afterwards.
type BookingIndex struct {
	byStart map[int64][]*ExistingBooking
	byID    map[uuid.UUID]*ExistingBooking
}

func NewBookingIndex() *BookingIndex {
	return &BookingIndex{
		byStart: make(map[int64][]*ExistingBooking),
		byID:    make(map[uuid.UUID]*ExistingBooking),
	}
}

func instantKey(t time.Time) int64 { return t.UTC().UnixNano() }

// Put adds b to the index. A booking already present is merged: its roster
// is extended with the students of b.
func (ix *BookingIndex) Put(b ExistingBooking) {
	if cur, ok := ix.byID[b.ID]; ok {
		for _, sid := range b.StudentIDs {
			if !slices.Contains(cur.StudentIDs, sid) {
				cur.StudentIDs = append(cur.StudentIDs, sid)
			}
		}
		return
	}
	nb := b
	nb.StudentIDs = slices.Clone(b.StudentIDs)
	ix.byID[b.ID] = &nb
	k := instantKey(b.StartAt)
	ix.byStart[k] = append(ix.byStart[k], &nb)
}

// At returns the bookings starting exactly at t.
func (ix *BookingIndex) At(t time.Time) []*ExistingBooking {
	if ix == nil {
		return nil
	}
	return ix.byStart[instantKey(t)]
}

func (ix *BookingIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.byID)
}

// ---------------------------------------------------------------------------
// Plan lines
// ---------------------------------------------------------------------------

// NewBooking is the row set written for one created session.
type NewBooking struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CenterID    uuid.UUID
	TutorID     uuid.UUID
	SessionType SessionType
	StudentID   *uuid.UUID
	GroupID     *uuid.UUID
	StartAt     time.Time
	EndAt       time.Time
	ZoomLink    *string
	CreatedBy   uuid.UUID
	StudentIDs  []uuid.UUID
}

// PlanLine is one of CreateLine, DuplicateLine or ConflictLine.
type PlanLine interface {
	planLine()
	When() Occurrence
}

// CreateLine is an occurrence that will be inserted. Booking holds the row
// to write; its ID is assigned at commit time.
type CreateLine struct {
	Occurrence Occurrence
	Roster     Roster
	Booking    NewBooking
}

type DuplicateLine struct {
	Occurrence Occurrence
	ExistingID uuid.UUID
}

type ConflictLine struct {
	Occurrence Occurrence
	Reason     SkipReason
	ExistingID uuid.UUID
}

func (CreateLine) planLine()    {}
func (DuplicateLine) planLine() {}
func (ConflictLine) planLine()  {}

func (l CreateLine) When() Occurrence    { return l.Occurrence }
func (l DuplicateLine) When() Occurrence { return l.Occurrence }
func (l ConflictLine) When() Occurrence  { return l.Occurrence }

func (DuplicateLine) Reason() SkipReason { return ReasonDuplicateSession }

// SkipSample describes one skipped occurrence in a plan summary.
type SkipSample struct {
	StartAt    time.Time
	EndAt      time.Time
	Reason     SkipReason
	ExistingID uuid.UUID
}

// Plan is the full classification of a recurrence against current bookings.
type Plan struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Spec     RecurrenceSpec
	Range    TimeRange
	Lines    []PlanLine

	WouldCreateCount        int
	WouldSkipDuplicateCount int
	WouldConflictCount      int
	DuplicateSamples        []SkipSample
	ConflictSamples         []SkipSample

	ZoomLinkApplied bool
	ZoomLink        string
}

// CommitResult reports what a commit wrote. SkippedDuplicateCount includes
// lines lost to concurrent writers between planning and insert.
type CommitResult struct {
	CreatedCount          int
	SkippedDuplicateCount int
	DriftCount            int
	ConflictCount         int
	Range                 TimeRange
	CreatedSampleIDs      []uuid.UUID
}
