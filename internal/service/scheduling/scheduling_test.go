package scheduling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	tenant, actor          uuid.UUID
	center, tutor, student uuid.UUID
	group, class           uuid.UUID
	groupMembers           []uuid.UUID

	dir   *fakeDirectory
	store *fakeStore
	pub   *fakePublisher
	svc   Service
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{
		tenant: uuid.New(), actor: uuid.New(),
		center: uuid.New(), tutor: uuid.New(), student: uuid.New(),
		group: uuid.New(), class: uuid.New(),
		groupMembers: []uuid.UUID{uuid.New(), uuid.New()},
		dir:          newFakeDirectory(),
		store:        &fakeStore{},
		pub:          &fakePublisher{},
	}
	w.dir.centers[w.center] = w.tenant
	w.dir.roles[memberKey{w.tenant, w.tutor}] = RoleTutor
	w.dir.assigned[[2]uuid.UUID{w.tutor, w.center}] = true
	w.dir.students[w.student] = w.tenant
	w.dir.groups[w.group] = Group{ID: w.group, CenterID: w.center, Type: SessionGroup}
	w.dir.groupTen[w.group] = w.tenant
	w.dir.members[w.group] = w.groupMembers
	w.dir.groups[w.class] = Group{ID: w.class, CenterID: w.center, Type: SessionClass}
	w.dir.groupTen[w.class] = w.tenant

	w.svc = New(w.dir, w.store, Options{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Publisher: w.pub,
		Clock:     func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	return w
}

// edmontonTuesdays is the four-Tuesday March 2024 recurrence that crosses the
// spring-forward transition.
func (w *world) edmontonTuesdays() RecurrenceSpec {
	return RecurrenceSpec{
		CenterID:    w.center,
		TutorID:     w.tutor,
		SessionType: SessionOneOnOne,
		StudentID:   &w.student,
		StartDate:   Date{2024, time.March, 5},
		EndDate:     Date{2024, time.March, 26},
		Weekdays:    []int{2},
		StartTime:   Clock{9, 0},
		EndTime:     Clock{10, 0},
		Timezone:    "America/Edmonton",
	}
}

func (w *world) groupSpec() RecurrenceSpec {
	spec := w.edmontonTuesdays()
	spec.SessionType = SessionGroup
	spec.StudentID = nil
	spec.GroupID = &w.group
	return spec
}

func TestPreview_FreshRange(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)

	assert.Equal(t, 4, plan.WouldCreateCount)
	assert.Zero(t, plan.WouldSkipDuplicateCount)
	assert.Zero(t, plan.WouldConflictCount)
	assert.False(t, plan.ZoomLinkApplied)
	assert.Equal(t, "2024-03-05T07:00:00Z", plan.Range.From.Format(time.RFC3339))
	assert.Equal(t, "2024-03-27T06:00:00Z", plan.Range.To.Format(time.RFC3339))
	assert.Equal(t, 0, w.store.count(), "preview must not write")
}

func TestCommit_MatchesPreviewAndIsIdempotent(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	spec := w.edmontonTuesdays()

	plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)

	res, err := w.svc.Commit(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, plan.WouldCreateCount, res.CreatedCount)
	assert.Equal(t, plan.WouldSkipDuplicateCount, res.SkippedDuplicateCount)
	assert.Equal(t, plan.WouldConflictCount, res.ConflictCount)
	assert.Equal(t, plan.Range, res.Range)
	assert.Len(t, res.CreatedSampleIDs, 4)
	assert.Equal(t, 4, w.store.count())

	again, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, again.WouldCreateCount)
	assert.Equal(t, 4, again.WouldSkipDuplicateCount)
	assert.Equal(t, 0, again.WouldConflictCount)
	require.Len(t, again.DuplicateSamples, 4)
	assert.Equal(t, ReasonDuplicateSession, again.DuplicateSamples[0].Reason)

	res2, err := w.svc.Commit(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, res2.CreatedCount)
	assert.Equal(t, 4, res2.SkippedDuplicateCount)
	assert.Empty(t, res2.CreatedSampleIDs)
	assert.Equal(t, 4, w.store.count())
}

func TestCommit_WritesBookingRows(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	spec := w.groupSpec()
	link := "HTTPS://Zoom.US/j/123?pwd=AbC"
	spec.ZoomLink = &link

	res, err := w.svc.Commit(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	require.Equal(t, 4, res.CreatedCount)

	for _, r := range w.store.rows {
		assert.Equal(t, w.tenant, r.TenantID)
		assert.Equal(t, w.actor, r.CreatedBy)
		assert.Equal(t, SessionGroup, r.SessionType)
		require.NotNil(t, r.GroupID)
		assert.Equal(t, w.group, *r.GroupID)
		assert.Nil(t, r.StudentID)
		assert.ElementsMatch(t, w.groupMembers, r.StudentIDs)
		require.NotNil(t, r.ZoomLink)
		assert.Equal(t, "https://zoom.us/j/123?pwd=AbC", *r.ZoomLink)
		assert.Equal(t, time.Hour, r.EndAt.Sub(r.StartAt))
		assert.Equal(t, uuid.Version(7), r.ID.Version())
	}
}

func TestCommit_PublishesEvent(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	res, err := w.svc.Commit(ctx, w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)

	require.Len(t, w.pub.events, 1)
	ev := w.pub.events[0]
	assert.Equal(t, w.tenant, ev.TenantID)
	assert.Equal(t, w.actor, ev.ActorID)
	assert.Equal(t, *res, ev.Result)
	assert.Len(t, ev.CreatedIDs, 4)

	// Nothing new, nothing published.
	_, err = w.svc.Commit(ctx, w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)
	assert.Len(t, w.pub.events, 1)
}

func TestCommit_PublishFailureDoesNotFail(t *testing.T) {
	w := newWorld(t)
	w.pub.err = errors.New("nats down")

	res, err := w.svc.Commit(context.Background(), w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)
	assert.Equal(t, 4, res.CreatedCount)
}

func TestCommit_DriftCountsAsDuplicate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	spec := w.edmontonTuesdays()

	raced := false
	w.store.beforeInsert = func(s *fakeStore, b NewBooking) {
		if raced {
			return
		}
		raced = true
		dup := b
		dup.ID = uuid.New()
		s.rows = append(s.rows, storedBooking{dup})
	}

	res, err := w.svc.Commit(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CreatedCount)
	assert.Equal(t, 1, res.DriftCount)
	assert.Equal(t, 1, res.SkippedDuplicateCount)
	assert.Equal(t, 0, res.ConflictCount)
	assert.Equal(t, 4, w.store.count())
	assert.Equal(t, 1, w.store.commits)
}

func TestCommit_PersistenceFailureRollsBackEverything(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	boom := errors.New("connection reset")
	w.store.insertErr = func(n int, _ NewBooking) error {
		if n == 2 {
			return boom
		}
		return nil
	}

	res, err := w.svc.Commit(ctx, w.tenant, w.actor, w.edmontonTuesdays())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, boom))

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "insert booking", perr.Op)

	assert.Equal(t, 0, w.store.count())
	assert.Equal(t, 1, w.store.rollbacks)
	assert.Empty(t, w.pub.events)
}

func TestCommit_BeginFailure(t *testing.T) {
	w := newWorld(t)
	w.store.beginErr = errors.New("pool exhausted")

	_, err := w.svc.Commit(context.Background(), w.tenant, w.actor, w.edmontonTuesdays())
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestCommit_NothingToCreateOpensNoBatch(t *testing.T) {
	w := newWorld(t)
	w.store.beginErr = errors.New("must not be called")
	spec := w.edmontonTuesdays()
	spec.StartDate = Date{2024, time.March, 6}
	spec.EndDate = Date{2024, time.March, 11}

	res, err := w.svc.Commit(context.Background(), w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreatedCount)
}

func TestBuildPlan_StudentConflictAcrossTutors(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	otherTutor := uuid.New()
	start := time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)
	w.store.seed(NewBooking{
		ID: uuid.New(), TenantID: w.tenant, CenterID: w.center, TutorID: otherTutor,
		SessionType: SessionOneOnOne, StudentID: &w.student,
		StartAt: start, EndAt: start.Add(time.Hour), StudentIDs: []uuid.UUID{w.student},
	})

	plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)
	assert.Equal(t, 3, plan.WouldCreateCount)
	assert.Equal(t, 1, plan.WouldConflictCount)
	require.Len(t, plan.ConflictSamples, 1)
	assert.Equal(t, ReasonStudentStartCollision, plan.ConflictSamples[0].Reason)
	assert.True(t, plan.ConflictSamples[0].StartAt.Equal(start))

	// Same instant in another tenant is invisible.
	w2 := newWorld(t)
	w2.store = w.store
	w2.svc = New(w2.dir, w2.store, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	spec := w2.edmontonTuesdays()
	plan2, err := w2.svc.BuildPlan(ctx, w2.tenant, w2.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 4, plan2.WouldCreateCount)
}

func TestBuildPlan_GroupRosterReadOnce(t *testing.T) {
	w := newWorld(t)

	_, err := w.svc.BuildPlan(context.Background(), w.tenant, w.actor, w.groupSpec())
	require.NoError(t, err)
	assert.Equal(t, 1, w.dir.rosterHit)
	assert.Equal(t, 1, w.store.loadCalls)
}

func TestBuildPlan_EmptyGroupStillCreates(t *testing.T) {
	w := newWorld(t)
	w.dir.members[w.group] = nil

	res, err := w.svc.Commit(context.Background(), w.tenant, w.actor, w.groupSpec())
	require.NoError(t, err)
	assert.Equal(t, 4, res.CreatedCount)
}

func TestBuildPlan_SamplesAreCappedTotalsExact(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	spec := w.edmontonTuesdays()
	spec.Timezone = "UTC"
	spec.Weekdays = []int{1, 2, 3, 4, 5, 6, 7}
	spec.StartDate = Date{2025, time.January, 1}
	spec.EndDate = Date{2025, time.January, 15}

	_, err := w.svc.Commit(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)

	plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.Equal(t, 15, plan.WouldSkipDuplicateCount)
	assert.Len(t, plan.DuplicateSamples, DefaultSampleLimit)
	assert.Len(t, plan.Lines, 15)
}

func TestBuildPlan_LinesFollowOccurrenceOrder(t *testing.T) {
	w := newWorld(t)

	plan, err := w.svc.BuildPlan(context.Background(), w.tenant, w.actor, w.edmontonTuesdays())
	require.NoError(t, err)
	for i := 1; i < len(plan.Lines); i++ {
		assert.True(t, plan.Lines[i-1].When().StartAt.Before(plan.Lines[i].When().StartAt))
	}
}

func TestBuildPlan_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(w *world, spec *RecurrenceSpec)
		sentinel error
		field    string
	}{
		{
			name:     "invalid recurrence",
			setup:    func(_ *world, s *RecurrenceSpec) { s.Weekdays = []int{9} },
			sentinel: ErrInvalidRecurrence,
			field:    "weekdays",
		},
		{
			name: "one-on-one without student",
			setup: func(_ *world, s *RecurrenceSpec) {
				s.StudentID = nil
			},
			sentinel: ErrValidation,
			field:    "studentId",
		},
		{
			name: "group without group id",
			setup: func(_ *world, s *RecurrenceSpec) {
				s.SessionType = SessionGroup
				s.StudentID = nil
			},
			sentinel: ErrValidation,
			field:    "groupId",
		},
		{
			name: "one-on-one with group id",
			setup: func(w *world, s *RecurrenceSpec) {
				s.GroupID = &w.group
			},
			sentinel: ErrValidation,
			field:    "groupId",
		},
		{
			name: "range too long",
			setup: func(_ *world, s *RecurrenceSpec) {
				s.EndDate = s.StartDate.AddDays(DefaultMaxRangeDays + 1)
			},
			sentinel: ErrValidation,
			field:    "endDate",
		},
		{
			name:     "unknown center",
			setup:    func(_ *world, s *RecurrenceSpec) { s.CenterID = uuid.New() },
			sentinel: ErrNotFound,
			field:    "centerId",
		},
		{
			name: "center of another tenant",
			setup: func(w *world, s *RecurrenceSpec) {
				other := uuid.New()
				w.dir.centers[other] = uuid.New()
				s.CenterID = other
			},
			sentinel: ErrNotFound,
			field:    "centerId",
		},
		{
			name: "tutor lacks role",
			setup: func(w *world, _ *RecurrenceSpec) {
				w.dir.roles[memberKey{w.tenant, w.tutor}] = "STUDENT"
			},
			sentinel: ErrNotFound,
			field:    "tutorId",
		},
		{
			name: "tutor not assigned to center",
			setup: func(w *world, _ *RecurrenceSpec) {
				delete(w.dir.assigned, [2]uuid.UUID{w.tutor, w.center})
			},
			sentinel: ErrValidation,
			field:    "tutorId",
		},
		{
			name: "unknown student",
			setup: func(_ *world, s *RecurrenceSpec) {
				id := uuid.New()
				s.StudentID = &id
			},
			sentinel: ErrNotFound,
			field:    "studentId",
		},
		{
			name: "unknown group",
			setup: func(_ *world, s *RecurrenceSpec) {
				id := uuid.New()
				s.SessionType = SessionGroup
				s.StudentID = nil
				s.GroupID = &id
			},
			sentinel: ErrNotFound,
			field:    "groupId",
		},
		{
			name: "group type mismatch",
			setup: func(w *world, s *RecurrenceSpec) {
				s.SessionType = SessionGroup
				s.StudentID = nil
				s.GroupID = &w.class
			},
			sentinel: ErrValidation,
			field:    "groupId",
		},
		{
			name: "group in other center",
			setup: func(w *world, s *RecurrenceSpec) {
				g := w.dir.groups[w.group]
				g.CenterID = uuid.New()
				w.dir.groups[w.group] = g
				s.SessionType = SessionGroup
				s.StudentID = nil
				s.GroupID = &w.group
			},
			sentinel: ErrValidation,
			field:    "groupId",
		},
		{
			name: "zoom link without scheme",
			setup: func(_ *world, s *RecurrenceSpec) {
				link := "zoom.us/j/1"
				s.ZoomLink = &link
			},
			sentinel: ErrValidation,
			field:    "zoomLink",
		},
		{
			name: "zoom link ftp",
			setup: func(_ *world, s *RecurrenceSpec) {
				link := "ftp://zoom.us/j/1"
				s.ZoomLink = &link
			},
			sentinel: ErrValidation,
			field:    "zoomLink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t)
			spec := w.edmontonTuesdays()
			tt.setup(w, &spec)

			plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, spec)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)

			var verr *ValidationError
			var nerr *NotFoundError
			switch {
			case errors.As(err, &verr):
				assert.Equal(t, tt.field, verr.Field)
			case errors.As(err, &nerr):
				assert.Equal(t, tt.field, nerr.Field)
			default:
				t.Fatalf("unexpected error type %T", err)
			}
			assert.Zero(t, w.store.loadCalls, "invalid input must not reach the loader")

			_, err = w.svc.Commit(ctx, w.tenant, w.actor, spec)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.Equal(t, 0, w.store.count())
		})
	}
}

func TestBuildPlan_BlankZoomLinkNotApplied(t *testing.T) {
	w := newWorld(t)
	spec := w.edmontonTuesdays()
	blank := "   "
	spec.ZoomLink = &blank

	plan, err := w.svc.BuildPlan(context.Background(), w.tenant, w.actor, spec)
	require.NoError(t, err)
	assert.False(t, plan.ZoomLinkApplied)
	assert.Empty(t, plan.ZoomLink)
}

func TestBuildPlan_LoaderFailure(t *testing.T) {
	w := newWorld(t)
	w.store.loadErr = errors.New("timeout")

	_, err := w.svc.BuildPlan(context.Background(), w.tenant, w.actor, w.edmontonTuesdays())
	assert.True(t, errors.Is(err, ErrPersistence))
}

func TestBuildPlan_CreateLinesCarryBooking(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	link := "https://zoom.us/j/42"

	t.Run("one on one", func(t *testing.T) {
		spec := w.edmontonTuesdays()
		spec.ZoomLink = &link

		plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, spec)
		require.NoError(t, err)
		require.Len(t, plan.Lines, 4)

		for _, line := range plan.Lines {
			cl, ok := line.(CreateLine)
			require.True(t, ok)
			b := cl.Booking
			assert.Equal(t, uuid.Nil, b.ID)
			assert.Equal(t, w.tenant, b.TenantID)
			assert.Equal(t, w.center, b.CenterID)
			assert.Equal(t, w.tutor, b.TutorID)
			assert.Equal(t, w.actor, b.CreatedBy)
			assert.Equal(t, SessionOneOnOne, b.SessionType)
			assert.Equal(t, cl.Occurrence.StartAt, b.StartAt)
			assert.Equal(t, cl.Occurrence.EndAt, b.EndAt)
			require.NotNil(t, b.StudentID)
			assert.Equal(t, w.student, *b.StudentID)
			assert.Nil(t, b.GroupID)
			require.NotNil(t, b.ZoomLink)
			assert.Equal(t, link, *b.ZoomLink)
			assert.ElementsMatch(t, []uuid.UUID{w.student}, b.StudentIDs)
		}
	})

	t.Run("group without zoom link", func(t *testing.T) {
		plan, err := w.svc.BuildPlan(ctx, w.tenant, w.actor, w.groupSpec())
		require.NoError(t, err)
		require.NotEmpty(t, plan.Lines)

		cl, ok := plan.Lines[0].(CreateLine)
		require.True(t, ok)
		require.NotNil(t, cl.Booking.GroupID)
		assert.Equal(t, w.group, *cl.Booking.GroupID)
		assert.Nil(t, cl.Booking.StudentID)
		assert.Nil(t, cl.Booking.ZoomLink)
		assert.ElementsMatch(t, w.groupMembers, cl.Booking.StudentIDs)
	})
}
