package scheduling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

type memberKey struct{ tenant, user uuid.UUID }

type fakeDirectory struct {
	centers   map[uuid.UUID]uuid.UUID // center -> tenant
	roles     map[memberKey]string
	assigned  map[[2]uuid.UUID]bool // tutor, center
	students  map[uuid.UUID]uuid.UUID
	groups    map[uuid.UUID]Group
	groupTen  map[uuid.UUID]uuid.UUID
	members   map[uuid.UUID][]uuid.UUID
	err       error
	rosterHit int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		centers:  map[uuid.UUID]uuid.UUID{},
		roles:    map[memberKey]string{},
		assigned: map[[2]uuid.UUID]bool{},
		students: map[uuid.UUID]uuid.UUID{},
		groups:   map[uuid.UUID]Group{},
		groupTen: map[uuid.UUID]uuid.UUID{},
		members:  map[uuid.UUID][]uuid.UUID{},
	}
}

func (d *fakeDirectory) CenterExists(_ context.Context, tenantID, centerID uuid.UUID) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	t, ok := d.centers[centerID]
	return ok && t == tenantID, nil
}

func (d *fakeDirectory) HasRole(_ context.Context, tenantID, userID uuid.UUID, role string) (bool, error) {
	return d.roles[memberKey{tenantID, userID}] == role, nil
}

func (d *fakeDirectory) TutorAssigned(_ context.Context, _, tutorID, centerID uuid.UUID) (bool, error) {
	return d.assigned[[2]uuid.UUID{tutorID, centerID}], nil
}

func (d *fakeDirectory) StudentExists(_ context.Context, tenantID, studentID uuid.UUID) (bool, error) {
	t, ok := d.students[studentID]
	return ok && t == tenantID, nil
}

func (d *fakeDirectory) FindGroup(_ context.Context, tenantID, groupID uuid.UUID) (*Group, error) {
	g, ok := d.groups[groupID]
	if !ok || d.groupTen[groupID] != tenantID {
		return nil, nil
	}
	return &g, nil
}

func (d *fakeDirectory) GroupRoster(_ context.Context, _, groupID uuid.UUID) ([]uuid.UUID, error) {
	d.rosterHit++
	return slices.Clone(d.members[groupID]), nil
}

// ---------------------------------------------------------------------------
// Booking store
// ---------------------------------------------------------------------------

type storedBooking struct {
	NewBooking
}

func identityOf(b NewBooking) string {
	subject := uuid.Nil
	if b.SessionType.GroupBased() && b.GroupID != nil {
		subject = *b.GroupID
	} else if b.StudentID != nil {
		subject = *b.StudentID
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d", b.TenantID, b.CenterID, b.TutorID, b.SessionType, subject, b.StartAt.UnixNano())
}

type fakeStore struct {
	mu        sync.Mutex
	rows      []storedBooking
	loadCalls int
	loadErr   error

	// beforeInsert runs before each staged insert; it may mutate rows to
	// simulate a concurrent writer.
	beforeInsert func(s *fakeStore, b NewBooking)
	insertErr    func(n int, b NewBooking) error
	beginErr     error
	rollbacks    int
	commits      int
}

func (s *fakeStore) seed(b NewBooking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, storedBooking{b})
}

func (s *fakeStore) LoadBookings(_ context.Context, tenantID uuid.UUID, starts []time.Time) (*BookingIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix := NewBookingIndex()
	if len(starts) == 0 {
		return ix, nil
	}
	s.loadCalls++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	want := map[int64]bool{}
	for _, t := range starts {
		want[t.UnixNano()] = true
	}
	for _, r := range s.rows {
		if r.TenantID != tenantID || !want[r.StartAt.UnixNano()] {
			continue
		}
		ix.Put(ExistingBooking{
			ID:          r.ID,
			CenterID:    r.CenterID,
			TutorID:     r.TutorID,
			GroupID:     r.GroupID,
			SessionType: r.SessionType,
			StartAt:     r.StartAt,
			StudentIDs:  r.StudentIDs,
		})
	}
	return ix, nil
}

func (s *fakeStore) BeginBatch(context.Context) (BookingTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeTx struct {
	store  *fakeStore
	staged []storedBooking
	done   bool
}

func (tx *fakeTx) InsertBooking(_ context.Context, b NewBooking) error {
	if tx.done {
		return errors.New("tx already finished")
	}
	if tx.store.beforeInsert != nil {
		tx.store.beforeInsert(tx.store, b)
	}
	if tx.store.insertErr != nil {
		if err := tx.store.insertErr(len(tx.staged), b); err != nil {
			return err
		}
	}

	key := identityOf(b)
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, r := range tx.store.rows {
		if identityOf(r.NewBooking) == key {
			return fmt.Errorf("insert booking: %w", ErrDuplicateBooking)
		}
	}
	for _, r := range tx.staged {
		if identityOf(r.NewBooking) == key {
			return fmt.Errorf("insert booking: %w", ErrDuplicateBooking)
		}
	}
	tx.staged = append(tx.staged, storedBooking{b})
	return nil
}

func (tx *fakeTx) Commit() error {
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.rows = append(tx.store.rows, tx.staged...)
	tx.store.commits++
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.done = true
	tx.staged = nil
	tx.store.rollbacks++
	return nil
}

// ---------------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------------

type fakePublisher struct {
	events []BatchCreated
	err    error
}

func (p *fakePublisher) PublishBatchCreated(_ context.Context, ev BatchCreated) error {
	p.events = append(p.events, ev)
	return p.err
}
