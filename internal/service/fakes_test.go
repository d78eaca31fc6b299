package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

type inTxKey struct{}

// memStore is an in-memory stand-in for the MySQL repositories.  A
// transaction holds mu for its whole duration, which is how FOR UPDATE
// behaves for a single event row, and restores a snapshot on rollback.
type memStore struct {
	mu       sync.Mutex
	events   map[uint64]model.Event
	bookings []model.Booking
	nextID   uint64

	failCreate error
	commits    int
	rollbacks  int
}

func newMemStore(events ...model.Event) *memStore {
	s := &memStore{events: map[uint64]model.Event{}}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make(map[uint64]model.Event, len(s.events))
	for k, v := range s.events {
		events[k] = v
	}
	bookings := append([]model.Booking(nil), s.bookings...)
	nextID := s.nextID

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.events, s.bookings, s.nextID = events, bookings, nextID
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *memStore) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	if ctx.Value(inTxKey{}) == nil {
		return nil, errors.New("GetForUpdate outside transaction")
	}
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

func (s *memStore) DecrementAvailable(ctx context.Context, id uint64, quantity int) error {
	e := s.events[id]
	if e.AvailableSeats < quantity {
		return repository.ErrConflict
	}
	e.AvailableSeats -= quantity
	s.events[id] = e
	return nil
}

func (s *memStore) Create(ctx context.Context, b *model.Booking) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Date(2026, 10, 14, 12, 0, int(s.nextID), 0, time.UTC)
	s.bookings = append(s.bookings, *b)
	return nil
}

// the read side locks too so tests can call it outside a transaction

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	unlock := s.lockUnlessTx(ctx)
	defer unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *memStore) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	unlock := s.lockUnlessTx(ctx)
	defer unlock()
	out := []model.Booking{}
	for i := len(s.bookings) - 1; i >= 0; i-- {
		if f.UserID == nil || s.bookings[i].UserID == *f.UserID {
			out = append(out, s.bookings[i])
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	unlock := s.lockUnlessTx(ctx)
	defer unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings[i].Status = status
		}
	}
	return nil
}

func (s *memStore) lockUnlessTx(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) event(id uint64) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

type releaseCall struct {
	eventID uint64
	seats   []int
}

type fakeReleaser struct {
	mu    sync.Mutex
	calls []releaseCall
	err   error
}

func (r *fakeReleaser) Release(ctx context.Context, eventID uint64, seats []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, releaseCall{eventID, append([]int(nil), seats...)})
	return r.err
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []queue.BookingConfirmedEvent
	err  error
}

func (p *fakePublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, ev)
	return p.err
}

type fakeEvents struct {
	created []model.Event
	byID    map[uint64]model.Event
}

func (f *fakeEvents) Create(ctx context.Context, e *model.Event) error {
	e.ID = uint64(len(f.created) + 1)
	e.AvailableSeats = e.TotalSeats
	f.created = append(f.created, *e)
	return nil
}

func (f *fakeEvents) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

func (f *fakeEvents) List(ctx context.Context) ([]model.Event, error) {
	out := []model.Event{}
	for _, e := range f.byID {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEvents) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) (*model.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	e.Status = status
	f.byID[id] = e
	return &e, nil
}
