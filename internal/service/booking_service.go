package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CapacityStore is the part of the event repository the committer needs.
type CapacityStore interface {
	GetForUpdate(ctx context.Context, id uint64) (*model.Event, error)
	DecrementAvailable(ctx context.Context, id uint64, quantity int) error
}

// BookingStore persists and reads bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
}

// SeatReleaser frees seat locks once a booking is durable.
type SeatReleaser interface {
	Release(ctx context.Context, eventID uint64, seats []int) error
}

// BookingPublisher announces confirmed bookings.
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// CommitInput is a booking request.  A nil Quantity defaults to the
// number of seats; a nil TotalAmountCents is priced from the event.
type CommitInput struct {
	EventID          uint64
	UserID           uint64
	Quantity         *int
	Seats            []int
	TotalAmountCents *int64
	Contact          model.ContactInfo
}

// Viewer is the caller of a read operation.
type Viewer struct {
	UserID uint64
	Admin  bool
}

// BookingOptions configures a BookingService.  Releaser and Publisher
// are optional.
type BookingOptions struct {
	Tx            Transactor
	Events        CapacityStore
	Bookings      BookingStore
	Releaser      SeatReleaser
	Publisher     BookingPublisher
	Logger        *slog.Logger
	CommitTimeout time.Duration
}

// BookingService commits bookings against event capacity and serves the
// read and status operations over the booking store.
type BookingService struct {
	tx            Transactor
	events        CapacityStore
	bookings      BookingStore
	releaser      SeatReleaser
	publisher     BookingPublisher
	log           *slog.Logger
	commitTimeout time.Duration
	now           func() time.Time
	async         func(func())
}

func NewBookingService(o BookingOptions) *BookingService {
	s := &BookingService{
		tx:            o.Tx,
		events:        o.Events,
		bookings:      o.Bookings,
		releaser:      o.Releaser,
		publisher:     o.Publisher,
		log:           o.Logger,
		commitTimeout: o.CommitTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		async:         func(f func()) { go f() },
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.commitTimeout <= 0 {
		s.commitTimeout = 10 * time.Second
	}
	return s
}

// Commit validates the request, then in one transaction locks the event
// row, re-checks capacity, decrements it and inserts a confirmed
// booking.  Failures roll back before the error is returned.  After the
// commit the booked seats are released from the lock table and a
// booking.confirmed message is published; neither affects the result.
//
// The transaction runs detached from the caller's cancellation, bounded
// only by the commit timeout.
func (s *BookingService) Commit(ctx context.Context, in CommitInput) (*model.Booking, error) {
	qty, seats, err := validateCommit(in)
	if err != nil {
		return nil, err
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	var booking *model.Booking
	var event *model.Event
	err = s.tx.WithTx(tctx, func(ctx context.Context) error {
		ev, err := s.events.GetForUpdate(ctx, in.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return fmt.Errorf("%w: event %d", ErrNotFound, in.EventID)
			}
			return err
		}
		if ev.AvailableSeats < qty {
			return fmt.Errorf("%w: %d requested, %d available", ErrInsufficientCapacity, qty, ev.AvailableSeats)
		}
		if err := s.events.DecrementAvailable(ctx, in.EventID, qty); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: capacity changed during commit", ErrInsufficientCapacity)
			}
			return err
		}

		total := ev.PriceCents * int64(qty)
		if in.TotalAmountCents != nil {
			total = *in.TotalAmountCents
		}
		b := &model.Booking{
			EventID:          in.EventID,
			UserID:           in.UserID,
			Seats:            seats,
			Quantity:         qty,
			TotalAmountCents: total,
			Status:           model.BookingConfirmed,
			Contact:          in.Contact,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		b.Event = &model.EventSummary{Title: ev.Title, StartsAt: ev.StartsAt, Location: ev.Location}
		booking, event = b, ev
		return nil
	})
	if err != nil {
		if !isDomainError(err) {
			s.log.Error("booking commit failed",
				"event_id", in.EventID, "user_id", in.UserID, "quantity", qty, "error", err)
		}
		return nil, err
	}

	s.afterCommit(ctx, booking, event)
	return booking, nil
}

func validateCommit(in CommitInput) (int, model.SeatSet, error) {
	if in.EventID == 0 {
		return 0, nil, fmt.Errorf("%w: event_id is required", ErrInvalidRequest)
	}
	if in.UserID == 0 {
		return 0, nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	for _, s := range in.Seats {
		if s < 0 {
			return 0, nil, fmt.Errorf("%w: seat indices must not be negative", ErrInvalidRequest)
		}
	}
	seats := model.NewSeatSet(in.Seats...)
	qty := len(seats)
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty <= 0 {
		return 0, nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if in.TotalAmountCents != nil && *in.TotalAmountCents < 0 {
		return 0, nil, fmt.Errorf("%w: total_amount_cents must not be negative", ErrInvalidRequest)
	}
	return qty, seats, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientCapacity) || errors.Is(err, ErrConflict)
}

func (s *BookingService) afterCommit(ctx context.Context, b *model.Booking, ev *model.Event) {
	bg := context.WithoutCancel(ctx)
	if s.releaser != nil && len(b.Seats) > 0 {
		rctx, cancel := context.WithTimeout(bg, 2*time.Second)
		if err := s.releaser.Release(rctx, b.EventID, b.Seats); err != nil {
			s.log.Warn("release seat locks failed", "event_id", b.EventID, "booking_id", b.ID, "error", err)
		}
		cancel()
	}
	if s.publisher == nil {
		return
	}
	msg := queue.BookingConfirmedEvent{
		BookingID:        b.ID,
		UserID:           b.UserID,
		EventID:          b.EventID,
		EventTitle:       ev.Title,
		Location:         ev.Location,
		StartsAt:         ev.StartsAt.UTC().Format(time.RFC3339),
		Seats:            append([]int{}, b.Seats...),
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		ConfirmedAt:      s.now().Format(time.RFC3339),
	}
	s.async(func() {
		pctx, cancel := context.WithTimeout(bg, 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishBookingConfirmed(pctx, msg); err != nil {
			s.log.Warn("publish booking.confirmed failed", "booking_id", msg.BookingID, "error", err)
		}
	})
}

// Get returns one booking.  Non-admin viewers may only read their own.
func (s *BookingService) Get(ctx context.Context, id uint64, v Viewer) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, fmt.Errorf("%w: booking %d", ErrNotFound, id)
		}
		return nil, err
	}
	if !v.Admin && b.UserID != v.UserID {
		return nil, ErrForbidden
	}
	return b, nil
}

// List returns bookings newest first.  Admins see everything or the
// bookings of userID when set.  Other viewers are always restricted to
// their own bookings and asking for someone else's is forbidden.
func (s *BookingService) List(ctx context.Context, v Viewer, userID *uint64) ([]model.Booking, error) {
	f := repository.BookingFilter{UserID: userID}
	if !v.Admin {
		if userID != nil && *userID != v.UserID {
			return nil, ErrForbidden
		}
		own := v.UserID
		f.UserID = &own
	}
	return s.bookings.List(ctx, f)
}

// SetStatus changes a booking's status.  Capacity is left untouched,
// including when a confirmed booking is cancelled.
func (s *BookingService) SetStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	if _, err := s.Get(ctx, id, Viewer{Admin: true}); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, Viewer{Admin: true})
}
