package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// EventStore is the event catalogue.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) (*model.Event, error)
}

// EventService exposes the events that supply booking capacity.
type EventService struct {
	events EventStore
}

func NewEventService(events EventStore) *EventService { return &EventService{events: events} }

// CreateEventInput describes a new event.  Available seats start equal
// to TotalSeats.
type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	TotalSeats  int
	PriceCents  int64
	Status      model.EventStatus
}

func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	case in.StartsAt.IsZero():
		return nil, fmt.Errorf("%w: starts_at is required", ErrInvalidRequest)
	case in.TotalSeats <= 0:
		return nil, fmt.Errorf("%w: total_seats must be positive", ErrInvalidRequest)
	case in.PriceCents < 0:
		return nil, fmt.Errorf("%w: price_cents must not be negative", ErrInvalidRequest)
	}
	if in.Status == "" {
		in.Status = model.EventUpcoming
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, in.Status)
	}
	e := &model.Event{
		Title:       in.Title,
		Description: in.Description,
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    in.StartsAt.UTC(),
		TotalSeats:  in.TotalSeats,
		PriceCents:  in.PriceCents,
		Status:      in.Status,
	}
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventService) Get(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, id)
	return e, notFound(err, id)
}

func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// SetStatus changes the informational status.  It never touches capacity.
func (s *EventService) SetStatus(ctx context.Context, id uint64, status model.EventStatus) (*model.Event, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	e, err := s.events.UpdateStatus(ctx, id, status)
	return e, notFound(err, id)
}

func notFound(err error, id uint64) error {
	if errors.Is(err, repository.ErrEventNotFound) {
		return fmt.Errorf("%w: event %d", ErrNotFound, id)
	}
	return err
}
