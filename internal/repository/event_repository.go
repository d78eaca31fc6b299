package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// EventRepo is the capacity store.  It owns the events table, whose
// available_seats column is the single source of truth for admission
// control.  Methods join the caller's transaction when ctx carries one
// (see TxManager).
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, location, starts_at, total_seats, available_seats,
                      price_cents, status, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var desc sql.NullString
	var status string
	if err := row.Scan(&e.ID, &e.Title, &desc, &e.Location, &e.StartsAt, &e.TotalSeats,
		&e.AvailableSeats, &e.PriceCents, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Description = desc.String
	e.Status = model.EventStatus(status)
	return &e, nil
}

// Create inserts a new event with available_seats equal to total_seats
// and populates the generated ID and DB defaults on e.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (title, description, location, starts_at, total_seats, available_seats, price_cents, status)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if e.Status == "" {
		e.Status = model.EventUpcoming
	}
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx, q, e.Title, e.Description, e.Location, e.StartsAt.UTC(),
		e.TotalSeats, e.TotalSeats, e.PriceCents, string(e.Status))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	// Query back the full row to populate timestamps and defaults
	got, err := scanEvent(db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("reload event: %w", err)
	}
	*e = *got
	return nil
}

// GetByID returns the event with the given id or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// GetForUpdate reads the event row under an exclusive row lock.  It must
// be called inside a transaction; concurrent callers for the same event
// block until the holder commits or rolls back.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Event, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, fmt.Errorf("get event for update: no transaction in context")
	}
	e, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event for update: %w", err)
	}
	return e, nil
}

// DecrementAvailable subtracts quantity from available_seats.  The
// statement is guarded so it can never take the column below zero; when
// the guard rejects the update ErrConflict is returned.
func (r *EventRepo) DecrementAvailable(ctx context.Context, id uint64, quantity int) error {
	const q = `UPDATE events SET available_seats = available_seats - ?
               WHERE id = ? AND available_seats >= ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, quantity, id, quantity)
	if err != nil {
		return fmt.Errorf("decrement available seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement available seats: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// List returns all events ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY starts_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// UpdateStatus changes the informational status of an event.
func (r *EventRepo) UpdateStatus(ctx context.Context, id uint64, status model.EventStatus) (*model.Event, error) {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE events SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}
	// MySQL reports zero affected rows for an unchanged value, so the
	// reload decides between success and not found.
	return r.GetByID(ctx, id)
}
