package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// BookingRepo persists bookings.  Bookings are inserted once by the
// booking commit and afterwards only their status changes; rows are
// never deleted.  All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingFilter narrows List.  A nil UserID lists every booking.
type BookingFilter struct {
	UserID *uint64
}

const bookingSelect = `SELECT b.id, b.event_id, b.user_id, b.quantity, b.total_amount_cents, b.status,
                              b.seats, b.contact_name, b.contact_email, b.contact_mobile,
                              b.created_at, b.updated_at,
                              e.title, e.starts_at, e.location
                       FROM bookings b
                       JOIN events e ON e.id = b.event_id`

// scanBooking reads one projection row.  The seats column degrades to
// the empty set when NULL or malformed (see model.SeatSet.Scan) and an
// unknown status falls back to pending, so a damaged field never fails
// the row.
func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var status sql.NullString
	var ev model.EventSummary
	if err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalAmountCents, &status,
		&b.Seats, &b.Contact.Name, &b.Contact.Email, &b.Contact.Mobile,
		&b.CreatedAt, &b.UpdatedAt,
		&ev.Title, &ev.StartsAt, &ev.Location); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status.String)
	if !b.Status.Valid() {
		b.Status = model.BookingPending
	}
	if b.Seats == nil {
		b.Seats = model.SeatSet{}
	}
	b.Event = &ev
	return &b, nil
}

// Create inserts a booking within the caller's transaction (when ctx
// carries one) and populates the generated ID and timestamps on b.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (event_id, user_id, quantity, total_amount_cents, status, seats,
                                     contact_name, contact_email, contact_mobile)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	db := conn(ctx, r.db)
	res, err := db.ExecContext(ctx, q, b.EventID, b.UserID, b.Quantity, b.TotalAmountCents, string(b.Status),
		b.Seats.Encode(), b.Contact.Name, b.Contact.Email, b.Contact.Mobile)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID = uint64(id)
	// Query back the timestamps assigned by the database
	var createdAt, updatedAt time.Time
	if err := db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).
		Scan(&createdAt, &updatedAt); err != nil {
		return fmt.Errorf("reload booking: %w", err)
	}
	b.CreatedAt, b.UpdatedAt = createdAt, updatedAt
	return nil
}

// GetByID returns a booking with its event summary or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// List returns bookings newest first.  When no bookings exist an empty
// slice is returned.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	q := bookingSelect
	args := []any{}
	if f.UserID != nil {
		q += ` WHERE b.user_id = ?`
		args = append(args, *f.UserID)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status column.  It has no capacity side effects.
// A missing booking is not detected here; callers reload with GetByID.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}
