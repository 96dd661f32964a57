package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"khadamat/internal/models"

	json "github.com/goccy/go-json"
)

// bookingAttrs is the persisted shape of the per-category detail
// union. At most one member is non-nil.
type bookingAttrs struct {
	Delivery    *models.DeliveryDetails    `json:"delivery,omitempty"`
	Trip        *models.TripDetails        `json:"trip,omitempty"`
	Maintenance *models.MaintenanceDetails `json:"maintenance,omitempty"`
}

const bookingColumns = `id, service_id, service_name, category, full_name, phone,
	address, details, attrs, answers, status, created_at, updated_at, version`

func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	attrs, err := json.Marshal(bookingAttrs{Delivery: b.Delivery, Trip: b.Trip, Maintenance: b.Maintenance})
	if err != nil {
		return fmt.Errorf("encode booking attrs: %w", err)
	}
	answers, err := json.Marshal(b.Answers)
	if err != nil {
		return fmt.Errorf("encode booking answers: %w", err)
	}

	// Timestamps are system-set; anything client-supplied is ignored.
	now := time.Now().UTC()
	query := `INSERT INTO bookings (
				service_id, service_name, category, full_name, phone, address,
				details, attrs, answers, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		b.ServiceID,
		b.ServiceName,
		b.Category,
		b.FullName,
		b.Phone,
		b.Address,
		b.Details,
		string(attrs),
		string(answers),
		b.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get booking id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns the full collection ordered by creation time
// descending, newest first. The poller depends on this ordering.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (db *DB) ListBookingsByStatus(ctx context.Context, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? ORDER BY created_at DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list bookings by status: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings by status: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatusWithVersion persists a status change only when
// the caller still holds the current version. A zero rows-affected
// result means another session won the race.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

// DeleteBooking is irreversible and has no lifecycle precondition.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var serviceID sql.NullInt64
	var details, attrsRaw, answersRaw sql.NullString
	err := row.Scan(
		&b.ID, &serviceID, &b.ServiceName, &b.Category, &b.FullName, &b.Phone,
		&b.Address, &details, &attrsRaw, &answersRaw, &b.Status,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.ServiceID = serviceID.Int64
	b.Details = details.String

	if attrsRaw.Valid && attrsRaw.String != "" {
		var attrs bookingAttrs
		if err := json.Unmarshal([]byte(attrsRaw.String), &attrs); err != nil {
			return nil, fmt.Errorf("decode booking attrs: %w", err)
		}
		b.Delivery = attrs.Delivery
		b.Trip = attrs.Trip
		b.Maintenance = attrs.Maintenance
	}
	if answersRaw.Valid && answersRaw.String != "" && answersRaw.String != "null" {
		if err := json.Unmarshal([]byte(answersRaw.String), &b.Answers); err != nil {
			return nil, fmt.Errorf("decode booking answers: %w", err)
		}
	}
	return b, nil
}
