// internal/store/bookings.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartbuilding-workers/internal/models"

	"github.com/google/uuid"
)

// BookingStore serves the booking_create and booking_list actions.
type BookingStore interface {
	Create(ctx context.Context, booking models.Booking) (string, error)
	ListUpcoming(ctx context.Context, tenantID, userID string, limit int) ([]models.Booking, error)
}

type PostgresBookingStore struct {
	db *sql.DB
}

func NewPostgresBookingStore(db *sql.DB) *PostgresBookingStore {
	return &PostgresBookingStore{db: db}
}

func (s *PostgresBookingStore) Create(ctx context.Context, booking models.Booking) (string, error) {
	const query = `
		INSERT INTO bookings (id, tenant_id, user_id, space, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	id := booking.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, query, id, booking.TenantID, booking.UserID, booking.Space, booking.StartsAt, booking.EndsAt)
	if err != nil {
		return "", fmt.Errorf("create booking: %w", err)
	}
	return id, nil
}

func (s *PostgresBookingStore) ListUpcoming(ctx context.Context, tenantID, userID string, limit int) ([]models.Booking, error) {
	const query = `
		SELECT id, tenant_id, user_id, space, starts_at, ends_at
		FROM bookings
		WHERE tenant_id = $1 AND user_id = $2 AND ends_at > $3
		ORDER BY starts_at
		LIMIT $4`

	rows, err := s.db.QueryContext(ctx, query, tenantID, userID, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %s: %w", userID, err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.TenantID, &b.UserID, &b.Space, &b.StartsAt, &b.EndsAt); err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
