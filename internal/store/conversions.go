// internal/store/conversions.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartbuilding-workers/internal/models"
)

// ErrNoConversions is returned when a tenant has never started a
// conversion; the bim_status handler turns it into a friendly reply.
var ErrNoConversions = errors.New("no conversion jobs found")

// ConversionStore reads the state the conversion pipeline writes; this
// core never updates conversion jobs, it only starts and reports them.
type ConversionStore interface {
	Latest(ctx context.Context, tenantID string) (*models.ConversionJob, error)
}

type PostgresConversionStore struct {
	db *sql.DB
}

func NewPostgresConversionStore(db *sql.DB) *PostgresConversionStore {
	return &PostgresConversionStore{db: db}
}

func (s *PostgresConversionStore) Latest(ctx context.Context, tenantID string) (*models.ConversionJob, error) {
	const query = `
		SELECT id, tenant_id, target_id, status, progress, updated_at
		FROM conversion_jobs
		WHERE tenant_id = $1
		ORDER BY updated_at DESC
		LIMIT 1`

	var job models.ConversionJob
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(
		&job.ID, &job.TenantID, &job.TargetID, &job.Status, &job.Progress, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoConversions
	}
	if err != nil {
		return nil, fmt.Errorf("latest conversion for tenant %s: %w", tenantID, err)
	}
	return &job, nil
}
