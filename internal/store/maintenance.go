// internal/store/maintenance.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartbuilding-workers/internal/models"

	"github.com/google/uuid"
)

// MaintenanceStore serves the maintenance_create and maintenance_status
// actions.
type MaintenanceStore interface {
	Create(ctx context.Context, req models.MaintenanceRequest) (string, error)
	CountByStatus(ctx context.Context, tenantID string) (models.MaintenanceCounts, error)
}

type PostgresMaintenanceStore struct {
	db *sql.DB
}

func NewPostgresMaintenanceStore(db *sql.DB) *PostgresMaintenanceStore {
	return &PostgresMaintenanceStore{db: db}
}

func (s *PostgresMaintenanceStore) Create(ctx context.Context, req models.MaintenanceRequest) (string, error) {
	const query = `
		INSERT INTO maintenance_requests (id, tenant_id, user_id, description, priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'open', $6)`

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}

	_, err := s.db.ExecContext(ctx, query, id, req.TenantID, req.UserID, req.Description, priority, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("create maintenance request: %w", err)
	}
	return id, nil
}

func (s *PostgresMaintenanceStore) CountByStatus(ctx context.Context, tenantID string) (models.MaintenanceCounts, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'closed')
		FROM maintenance_requests
		WHERE tenant_id = $1`

	var counts models.MaintenanceCounts
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(&counts.Open, &counts.InProgress, &counts.Closed)
	if err != nil {
		return counts, fmt.Errorf("count maintenance requests for tenant %s: %w", tenantID, err)
	}
	return counts, nil
}
