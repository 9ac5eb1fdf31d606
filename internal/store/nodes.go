// internal/store/nodes.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"smartbuilding-workers/internal/models"
)

// NodeStore reads the IoT node catalogue for intent target resolution
// and system status summaries.
type NodeStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Node, error)
}

type PostgresNodeStore struct {
	db *sql.DB
}

func NewPostgresNodeStore(db *sql.DB) *PostgresNodeStore {
	return &PostgresNodeStore{db: db}
}

func (s *PostgresNodeStore) ListByTenant(ctx context.Context, tenantID string) ([]models.Node, error) {
	const query = `
		SELECT id, tenant_id, name, kind, COALESCE(room, ''), online
		FROM iot_nodes
		WHERE tenant_id = $1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list nodes for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		var n models.Node
		if err := rows.Scan(&n.ID, &n.TenantID, &n.Name, &n.Kind, &n.Room, &n.Online); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}
