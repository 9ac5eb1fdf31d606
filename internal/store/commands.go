// internal/store/commands.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"smartbuilding-workers/internal/models"
)

// CommandStore persists CommandRecord lifecycle mutations. The state
// machine driver is the only writer.
type CommandStore interface {
	Get(ctx context.Context, id string) (*models.CommandRecord, error)
	SetStatus(ctx context.Context, id string, status models.CommandStatus) error
	SetInputText(ctx context.Context, id, text string) error
	Complete(ctx context.Context, id, responseText string) error
}

// PostgresCommandStore backs CommandStore with the voice_commands table.
type PostgresCommandStore struct {
	db *sql.DB
}

func NewPostgresCommandStore(db *sql.DB) *PostgresCommandStore {
	return &PostgresCommandStore{db: db}
}

func (s *PostgresCommandStore) Get(ctx context.Context, id string) (*models.CommandRecord, error) {
	const query = `
		SELECT id, tenant_id, user_id, status, COALESCE(input_text, ''), COALESCE(response_text, ''), COALESCE(audio_ref, ''), created_at, updated_at
		FROM voice_commands
		WHERE id = $1`

	var rec models.CommandRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.UserID,
		&rec.Status,
		&rec.InputText,
		&rec.ResponseText,
		&rec.AudioRef,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get command record %s: %w", id, err)
	}
	return &rec, nil
}

func (s *PostgresCommandStore) SetStatus(ctx context.Context, id string, status models.CommandStatus) error {
	const query = `UPDATE voice_commands SET status = $2, updated_at = NOW() WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("set status %s on record %s: %w", status, id, err)
	}
	return requireOneRow(res, id)
}

func (s *PostgresCommandStore) SetInputText(ctx context.Context, id, text string) error {
	const query = `UPDATE voice_commands SET input_text = $2, updated_at = NOW() WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, text)
	if err != nil {
		return fmt.Errorf("set input text on record %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

func (s *PostgresCommandStore) Complete(ctx context.Context, id, responseText string) error {
	const query = `UPDATE voice_commands SET status = $2, response_text = $3, updated_at = NOW() WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, string(models.StatusCompleted), responseText)
	if err != nil {
		return fmt.Errorf("complete record %s: %w", id, err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support; trust the exec
	}
	if n == 0 {
		return fmt.Errorf("command record %s not found", id)
	}
	return nil
}
