// internal/store/commands_test.go
package store

import (
	"context"
	"testing"
	"time"

	"smartbuilding-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresCommandStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresCommandStore(db), mock
}

func TestPostgresCommandStore_Get(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "user_id", "status", "input_text", "response_text", "audio_ref", "created_at", "updated_at",
	}).AddRow("rec-1", "tenant-1", "user-1", "received", "", "", "s3://clips/rec-1.wav", now, now)

	mock.ExpectQuery("SELECT id, tenant_id, user_id, status").
		WithArgs("rec-1").
		WillReturnRows(rows)

	rec, err := s.Get(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, models.StatusReceived, rec.Status)
	assert.Equal(t, "s3://clips/rec-1.wav", rec.AudioRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommandStore_SetStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE voice_commands SET status").
		WithArgs("rec-1", "analyzing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SetStatus(context.Background(), "rec-1", models.StatusAnalyzing)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommandStore_SetStatus_MissingRecord(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE voice_commands SET status").
		WithArgs("rec-missing", "failed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetStatus(context.Background(), "rec-missing", models.StatusFailed)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresCommandStore_SetInputText(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE voice_commands SET input_text").
		WithArgs("rec-1", "accendi le luci del soggiorno").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SetInputText(context.Background(), "rec-1", "accendi le luci del soggiorno")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommandStore_Complete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE voice_commands SET status").
		WithArgs("rec-1", "completed", "Ho acceso Luce Soggiorno.").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Complete(context.Background(), "rec-1", "Ho acceso Luce Soggiorno.")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
