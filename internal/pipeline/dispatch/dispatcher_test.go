// internal/pipeline/dispatch/dispatcher_test.go
package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "smartbuilding-workers/internal/common/errors"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubHandler struct {
	payload map[string]interface{}
	err     error
	calls   int
}

func (h *stubHandler) Execute(_ context.Context, _ *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	h.calls++
	return h.payload, h.err
}

func testEnvelope() *models.CommandEnvelope {
	return &models.CommandEnvelope{
		TenantID: "tenant-1",
		UserID:   "user-1",
		RecordID: "rec-1",
		Kind:     models.KindText,
	}
}

func action(t models.ActionType, description string) models.Action {
	return models.Action{Type: t, Description: description}
}

// ==========================
// Dispatch Tests
// ==========================

func TestDispatcher_PreservesActionOrder(t *testing.T) {
	d := New(nil, logger.Nop())
	d.Register(models.ActionSensorRead, &stubHandler{payload: map[string]interface{}{"sensor": "temperature"}})
	d.Register(models.ActionHelp, &stubHandler{payload: map[string]interface{}{}})

	results, err := d.Dispatch(context.Background(), testEnvelope(), []models.Action{
		action(models.ActionSensorRead, "Read temperature sensor"),
		action(models.ActionHelp, "List available commands"),
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.ActionSensorRead, results[0].Action.Type)
	assert.Equal(t, models.ActionHelp, results[1].Action.Type)
}

func TestDispatcher_HandlerFailureDoesNotAbortSiblings(t *testing.T) {
	d := New(nil, logger.Nop())
	failing := &stubHandler{err: errors.New("boom")}
	succeeding := &stubHandler{payload: map[string]interface{}{}}
	d.Register(models.ActionSensorRead, failing)
	d.Register(models.ActionHelp, succeeding)

	results, err := d.Dispatch(context.Background(), testEnvelope(), []models.Action{
		action(models.ActionSensorRead, "Read temperature sensor"),
		action(models.ActionHelp, "List available commands"),
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.Equal(t, "boom", results[0].Error)
	assert.True(t, results[1].OK)
	assert.Equal(t, 1, succeeding.calls)
}

func TestDispatcher_UnregisteredActionTypeIsFatal(t *testing.T) {
	d := New(nil, logger.Nop())

	results, err := d.Dispatch(context.Background(), testEnvelope(), []models.Action{
		action(models.ActionHelp, "List available commands"),
	})

	assert.Nil(t, results)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnregisteredAction, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsFatal(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestDispatcher_EmptyActionListYieldsEmptyResults(t *testing.T) {
	d := New(nil, logger.Nop())

	results, err := d.Dispatch(context.Background(), testEnvelope(), nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRegisterAll_CoversEveryActionType(t *testing.T) {
	d := New(nil, logger.Nop())
	RegisterAll(d, nil, nil, nil, nil, nil, nil, logger.Nop())

	for _, actionType := range models.AllActionTypes {
		_, ok := d.handlers[actionType]
		assert.True(t, ok, "no handler registered for %s", actionType)
	}
	assert.Len(t, d.handlers, len(models.AllActionTypes))
}

// ==========================
// Idempotency Guard Tests
// ==========================

func newMiniredisGuard(t *testing.T) *RedisGuard {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisGuard(client, time.Hour)
}

func TestDispatcher_SuppressesDuplicateSideEffects(t *testing.T) {
	d := New(newMiniredisGuard(t), logger.Nop())
	handler := &stubHandler{payload: map[string]interface{}{"state": "on"}}
	d.Register(models.ActionIoTControl, handler)

	actions := []models.Action{action(models.ActionIoTControl, `Turn on "Luce Soggiorno"`)}

	first, err := d.Dispatch(context.Background(), testEnvelope(), actions)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].OK)
	assert.Equal(t, 1, handler.calls)

	// Same record, same action: the effect must not fire a second time.
	second, err := d.Dispatch(context.Background(), testEnvelope(), actions)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].OK)
	assert.Equal(t, true, second[0].Payload["duplicate"])
	assert.Equal(t, 1, handler.calls)
}

func TestDispatcher_DifferentRecordsAreNotDuplicates(t *testing.T) {
	d := New(newMiniredisGuard(t), logger.Nop())
	handler := &stubHandler{payload: map[string]interface{}{}}
	d.Register(models.ActionIoTControl, handler)

	actions := []models.Action{action(models.ActionIoTControl, `Turn on "Luce Soggiorno"`)}

	env1 := testEnvelope()
	env2 := testEnvelope()
	env2.RecordID = "rec-2"

	_, err := d.Dispatch(context.Background(), env1, actions)
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), env2, actions)
	require.NoError(t, err)

	assert.Equal(t, 2, handler.calls)
}

func TestDispatcher_ReadOnlyActionsSkipTheGuard(t *testing.T) {
	d := New(newMiniredisGuard(t), logger.Nop())
	handler := &stubHandler{payload: map[string]interface{}{}}
	d.Register(models.ActionSensorRead, handler)

	actions := []models.Action{action(models.ActionSensorRead, "Read temperature sensor")}

	_, err := d.Dispatch(context.Background(), testEnvelope(), actions)
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), testEnvelope(), actions)
	require.NoError(t, err)

	assert.Equal(t, 2, handler.calls)
}

func TestDispatcher_GuardOutageDoesNotBlockExecution(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := New(NewRedisGuard(client, time.Hour), logger.Nop())
	handler := &stubHandler{payload: map[string]interface{}{}}
	d.Register(models.ActionIoTControl, handler)

	mr.Close()

	results, err := d.Dispatch(context.Background(), testEnvelope(), []models.Action{
		action(models.ActionIoTControl, `Turn on "Luce Soggiorno"`),
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
	assert.Equal(t, 1, handler.calls)
}
