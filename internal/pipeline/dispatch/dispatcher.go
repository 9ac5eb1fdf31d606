// internal/pipeline/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"fmt"

	apperrors "smartbuilding-workers/internal/common/errors"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/common/metrics"
	"smartbuilding-workers/internal/models"
)

// ActionHandler executes one bounded unit of work for an action and
// returns a small structured payload.
type ActionHandler interface {
	Execute(ctx context.Context, env *models.CommandEnvelope, action models.Action) (map[string]interface{}, error)
}

// sideEffecting marks the action types whose handlers have externally
// visible effects and therefore go through the idempotency guard.
var sideEffecting = map[models.ActionType]bool{
	models.ActionIoTControl:        true,
	models.ActionBIMConversion:     true,
	models.ActionMaintenanceCreate: true,
	models.ActionBookingCreate:     true,
}

// Dispatcher executes actions via a type-keyed handler registry. One
// handler's failure never aborts sibling actions; output order equals
// input order.
type Dispatcher struct {
	handlers map[models.ActionType]ActionHandler
	guard    IdempotencyGuard // nil disables duplicate suppression
	logger   logger.Logger
}

func New(guard IdempotencyGuard, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[models.ActionType]ActionHandler),
		guard:    guard,
		logger:   log.With(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Register binds a handler to an action type. Registration happens once
// at startup; the registry is read-only afterwards.
func (d *Dispatcher) Register(t models.ActionType, h ActionHandler) {
	d.handlers[t] = h
}

// Dispatch executes every action in order. An unregistered action type is
// a fatal internal-consistency error: the analyzer's output set is closed,
// so reaching it means the registry and the rule table diverged.
func (d *Dispatcher) Dispatch(ctx context.Context, env *models.CommandEnvelope, actions []models.Action) ([]models.ActionResult, error) {
	results := make([]models.ActionResult, 0, len(actions))

	for _, action := range actions {
		handler, ok := d.handlers[action.Type]
		if !ok {
			d.logger.Error("FATAL: unregistered action type", map[string]interface{}{
				"actionType": string(action.Type),
				"recordId":   env.RecordID,
			})
			return nil, apperrors.NewUnregisteredActionError(string(action.Type))
		}

		results = append(results, d.execute(ctx, env, action, handler))
	}

	return results, nil
}

func (d *Dispatcher) execute(ctx context.Context, env *models.CommandEnvelope, action models.Action, handler ActionHandler) models.ActionResult {
	if sideEffecting[action.Type] && d.guard != nil {
		// Keyed on the record and the concrete action, not the attempt:
		// a retried attempt must find the key of the effect that already
		// fired and skip it.
		key := fmt.Sprintf("idem:%s:%s:%s", env.RecordID, action.Type, action.Description)
		acquired, err := d.guard.Acquire(ctx, key)
		if err != nil {
			// Guard unavailable: proceed without it. Duplicate effects on
			// retry are already possible at the broker level.
			d.logger.Warn("idempotency guard unavailable", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		} else if !acquired {
			d.logger.Info("duplicate action suppressed", map[string]interface{}{
				"key":        key,
				"actionType": string(action.Type),
			})
			metrics.ActionsDispatched.WithLabelValues(string(action.Type), "duplicate").Inc()
			return models.ActionResult{
				Action:  action,
				OK:      true,
				Payload: map[string]interface{}{"duplicate": true},
			}
		}
	}

	payload, err := handler.Execute(ctx, env, action)
	if err != nil {
		d.logger.Warn("action failed", map[string]interface{}{
			"actionType": string(action.Type),
			"recordId":   env.RecordID,
			"error":      err.Error(),
		})
		metrics.ActionsDispatched.WithLabelValues(string(action.Type), "error").Inc()
		return models.ActionResult{Action: action, OK: false, Error: err.Error()}
	}

	metrics.ActionsDispatched.WithLabelValues(string(action.Type), "ok").Inc()
	return models.ActionResult{Action: action, OK: true, Payload: payload}
}
