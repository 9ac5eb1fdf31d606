// internal/pipeline/processor.go
package pipeline

import (
	"context"
	"time"

	"smartbuilding-workers/internal/audit"
	apperrors "smartbuilding-workers/internal/common/errors"
	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/common/metrics"
	"smartbuilding-workers/internal/models"
	"smartbuilding-workers/internal/pipeline/dispatch"
	"smartbuilding-workers/internal/pipeline/gate"
	"smartbuilding-workers/internal/pipeline/intent"
	"smartbuilding-workers/internal/pipeline/respond"
	"smartbuilding-workers/internal/pipeline/transcribe"
	"smartbuilding-workers/internal/store"
)

// Processor drives one command through the full pipeline: security gate,
// transcription, intent analysis, dispatch, response synthesis, record
// lifecycle. It is the only component that mutates command records.
type Processor struct {
	gate        *gate.Gate
	commands    store.CommandStore
	nodes       store.NodeStore
	resolver    *transcribe.Resolver
	dispatcher  *dispatch.Dispatcher
	sink        audit.Sink
	logger      logger.Logger
	retryBudget int
}

func NewProcessor(
	g *gate.Gate,
	commands store.CommandStore,
	nodes store.NodeStore,
	resolver *transcribe.Resolver,
	dispatcher *dispatch.Dispatcher,
	sink audit.Sink,
	log logger.Logger,
	retryBudget int,
) *Processor {
	return &Processor{
		gate:        g,
		commands:    commands,
		nodes:       nodes,
		resolver:    resolver,
		dispatcher:  dispatcher,
		sink:        sink,
		logger:      log.With(map[string]interface{}{"component": "processor"}),
		retryBudget: retryBudget,
	}
}

// HandleMessage processes one raw broker message end to end. Gate
// rejections drop the message without touching the command record; the
// producer's timeout surfaces those to the user.
func (p *Processor) HandleMessage(ctx context.Context, raw map[string]interface{}) {
	start := time.Now()

	env, rejection := p.gate.Check(ctx, raw)
	if rejection != nil {
		metrics.CommandsProcessed.WithLabelValues("rejected").Inc()
		return
	}

	for {
		err := p.runPipeline(ctx, env)
		if err == nil {
			metrics.CommandsProcessed.WithLabelValues("completed").Inc()
			metrics.CommandDuration.WithLabelValues(kindLabel(env)).Observe(time.Since(start).Seconds())
			return
		}

		// The retry budget is counted on the envelope, so an attempt that
		// already came back through the broker is not retried again.
		if env.Retries < p.retryBudget && apperrors.IsRetryable(err) {
			env.Retries++
			metrics.PipelineRetries.Inc()

			p.logger.Warn("pipeline attempt failed, retrying", map[string]interface{}{
				"recordId": env.RecordID,
				"attempt":  env.Retries,
				"code":     string(apperrors.CodeOf(err)),
				"error":    err.Error(),
			})
			p.sink.Emit(ctx, audit.NewEvent(
				audit.KindRetry,
				"retrying",
				env.TenantID,
				env.UserID,
				err.Error(),
				map[string]interface{}{
					"recordId": env.RecordID,
					"attempt":  env.Retries,
					"code":     string(apperrors.CodeOf(err)),
				},
			))
			continue
		}

		p.fail(ctx, env, err)
		metrics.CommandsProcessed.WithLabelValues("failed").Inc()
		metrics.CommandDuration.WithLabelValues(kindLabel(env)).Observe(time.Since(start).Seconds())
		return
	}
}

// runPipeline is one attempt: transcribe, analyze, dispatch, complete.
// Every step persists its state transition before doing the work, so a
// crash leaves the record in the stage that was running.
func (p *Processor) runPipeline(ctx context.Context, env *models.CommandEnvelope) error {
	if env.Kind == models.KindAudio && env.AudioRef != "" {
		if err := p.commands.SetStatus(ctx, env.RecordID, models.StatusTranscribing); err != nil {
			return apperrors.NewRecordWriteFailedError(env.RecordID, err)
		}
	}

	text, err := p.resolver.Resolve(ctx, env)
	if err != nil {
		return err
	}
	if text == "" {
		return apperrors.NewNoTextAvailableError(env.RecordID)
	}

	if err := p.commands.SetInputText(ctx, env.RecordID, text); err != nil {
		return apperrors.NewRecordWriteFailedError(env.RecordID, err)
	}
	if err := p.commands.SetStatus(ctx, env.RecordID, models.StatusAnalyzing); err != nil {
		return apperrors.NewRecordWriteFailedError(env.RecordID, err)
	}

	nodes, err := p.nodes.ListByTenant(ctx, env.TenantID)
	if err != nil {
		return apperrors.NewNodeLookupFailedError(env.TenantID, err)
	}

	actions := intent.Analyze(text, intent.Context{
		TenantID: env.TenantID,
		UserID:   env.UserID,
		NodeID:   env.NodeID,
		Nodes:    nodes,
	})

	results, err := p.dispatcher.Dispatch(ctx, env, actions)
	if err != nil {
		return err
	}

	reply := respond.Render(results)
	if err := p.commands.Complete(ctx, env.RecordID, reply); err != nil {
		return apperrors.NewRecordWriteFailedError(env.RecordID, err)
	}

	p.logger.Info("command completed", map[string]interface{}{
		"recordId": env.RecordID,
		"tenantId": env.TenantID,
		"actions":  len(actions),
	})
	return nil
}

// fail records the terminal outcome: audit event first, then a
// best-effort status flip. The full envelope rides in the event metadata
// so a dropped record update is still reconstructable.
func (p *Processor) fail(ctx context.Context, env *models.CommandEnvelope, cause error) {
	p.logger.Error("command failed", map[string]interface{}{
		"recordId": env.RecordID,
		"tenantId": env.TenantID,
		"code":     string(apperrors.CodeOf(cause)),
		"error":    cause.Error(),
	})

	p.sink.Emit(ctx, audit.NewEvent(
		audit.KindProcessingFailed,
		"failed",
		env.TenantID,
		env.UserID,
		cause.Error(),
		map[string]interface{}{
			"recordId": env.RecordID,
			"code":     string(apperrors.CodeOf(cause)),
			"envelope": env,
		},
	))

	if err := p.commands.SetStatus(ctx, env.RecordID, models.StatusFailed); err != nil {
		p.logger.Error("failed to mark record failed", map[string]interface{}{
			"recordId": env.RecordID,
			"error":    err.Error(),
		})
	}
}

func kindLabel(env *models.CommandEnvelope) string {
	if env.Kind == models.KindAudio {
		return string(models.KindAudio)
	}
	return string(models.KindText)
}
