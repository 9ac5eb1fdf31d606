// internal/conversion/trigger.go
package conversion

import (
	"context"
	"fmt"
	"time"

	"smartbuilding-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Trigger enqueues a long-running BIM conversion job and returns its id.
// Fire-and-forget: the conversion pipeline reports progress on its own.
type Trigger interface {
	Start(ctx context.Context, tenantID, targetID string) (string, error)
}

// ZeebeTrigger starts a conversion by creating a process instance on the
// workflow engine that runs the conversion pipeline.
type ZeebeTrigger struct {
	client         zbc.Client
	processID      string
	requestTimeout time.Duration
	logger         logger.Logger
}

func NewZeebeTrigger(gatewayAddress, processID string, requestTimeout time.Duration, log logger.Logger) (*ZeebeTrigger, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         gatewayAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create zeebe client: %w", err)
	}

	return &ZeebeTrigger{
		client:         client,
		processID:      processID,
		requestTimeout: requestTimeout,
		logger:         log.With(map[string]interface{}{"component": "conversion"}),
	}, nil
}

func (t *ZeebeTrigger) Start(ctx context.Context, tenantID, targetID string) (string, error) {
	cmd, err := t.client.NewCreateInstanceCommand().
		BPMNProcessId(t.processID).
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"tenantId": tenantID,
			"targetId": targetID,
		})
	if err != nil {
		return "", fmt.Errorf("build conversion command: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	resp, err := cmd.Send(reqCtx)
	if err != nil {
		return "", fmt.Errorf("start conversion for %s: %w", targetID, err)
	}

	jobID := fmt.Sprintf("%d", resp.GetProcessInstanceKey())
	t.logger.Info("conversion job started", map[string]interface{}{
		"tenantId": tenantID,
		"targetId": targetID,
		"jobId":    jobID,
	})
	return jobID, nil
}

// Close releases the underlying gRPC connection.
func (t *ZeebeTrigger) Close() error {
	return t.client.Close()
}
