// internal/audit/sns.go
package audit

import (
	"context"
	"encoding/json"

	"smartbuilding-workers/internal/common/logger"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Publisher is the slice of the SNS client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSink forwards audit events to an SNS topic so the security team can
// subscribe downstream tooling without touching this service.
type SNSSink struct {
	client   Publisher
	topicARN string
	logger   logger.Logger
}

func NewSNSSink(ctx context.Context, region, topicARN string, log logger.Logger) (*SNSSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSSink{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		logger:   log.With(map[string]interface{}{"component": "audit-sns"}),
	}, nil
}

// NewSNSSinkWithClient injects a Publisher; used by tests.
func NewSNSSinkWithClient(client Publisher, topicARN string, log logger.Logger) *SNSSink {
	return &SNSSink{client: client, topicARN: topicARN, logger: log}
}

func (s *SNSSink) Emit(ctx context.Context, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit event failed", map[string]interface{}{
			"eventId": event.ID,
			"error":   err.Error(),
		})
		return
	}

	message := string(body)
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &s.topicARN,
		Message:  &message,
	})
	if err != nil {
		// Best-effort: an unreachable topic must not fail the pipeline.
		s.logger.Error("publish audit event failed", map[string]interface{}{
			"eventId": event.ID,
			"error":   err.Error(),
		})
	}
}
