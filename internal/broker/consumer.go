// internal/broker/consumer.go
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/redis/go-redis/v9"
)

// MessageHandler processes one raw envelope-shaped message. It must not
// return until the message is fully handled; the consumer pulls the next
// message only after it returns.
type MessageHandler interface {
	HandleMessage(ctx context.Context, raw map[string]interface{})
}

// Consumer pulls command messages off a Redis list, one at a time.
// Concurrency across messages comes from running multiple consumer
// processes, never from concurrent handling within one process.
type Consumer struct {
	rdb         *redis.Client
	queue       string
	pollTimeout time.Duration
	handler     MessageHandler
	logger      *zap.Logger
}

func NewConsumer(rdb *redis.Client, queue string, pollTimeout time.Duration, handler MessageHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		rdb:         rdb,
		queue:       queue,
		pollTimeout: pollTimeout,
		handler:     handler,
		logger:      logger.With(zap.String("queue", queue)),
	}
}

// Run blocks until ctx is cancelled. Each iteration pops one message and
// awaits full pipeline completion before popping the next.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return ctx.Err()
		default:
		}

		res, err := c.rdb.BLPop(ctx, c.pollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // poll timeout, queue empty
			}
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return ctx.Err()
			}
			c.logger.Error("queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// BLPOP returns [key, value].
		if len(res) < 2 {
			continue
		}
		c.dispatch(ctx, []byte(res[1]))
	}
}

func (c *Consumer) dispatch(ctx context.Context, body []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		// Not even envelope-shaped; the security gate never sees it.
		c.logger.Error("malformed message dropped", zap.Error(err))
		return
	}

	c.handler.HandleMessage(ctx, raw)
}
