package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Deliverer posts a county payload to its final destination.
type Deliverer interface {
	Forward(ctx context.Context, payload map[string]any) error
}

type Worker struct {
	Channel  *amqp.Channel
	Delivery Deliverer
	Logger   *zap.Logger
}

func NewWorker(ch *amqp.Channel, delivery Deliverer, logger *zap.Logger) *Worker {
	return &Worker{
		Channel:  ch,
		Delivery: delivery,
		Logger:   logger.Named("county-worker"),
	}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	w.Logger.Info("worker waiting for messages", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle acks a delivered message and nacks (without requeue, so it goes
// to the dead-letter queue) anything malformed or undeliverable.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var payload map[string]any
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		w.Logger.Error("malformed county message", zap.Error(err))
		d.Nack(false, false)
		return
	}

	if err := w.Delivery.Forward(ctx, payload); err != nil {
		w.Logger.Error("county delivery failed",
			zap.Any("tenant_id", payload["tenant_id"]),
			zap.Any("lead_id", payload["lead_id"]),
			zap.Error(err))
		d.Nack(false, false)
		return
	}

	w.Logger.Debug("county record delivered", zap.Any("lead_id", payload["lead_id"]))
	d.Ack(false)
}
