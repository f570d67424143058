package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

type Consumer interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker runs lead workflows for jobs on the task queue, one at a time.
type Worker struct {
	Channel Consumer
	Runner  workflow.Runner
	Name    string
}

func NewWorker(ch Consumer, runner workflow.Runner) *Worker {
	return &Worker{Channel: ch, Runner: runner, Name: "broccoli-worker"}
}

// Start consumes until ctx is cancelled or the broker closes the channel.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	if err := w.Channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	msgs, err := w.Channel.Consume(queueName, w.Name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", queueName, err)
	}

	logger.Info("Worker waiting for jobs", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker stopping", zap.String("queue", queueName))
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Error("Discarding malformed job", zap.Error(err), zap.String("messageId", d.MessageId))
		d.Nack(false, false)
		return
	}

	fields := []zap.Field{
		zap.String("workflowId", job.WorkflowID),
		zap.String("eventId", job.Input.EventID),
		zap.Bool("redelivered", d.Redelivered),
	}
	logger.Info("Job received", fields...)

	result, err := w.Runner.Run(ctx, job.Input)
	if err != nil && ctx.Err() != nil {
		logger.Warn("Worker shutting down mid-job, requeueing", fields...)
		d.Nack(false, true)
		return
	}
	if err != nil {
		logger.Error("Lead workflow failed, dead-lettering job", append(fields, zap.Error(err))...)
		d.Nack(false, false)
		return
	}

	logger.Info("Lead workflow completed",
		append(fields, zap.String("leadId", result.LeadID), zap.Bool("created", result.Created))...,
	)
	d.Ack(false)
}
