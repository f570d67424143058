package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

const JobType = "lead-processing"

// Job is the durable envelope for one workflow run.
type Job struct {
	WorkflowID string                     `json:"workflowId"`
	RunID      string                     `json:"runId"`
	Input      entity.LeadProcessingInput `json:"input"`
	EnqueuedAt time.Time                  `json:"enqueuedAt"`
}

type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// JobProducer is the RabbitMQ-backed workflow.Engine. Starting a workflow
// publishes a persistent job that a Worker picks up.
type JobProducer struct {
	Ch       Publisher
	Topology Topology
	now      func() time.Time
}

func NewJobProducer(ch Publisher, topology Topology) *JobProducer {
	return &JobProducer{Ch: ch, Topology: topology, now: time.Now}
}

func (p *JobProducer) Start(ctx context.Context, input entity.LeadProcessingInput) (*workflow.Handle, error) {
	now := p.now()
	h := workflow.NewHandle(input.EventID, now)

	body, err := json.Marshal(Job{
		WorkflowID: h.WorkflowID,
		RunID:      h.RunID,
		Input:      input,
		EnqueuedAt: now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		p.Topology.Exchange,
		p.Topology.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    h.WorkflowID,
			Type:         JobType,
			Timestamp:    now,
			Body:         body,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("publish job to %s: %w", p.Topology.Exchange, err)
	}

	logger.Info("Started lead workflow",
		zap.String("workflowId", h.WorkflowID),
		zap.String("runId", h.RunID),
		zap.String("taskQueue", p.Topology.Queue),
	)

	return h, nil
}
