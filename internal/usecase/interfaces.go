package usecase

import (
	"context"

	"github.com/xavierca1/broccoli-leads/internal/entity"
)

// EmailParser turns a raw RFC 822 message into the inbound message shape.
type EmailParser interface {
	Parse(raw string) (*entity.InboundMessage, error)
}

// EventGuard remembers which inbound events already started a workflow.
type EventGuard interface {
	Claim(ctx context.Context, eventID string) (claimed bool, workflowID string, err error)
	Record(ctx context.Context, eventID, workflowID string) error
	Release(ctx context.Context, eventID string) error
}
