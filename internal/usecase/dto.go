package usecase

import (
	"time"

	"github.com/xavierca1/broccoli-leads/internal/entity"
)

type CreateClientInput struct {
	Name     string         `json:"name" validate:"required,min=1,max=255"`
	Email    string         `json:"email" validate:"required,email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type CreateClientOutput struct {
	Message string            `json:"message"`
	Data    CreateClientInput `json:"data"`
}

// RawEmailInput carries an unparsed RFC 822 message.
type RawEmailInput struct {
	RawEmail  string  `json:"rawEmail" validate:"required,min=1"`
	MessageID *string `json:"messageId,omitempty"`
	Source    *string `json:"source,omitempty"`
}

// TestEmailInput backs the GET echo endpoint used to probe the webhook.
type TestEmailInput struct {
	RawEmail string `json:"rawEmail" validate:"required,min=1"`
}

type ReceiveEmailOutput struct {
	Message    string `json:"message"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId,omitempty"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

type ListLeadsInput struct {
	Status string `json:"status" validate:"omitempty,oneof=new contacted qualified converted lost archived"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
}

const (
	DefaultLeadsLimit  = 50
	DefaultLeadsOffset = 0
)

type ListLeadsOutput struct {
	Leads  []entity.Lead `json:"leads"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type UpdateLeadStatusInput struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified converted lost archived"`
}

type HealthStatus struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}
