package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

const MissingPhoneNote = "Missing phone number"

var ErrPromptRegistryNotConfigured = errors.New("prompt registry is not configured for activities")

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type PullPromptInput struct {
	PromptName string `json:"promptName"`
	Question   string `json:"question"`
}

type PullPromptOutput struct {
	Messages []ChatMessage `json:"messages"`
}

type CompletionInput struct {
	Messages []ChatMessage `json:"messages"`
	Model    string        `json:"model"`
}

type CompletionOutput struct {
	Content     string `json:"content"`
	RawResponse string `json:"rawResponse"`
}

type SaveLeadInput struct {
	CustomerName    *string            `json:"customerName,omitempty"`
	CustomerNumber  *string            `json:"customerNumber,omitempty"`
	CustomerAddress *string            `json:"customerAddress,omitempty"`
	Provider        string             `json:"provider"`
	ProviderLeadID  *string            `json:"providerLeadId,omitempty"`
	OrgID           string             `json:"orgId"`
	Status          entity.LeadStatus  `json:"status,omitempty"`
	LeadRawData     map[string]any     `json:"leadRawData,omitempty"`
	ChatChannel     entity.ChatChannel `json:"chatChannel,omitempty"`
	ProcessingError *string            `json:"processingError,omitempty"`
}

type SaveLeadOutput struct {
	LeadID  string `json:"leadId"`
	Created bool   `json:"created"`
}

// PromptRegistry fetches a named prompt and renders it with vars. Not-found
// and misconfiguration errors should be wrapped with NonRetryable.
type PromptRegistry interface {
	PullAndFormat(ctx context.Context, name string, vars map[string]any) ([]ChatMessage, error)
}

type CompletionClient interface {
	Complete(ctx context.Context, input CompletionInput) (*CompletionOutput, error)
}

type LeadNotifier interface {
	NotifyNewLead(ctx context.Context, lead *entity.Lead) error
}

// Activities are the retryable units the lead workflow is made of.
type Activities interface {
	PullAndFormatPrompt(ctx context.Context, input PullPromptInput) (*PullPromptOutput, error)
	CallCompletion(ctx context.Context, input CompletionInput) (*CompletionOutput, error)
	SaveLead(ctx context.Context, input SaveLeadInput) (*SaveLeadOutput, error)
	NotifyNewLead(ctx context.Context, leadID string) error
}

type LeadActivities struct {
	Prompts  PromptRegistry
	LLM      CompletionClient
	Leads    entity.LeadRepositoryInterface
	Notifier LeadNotifier
	Policy   ValuePolicy
}

func NewLeadActivities(prompts PromptRegistry, llm CompletionClient, leads entity.LeadRepositoryInterface, notifier LeadNotifier) *LeadActivities {
	return &LeadActivities{
		Prompts:  prompts,
		LLM:      llm,
		Leads:    leads,
		Notifier: notifier,
		Policy:   NewPlaceholderPolicy(),
	}
}

func (a *LeadActivities) PullAndFormatPrompt(ctx context.Context, input PullPromptInput) (*PullPromptOutput, error) {
	if a.Prompts == nil {
		logger.Error("Prompt registry is not set; cannot pull prompt", zap.String("promptName", input.PromptName))
		return nil, NonRetryable("pull prompt", ErrPromptRegistryNotConfigured)
	}

	logger.Info("Pulling prompt",
		zap.String("promptName", input.PromptName),
		zap.String("questionPreview", logger.Preview(input.Question, 200)),
	)

	messages, err := a.Prompts.PullAndFormat(ctx, input.PromptName, map[string]any{"question": input.Question})
	if err != nil {
		logger.Error("Failed to pull prompt", zap.String("promptName", input.PromptName), zap.Error(err))
		return nil, err
	}
	if len(messages) == 0 {
		return nil, NonRetryable(fmt.Sprintf("prompt %q did not format input", input.PromptName), nil)
	}

	return &PullPromptOutput{Messages: messages}, nil
}

func (a *LeadActivities) CallCompletion(ctx context.Context, input CompletionInput) (*CompletionOutput, error) {
	if a.LLM == nil {
		return nil, NonRetryable("completion client is not configured", nil)
	}

	out, err := a.LLM.Complete(ctx, input)
	if err != nil {
		logger.Error("Completion call failed", zap.String("model", input.Model), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (a *LeadActivities) SaveLead(ctx context.Context, input SaveLeadInput) (*SaveLeadOutput, error) {
	policy := a.Policy
	if policy == nil {
		policy = NewPlaceholderPolicy()
	}

	lead := entity.NewLead(input.Provider, input.OrgID)
	lead.CustomerName = policy.Clean(input.CustomerName)
	lead.CustomerNumber = policy.Clean(input.CustomerNumber)
	lead.CustomerAddress = policy.Clean(input.CustomerAddress)
	lead.ProviderLeadID = input.ProviderLeadID
	lead.ProcessingError = input.ProcessingError

	if input.Status != "" {
		lead.Status = input.Status
	}
	if input.ChatChannel != "" {
		channel := input.ChatChannel
		lead.ChatChannel = &channel
	}
	if lead.CustomerNumber == nil && lead.ProcessingError == nil {
		note := MissingPhoneNote
		lead.ProcessingError = &note
	}

	if input.LeadRawData != nil {
		raw, err := json.Marshal(input.LeadRawData)
		if err != nil {
			return nil, NonRetryable("encode lead raw data", err)
		}
		lead.LeadRawData = raw
	}

	if err := lead.Validate(); err != nil {
		return nil, NonRetryable("invalid lead", err)
	}

	logger.Info("Saving lead to database",
		zap.String("provider", lead.Provider),
		zap.Stringp("providerLeadId", lead.ProviderLeadID),
		zap.String("orgId", lead.OrgID),
	)

	created, err := a.Leads.Create(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}
	recordSaved(created)

	logger.Info("Lead saved successfully",
		zap.String("leadId", lead.ID),
		zap.Bool("created", created),
		zap.String("provider", lead.Provider),
	)

	return &SaveLeadOutput{LeadID: lead.ID, Created: created}, nil
}

func (a *LeadActivities) NotifyNewLead(ctx context.Context, leadID string) error {
	if a.Notifier == nil {
		return nil
	}

	lead, err := a.Leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return NonRetryable("notify new lead", err)
		}
		return err
	}

	return a.Notifier.NotifyNewLead(ctx, lead)
}
