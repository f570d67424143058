package workflow

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

const (
	DefaultPromptName = "broccoli-leads"
	DefaultModel      = "gpt-4o-mini"
	LeadProvider      = "agentmail"
)

// LeadWorkflow orchestrates prompt fetch, completion, interpretation and
// persistence. Persistence only runs once interpretation has finished.
type LeadWorkflow struct {
	Activities Activities
	Policy     RetryPolicy
	PromptName string
	Model      string
}

func NewLeadWorkflow(activities Activities, promptName, model string) *LeadWorkflow {
	if promptName == "" {
		promptName = DefaultPromptName
	}
	if model == "" {
		model = DefaultModel
	}
	return &LeadWorkflow{
		Activities: activities,
		Policy:     DefaultActivityPolicy,
		PromptName: promptName,
		Model:      model,
	}
}

func (w *LeadWorkflow) Run(ctx context.Context, input entity.LeadProcessingInput) (*entity.LeadProcessingResult, error) {
	result, err := w.run(ctx, input)
	if err != nil {
		recordRun("failed")
		return nil, err
	}
	recordRun("completed")
	return result, nil
}

func (w *LeadWorkflow) run(ctx context.Context, input entity.LeadProcessingInput) (*entity.LeadProcessingResult, error) {
	question := input.Message.Question()

	logger.Info("Pulling prompt", zap.String("prompt", w.PromptName), zap.String("eventId", input.EventID))

	prompt, err := ExecuteActivity(ctx, w.Policy, "PullAndFormatPrompt", func(ctx context.Context) (*PullPromptOutput, error) {
		return w.Activities.PullAndFormatPrompt(ctx, PullPromptInput{PromptName: w.PromptName, Question: question})
	})
	if err != nil {
		return nil, err
	}

	completion, err := ExecuteActivity(ctx, w.Policy, "CallCompletion", func(ctx context.Context) (*CompletionOutput, error) {
		return w.Activities.CallCompletion(ctx, CompletionInput{Messages: prompt.Messages, Model: w.Model})
	})
	if err != nil {
		return nil, err
	}

	response, processed := InterpretCompletion(completion.Content, completion.RawResponse)

	logger.Info("Processed lead",
		zap.String("eventId", input.EventID),
		zap.Any("lead", processed),
	)

	saved, err := ExecuteActivity(ctx, w.Policy, "SaveLead", func(ctx context.Context) (*SaveLeadOutput, error) {
		return w.Activities.SaveLead(ctx, BuildSaveLeadInput(input, processed))
	})
	if err != nil {
		return nil, err
	}

	if saved.Created {
		_, err := ExecuteActivity(ctx, w.Policy, "NotifyNewLead", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, w.Activities.NotifyNewLead(ctx, saved.LeadID)
		})
		if err != nil {
			logger.Warn("New lead notification failed", zap.String("leadId", saved.LeadID), zap.Error(err))
		}
	}

	return &entity.LeadProcessingResult{
		Question:       question,
		PromptResponse: response,
		MessageID:      input.Message.MessageID,
		Lead:           &processed,
		LeadID:         saved.LeadID,
		Created:        saved.Created,
	}, nil
}

// BuildSaveLeadInput maps the interpreted lead and its source message onto a
// lead row. Placeholder cleanup happens in SaveLead.
func BuildSaveLeadInput(input entity.LeadProcessingInput, lead entity.ProcessedLead) SaveLeadInput {
	msg := input.Message
	messageID := msg.MessageID

	raw := map[string]any{
		"email":            lead.Email,
		"phone":            lead.Phone,
		"countryCode":      lead.CountryCode,
		"address":          lead.Address,
		"serviceRequested": lead.ServiceRequested,
		"eventId":          input.EventID,
		"messageId":        msg.MessageID,
		"threadId":         firstNonEmpty(input.ThreadID, msg.ThreadID),
		"inboxId":          firstNonEmpty(input.InboxID, msg.InboxID),
		"from":             msg.From,
	}
	if msg.Subject != nil {
		raw["subject"] = *msg.Subject
	}

	return SaveLeadInput{
		CustomerName:    senderName(msg),
		CustomerNumber:  lead.Phone,
		CustomerAddress: lead.Address,
		Provider:        LeadProvider,
		ProviderLeadID:  &messageID,
		OrgID:           msg.OrganizationID,
		Status:          entity.LeadStatusNew,
		LeadRawData:     raw,
		ChatChannel:     entity.ChatChannelEmail,
	}
}

func senderName(msg entity.InboundMessage) *string {
	if msg.FromText == nil {
		return nil
	}
	addr, err := mail.ParseAddress(*msg.FromText)
	if err != nil {
		return nil
	}
	name := strings.TrimSpace(addr.Name)
	if name == "" {
		return nil
	}
	return &name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
