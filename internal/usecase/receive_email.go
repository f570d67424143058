package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

const ReceivedMessage = "AgentMail payload received"

var errDuplicateEvent = errors.New("event already started a workflow")

type ReceiveEmailUseCase struct {
	Parser EmailParser
	Engine workflow.Engine
	// Guard is optional. Without it every delivery starts a new run and
	// duplicates are absorbed by the lead repository.
	Guard EventGuard
}

func NewReceiveEmailUseCase(parser EmailParser, engine workflow.Engine, guard EventGuard) *ReceiveEmailUseCase {
	return &ReceiveEmailUseCase{
		Parser: parser,
		Engine: engine,
		Guard:  guard,
	}
}

// ReceiveRaw normalizes a raw email and starts the lead workflow for it.
func (uc *ReceiveEmailUseCase) ReceiveRaw(ctx context.Context, input RawEmailInput) (*ReceiveEmailOutput, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	msg, err := uc.Parser.Parse(input.RawEmail)
	if err != nil {
		return nil, &DomainError{Code: CodeInvalidEmail, Message: "rawEmail could not be parsed", Err: err}
	}

	eventID := msg.MessageID
	if input.MessageID != nil && *input.MessageID != "" {
		eventID = *input.MessageID
	}

	source := "raw"
	if input.Source != nil && *input.Source != "" {
		source = *input.Source
	}
	logger.Info("Raw email normalized",
		zap.String("eventId", eventID),
		zap.String("source", source),
		zap.String("from", msg.From),
	)

	return uc.start(ctx, entity.LeadProcessingInput{
		EventID:  eventID,
		Message:  *msg,
		ThreadID: msg.ThreadID,
		InboxID:  msg.InboxID,
	})
}

// ReceiveEvent starts the lead workflow for an AgentMail webhook event.
func (uc *ReceiveEmailUseCase) ReceiveEvent(ctx context.Context, event entity.InboundEvent) (*ReceiveEmailOutput, error) {
	if err := Validate(event); err != nil {
		return nil, err
	}

	eventID := event.EventID
	if eventID == "" {
		eventID = event.Message.MessageID
	}

	if !event.IncludesBody() {
		logger.Warn("AgentMail event without body", zap.String("eventId", eventID))
	}

	return uc.start(ctx, entity.LeadProcessingInput{
		EventID:  eventID,
		Message:  event.Message,
		ThreadID: event.Message.ThreadID,
		InboxID:  event.Message.InboxID,
	})
}

func (uc *ReceiveEmailUseCase) start(ctx context.Context, input entity.LeadProcessingInput) (*ReceiveEmailOutput, error) {
	var (
		handle   *workflow.Handle
		existing string
		claimed  bool
	)

	tx := NewTransaction()

	if uc.Guard != nil {
		tx.AddOperation("claim event",
			func(ctx context.Context) error {
				ok, workflowID, err := uc.Guard.Claim(ctx, input.EventID)
				if err != nil {
					// the guard is an optimization, the repository still dedups
					logger.Warn("Event guard unavailable", zap.String("eventId", input.EventID), zap.Error(err))
					return nil
				}
				if !ok {
					existing = workflowID
					return errDuplicateEvent
				}
				claimed = true
				return nil
			},
			func(ctx context.Context) error {
				if !claimed {
					return nil
				}
				return uc.Guard.Release(ctx, input.EventID)
			},
		)
	}

	tx.AddOperation("start workflow",
		func(ctx context.Context) error {
			h, err := uc.Engine.Start(ctx, input)
			if err != nil {
				return err
			}
			handle = h
			return nil
		},
		nil,
	)

	if err := tx.Execute(ctx); err != nil {
		if errors.Is(err, errDuplicateEvent) {
			logger.Info("Duplicate event ignored",
				zap.String("eventId", input.EventID),
				zap.String("workflowId", existing),
			)
			return &ReceiveEmailOutput{Message: ReceivedMessage, WorkflowID: existing, Duplicate: true}, nil
		}
		logger.Error("Failed to start lead workflow", zap.String("eventId", input.EventID), zap.Error(err))
		return nil, &TechnicalError{Code: CodeWorkflowStart, Message: "failed to start lead workflow", Err: err}
	}

	if claimed {
		if err := uc.Guard.Record(ctx, input.EventID, handle.WorkflowID); err != nil {
			logger.Warn("Failed to record workflow for event",
				zap.String("eventId", input.EventID),
				zap.String("workflowId", handle.WorkflowID),
				zap.Error(err),
			)
		}
	}

	logger.Info("Lead workflow started",
		zap.String("eventId", input.EventID),
		zap.String("workflowId", handle.WorkflowID),
		zap.String("runId", handle.RunID),
	)

	return &ReceiveEmailOutput{
		Message:    ReceivedMessage,
		WorkflowID: handle.WorkflowID,
		RunID:      handle.RunID,
	}, nil
}
