package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/infra/database"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

type LeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
}

func NewLeadsUseCase(repo entity.LeadRepositoryInterface) *LeadsUseCase {
	return &LeadsUseCase{Repo: repo}
}

// List returns one page of leads, newest first. Total counts every lead that
// matches the status filter regardless of the page.
func (uc *LeadsUseCase) List(ctx context.Context, input ListLeadsInput) (*ListLeadsOutput, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	filter := entity.LeadFilter{Limit: input.Limit, Offset: input.Offset}
	if input.Status != "" {
		status := entity.LeadStatus(input.Status)
		filter.Status = &status
	}

	leads, total, err := uc.Repo.List(ctx, filter)
	if err != nil {
		logger.Error("Failed to list leads", zap.String("status", input.Status), zap.Error(err))
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to list leads", Err: err}
	}
	if leads == nil {
		leads = []entity.Lead{}
	}

	return &ListLeadsOutput{
		Leads:  leads,
		Total:  total,
		Limit:  input.Limit,
		Offset: input.Offset,
	}, nil
}

func (uc *LeadsUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, uc.wrap(id, "failed to get lead", err)
	}
	return lead, nil
}

func (uc *LeadsUseCase) UpdateStatus(ctx context.Context, id string, input UpdateLeadStatusInput) (*entity.Lead, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	lead, err := uc.Repo.UpdateStatus(ctx, id, entity.LeadStatus(input.Status))
	if err != nil {
		return nil, uc.wrap(id, "failed to update lead status", err)
	}

	logger.Info("Lead status updated", zap.String("leadId", id), zap.String("status", input.Status))
	return lead, nil
}

func (uc *LeadsUseCase) wrap(id, msg string, err error) error {
	switch {
	case errors.Is(err, entity.ErrLeadNotFound):
		return &DomainError{Code: CodeNotFound, Message: NotFoundMessage(id), Err: err}
	case errors.Is(err, database.ErrInvalidLeadValue):
		return &DomainError{Code: CodeInvalidLeadValue, Message: err.Error(), Err: err}
	}
	logger.Error(msg, zap.String("leadId", id), zap.Error(err))
	return &TechnicalError{Code: CodeDatabase, Message: msg, Err: err}
}

func NotFoundMessage(id string) string {
	return fmt.Sprintf("Lead with ID %s not found", id)
}
