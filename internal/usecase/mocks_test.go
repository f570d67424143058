package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(raw string) (*entity.InboundMessage, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.InboundMessage), args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Start(ctx context.Context, input entity.LeadProcessingInput) (*workflow.Handle, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Handle), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Claim(ctx context.Context, eventID string) (bool, string, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *MockGuard) Record(ctx context.Context, eventID, workflowID string) error {
	args := m.Called(ctx, eventID, workflowID)
	return args.Error(0)
}

func (m *MockGuard) Release(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) (bool, error) {
	args := m.Called(ctx, lead)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]entity.Lead), args.Int(1), args.Error(2)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) (*entity.Lead, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}
