package workflow

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/broccoli-leads/internal/entity"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) (bool, error) {
	args := m.Called(ctx, lead)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, int, error) {
	args := m.Called(ctx, filter)
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

type MockPromptRegistry struct {
	mock.Mock
}

func (m *MockPromptRegistry) PullAndFormat(ctx context.Context, name string, vars map[string]any) ([]ChatMessage, error) {
	args := m.Called(ctx, name, vars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ChatMessage), args.Error(1)
}

type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, input CompletionInput) (*CompletionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CompletionOutput), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewLead(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

type MockActivities struct {
	mock.Mock
}

func (m *MockActivities) PullAndFormatPrompt(ctx context.Context, input PullPromptInput) (*PullPromptOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PullPromptOutput), args.Error(1)
}

func (m *MockActivities) CallCompletion(ctx context.Context, input CompletionInput) (*CompletionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CompletionOutput), args.Error(1)
}

func (m *MockActivities) SaveLead(ctx context.Context, input SaveLeadInput) (*SaveLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SaveLeadOutput), args.Error(1)
}

func (m *MockActivities) NotifyNewLead(ctx context.Context, leadID string) error {
	args := m.Called(ctx, leadID)
	return args.Error(0)
}
