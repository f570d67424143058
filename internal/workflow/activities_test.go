package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/broccoli-leads/internal/entity"
)

func TestPullAndFormatPromptWithoutRegistry(t *testing.T) {
	a := NewLeadActivities(nil, nil, nil, nil)

	_, err := a.PullAndFormatPrompt(context.Background(), PullPromptInput{PromptName: "broccoli-leads"})

	require.Error(t, err)
	assert.True(t, IsNonRetryable(err))
	assert.ErrorIs(t, err, ErrPromptRegistryNotConfigured)
}

func TestPullAndFormatPromptPassesQuestion(t *testing.T) {
	prompts := new(MockPromptRegistry)
	msgs := []ChatMessage{{Role: "system", Content: "Extract the lead"}, {Role: "user", Content: "Hi, call me"}}
	prompts.On("PullAndFormat", mock.Anything, "broccoli-leads", map[string]any{"question": "Hi, call me"}).Return(msgs, nil)

	a := NewLeadActivities(prompts, nil, nil, nil)
	out, err := a.PullAndFormatPrompt(context.Background(), PullPromptInput{PromptName: "broccoli-leads", Question: "Hi, call me"})

	require.NoError(t, err)
	assert.Equal(t, msgs, out.Messages)
	prompts.AssertExpectations(t)
}

func TestPullAndFormatPromptEmptyIsNonRetryable(t *testing.T) {
	prompts := new(MockPromptRegistry)
	prompts.On("PullAndFormat", mock.Anything, mock.Anything, mock.Anything).Return([]ChatMessage{}, nil)

	a := NewLeadActivities(prompts, nil, nil, nil)
	_, err := a.PullAndFormatPrompt(context.Background(), PullPromptInput{PromptName: "broccoli-leads"})

	require.Error(t, err)
	assert.True(t, IsNonRetryable(err))
}

func TestCallCompletion(t *testing.T) {
	llm := new(MockCompletionClient)
	in := CompletionInput{Model: "gpt-4o-mini", Messages: []ChatMessage{{Role: "user", Content: "q"}}}
	llm.On("Complete", mock.Anything, in).Return(&CompletionOutput{Content: "{}"}, nil)

	a := NewLeadActivities(nil, llm, nil, nil)
	out, err := a.CallCompletion(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "{}", out.Content)

	_, err = NewLeadActivities(nil, nil, nil, nil).CallCompletion(context.Background(), in)
	assert.True(t, IsNonRetryable(err))
}

func TestSaveLeadCleansPlaceholderPhone(t *testing.T) {
	repo := new(MockLeadRepository)
	var saved *entity.Lead
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Lead")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*entity.Lead) }).
		Return(true, nil)

	a := NewLeadActivities(nil, nil, repo, nil)
	messageID := "msg-1"
	out, err := a.SaveLead(context.Background(), SaveLeadInput{
		CustomerName:    strp("Jane Doe"),
		CustomerNumber:  strp("N/A"),
		CustomerAddress: strp("  none "),
		Provider:        "agentmail",
		ProviderLeadID:  &messageID,
		OrgID:           "org-1",
		Status:          entity.LeadStatusNew,
		LeadRawData:     map[string]any{"phone": "N/A"},
		ChatChannel:     entity.ChatChannelEmail,
	})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, out.Created)
	assert.Equal(t, saved.ID, out.LeadID)

	assert.Nil(t, saved.CustomerNumber)
	assert.Nil(t, saved.CustomerAddress)
	require.NotNil(t, saved.CustomerName)
	assert.Equal(t, "Jane Doe", *saved.CustomerName)
	require.NotNil(t, saved.ProcessingError)
	assert.Equal(t, MissingPhoneNote, *saved.ProcessingError)
	assert.Equal(t, entity.LeadStatusNew, saved.Status)
	require.NotNil(t, saved.ChatChannel)
	assert.Equal(t, entity.ChatChannelEmail, *saved.ChatChannel)
	assert.JSONEq(t, `{"phone":"N/A"}`, string(saved.LeadRawData))
	repo.AssertExpectations(t)
}

func TestSaveLeadKeepsRealPhoneAndExistingError(t *testing.T) {
	repo := new(MockLeadRepository)
	var saved *entity.Lead
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*entity.Lead) }).
		Return(true, nil)

	a := NewLeadActivities(nil, nil, repo, nil)

	_, err := a.SaveLead(context.Background(), SaveLeadInput{
		CustomerNumber: strp(" 555-0100 "),
		Provider:       "agentmail",
		OrgID:          "org-1",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.CustomerNumber)
	assert.Equal(t, "555-0100", *saved.CustomerNumber)
	assert.Nil(t, saved.ProcessingError)
	assert.Equal(t, entity.LeadStatusNew, saved.Status, "status defaults to new")

	_, err = a.SaveLead(context.Background(), SaveLeadInput{
		Provider:        "agentmail",
		OrgID:           "org-1",
		ProcessingError: strp("upstream failure"),
	})
	require.NoError(t, err)
	assert.Equal(t, "upstream failure", *saved.ProcessingError)
}

func TestSaveLeadDuplicateReturnsExistingID(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*entity.Lead).ID = "existing-id" }).
		Return(false, nil)

	a := NewLeadActivities(nil, nil, repo, nil)
	out, err := a.SaveLead(context.Background(), SaveLeadInput{Provider: "agentmail", OrgID: "org-1"})

	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, "existing-id", out.LeadID)
}

func TestSaveLeadValidationIsNonRetryable(t *testing.T) {
	repo := new(MockLeadRepository)
	a := NewLeadActivities(nil, nil, repo, nil)

	_, err := a.SaveLead(context.Background(), SaveLeadInput{Provider: "agentmail"})

	require.Error(t, err)
	assert.True(t, IsNonRetryable(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSaveLeadRepositoryErrorIsRetryable(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))

	a := NewLeadActivities(nil, nil, repo, nil)
	_, err := a.SaveLead(context.Background(), SaveLeadInput{Provider: "agentmail", OrgID: "org-1"})

	require.Error(t, err)
	assert.False(t, IsNonRetryable(err))
}

func TestNotifyNewLead(t *testing.T) {
	assert.NoError(t, NewLeadActivities(nil, nil, nil, nil).NotifyNewLead(context.Background(), "id"))

	repo := new(MockLeadRepository)
	notifier := new(MockNotifier)
	lead := &entity.Lead{ID: "lead-1", LeadRawData: json.RawMessage(`{}`)}
	repo.On("FindByID", mock.Anything, "lead-1").Return(lead, nil)
	repo.On("FindByID", mock.Anything, "gone").Return(nil, entity.ErrLeadNotFound)
	notifier.On("NotifyNewLead", mock.Anything, lead).Return(nil)

	a := NewLeadActivities(nil, nil, repo, notifier)

	require.NoError(t, a.NotifyNewLead(context.Background(), "lead-1"))
	notifier.AssertExpectations(t)

	err := a.NotifyNewLead(context.Background(), "gone")
	assert.True(t, IsNonRetryable(err))
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}
