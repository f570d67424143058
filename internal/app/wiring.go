// Package app builds the collaborators shared by the api and worker binaries
// from a loaded config.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/config"
	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/infra/integration/bedrock"
	"github.com/xavierca1/broccoli-leads/internal/infra/integration/openai"
	"github.com/xavierca1/broccoli-leads/internal/infra/integration/prompthub"
	"github.com/xavierca1/broccoli-leads/internal/infra/mail"
	"github.com/xavierca1/broccoli-leads/internal/infra/queue"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

// NewPromptRegistry prefers a local prompts file over the remote registry.
// It returns nil when neither is configured; runs then fail at the prompt
// step without retrying.
func NewPromptRegistry(cfg config.PromptConfig) (workflow.PromptRegistry, error) {
	if cfg.File != "" {
		reg, err := prompthub.NewFileRegistry(cfg.File)
		if err != nil {
			return nil, err
		}
		logger.Info("Using file prompt registry", zap.String("path", cfg.File))
		return reg, nil
	}
	if cfg.APIKey != "" {
		logger.Info("Using remote prompt registry", zap.String("url", cfg.RegistryURL))
		return prompthub.NewHTTPRegistry(cfg.RegistryURL, cfg.APIKey), nil
	}

	logger.Warn("No prompt registry configured; set PROMPTS_FILE or LANGSMITH_API_KEY")
	return nil, nil
}

// NewCompletionClient returns the configured LLM client and the model name
// the workflow should request.
func NewCompletionClient(ctx context.Context, cfg config.LLMConfig) (workflow.CompletionClient, string, error) {
	switch cfg.Provider {
	case "bedrock":
		client, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.BedrockModelID)
		if err != nil {
			return nil, "", err
		}
		return client, cfg.BedrockModelID, nil
	case "openai", "":
		if cfg.OpenAIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set; completions will fail")
		}
		return openai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), cfg.OpenAIModel, nil
	}
	return nil, "", fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}

// NewNotifier returns nil when mail alerts are disabled.
func NewNotifier(cfg *config.Config) workflow.LeadNotifier {
	if !cfg.Mail.Enabled() {
		return nil
	}
	sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.AlertTo)
	sender.DashboardURL = PublicURL(cfg)
	return sender
}

// NewLeadWorkflow wires the activities and returns a runner for the engine.
func NewLeadWorkflow(ctx context.Context, cfg *config.Config, leads entity.LeadRepositoryInterface) (*workflow.LeadWorkflow, error) {
	prompts, err := NewPromptRegistry(cfg.Prompt)
	if err != nil {
		return nil, err
	}
	llm, model, err := NewCompletionClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	acts := workflow.NewLeadActivities(prompts, llm, leads, NewNotifier(cfg))
	return workflow.NewLeadWorkflow(acts, cfg.Prompt.Name, model), nil
}

func NewRabbitMQ(cfg config.WorkflowConfig) (*queue.RabbitMQ, error) {
	return queue.NewRabbitMQ(cfg.Address, queue.NewTopology(cfg.Namespace, cfg.TaskQueue))
}

// PublicURL is the base URL of the API as seen by alert recipients.
func PublicURL(cfg *config.Config) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	return "http://localhost:" + cfg.Port
}
