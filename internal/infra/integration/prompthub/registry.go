// Package prompthub pulls named chat prompts from a remote prompt registry or
// a local YAML file and renders them into workflow chat messages.
package prompthub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

var (
	ErrRegistryNotConfigured = errors.New("prompt registry API key is not configured")
	ErrPromptNotFound        = errors.New("prompt not found")
)

// MessageTemplate is one chat message of a stored prompt.
type MessageTemplate struct {
	Role           string `json:"role" yaml:"role"`
	Template       string `json:"template" yaml:"template"`
	TemplateFormat string `json:"template_format" yaml:"template_format"`
}

type Prompt struct {
	Name     string            `json:"name" yaml:"name"`
	Messages []MessageTemplate `json:"messages" yaml:"messages"`
}

// HTTPRegistry implements workflow.PromptRegistry against
// GET {BaseURL}/prompts/{name}, authenticated with an x-api-key header.
type HTTPRegistry struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Renderer   *Renderer
}

func NewHTTPRegistry(baseURL, apiKey string) *HTTPRegistry {
	return &HTTPRegistry{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Renderer:   NewRenderer(),
	}
}

func (r *HTTPRegistry) PullAndFormat(ctx context.Context, name string, vars map[string]any) ([]workflow.ChatMessage, error) {
	if r.APIKey == "" {
		return nil, workflow.NonRetryable("pull prompt "+name, ErrRegistryNotConfigured)
	}

	prompt, err := r.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	return Format(r.Renderer, prompt, vars)
}

func (r *HTTPRegistry) fetch(ctx context.Context, name string) (*Prompt, error) {
	endpoint := fmt.Sprintf("%s/prompts/%s", r.BaseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, workflow.NonRetryable("build prompt request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", r.APIKey)

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompt registry request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read prompt registry response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, workflow.NonRetryable("pull prompt "+name, ErrPromptNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, workflow.NonRetryable(fmt.Sprintf("prompt registry rejected credentials (%d)", resp.StatusCode), nil)
	case resp.StatusCode >= 300:
		logger.Warn("Prompt registry returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Preview(string(body), 300)),
		)
		return nil, fmt.Errorf("prompt registry status %d", resp.StatusCode)
	}

	var prompt Prompt
	if err := json.Unmarshal(body, &prompt); err != nil {
		return nil, workflow.NonRetryable("decode prompt "+name, err)
	}
	if prompt.Name == "" {
		prompt.Name = name
	}
	return &prompt, nil
}

// Format renders every message template of prompt with vars.
func Format(renderer *Renderer, prompt *Prompt, vars map[string]any) ([]workflow.ChatMessage, error) {
	messages := make([]workflow.ChatMessage, 0, len(prompt.Messages))
	for i, m := range prompt.Messages {
		content, err := renderer.Render(m.Template, m.TemplateFormat, vars)
		if err != nil {
			return nil, workflow.NonRetryable(fmt.Sprintf("format prompt %s message %d", prompt.Name, i), err)
		}
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "human":
			role = "user"
		case "ai":
			role = "assistant"
		case "":
			role = "user"
		}
		messages = append(messages, workflow.ChatMessage{Role: role, Content: content})
	}
	return messages, nil
}
