package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type chatRequest struct {
	Model       string                 `json:"model"`
	Messages    []workflow.ChatMessage `json:"messages"`
	Temperature float64                `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Client calls the chat completions endpoint. It implements
// workflow.CompletionClient.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = workflow.DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) Complete(ctx context.Context, input workflow.CompletionInput) (*workflow.CompletionOutput, error) {
	if c.apiKey == "" {
		return nil, workflow.NonRetryable("OpenAI API key not configured", nil)
	}

	model := input.Model
	if model == "" {
		model = c.model
	}

	jsonBody, err := json.Marshal(chatRequest{Model: model, Messages: input.Messages, Temperature: 0})
	if err != nil {
		return nil, workflow.NonRetryable("encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, workflow.NonRetryable("build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body)
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (body: %s)", err, logger.Preview(string(body), 300))
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s", response.Error.Message)
	}

	content := ""
	if len(response.Choices) > 0 {
		content = workflow.ExtractContent(response.Choices[0].Message.Content)
	} else {
		logger.Warn("Completion returned no choices", zap.String("id", response.ID))
	}

	return &workflow.CompletionOutput{Content: content, RawResponse: string(body)}, nil
}

func statusError(status int, body []byte) error {
	var parsed chatResponse
	msg := logger.Preview(string(body), 300)
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		msg = parsed.Error.Message
	}

	err := fmt.Errorf("OpenAI status %d: %s", status, msg)
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return workflow.NonRetryable("completion rejected", err)
	}
	return err
}
