package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

const (
	DefaultModelID   = "anthropic.claude-3-haiku-20240307-v1:0"
	anthropicVersion = "bedrock-2023-05-31"
)

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
}

type response struct {
	Content    json.RawMessage `json:"content"`
	StopReason string          `json:"stop_reason"`
}

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client runs completions on an Anthropic model hosted in Bedrock. The model
// id is fixed per client; CompletionInput.Model is ignored.
type Client struct {
	runtime invoker
	modelID string
}

func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if modelID == "" {
		modelID = DefaultModelID
	}

	logger.Info("Bedrock client initialized", zap.String("model", modelID), zap.String("region", region))
	return &Client{runtime: bedrockruntime.NewFromConfig(cfg), modelID: modelID}, nil
}

func (c *Client) Complete(ctx context.Context, input workflow.CompletionInput) (*workflow.CompletionOutput, error) {
	req := request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        1024,
	}
	for _, m := range input.Messages {
		if m.Role == "system" {
			if req.System != "" {
				req.System += "\n\n"
			}
			req.System += m.Content
			continue
		}
		req.Messages = append(req.Messages, message{
			Role:    m.Role,
			Content: []contentBlock{{Type: "text", Text: m.Content}},
		})
	}
	if len(req.Messages) == 0 {
		return nil, workflow.NonRetryable("bedrock completion needs at least one non-system message", nil)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, workflow.NonRetryable("encode bedrock request", err)
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, classify(err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bedrock response: %w", err)
	}

	return &workflow.CompletionOutput{
		Content:     workflow.ExtractContent(resp.Content),
		RawResponse: string(out.Body),
	}, nil
}

func classify(err error) error {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ValidationException", "AccessDeniedException", "ResourceNotFoundException":
			return workflow.NonRetryable("bedrock rejected request", err)
		}
	}
	return fmt.Errorf("bedrock invoke: %w", err)
}
