package workflow

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xavierca1/broccoli-leads/internal/entity"
	"github.com/xavierca1/broccoli-leads/internal/pkg/logger"
)

var validate = validator.New()

// InterpretCompletion turns model output into a ProcessedLead. The output is
// untrusted: anything that is not a JSON object yields the empty lead. It
// returns the text that was actually interpreted.
func InterpretCompletion(content, rawResponse string) (string, entity.ProcessedLead) {
	response := content
	if response == "" {
		response = rawResponse
	}
	if response == "" {
		return "", entity.ProcessedLead{}
	}

	var parsed any
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &parsed); err != nil {
		interpretationFallbacks.Inc()
		logger.Warn("Unable to parse prompt JSON output",
			zap.Error(err),
			zap.String("promptResponse", logger.Preview(response, 500)),
		)
		return response, entity.ProcessedLead{}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		interpretationFallbacks.Inc()
		logger.Warn("Prompt response was not an object",
			zap.String("promptResponse", logger.Preview(response, 500)),
		)
		return response, entity.ProcessedLead{}
	}

	lead := entity.ProcessedLead{
		Email:            field(obj, "email"),
		Phone:            field(obj, "phone", "phoneNumber", "phone_number"),
		CountryCode:      field(obj, "countryCode", "country_code"),
		Address:          field(obj, "address"),
		ServiceRequested: field(obj, "serviceRequested", "service_requested"),
	}

	if lead.Email != nil {
		if err := validate.Var(strings.TrimSpace(*lead.Email), "email"); err != nil {
			logger.Warn("Dropping invalid email from prompt output", zap.String("email", *lead.Email))
			lead.Email = nil
		}
	}

	return response, lead
}

func field(obj map[string]any, keys ...string) *string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return &t
		case float64:
			s := strconv.FormatFloat(t, 'f', -1, 64)
			return &s
		case bool:
			s := strconv.FormatBool(t)
			return &s
		}
	}
	return nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// ExtractContent reads a chat message "content" value defensively. It accepts
// a plain string, a list of parts (strings, {"text": ...} objects or
// {"parts": [{"text": ...}]} objects) and degrades to "" for anything else.
func ExtractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var content any
	if err := json.Unmarshal(raw, &content); err != nil {
		return ""
	}

	switch c := content.(type) {
	case string:
		return strings.TrimSpace(c)
	case []any:
		var b strings.Builder
		for _, chunk := range c {
			b.WriteString(chunkText(chunk))
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}

func chunkText(chunk any) string {
	switch c := chunk.(type) {
	case string:
		return c
	case map[string]any:
		if text, ok := c["text"].(string); ok {
			return text
		}
		if parts, ok := c["parts"].([]any); ok {
			var b strings.Builder
			for _, p := range parts {
				if pm, ok := p.(map[string]any); ok {
					if text, ok := pm["text"].(string); ok {
						b.WriteString(text)
					}
				}
			}
			return b.String()
		}
	}
	return ""
}
