package prompthub

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

type promptFile struct {
	Prompts map[string]Prompt `yaml:"prompts"`
}

// FileRegistry serves prompts from a YAML document of the form
//
//	prompts:
//	  broccoli-leads:
//	    messages:
//	      - role: system
//	        template: "..."
type FileRegistry struct {
	prompts  map[string]Prompt
	renderer *Renderer
}

func NewFileRegistry(path string) (*FileRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return ParseFileRegistry(data)
}

func ParseFileRegistry(data []byte) (*FileRegistry, error) {
	var doc promptFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	prompts := make(map[string]Prompt, len(doc.Prompts))
	for name, p := range doc.Prompts {
		p.Name = name
		prompts[name] = p
	}
	return &FileRegistry{prompts: prompts, renderer: NewRenderer()}, nil
}

func (r *FileRegistry) PullAndFormat(_ context.Context, name string, vars map[string]any) ([]workflow.ChatMessage, error) {
	prompt, ok := r.prompts[name]
	if !ok {
		return nil, workflow.NonRetryable("pull prompt "+name, ErrPromptNotFound)
	}
	return Format(r.renderer, &prompt, vars)
}
