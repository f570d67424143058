package prompthub

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

const (
	FormatFString   = "f-string"
	FormatMustache  = "mustache"
	FormatLiquid    = "liquid"
	defaultTemplate = FormatFString
)

// Renderer renders prompt templates with liquid. f-string templates
// ({var}, {{ and }} as escapes) are translated to liquid first. Parsed
// templates are cached by format and source text.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

func (r *Renderer) Render(template, format string, vars map[string]any) (string, error) {
	if format == "" {
		format = defaultTemplate
	}

	var source string
	switch format {
	case FormatFString:
		source = fstringToLiquid(template)
	case FormatMustache, FormatLiquid:
		source = template
	default:
		return "", fmt.Errorf("unsupported template format %q", format)
	}

	key := format + ":" + source
	if cached, ok := r.cache.Load(key); ok {
		out, err := cached.(*liquid.Template).RenderString(vars)
		if err != nil {
			return "", err
		}
		return out, nil
	}

	tpl, err := r.engine.ParseString(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(key, tpl)

	out, err := tpl.RenderString(vars)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

func fstringToLiquid(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteString(`{{ "{" }}`)
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteString(`{{ "}" }}`)
			i++
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			name := ""
			if end >= 0 {
				name = strings.TrimSpace(s[i+1 : i+1+end])
			}
			if end < 0 || !isIdentifier(name) {
				b.WriteString(`{{ "{" }}`)
				continue
			}
			b.WriteString("{{ " + name + " }}")
			i += end + 1
		case c == '}':
			b.WriteString(`{{ "}" }}`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
