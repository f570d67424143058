package prompthub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

func TestFStringToLiquid(t *testing.T) {
	assert.Equal(t, "Hello {{ question }}!", fstringToLiquid("Hello {question}!"))
	assert.Equal(t, `{{ "{" }}"email": ...{{ "}" }}`, fstringToLiquid(`{{"email": ...}}`))
	assert.Equal(t, `{{ "{" }} not a var {{ "}" }}`, fstringToLiquid("{ not a var }"))
	assert.Equal(t, `trailing {{ "{" }}`, fstringToLiquid("trailing {"))
}

func TestRendererFormats(t *testing.T) {
	r := NewRenderer()
	vars := map[string]any{"question": "Do you mow lawns?"}

	out, err := r.Render("Q: {question}\nReturn {{\"phone\": ...}}", FormatFString, vars)
	require.NoError(t, err)
	assert.Equal(t, "Q: Do you mow lawns?\nReturn {\"phone\": ...}", out)

	out, err = r.Render("Q: {{question}}", FormatMustache, vars)
	require.NoError(t, err)
	assert.Equal(t, "Q: Do you mow lawns?", out)

	out, err = r.Render("{{ question | upcase }}", FormatLiquid, vars)
	require.NoError(t, err)
	assert.Equal(t, "DO YOU MOW LAWNS?", out)

	_, err = r.Render("x", "jinja2", vars)
	assert.Error(t, err)
}

func TestRendererReusesParsedTemplate(t *testing.T) {
	r := NewRenderer()

	first, err := r.Render("{question}", "", map[string]any{"question": "one"})
	require.NoError(t, err)
	second, err := r.Render("{question}", "", map[string]any{"question": "two"})
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)

	changed, err := r.Render("Q: {question}", "", map[string]any{"question": "two"})
	require.NoError(t, err)
	assert.Equal(t, "Q: two", changed)
}

const storedPrompt = `{
  "name": "broccoli-leads",
  "messages": [
    {"role": "system", "template": "Extract contact details as JSON.", "template_format": "f-string"},
    {"role": "human", "template": "{question}", "template_format": "f-string"}
  ]
}`

func TestHTTPRegistryPullAndFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prompts/broccoli-leads", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(storedPrompt))
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL+"/", "secret")
	msgs, err := reg.PullAndFormat(context.Background(), "broccoli-leads", map[string]any{"question": "Call me at 555-0100"})

	require.NoError(t, err)
	assert.Equal(t, []workflow.ChatMessage{
		{Role: "system", Content: "Extract contact details as JSON."},
		{Role: "user", Content: "Call me at 555-0100"},
	}, msgs)
}

func TestHTTPRegistryPicksUpEditedPrompt(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if version.Load() == 1 {
			w.Write([]byte(`{"messages":[{"role":"human","template":"v1 {question}"}]}`))
			return
		}
		w.Write([]byte(`{"messages":[{"role":"system","template":"Be brief."},{"role":"human","template":"v2 {question}"}]}`))
	}))
	defer srv.Close()

	reg := NewHTTPRegistry(srv.URL, "key")
	vars := map[string]any{"question": "q"}

	msgs, err := reg.PullAndFormat(context.Background(), "broccoli-leads", vars)
	require.NoError(t, err)
	assert.Equal(t, []workflow.ChatMessage{{Role: "user", Content: "v1 q"}}, msgs)

	version.Store(2)
	msgs, err = reg.PullAndFormat(context.Background(), "broccoli-leads", vars)
	require.NoError(t, err)
	assert.Equal(t, []workflow.ChatMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "v2 q"},
	}, msgs)
}

func TestHTTPRegistryErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	_, err := NewHTTPRegistry(srv.URL, "").PullAndFormat(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrRegistryNotConfigured)
	assert.True(t, workflow.IsNonRetryable(err))

	reg := NewHTTPRegistry(srv.URL, "key")

	_, err = reg.PullAndFormat(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrPromptNotFound)
	assert.True(t, workflow.IsNonRetryable(err))

	status.Store(http.StatusForbidden)
	_, err = reg.PullAndFormat(context.Background(), "p", nil)
	assert.True(t, workflow.IsNonRetryable(err))

	status.Store(http.StatusBadGateway)
	_, err = reg.PullAndFormat(context.Background(), "p", nil)
	require.Error(t, err)
	assert.False(t, workflow.IsNonRetryable(err))
}

func TestFileRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	doc := `
prompts:
  broccoli-leads:
    messages:
      - role: system
        template: "You extract leads."
      - role: user
        template: "Email: {{ question }}"
        template_format: liquid
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg, err := NewFileRegistry(path)
	require.NoError(t, err)

	msgs, err := reg.PullAndFormat(context.Background(), "broccoli-leads", map[string]any{"question": "hi"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Email: hi", msgs[1].Content)

	_, err = reg.PullAndFormat(context.Background(), "other", nil)
	assert.ErrorIs(t, err, ErrPromptNotFound)

	_, err = NewFileRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
