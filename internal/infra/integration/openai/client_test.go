package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/broccoli-leads/internal/workflow"
)

func newServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompleteReturnsContentAndRaw(t *testing.T) {
	body := `{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"phone\":\"555\"}"},"finish_reason":"stop"}]}`
	srv := newServer(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, "user", req.Messages[0].Role)
	})

	c := NewClient("sk-test", srv.URL, "")
	out, err := c.Complete(context.Background(), workflow.CompletionInput{
		Messages: []workflow.ChatMessage{{Role: "user", Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"phone":"555"}`, out.Content)
	assert.Equal(t, body, out.RawResponse)
}

func TestCompleteHandlesPartContentAndNoChoices(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, nil)
	out, err := NewClient("k", srv.URL, "m").Complete(context.Background(), workflow.CompletionInput{})
	require.NoError(t, err)
	assert.Equal(t, "ab", out.Content)

	srv = newServer(t, http.StatusOK, `{"choices":[]}`, nil)
	out, err = NewClient("k", srv.URL, "m").Complete(context.Background(), workflow.CompletionInput{})
	require.NoError(t, err)
	assert.Equal(t, "", out.Content)
	assert.Equal(t, `{"choices":[]}`, out.RawResponse)
}

func TestCompleteClassifiesErrors(t *testing.T) {
	_, err := NewClient("", "", "").Complete(context.Background(), workflow.CompletionInput{})
	assert.True(t, workflow.IsNonRetryable(err))

	srv := newServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, nil)
	_, err = NewClient("k", srv.URL, "").Complete(context.Background(), workflow.CompletionInput{})
	require.Error(t, err)
	assert.True(t, workflow.IsNonRetryable(err))
	assert.Contains(t, err.Error(), "bad key")

	srv = newServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, nil)
	_, err = NewClient("k", srv.URL, "").Complete(context.Background(), workflow.CompletionInput{})
	require.Error(t, err)
	assert.False(t, workflow.IsNonRetryable(err))

	srv = newServer(t, http.StatusOK, `not json`, nil)
	_, err = NewClient("k", srv.URL, "").Complete(context.Background(), workflow.CompletionInput{})
	assert.Error(t, err)
}
