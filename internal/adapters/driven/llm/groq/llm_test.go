package groq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ray/internal/core/ports/driven"
)

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "gsk-test"})
	require.NoError(t, err)
	assert.Equal(t, "groq", svc.ProviderName())
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorContains(t, err, "groq: API key is required")
}

func TestChat_UsesOpenAICompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"fast answer"}}]}`))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "gsk-test", BaseURL: server.URL + "/openai/v1"})
	require.NoError(t, err)

	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fast answer", reply)
}

func TestChat_ErrorsNameProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("over capacity"))
	}))
	defer server.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "hi"}}, driven.ChatOptions{})
	assert.ErrorContains(t, err, "groq error (status 503): over capacity")
}
