package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soyeon/models"
)

func TestGeminiModel_Reply(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Bloom"},{"text":"!"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	model := NewGeminiModel(ModelOptions{
		Name:       "models/gemini-2.0-flash",
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1beta",
		MaxTokens:  256,
		HTTPClient: srv.Client(),
	})

	history := BuildContext("persona", "ack", []models.Turn{
		{Role: models.RoleUser, Content: "어제 뭐 했어?"},
		{Role: models.RoleAssistant, Content: "산책했어요"},
	})
	reply, err := model.Reply(context.Background(), history, "오늘은?")
	require.NoError(t, err)
	assert.Equal(t, "Bloom!", reply)
	assert.Equal(t, "gemini/gemini-2.0-flash", model.Name())

	require.Len(t, got.Contents, 5)
	roles := make([]string, len(got.Contents))
	for i, c := range got.Contents {
		roles[i] = c.Role
	}
	assert.Equal(t, []string{"user", "model", "user", "model", "user"}, roles)
	assert.Equal(t, "오늘은?", got.Contents[4].Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, 256, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiModel_NoOutputCapByDefault(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	model := NewGeminiModel(ModelOptions{Name: "gemini-2.0-flash", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := model.Reply(context.Background(), nil, "hi")
	require.NoError(t, err)

	assert.Contains(t, raw, "contents")
	assert.NotContains(t, raw, "generationConfig")
}

func TestGeminiModel_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusUnauthorized, body: `{"error":{"message":"API key not valid"}}`},
		{name: "blocked", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{name: "empty parts", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			model := NewGeminiModel(ModelOptions{Name: "gemini-2.0-flash", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
			_, err := model.Reply(context.Background(), nil, "hi")
			assert.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}

func TestGeminiModel_ListModelsPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-2.0-flash","displayName":"Gemini 2.0 Flash","supportedGenerationMethods":["generateContent","countTokens"]}],"nextPageToken":"p2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}]}`))
	}))
	defer srv.Close()

	model := NewGeminiModel(ModelOptions{Name: "gemini-2.0-flash", APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})
	list, err := model.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "models/gemini-2.0-flash", list[0].Name)
	assert.True(t, list[0].SupportsChat())
	assert.False(t, list[1].SupportsChat())
}

func TestNewChatModel(t *testing.T) {
	for provider, want := range map[string]interface{}{
		"gemini":    &GeminiModel{},
		"openai":    &OpenAIModel{},
		"anthropic": &AnthropicModel{},
	} {
		model, err := NewChatModel(ModelOptions{Provider: provider, Name: "m", APIKey: "k"})
		require.NoError(t, err, provider)
		assert.IsType(t, want, model, provider)
	}

	_, err := NewChatModel(ModelOptions{Provider: "palm"})
	assert.Error(t, err)
}
