package services

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"soyeon/models"
)

// OpenAIModel talks to any OpenAI-compatible chat completions endpoint,
// including Gemini's compatibility layer and local Ollama.
type OpenAIModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIModel(opts ModelOptions) *OpenAIModel {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	return &OpenAIModel{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Name,
		maxTokens: opts.MaxTokens,
	}
}

func (m *OpenAIModel) Name() string {
	return "openai/" + m.model
}

func (m *OpenAIModel) Reply(ctx context.Context, history []models.Turn, message string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, turn := range history {
		role := openai.ChatMessageRoleAssistant
		if turn.Role == models.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     m.model,
		Messages:  messages,
		MaxTokens: m.maxTokens,
	})
	if err != nil {
		return "", modelError("openai", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", modelError("openai", fmt.Errorf("no content in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *OpenAIModel) ListModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := m.client.ListModels(ctx)
	if err != nil {
		return nil, modelError("openai", err)
	}
	out := make([]ModelInfo, 0, len(list.Models))
	for _, model := range list.Models {
		out = append(out, ModelInfo{Name: model.ID})
	}
	return out, nil
}
