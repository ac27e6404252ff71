package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"soyeon/models"
)

const defaultAnthropicMaxTokens = 1024

type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicModel(opts ModelOptions) *AnthropicModel {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicModel{
		client:    anthropic.NewClient(reqOpts...),
		model:     opts.Name,
		maxTokens: maxTokens,
	}
}

func (m *AnthropicModel) Name() string {
	return "anthropic/" + m.model
}

func (m *AnthropicModel) Reply(ctx context.Context, history []models.Turn, message string) (string, error) {
	turns := append(append([]models.Turn{}, history...), models.NewTurn(models.RoleUser, message))

	var messages []anthropic.MessageParam
	for _, turn := range mergeConsecutive(turns) {
		if turn.Role == models.RoleUser {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		} else {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}

	response, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  messages,
		MaxTokens: m.maxTokens,
	})
	if err != nil {
		return "", modelError("anthropic", err)
	}

	var reply strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			reply.WriteString(b.Text)
		}
	}
	if reply.Len() == 0 {
		return "", modelError("anthropic", fmt.Errorf("no content in response"))
	}
	return reply.String(), nil
}

// mergeConsecutive joins neighbouring turns of the same role. The Messages
// API requires alternating roles, the stored memory does not guarantee it.
func mergeConsecutive(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, 0, len(turns))
	for _, turn := range turns {
		if n := len(out); n > 0 && out[n-1].Role == turn.Role {
			out[n-1].Content += "\n\n" + turn.Content
			continue
		}
		out = append(out, models.Turn{Role: turn.Role, Content: turn.Content})
	}
	return out
}
