package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"soyeon/models"
)

// ErrModelUnavailable wraps every failure of the hosted model API.
var ErrModelUnavailable = errors.New("model unavailable")

// ChatModel produces the assistant reply to message given the prior history.
type ChatModel interface {
	Reply(ctx context.Context, history []models.Turn, message string) (string, error)
	Name() string
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

type ModelInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Methods     []string `json:"methods,omitempty"`
}

// SupportsChat reports whether the model can be used for chat replies.
// Providers that do not advertise methods are assumed to.
func (m ModelInfo) SupportsChat() bool {
	if len(m.Methods) == 0 {
		return true
	}
	for _, method := range m.Methods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

type ModelOptions struct {
	Provider   string
	Name       string
	APIKey     string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// NewChatModel picks the provider implementation by name.
func NewChatModel(opts ModelOptions) (ChatModel, error) {
	switch opts.Provider {
	case "gemini", "":
		return NewGeminiModel(opts), nil
	case "openai":
		return NewOpenAIModel(opts), nil
	case "anthropic":
		return NewAnthropicModel(opts), nil
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", opts.Provider)
	}
}

func modelError(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, provider, err)
}
