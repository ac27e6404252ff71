package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"soyeon/models"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiModel struct {
	client    *resty.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

func NewGeminiModel(opts ModelOptions) *GeminiModel {
	client := resty.New()
	if opts.HTTPClient != nil {
		client = resty.NewWithClient(opts.HTTPClient)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	return &GeminiModel{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    opts.APIKey,
		model:     strings.TrimPrefix(opts.Name, "models/"),
		maxTokens: opts.MaxTokens,
	}
}

func (g *GeminiModel) Name() string {
	return "gemini/" + g.model
}

func (g *GeminiModel) Reply(ctx context.Context, history []models.Turn, message string) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(turn.Role),
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: message}},
	})

	body := geminiRequest{Contents: contents}
	if g.maxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: g.maxTokens}
	}

	var result geminiResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetPathParam("model", g.model).
		SetBody(body).
		SetResult(&result).
		Post(g.baseURL + "/models/{model}:generateContent")
	if err != nil {
		return "", modelError("gemini", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", modelError("gemini", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	if len(result.Candidates) == 0 {
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return "", modelError("gemini", fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason))
		}
		return "", modelError("gemini", fmt.Errorf("no content in response"))
	}

	var reply strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		reply.WriteString(part.Text)
	}
	if reply.Len() == 0 {
		return "", modelError("gemini", fmt.Errorf("empty reply (finish reason %s)", result.Candidates[0].FinishReason))
	}
	return reply.String(), nil
}

// ListModels pages through every model visible to the API key.
func (g *GeminiModel) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var (
		out       []ModelInfo
		pageToken string
	)
	for {
		var page geminiModelList
		req := g.client.R().
			SetContext(ctx).
			SetHeader("x-goog-api-key", g.apiKey).
			SetQueryParam("pageSize", "1000").
			SetResult(&page)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		resp, err := req.Get(g.baseURL + "/models")
		if err != nil {
			return nil, modelError("gemini", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, modelError("gemini", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
		}

		for _, m := range page.Models {
			out = append(out, ModelInfo{
				Name:        m.Name,
				DisplayName: m.DisplayName,
				Methods:     m.SupportedGenerationMethods,
			})
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

func geminiRole(role models.Role) string {
	if role == models.RoleUser {
		return "user"
	}
	return "model"
}
