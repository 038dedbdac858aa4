// Gemini [TextModel] implementation
//
// Calls the generateContent REST endpoint of the Generative Language API directly.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-1.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GeminiService implements [TextModel] against the Gemini REST API.
type GeminiService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiService creates a Gemini client. Empty model and baseURL use the defaults.
func NewGeminiService(apiKey, model, baseURL string, client *http.Client) *GeminiService {
	if model == "" {
		model = defaultGeminiModel
	}
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &GeminiService{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the service name.
func (g *GeminiService) Name() string {
	return "Gemini"
}

// Generate implements [TextModel] and returns the concatenated text parts of the first candidate.
func (g *GeminiService) Generate(ctx context.Context, prompt string, cfg SamplingConfig) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key", shared.ErrMissingCredentials)
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			TopK:            cfg.TopK,
			TopP:            cfg.TopP,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: gemini status %d", shared.ErrInvalidCredentials, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("%w: gemini status %d: %s", shared.ErrAPIRequest, resp.StatusCode, truncate(string(raw), 256))
	}

	var data geminiResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("%w: failed to decode gemini response: %v", shared.ErrAPIRequest, err)
	}
	if data.PromptFeedback != nil && data.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: gemini blocked prompt: %s", shared.ErrAPIRequest, data.PromptFeedback.BlockReason)
	}
	if len(data.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", shared.ErrAPIRequest)
	}

	var text strings.Builder
	for _, part := range data.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: gemini returned empty text (finish reason %s)", shared.ErrAPIRequest, data.Candidates[0].FinishReason)
	}

	return text.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
