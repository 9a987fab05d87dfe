package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Generation defaults. The upstream prompts are written against these.
const (
	geminiTemperature     = 0.7
	geminiMaxOutputTokens = 2000
)

var (
	// ErrMissingAPIKey is returned before any network call when the
	// configured credential is empty or whitespace.
	ErrMissingAPIKey = errors.New("gemini api key is missing")

	// ErrNoCandidates is returned when the endpoint answers successfully but
	// the response carries no generated candidates.
	ErrNoCandidates = errors.New("gemini response contains no candidates")
)

// APIError is a non-success response from the generation endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error (status %d): %s", e.Status, e.Body)
}

// GeminiInferencer talks to the generateContent REST endpoint directly.
type GeminiInferencer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiInferencer creates a new inferencer for the given key and model.
func NewGeminiInferencer(apiKey, model string) *GeminiInferencer {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiInferencer{
		client:  http.DefaultClient,
		baseURL: geminiEndpoint,
		apiKey:  apiKey,
		model:   model,
	}
}

func (g *GeminiInferencer) ChangeBaseURL(baseURL string) {
	g.baseURL = strings.TrimRight(baseURL, "/")
}

func (g *GeminiInferencer) SetModel(model string) {
	g.model = model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Infer sends one generateContent request and returns the first candidate's text.
func (g *GeminiInferencer) Infer(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: user}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     geminiTemperature,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	body, err := g.do(ctx, http.MethodPost, apiURL, data)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// ModelInfo describes one model available to the configured key.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// ListModels returns the models supporting generateContent, for the settings UI.
func (g *GeminiInferencer) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	apiURL := fmt.Sprintf("%s/models?key=%s", g.baseURL, url.QueryEscape(g.apiKey))
	body, err := g.do(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}

	var list geminiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}

	out := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		if !supportsGenerate(m.SupportedGenerationMethods) {
			continue
		}
		out = append(out, ModelInfo{
			Name:        strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
		})
	}
	return out, nil
}

func supportsGenerate(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}

func (g *GeminiInferencer) do(ctx context.Context, method, apiURL string, data []byte) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if data != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
