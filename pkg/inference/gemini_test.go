package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferMissingAPIKeyBeforeNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	for _, key := range []string{"", "   ", "\t\n"} {
		g := NewGeminiInferencer(key, "gemini-2.0-flash")
		g.ChangeBaseURL(srv.URL)
		_, err := g.Infer(context.Background(), "system", "user")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	}
	assert.Zero(t, hits.Load())
}

func TestInferRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		require.Len(t, req.Contents[0].Parts, 1)
		assert.Equal(t, "推荐一部电影", req.Contents[0].Parts[0].Text)
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "你是观影顾问", req.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 0.7, req.GenerationConfig.Temperature)
		assert.Equal(t, 2000, req.GenerationConfig.MaxOutputTokens)

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "好的！"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiInferencer("secret-key", "")
	g.ChangeBaseURL(srv.URL)

	out, err := g.Infer(context.Background(), "你是观影顾问", "推荐一部电影")
	require.NoError(t, err)
	assert.Equal(t, "好的！", out)
}

func TestInferOmitsSystemInstructionWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Nil(t, req.SystemInstruction)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "ok"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiInferencer("key", "gemini-2.0-flash")
	g.ChangeBaseURL(srv.URL)
	_, err := g.Infer(context.Background(), "", "hello")
	require.NoError(t, err)
}

func TestInferCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "quota exhausted"}`))
	}))
	defer srv.Close()

	g := NewGeminiInferencer("key", "gemini-2.0-flash")
	g.ChangeBaseURL(srv.URL)

	_, err := g.Infer(context.Background(), "system", "user")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "quota exhausted")
	assert.Contains(t, err.Error(), "429")
}

func TestInferNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := NewGeminiInferencer("key", "gemini-2.0-flash")
	g.ChangeBaseURL(srv.URL)

	_, err := g.Infer(context.Background(), "system", "user")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestInferJoinsCandidateParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "好的！"}, {"text": "再见"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiInferencer("key", "gemini-2.0-flash")
	g.ChangeBaseURL(srv.URL)

	out, err := g.Infer(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "好的！再见", out)
}

func TestListModelsFiltersGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{
					"name":                       "models/gemini-2.0-flash",
					"displayName":                "Gemini 2.0 Flash",
					"supportedGenerationMethods": []string{"generateContent", "countTokens"},
				},
				{
					"name":                       "models/text-embedding-004",
					"displayName":                "Text Embedding",
					"supportedGenerationMethods": []string{"embedContent"},
				},
			},
		})
	}))
	defer srv.Close()

	g := NewGeminiInferencer("key", "gemini-2.0-flash")
	g.ChangeBaseURL(srv.URL)

	models, err := g.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.0-flash", models[0].Name)
	assert.Equal(t, "Gemini 2.0 Flash", models[0].DisplayName)
}
