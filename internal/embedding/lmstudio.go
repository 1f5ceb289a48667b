package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LMStudioProvider talks to a local, OpenAI-compatible embedding endpoint
// (LM Studio, Ollama's OpenAI shim, etc). Dimensions are unknown until the
// first successful call, since the served model is whatever the user loaded.
type LMStudioProvider struct {
	baseURL string
	model   string
	client  *http.Client
	dims    int
	maxChars int
}

func NewLMStudioProvider(baseURL, model string) *LMStudioProvider {
	return &LMStudioProvider{
		baseURL:  baseURL,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
		dims:     768, // placeholder until first Generate call
		maxChars: 8000,
	}
}

func (p *LMStudioProvider) Name() string      { return "lmstudio" }
func (p *LMStudioProvider) Model() string     { return p.model }
func (p *LMStudioProvider) Dimensions() int   { return p.dims }
func (p *LMStudioProvider) MaxChars() int     { return p.maxChars }

func (p *LMStudioProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *LMStudioProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: %s - %s", resp.Status, string(respBody))
	}

	var decoded embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := decoded.Data[0].Embedding
	p.dims = len(vec)
	return vec, nil
}
