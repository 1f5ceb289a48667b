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

// RemoteProvider is the same OpenAI-compatible embeddings contract as
// LMStudioProvider, but bearer-token authenticated against a hosted
// endpoint, with its token sourced from the credential store rather than
// baked in.
type RemoteProvider struct {
	baseURL string
	model   string
	token   string
	client  *http.Client
	dims    int
	maxChars int
}

func NewRemoteProvider(baseURL, model, token string, dims int) *RemoteProvider {
	return &RemoteProvider{
		baseURL:  baseURL,
		model:    model,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		dims:     dims,
		maxChars: 8000,
	}
}

func (p *RemoteProvider) Name() string    { return "remote" }
func (p *RemoteProvider) Model() string   { return p.model }
func (p *RemoteProvider) Dimensions() int { return p.dims }
func (p *RemoteProvider) MaxChars() int   { return p.maxChars }

func (p *RemoteProvider) IsAvailable(ctx context.Context) bool {
	if p.token == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *RemoteProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: text, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

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
