package embedding

import (
	"context"
	"crypto/sha256"
	"strings"
)

// LocalVectorProvider is an in-process feature-hashing fallback: no network
// call, always available, used when no HTTP provider is reachable so the
// pipeline never stalls waiting on external infrastructure.
type LocalVectorProvider struct {
	dims int
}

func NewLocalVectorProvider() *LocalVectorProvider {
	return &LocalVectorProvider{dims: 256}
}

func (p *LocalVectorProvider) Name() string      { return "local-hash" }
func (p *LocalVectorProvider) Model() string     { return "feature-hash-v1" }
func (p *LocalVectorProvider) Dimensions() int   { return p.dims }
func (p *LocalVectorProvider) MaxChars() int     { return 20000 }

func (p *LocalVectorProvider) IsAvailable(ctx context.Context) bool { return true }

// Generate builds a deterministic vector from text via feature hashing over
// unigrams and bigrams. It is not a learned embedding, but it gives
// consistent, comparable similarity scores without any external dependency.
func (p *LocalVectorProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	return textToHashVector(text, p.dims), nil
}

func textToHashVector(text string, dims int) []float32 {
	text = strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(text)

	features := make(map[string]int)
	for _, w := range words {
		features[w]++
	}
	for i := 0; i < len(words)-1; i++ {
		features[words[i]+" "+words[i+1]]++
	}

	vec := make([]float32, dims)
	var magnitude float64
	for feature, count := range features {
		hash := sha256.Sum256([]byte(feature))
		idx := (int(hash[0])<<8 | int(hash[1])) % dims
		sign := float32(1.0)
		if hash[4]&1 == 1 {
			sign = -1.0
		}
		vec[idx] += sign * float32(count)
		magnitude += float64(vec[idx]) * float64(vec[idx])
	}

	if magnitude > 0 {
		scale := float32(1.0 / magnitude)
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
