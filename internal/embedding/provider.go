/*
Package embedding produces dense vectors for text and memoizes them.

A Provider turns text into a vector. Two providers ship with tripsense: a
local feature-hashing provider that needs no model files, and an HTTP
provider for an Ollama-compatible embedding server. Model wraps a provider
with a bounded in-memory cache and optional SQLite persistence.
*/
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/khanglvm/tripsense/internal/remote"
	"github.com/khanglvm/tripsense/internal/text"
)

// ErrEmptyVector is returned when a provider yields no dimensions.
var ErrEmptyVector = errors.New("embedding provider returned an empty vector")

// Provider converts text to an embedding vector.
type Provider interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Version identifies the model so persisted vectors from another model are ignored.
	Version() string
}

// HashProvider embeds text by hashing content tokens and their character
// trigrams into a fixed number of signed buckets.
type HashProvider struct {
	dims       int
	normalizer *text.Normalizer
}

// NewHashProvider creates a hashing provider with dims dimensions.
func NewHashProvider(dims int, normalizer *text.Normalizer) *HashProvider {
	if dims <= 0 {
		dims = 384
	}
	return &HashProvider{dims: dims, normalizer: normalizer}
}

// Version implements Provider.
func (p *HashProvider) Version() string {
	return fmt.Sprintf("hash-%d", p.dims)
}

// Embed implements Provider. Text without content tokens maps to the zero vector.
func (p *HashProvider) Embed(_ context.Context, s string) ([]float32, error) {
	vec := make([]float32, p.dims)
	for _, tok := range p.normalizer.Normalize(s, false) {
		p.add(vec, tok, 1.0)

		padded := []rune("^" + tok + "$")
		for i := 0; i+3 <= len(padded); i++ {
			p.add(vec, "#"+string(padded[i:i+3]), 0.5)
		}
	}
	normalize(vec)
	return vec, nil
}

func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(p.dims))
	if h&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// HTTPProvider calls an Ollama-compatible /api/embeddings endpoint.
type HTTPProvider struct {
	client *remote.Client
	model  string
}

// NewHTTPProvider creates a provider that requests embeddings for model.
func NewHTTPProvider(client *remote.Client, model string) *HTTPProvider {
	return &HTTPProvider{client: client, model: model}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Version implements Provider.
func (p *HTTPProvider) Version() string {
	return "http-" + p.model
}

// Embed implements Provider.
func (p *HTTPProvider) Embed(ctx context.Context, s string) ([]float32, error) {
	var resp embedResponse
	if err := p.client.PostJSON(ctx, embedRequest{Model: p.model, Prompt: s}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyVector
	}
	return resp.Embedding, nil
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
