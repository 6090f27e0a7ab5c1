package model

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// DefaultMockDimensions is the vector size of MockEmbedder.
const DefaultMockDimensions = 256

// MockEmbedder is a deterministic bag-of-words embedder: every lower-cased
// word is hashed into one of Dimensions buckets and the result is
// L2-normalized. Texts sharing vocabulary are similar, which is enough to
// exercise semantic routing offline.
type MockEmbedder struct {
	Dimensions int
}

// NewMockEmbedder creates a MockEmbedder with DefaultMockDimensions.
func NewMockEmbedder() *MockEmbedder { return &MockEmbedder{Dimensions: DefaultMockDimensions} }

// Embed implements Embedder.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dim := e.Dimensions
	if dim <= 0 {
		dim = DefaultMockDimensions
	}

	vec := make([]float64, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
