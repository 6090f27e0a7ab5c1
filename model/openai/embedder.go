package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/biosphere/model"
	"github.com/openai/openai-go"
)

var errNoEmbedding = errors.New("no embedding returned")

// EmbedderOptions configure the OpenAI embedder.
type EmbedderOptions struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Embedder wraps the OpenAI Embeddings API behind model.Embedder.
type Embedder struct {
	client *openai.Client
	opts   EmbedderOptions
}

var _ model.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder using the official client. The default
// model is text-embedding-3-small.
func NewEmbedder(optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(clientOptions(opts.APIKey, opts.BaseURL)...)
	return &Embedder{client: &client, opts: opts}
}

// NewEmbedderFromClient creates an embedder from an existing client.
func NewEmbedderFromClient(client *openai.Client, optFns ...func(o *EmbedderOptions)) *Embedder {
	opts := EmbedderOptions{Model: openai.EmbeddingModelTextEmbedding3Small}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed implements model.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.opts.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errNoEmbedding
	}
	return resp.Data[0].Embedding, nil
}
