// Package gemini implements model.Model and model.Embedder on top of the
// Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/model"
	"google.golang.org/genai"
)

// Defaults used when Options leave the model ids empty.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

var errNoEmbedding = errors.New("no embedding returned")

// Options configure the Gemini adapters.
type Options struct {
	Model          string
	EmbeddingModel string
	Temperature    float32
	APIKey         string
}

// Client bundles chat generation and embeddings sharing one genai client.
type Client struct {
	client *genai.Client
	opts   Options
}

var (
	_ model.Model    = (*Client)(nil)
	_ model.Embedder = (*Client)(nil)
)

// New creates a Gemini client. An empty APIKey lets the SDK read
// GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func New(ctx context.Context, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Model:          DefaultModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Temperature:    0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Client{client: client, opts: opts}, nil
}

// Generate implements model.Model. Streaming requests are served with a
// single final response.
func (c *Client) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		temp := c.opts.Temperature
		cfg := &genai.GenerateContentConfig{Temperature: &temp}
		if req.Instructions != "" {
			cfg.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, buildContents(req.Messages), cfg)
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}

		out <- model.Response{Text: resp.Text(), FinishReason: "stop"}
	}()

	return out, errCh
}

func buildContents(msgs []core.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		var role genai.Role = genai.RoleUser
		if msg.Role == core.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

// Embed implements model.Embedder.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.Models.EmbedContent(ctx, c.opts.EmbeddingModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings error: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, errNoEmbedding
	}

	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Info returns metadata describing this Gemini model implementation.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.Model, Provider: "gemini"}
}
