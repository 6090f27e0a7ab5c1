package config

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/model"
	"github.com/hupe1980/biosphere/model/anthropic"
	"github.com/hupe1980/biosphere/model/gemini"
	"github.com/hupe1980/biosphere/model/openai"
)

// BuildBackend creates the core backend for the configured provider,
// wrapped with the call budget and rate limit.
func (c *Config) BuildBackend(ctx context.Context, logger logging.Logger) (*model.Backend, error) {
	m, e, err := c.Backend.build(ctx)
	if err != nil {
		return nil, err
	}

	b := c.Backend
	return model.NewBackend(m, e, func(o *model.BackendOptions) {
		o.MaxCalls = b.MaxCalls
		o.MaxEmbedCalls = b.MaxEmbedCalls
		o.MaxChatCalls = b.MaxChatCalls
		o.RatePerSecond = b.RatePerSecond
		o.Burst = b.Burst
		o.Stream = b.Stream
		o.Logger = logger
	}), nil
}

func (b BackendConfig) build(ctx context.Context) (model.Model, model.Embedder, error) {
	switch b.Provider {
	case ProviderMock:
		return model.NewMockModel("mock"), &model.MockEmbedder{Dimensions: b.MockDimensions}, nil
	case ProviderOpenAI:
		m := openai.NewModel(b.applyOpenAI)
		e := openai.NewEmbedder(func(o *openai.EmbedderOptions) {
			o.APIKey = b.APIKey
			o.BaseURL = b.BaseURL
			if b.EmbeddingModel != "" {
				o.Model = b.EmbeddingModel
			}
		})
		return m, e, nil
	case ProviderAnthropic:
		m := anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = b.APIKey
			o.Temperature = b.Temperature
			if b.Model != "" {
				o.Model = anthropicsdk.Model(b.Model)
			}
		})
		e := openai.NewEmbedder(func(o *openai.EmbedderOptions) {
			o.APIKey = b.EmbeddingAPIKey
			if b.EmbeddingModel != "" {
				o.Model = b.EmbeddingModel
			}
		})
		return m, e, nil
	case ProviderGemini:
		client, err := gemini.New(ctx, func(o *gemini.Options) {
			o.APIKey = b.APIKey
			o.Temperature = float32(b.Temperature)
			if b.Model != "" {
				o.Model = b.Model
			}
			if b.EmbeddingModel != "" {
				o.EmbeddingModel = b.EmbeddingModel
			}
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", b.Provider)
	}
}

func (b BackendConfig) applyOpenAI(o *openai.Options) {
	o.APIKey = b.APIKey
	o.BaseURL = b.BaseURL
	o.Temperature = b.Temperature
	if b.Model != "" {
		o.Model = b.Model
	}
}
