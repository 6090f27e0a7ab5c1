// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside a biosphere.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Adapt any chat Model + Embedder pair into a core.Backend with a call
//     budget, optional rate limiting and a dimensionality guard
//   - Facilitate lightweight mocking for tests (MockModel, MockEmbedder)
//
// Providers (OpenAI, Anthropic, Gemini) implement Model and, where the
// vendor offers embeddings, Embedder, so higher layers stay decoupled from
// vendor SDKs.
package model
