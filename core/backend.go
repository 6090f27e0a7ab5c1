package core

import "context"

// Conversation roles understood by every Backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// UserMessage builds a user-role message.
func UserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// Backend is the language-model collaborator consumed by the engine, the
// synapses, the detector and model-backed agents. Both calls may fail; the
// core never retries, a resilient implementation is the backend's concern.
//
// Embed must return vectors of one fixed dimensionality for the lifetime of
// a run.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Chat(ctx context.Context, messages []Message) (string, error)
}
