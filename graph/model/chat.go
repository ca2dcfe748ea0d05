// Package model abstracts the hosted language-model service consumed by the
// workflow nodes.
package model

import "context"

// ChatModel is the text-completion collaborator the workflow depends on.
//
// Implementations wrap a hosted provider (OpenAI, Anthropic, Google) behind a
// uniform send-messages/get-text contract. They must respect context
// cancellation and deadlines; the engine runs every model call under a
// bounded timeout. Use MockChatModel in tests for deterministic responses.
type ChatModel interface {
	// Chat sends the conversation to the model and returns its completion.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is a single message in a model conversation.
type Message struct {
	// Role identifies the sender; use the Role* constants.
	Role string

	// Content is the message text.
	Content string
}

// Standard conversation roles, matching the conventions of the major
// providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is the model's completion.
type ChatOut struct {
	// Text is the generated response.
	Text string
}
