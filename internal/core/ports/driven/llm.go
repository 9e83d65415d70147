package driven

import "context"

// LLMService is a chat completion endpoint (Ollama, OpenAI-compatible or
// Anthropic). The query pipeline holds two: a moderation classifier and an
// answer generator, which may point at different models.
type LLMService interface {
	// Chat returns the text of the assistant reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	ModelName() string

	// Ping sends a minimal request to confirm the endpoint works.
	Ping(ctx context.Context) error

	Close() error
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions are per-call sampling limits. Zero values leave the
// provider default in place.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
