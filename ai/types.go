package ai

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat history.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Settings are the sampling parameters of a completion request.
// A zero MaxTokens or TopP leaves the provider default in place.
// Temperature is always sent.
type Settings struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}
