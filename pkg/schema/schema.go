package schema

import (
	"time"

	"github.com/segmentio/ksuid"
)

// Roles of chat messages.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// DefaultModel is used when no model identifier is configured.
const DefaultModel = "gemini-2.0-flash"

// Message is one entry in the conversation. Messages are immutable once
// created; the orchestrator only ever appends new ones.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	AgentName string `json:"agent_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// NewMessage builds a message with a fresh ID and timestamp.
// agentName is only meaningful for agent-role messages.
func NewMessage(role, content, agentName string) Message {
	return Message{
		ID:        ksuid.New().String(),
		Role:      role,
		Content:   content,
		AgentName: agentName,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Settings holds the user-mutable configuration persisted between runs.
type Settings struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// Conversation is the persisted message list.
type Conversation struct {
	Messages []Message `json:"messages"`
}

const welcomeText = "你好！我是你的观影顾问。想找部合口味的电影？先跟我聊聊你平时喜欢看什么片子吧～"

// DefaultConversation returns the initial history: a single welcome message.
func DefaultConversation() Conversation {
	return Conversation{
		Messages: []Message{NewMessage(RoleAgent, welcomeText, "观影顾问")},
	}
}
