package model

import "time"

// Message roles for chat history rows.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxSessionTitleLen bounds the auto-generated session title.
const maxSessionTitleLen = 20

// ChatSession is a conversation container in the chat history store.
type ChatSession struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn in a conversation, ordered by CreatedAt.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionTitle derives a session title from the first question asked.
func SessionTitle(firstQuestion string) string {
	runes := []rune(firstQuestion)
	if len(runes) <= maxSessionTitleLen {
		return firstQuestion
	}
	return string(runes[:maxSessionTitleLen]) + "..."
}
