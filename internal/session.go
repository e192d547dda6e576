package internal

import "time"

// Session is the export representation of a conversation
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Source   string    `json:"source" yaml:"source"` // "remote" or "cache"
	Messages []Message `json:"messages" yaml:"messages"`
	Metadata Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Metadata contains additional session information
type Metadata struct {
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Intent       Intent `json:"intent,omitempty" yaml:"intent,omitempty"`
	CreatedAt    string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// NewSession converts a session detail into its export representation
func NewSession(detail *SessionDetail, source string) *Session {
	meta := Metadata{
		Title:        detail.Title,
		Intent:       detail.Intent,
		MessageCount: len(detail.Messages),
	}
	if !detail.CreatedAt.IsZero() {
		meta.CreatedAt = detail.CreatedAt.Format(time.RFC3339)
	}
	messages := make([]Message, len(detail.Messages))
	copy(messages, detail.Messages)
	return &Session{
		ID:       detail.ID,
		Source:   source,
		Messages: messages,
		Metadata: meta,
	}
}
