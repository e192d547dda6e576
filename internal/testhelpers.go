package internal

import (
	"time"
)

// CreateTestSession creates an export session with one exchange
func CreateTestSession(id string) *Session {
	return &Session{
		ID:     id,
		Source: "remote",
		Messages: []Message{
			UserMessage("What changed in the capital rules?"),
			AssistantMessage("The **leverage ratio** buffer now applies to all banks."),
		},
		Metadata: Metadata{
			Title:        "Capital rules",
			Intent:       IntentRegulatory,
			CreatedAt:    time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC).Format(time.RFC3339),
			MessageCount: 2,
		},
	}
}

// CreateTestSessionWithMessages creates an untitled export session holding messages
func CreateTestSessionWithMessages(id string, messages []Message) *Session {
	return &Session{
		ID:       id,
		Source:   "cache",
		Messages: messages,
		Metadata: Metadata{
			MessageCount: len(messages),
		},
	}
}

// CreateTestDetail creates a server session detail
func CreateTestDetail(id, title string, intent Intent, messages ...Message) *SessionDetail {
	return &SessionDetail{
		ChatSession: ChatSession{
			ID:        id,
			Title:     title,
			Intent:    intent,
			CreatedAt: Timestamp{time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
		},
		Messages: messages,
	}
}
