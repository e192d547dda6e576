package testutil

// FakeMessage is a message as the API serialises it
type FakeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FakeSession is a session as the API serialises it
type FakeSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Intent    string        `json:"intent"`
	CreatedAt string        `json:"created_at"`
	UserID    string        `json:"userid,omitempty"`
	Messages  []FakeMessage `json:"messages,omitempty"`
}

// SampleSessions returns a small, stable set of sessions covering every intent
func SampleSessions() []FakeSession {
	return []FakeSession{
		{
			ID:        "sess-basel",
			Title:     "Basel III capital buffers",
			Intent:    "Regulatory",
			CreatedAt: "2025-03-14T09:30:00",
			UserID:    "user-1",
			Messages: []FakeMessage{
				{Role: "user", Content: "Basel III capital buffers"},
				{Role: "assistant", Content: "The **capital conservation buffer** is 2.5% of RWA."},
			},
		},
		{
			ID:        "sess-retention",
			Title:     "Data retention policy",
			Intent:    "Internal",
			CreatedAt: "2025-03-15T11:00:00Z",
			UserID:    "user-1",
			Messages: []FakeMessage{
				{Role: "user", Content: "How long do we keep call recordings?"},
				{Role: "assistant", Content: "Call recordings are retained for seven years."},
			},
		},
		{
			ID:        "sess-speech",
			Title:     "Governor speech on inflation",
			Intent:    "Speech",
			CreatedAt: "2025-03-16 08:15:00",
			UserID:    "user-1",
		},
	}
}
