package internal

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role tags who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is a single chat message. Messages are never edited once appended.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// UserMessage builds a message authored by the user
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a message authored by the assistant
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Intent steers which retrieval path the backend uses for a session
type Intent string

const (
	IntentRegulatory Intent = "Regulatory"
	IntentInternal   Intent = "Internal"
	IntentSpeech     Intent = "Speech"
)

// DefaultIntent is applied to every new chat
const DefaultIntent = IntentRegulatory

// Intents returns all intents in display order
func Intents() []Intent {
	return []Intent{IntentRegulatory, IntentInternal, IntentSpeech}
}

// ParseIntent matches s against the known intents, ignoring case
func ParseIntent(s string) (Intent, error) {
	for _, intent := range Intents() {
		if strings.EqualFold(string(intent), strings.TrimSpace(s)) {
			return intent, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q (supported: Regulatory, Internal, Speech)", s)
}

// ChatSession is the server's record of a conversation thread
type ChatSession struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
	Intent    Intent    `json:"intent" yaml:"intent"`
	UserID    string    `json:"userid,omitempty" yaml:"userid,omitempty"`
}

// DisplayTitle returns the title, or a placeholder for untitled sessions
func (s ChatSession) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return "Untitled"
	}
	return s.Title
}

// Timestamp decodes the API's datetimes, which may omit the zone (UTC assumed)
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses s using the layouts the API is known to emit
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// UnmarshalJSON accepts RFC 3339 strings with or without a zone, and null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON always emits RFC 3339
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

// MarshalYAML emits RFC 3339
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return "", nil
	}
	return t.UTC().Format(time.RFC3339), nil
}

// UnmarshalYAML mirrors UnmarshalJSON
func (t *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SessionDetail is a session together with its message history
type SessionDetail struct {
	ChatSession `yaml:",inline"`
	Messages    []Message `json:"messages" yaml:"messages"`
}

// Suggestion is a canned prompt offered on an empty chat
type Suggestion struct {
	Text   string
	Intent Intent
}

// Suggestions returns the prompts shown when a chat has no messages yet
func Suggestions() []Suggestion {
	return []Suggestion{
		{Text: "Summarise the latest regulatory updates", Intent: IntentRegulatory},
		{Text: "Find our internal policy on data retention", Intent: IntentInternal},
		{Text: "Draft talking points for an upcoming speech", Intent: IntentSpeech},
	}
}
