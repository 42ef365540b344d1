package history

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"

	legacyRoleAssistant = "ai"
)

func (r *Role) UnmarshalText(text []byte) error {
	switch role := strings.ToLower(string(text)); role {
	case legacyRoleAssistant:
		*r = RoleAssistant
	default:
		*r = Role(role)
	}
	return nil
}

func (r Role) valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Turn is a single message of the conversation. Turns are never modified
// once appended.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func UserTurn(text string) Turn      { return Turn{Role: RoleUser, Text: text} }
func AssistantTurn(text string) Turn { return Turn{Role: RoleAssistant, Text: text} }
func SystemTurn(text string) Turn    { return Turn{Role: RoleSystem, Text: text} }

// IsConversational reports whether the turn takes part in prompt context.
func (t Turn) IsConversational() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}
