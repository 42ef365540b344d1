package orchestration

import (
	"strings"

	"github.com/koscakluka/ema-pet/core/history"
)

const DefaultContextWindow = 20

const (
	contextIntro       = "Here is the conversation so far:\n\n"
	contextInstruction = "With that conversation in mind, answer the latest message:\n\n"
)

// BuildPrompt renders the prompt for the last user or assistant turn in
// turns. Up to window conversational turns are used; all but the last are
// rendered as context ahead of it. System turns are ignored.
func BuildPrompt(turns []history.Turn, window int) string {
	if window <= 0 {
		window = DefaultContextWindow
	}

	selected := make([]history.Turn, 0, window)
	for _, turn := range turns {
		if turn.IsConversational() {
			selected = append(selected, turn)
		}
	}
	if len(selected) > window {
		selected = selected[len(selected)-window:]
	}

	switch len(selected) {
	case 0:
		return ""
	case 1:
		return selected[0].Text
	}

	var b strings.Builder
	b.WriteString(contextIntro)
	for _, turn := range selected[:len(selected)-1] {
		b.WriteString(speakerLabel(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n\n")
	}
	b.WriteString(contextInstruction)
	b.WriteString(selected[len(selected)-1].Text)
	return b.String()
}

func speakerLabel(role history.Role) string {
	if role == history.RoleUser {
		return "User"
	}
	return "Assistant"
}
