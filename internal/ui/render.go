package ui

import (
	"strings"

	orchestration "github.com/koscakluka/ema-pet/core"
	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/muesli/reflow/wordwrap"
)

const decorationMark = "@"

var faces = map[orchestration.Mode]string{
	orchestration.ModeIdle:      "( ^_^ )",
	orchestration.ModeListening: "( o_o )",
	orchestration.ModeThinking:  "( -_- )",
	orchestration.ModeSpeaking:  "( ^o^ )",
}

func renderCompanion(state orchestration.State) string {
	face, ok := faces[state.Mode]
	if !ok {
		face = faces[orchestration.ModeIdle]
	}

	lines := []string{companionStyle.Render(face), statusStyle.Render(state.Status)}
	if state.Transcript != "" {
		lines = append(lines, transcriptStyle.Render("> "+state.Transcript))
	}
	return strings.Join(lines, "\n")
}

// renderDecorations places every decoration on a single row at its
// horizontal position.
func renderDecorations(decorations []ambient.Decoration, width int) string {
	if len(decorations) == 0 || width <= 0 {
		return ""
	}

	row := []rune(strings.Repeat(" ", width))
	for _, decoration := range decorations {
		column := int(decoration.X / 100 * float64(width))
		column = max(0, min(width-1, column))
		row[column] = []rune(decorationMark)[0]
	}
	return decorationStyle.Render(strings.TrimRight(string(row), " "))
}

func renderTurns(turns []history.Turn, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}

		var label string
		switch turn.Role {
		case history.RoleUser:
			label = userStyle.Render("you")
		case history.RoleAssistant:
			label = assistantStyle.Render("ema")
		default:
			b.WriteString(systemStyle.Render(wordwrap.String(turn.Text, width)))
			b.WriteString("\n")
			continue
		}
		b.WriteString(label + "\n")
		b.WriteString(wordwrap.String(turn.Text, width))
		b.WriteString("\n")
	}
	return b.String()
}

func renderFlags(state orchestration.State) string {
	flag := func(name string, on bool) string {
		if on {
			return flagOnStyle.Render(name + " on")
		}
		return flagOffStyle.Render(name + " off")
	}
	return flag("hands-free", state.HandsFree) + "  " + flag("voice", state.Playback)
}
