package ui

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	orchestration "github.com/koscakluka/ema-pet/core"
	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/history"
)

type recordingController struct {
	calls []string
}

func (c *recordingController) SendPrompt(text string) { c.calls = append(c.calls, "send:"+text) }
func (c *recordingController) StartCapture()          { c.calls = append(c.calls, "start") }
func (c *recordingController) StopCapture()           { c.calls = append(c.calls, "stop capture") }
func (c *recordingController) StopPlayback()          { c.calls = append(c.calls, "stop playback") }
func (c *recordingController) Reset()                 { c.calls = append(c.calls, "reset") }
func (c *recordingController) Replay()                { c.calls = append(c.calls, "replay") }
func (c *recordingController) SetHandsFree(enabled bool) {
	c.calls = append(c.calls, "hands-free:"+onOff(enabled))
}
func (c *recordingController) SetPlayback(enabled bool) {
	c.calls = append(c.calls, "playback:"+onOff(enabled))
}
func (c *recordingController) CleanDecoration(id string) { c.calls = append(c.calls, "clean:"+id) }

var styleSequence = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripStyles(s string) string { return styleSequence.ReplaceAllString(s, "") }

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestKeysDriveController(t *testing.T) {
	controller := &recordingController{}
	m := New(controller, orchestration.State{Mode: orchestration.ModeIdle, Playback: true})

	typeText(m, "  hi ema ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	m.Update(StateMsg(orchestration.State{
		Mode:        orchestration.ModeListening,
		Decorations: []ambient.Decoration{{ID: "d1", X: 50}},
	}))
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})

	want := []string{
		"send:hi ema",
		"start",
		"hands-free:on",
		"playback:off",
		"replay",
		"stop capture",
		"clean:d1",
		"reset",
	}
	if diff := cmp.Diff(want, controller.calls); diff != "" {
		t.Fatalf("unexpected controller calls (-want +got):\n%s", diff)
	}
}

func TestEscapeStopsTheActiveMode(t *testing.T) {
	testCases := []struct {
		mode orchestration.Mode
		want []string
	}{
		{mode: orchestration.ModeIdle, want: nil},
		{mode: orchestration.ModeListening, want: []string{"stop capture"}},
		{mode: orchestration.ModeThinking, want: nil},
		{mode: orchestration.ModeSpeaking, want: []string{"stop playback"}},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			controller := &recordingController{}
			m := New(controller, orchestration.State{Mode: tc.mode})
			m.Update(tea.KeyMsg{Type: tea.KeyEsc})
			if diff := cmp.Diff(tc.want, controller.calls); diff != "" {
				t.Fatalf("unexpected controller calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestViewShowsState(t *testing.T) {
	m := New(&recordingController{}, orchestration.State{})
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m.Update(StateMsg(orchestration.State{
		Mode:       orchestration.ModeListening,
		Status:     "listening...",
		Transcript: "what is",
		Turns: []history.Turn{
			history.UserTurn("hello"),
			history.AssistantTurn("hi there"),
		},
		Decorations: []ambient.Decoration{{ID: "d1", X: 10}},
	}))

	view := m.View()
	for _, want := range []string{faces[orchestration.ModeListening], "listening...", "> what is", "hello", "hi there", decorationMark} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestRenderTurnsWraps(t *testing.T) {
	rendered := renderTurns([]history.Turn{
		history.AssistantTurn("one two three four five six"),
		history.SystemTurn("note"),
	}, 10)

	for _, line := range strings.Split(rendered, "\n") {
		if len([]rune(stripStyles(line))) > 10 {
			t.Fatalf("line %q exceeds the width", line)
		}
	}
	if !strings.Contains(rendered, "note") {
		t.Fatalf("expected system turns to be rendered")
	}
}

func TestRenderDecorationsPlacement(t *testing.T) {
	row := stripStyles(renderDecorations([]ambient.Decoration{{X: 0}, {X: 100}}, 10))
	if row != decorationMark+strings.Repeat(" ", 8)+decorationMark {
		t.Fatalf("unexpected decoration row %q", row)
	}
	if renderDecorations(nil, 10) != "" {
		t.Fatalf("expected an empty row without decorations")
	}
}

func TestNotifierCoalescesChanges(t *testing.T) {
	notifier := NewNotifier()
	for range 10 {
		notifier.Notify()
	}

	var mu sync.Mutex
	var sent []tea.Msg
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		notifier.Run(ctx, func() orchestration.State {
			return orchestration.State{Status: "fresh"}
		}, func(msg tea.Msg) {
			mu.Lock()
			defer mu.Unlock()
			sent = append(sent, msg)
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(sent)
		mu.Unlock()
		if count > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Fatalf("expected a single coalesced snapshot, got %d", len(sent))
	}
	if state, ok := sent[0].(StateMsg); !ok || state.Status != "fresh" {
		t.Fatalf("unexpected message %#v", sent[0])
	}
}
