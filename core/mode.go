package orchestration

import (
	"context"

	"github.com/koscakluka/ema-pet/core/events"
)

// Mode is the phase the companion is in. Exactly one mode is active at any
// time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListening
	ModeThinking
	ModeSpeaking
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeThinking:
		return "thinking"
	case ModeSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// modeState is the runtime's current mode together with the handle of the
// operation that mode owns. Handles only exist inside the mode that can
// use them.
type modeState interface {
	mode() Mode
}

type idleState struct{}

type listeningState struct {
	epoch events.Epoch
}

type thinkingState struct {
	epoch  events.Epoch
	cancel context.CancelFunc
}

type speakingState struct {
	epoch events.Epoch
}

func (idleState) mode() Mode      { return ModeIdle }
func (listeningState) mode() Mode { return ModeListening }
func (thinkingState) mode() Mode  { return ModeThinking }
func (speakingState) mode() Mode  { return ModeSpeaking }
