package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-pet/core"
)

// StateMsg carries a fresh snapshot of the companion into the program.
type StateMsg orchestration.State

// Notifier forwards state changes to the program without ever blocking
// the caller. Changes that arrive while a snapshot is being delivered are
// folded into the next one.
type Notifier struct {
	changed chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{changed: make(chan struct{}, 1)}
}

// Notify marks the state as changed. It is safe to call from the
// orchestrator's callbacks.
func (n *Notifier) Notify() {
	select {
	case n.changed <- struct{}{}:
	default:
	}
}

// Run delivers a snapshot after every change until ctx is done.
func (n *Notifier) Run(ctx context.Context, snapshot func() orchestration.State, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.changed:
			send(StateMsg(snapshot()))
		}
	}
}
