package orchestration

import (
	"context"

	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/events"
	"github.com/koscakluka/ema-pet/core/llms"
)

// spawnDecoration handles a decoration timer fire. Nothing appears while
// the companion is thinking.
func (o *Orchestrator) spawnDecoration() bool {
	if _, busy := o.state.(thinkingState); busy {
		return false
	}
	if _, spawned := o.decorations.Spawn(); !spawned {
		return false
	}
	o.emitDecorations()

	if _, idle := o.state.(idleState); idle && o.decorations.Len() >= 2 {
		o.setStatus(o.phrases.CleanHint)
	}
	return true
}

func (o *Orchestrator) cleanDecoration(id string) bool {
	if !o.decorations.Remove(id) {
		return false
	}
	o.emitDecorations()

	if _, busy := o.state.(thinkingState); !busy {
		phrase := o.phrases.Happy[o.rand.IntN(len(o.phrases.Happy))]
		o.showStatus(phrase, happyStatusDuration, false)
	}
	return true
}

// requestRemark handles a remark timer fire. A remark is only asked for
// while idle and when no earlier remark is still pending.
func (o *Orchestrator) requestRemark(ctx context.Context) bool {
	if o.remarkClient == nil || o.remarkCancel != nil {
		return false
	}
	if _, idle := o.state.(idleState); !idle {
		return false
	}

	remarkCtx, cancel := context.WithCancel(ctx)
	o.remarkCancel = cancel
	epoch := o.nextEpoch()
	o.remarkEpoch = epoch
	prompt := ambient.RemarkPrompt(o.topics.Next())
	client := llms.WithDeadline(o.remarkClient, o.inferenceTimeout)
	go func() {
		reply, err := client.Ask(remarkCtx, prompt)
		o.post(events.NewRemarkSettled(epoch, reply, err))
	}()
	return true
}

// remarkSettled shows the remark briefly, unless the companion has become
// busy in the meantime.
func (o *Orchestrator) remarkSettled(e events.RemarkSettled) bool {
	if o.remarkCancel == nil || e.Epoch != o.remarkEpoch {
		return false
	}
	o.cancelRemark()

	if e.Err != nil {
		logger.Debug("remark failed", "error", e.Err)
		return false
	}
	if _, idle := o.state.(idleState); !idle {
		return false
	}

	remark := ambient.TruncateRemark(e.Reply)
	if remark == "" {
		return false
	}
	o.showStatus(remark, remarkStatusDuration, true)
	return true
}

func (o *Orchestrator) cancelRemark() {
	if o.remarkCancel != nil {
		o.remarkCancel()
		o.remarkCancel = nil
	}
}

func (o *Orchestrator) emitDecorations() {
	if o.orchestrateOptions.onDecorations != nil {
		o.publish()
		o.orchestrateOptions.onDecorations(o.decorations.List())
	}
}
