package orchestration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/ema-pet/core/events"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/koscakluka/ema-pet/core/llms"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func (o *Orchestrator) processQueuedEvent(queuedEvent eventQueueItem) {
	event := queuedEvent.event
	kind := attribute.String("event.kind", string(event.Kind()))
	source := attribute.String("event.source", event.Kind().Source())

	ctx, span := tracer.Start(o.baseContext, "handle event", trace.WithAttributes(kind, source))
	defer span.End()

	queuedTime := time.Since(queuedEvent.queuedAt).Seconds()
	span.SetAttributes(
		attribute.Float64("event.queued_time", queuedTime),
		attribute.Int("event.queued_events", o.runtime.queuedEventCount()),
		attribute.String("mode.before", o.state.mode().String()),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("event handler panicked: %v", recovered)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("event handler panicked", "kind", event.Kind(), "panic", recovered)

			o.cancelActive(ctx)
			o.setState(idleState{})
			o.setStatus(o.phrases.Idle)
		}
		span.SetAttributes(attribute.String("mode.after", o.state.mode().String()))
		o.publish()
	}()

	if o.handle(ctx, event) {
		processedEvents.Add(ctx, 1, metric.WithAttributes(kind))
	} else {
		span.AddEvent("dropped")
		droppedEvents.Add(ctx, 1, metric.WithAttributes(kind))
	}
}

// handle applies one event and reports whether it had any effect.
func (o *Orchestrator) handle(ctx context.Context, event events.Event) bool {
	switch e := event.(type) {
	case events.SendPrompt:
		return o.sendText(ctx, e.Text)
	case events.StartCapture:
		return o.startCapture(ctx)
	case events.StopCapture:
		return o.stopCapture(ctx)
	case events.StopPlayback:
		return o.stopPlayback(ctx)
	case events.Reset:
		o.reset(ctx)
		return true
	case events.SetHandsFree:
		o.setHandsFree(ctx, e.Enabled)
		return true
	case events.SetPlayback:
		o.setPlayback(ctx, e.Enabled)
		return true
	case events.Replay:
		return o.replay(ctx)
	case events.CleanDecoration:
		return o.cleanDecoration(e.ID)

	case events.CaptureStarted:
		if !o.isListening(e.Epoch) {
			return false
		}
		o.captureFailures = 0
		return true
	case events.CapturePartial:
		if !o.isListening(e.Epoch) {
			return false
		}
		o.setTranscript(e.Text)
		return true
	case events.CaptureEnded:
		return o.captureEnded(ctx, e)
	case events.CaptureFailed:
		return o.captureFailed(ctx, e)
	case events.InferenceSettled:
		return o.inferenceSettled(ctx, e)
	case events.PlaybackCompleted:
		return o.playbackCompleted(e)

	case events.DecorationTimerFired:
		return o.spawnDecoration()
	case events.RemarkTimerFired:
		return o.requestRemark(ctx)
	case events.RemarkSettled:
		return o.remarkSettled(e)
	case events.StatusRevert:
		return o.revertStatus(e)
	case events.AutoResumeFired:
		if e.Generation != o.resumeGeneration {
			return false
		}
		o.resumeTimer = nil
		return o.handsFree && o.startCapture(ctx)
	case events.StartupCaptureFired:
		return o.handsFree && o.startCapture(ctx)
	case syncEvent:
		close(e.done)
		return true
	}

	logger.Warn("unhandled event", "kind", event.Kind())
	return false
}

func (o *Orchestrator) sendText(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if _, busy := o.state.(thinkingState); busy {
		return false
	}

	o.cancelAutoResume()
	o.cancelActive(ctx)
	o.setTranscript("")
	o.appendTurn(history.UserTurn(text))

	prompt := BuildPrompt(o.history.Turns(), o.contextWindow)
	requestCtx, cancel := context.WithCancel(ctx)
	epoch := o.nextEpoch()
	o.setState(thinkingState{epoch: epoch, cancel: cancel})
	o.setStatus(o.phrases.Thinking)

	client := llms.WithDeadline(o.inferenceClient, o.inferenceTimeout)
	go func() {
		reply, err := client.Ask(requestCtx, prompt)
		o.post(events.NewInferenceSettled(epoch, reply, err))
	}()
	return true
}

func (o *Orchestrator) inferenceSettled(ctx context.Context, e events.InferenceSettled) bool {
	thinking, ok := o.state.(thinkingState)
	if !ok || thinking.epoch != e.Epoch {
		return false
	}
	thinking.cancel()

	reply := strings.TrimSpace(e.Reply)
	if e.Err != nil {
		recordedErr := fmt.Errorf("inference failed: %w", e.Err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		reply = "Error: " + e.Err.Error()
	} else if reply == "" {
		reply = llms.EmptyReply
	}

	o.appendTurn(history.AssistantTurn(reply))
	o.setState(idleState{})

	if e.Err == nil && o.playback && o.speechOutput.available() {
		o.speak(ctx, reply)
		return true
	}
	o.settleIdle()
	return true
}

func (o *Orchestrator) startCapture(ctx context.Context) bool {
	if _, idle := o.state.(idleState); !idle {
		return false
	}
	if !o.speechInput.available() {
		if !o.unavailableShown {
			o.unavailableShown = true
			o.appendTurn(history.SystemTurn(o.phrases.Unavailable))
		}
		return false
	}

	o.cancelAutoResume()
	epoch := o.nextEpoch()
	o.setState(listeningState{epoch: epoch})
	o.setTranscript("")
	o.setStatus(o.phrases.Listening)
	o.speechInput.start(ctx, epoch)
	return true
}

// stopCapture also drops a pending auto-resume so that capture the user
// just stopped does not restart on its own.
func (o *Orchestrator) stopCapture(ctx context.Context) bool {
	o.cancelAutoResume()
	if _, listening := o.state.(listeningState); !listening {
		return false
	}

	o.speechInput.stop(ctx)
	o.setState(idleState{})
	o.setTranscript("")
	o.setStatus(o.phrases.Idle)
	return true
}

func (o *Orchestrator) captureEnded(ctx context.Context, e events.CaptureEnded) bool {
	if !o.isListening(e.Epoch) {
		return false
	}

	if text := strings.TrimSpace(e.Transcript); text != "" {
		return o.sendText(ctx, text)
	}
	o.setState(idleState{})
	o.setTranscript("")
	o.settleIdle()
	return true
}

func (o *Orchestrator) captureFailed(ctx context.Context, e events.CaptureFailed) bool {
	if !o.isListening(e.Epoch) {
		return false
	}

	o.setState(idleState{})
	o.setTranscript("")
	if e.Transient {
		o.settleIdle()
		return true
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(fmt.Errorf("capture failed: %s", e.Reason))
	span.SetStatus(codes.Error, "capture failed")
	logger.Warn("capture failed", "reason", e.Reason)
	o.showStatus(o.phrases.CaptureError+e.Reason, captureErrorStatusDuration, true)

	switch speechtotext.ErrorKind(e.Reason) {
	case speechtotext.ErrorNotAllowed, speechtotext.ErrorUnavailable:
		// Retrying cannot help until the user intervenes.
		return true
	}
	o.captureFailures++
	o.scheduleAutoResume(o.captureRetryDelay())
	return true
}

// captureRetryDelay doubles the auto-resume delay for every consecutive
// failed capture.
func (o *Orchestrator) captureRetryDelay() time.Duration {
	delay := o.autoResumeDelay
	for range o.captureFailures {
		if delay >= maxCaptureRetryDelay/2 {
			return maxCaptureRetryDelay
		}
		delay *= 2
	}
	return delay
}

func (o *Orchestrator) speak(ctx context.Context, text string) {
	epoch := o.nextEpoch()
	o.lastSpoken = text
	o.setState(speakingState{epoch: epoch})
	o.setStatus(o.phrases.Speaking)
	o.speechOutput.speak(ctx, epoch, text)
}

func (o *Orchestrator) playbackCompleted(e events.PlaybackCompleted) bool {
	speaking, ok := o.state.(speakingState)
	if !ok || speaking.epoch != e.Epoch {
		return false
	}

	o.setState(idleState{})
	o.settleIdle()
	return true
}

func (o *Orchestrator) stopPlayback(ctx context.Context) bool {
	if _, speaking := o.state.(speakingState); !speaking {
		return false
	}

	o.speechOutput.cancel(ctx)
	o.setState(idleState{})
	o.settleIdle()
	return true
}

func (o *Orchestrator) replay(ctx context.Context) bool {
	switch o.state.(type) {
	case speakingState:
		return o.stopPlayback(ctx)
	case idleState:
		if o.lastSpoken == "" || !o.speechOutput.available() {
			return false
		}
		o.cancelAutoResume()
		o.speak(ctx, o.lastSpoken)
		return true
	default:
		return false
	}
}

func (o *Orchestrator) reset(ctx context.Context) {
	o.cancelAutoResume()
	o.cancelActive(ctx)
	o.cancelRemark()
	o.setState(idleState{})
	o.history.Clear()
	o.lastSpoken = ""
	o.captureFailures = 0
	o.setTranscript("")
	o.setStatus(o.phrases.Idle)

	if o.orchestrateOptions.onHistoryReset != nil {
		o.publish()
		o.orchestrateOptions.onHistoryReset()
	}
}

func (o *Orchestrator) setHandsFree(ctx context.Context, enabled bool) {
	if o.handsFree != enabled {
		o.handsFree = enabled
		o.emitSettings()
	}

	if enabled {
		o.startCapture(ctx)
		return
	}
	o.stopCapture(ctx)
}

func (o *Orchestrator) setPlayback(ctx context.Context, enabled bool) {
	if o.playback != enabled {
		o.playback = enabled
		o.emitSettings()
	}

	if !enabled {
		o.stopPlayback(ctx)
	}
}

// cancelActive stops the operation owned by the current mode without
// changing the mode. Any event the operation still emits is stale.
func (o *Orchestrator) cancelActive(ctx context.Context) {
	switch state := o.state.(type) {
	case listeningState:
		o.speechInput.stop(ctx)
	case thinkingState:
		state.cancel()
	case speakingState:
		o.speechOutput.cancel(ctx)
	}
}

// settleIdle shows the idle status and, in hands-free mode, schedules
// capture to start again.
func (o *Orchestrator) settleIdle() {
	o.setStatus(o.phrases.Idle)
	o.scheduleAutoResume(o.autoResumeDelay)
}

func (o *Orchestrator) scheduleAutoResume(delay time.Duration) {
	if !o.handsFree {
		return
	}

	o.cancelAutoResume()
	generation := o.resumeGeneration
	o.resumeTimer = o.clock.AfterFunc(delay, func() {
		o.post(events.NewAutoResumeFired(generation))
	})
}

func (o *Orchestrator) cancelAutoResume() {
	o.resumeGeneration++
	if o.resumeTimer != nil {
		o.resumeTimer.Stop()
		o.resumeTimer = nil
	}
}

func (o *Orchestrator) isListening(epoch events.Epoch) bool {
	listening, ok := o.state.(listeningState)
	return ok && listening.epoch == epoch
}

func (o *Orchestrator) nextEpoch() events.Epoch {
	o.lastEpoch++
	return o.lastEpoch
}

func (o *Orchestrator) setState(state modeState) {
	previous := o.state.mode()
	o.state = state
	if state.mode() != previous && o.orchestrateOptions.onModeChange != nil {
		o.publish()
		o.orchestrateOptions.onModeChange(state.mode())
	}
}

func (o *Orchestrator) setStatus(status string) {
	o.statusGeneration++
	if o.statusTimer != nil {
		o.statusTimer.Stop()
		o.statusTimer = nil
	}
	if status == o.status {
		return
	}
	o.status = status
	if o.orchestrateOptions.onStatus != nil {
		o.publish()
		o.orchestrateOptions.onStatus(status)
	}
}

// showStatus sets a temporary status that reverts to the status of the
// mode after d. With idleOnly the revert only happens while idle.
func (o *Orchestrator) showStatus(status string, d time.Duration, idleOnly bool) {
	o.setStatus(status)
	generation := o.statusGeneration
	o.statusTimer = o.clock.AfterFunc(d, func() {
		o.post(events.NewStatusRevert(generation, idleOnly))
	})
}

func (o *Orchestrator) revertStatus(e events.StatusRevert) bool {
	if e.Generation != o.statusGeneration {
		return false
	}
	if _, idle := o.state.(idleState); e.IdleOnly && !idle {
		return false
	}

	o.setStatus(o.modeStatus())
	return true
}

func (o *Orchestrator) modeStatus() string {
	switch o.state.(type) {
	case listeningState:
		return o.phrases.Listening
	case thinkingState:
		return o.phrases.Thinking
	case speakingState:
		return o.phrases.Speaking
	default:
		return o.phrases.Idle
	}
}

func (o *Orchestrator) setTranscript(transcript string) {
	if transcript == o.transcript {
		return
	}
	o.transcript = transcript
	if o.orchestrateOptions.onTranscript != nil {
		o.publish()
		o.orchestrateOptions.onTranscript(transcript)
	}
}

func (o *Orchestrator) appendTurn(turn history.Turn) {
	o.history.Append(turn)
	if o.orchestrateOptions.onTurn != nil {
		o.publish()
		o.orchestrateOptions.onTurn(turn)
	}
}

func (o *Orchestrator) emitSettings() {
	if o.orchestrateOptions.onSettingsChange != nil {
		o.publish()
		o.orchestrateOptions.onSettingsChange(o.handsFree, o.playback)
	}
}
