package orchestration

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/clock"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/koscakluka/ema-pet/core/llms"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	"github.com/koscakluka/ema-pet/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

// SpeechToText captures one utterance per StartCapture call. StartCapture
// is called on the orchestrator's event loop and must return without
// waiting for the network; connection failures are reported through the
// error callback. A session reports through the callbacks in opts and must
// not report anything once StopCapture has returned.
type SpeechToText interface {
	StartCapture(ctx context.Context, opts ...speechtotext.CaptureOption) error
	StopCapture() error
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) { o.speechInput.client = client }
}

// WithCaptureOptions are passed to every capture session, for example the
// language or the no-speech timeout.
func WithCaptureOptions(opts ...speechtotext.CaptureOption) OrchestratorOption {
	return func(o *Orchestrator) { o.speechInput.options = append(o.speechInput.options, opts...) }
}

// TextToSpeech speaks one utterance at a time. Like StartCapture, Speak and
// Cancel must not wait for the network. onDone is called once the utterance
// has finished, failed or been cancelled.
type TextToSpeech interface {
	Speak(ctx context.Context, text string, onDone func(), opts ...texttospeech.SpeakOption) error
	Cancel() error
}

func WithTextToSpeechClient(client TextToSpeech) OrchestratorOption {
	return func(o *Orchestrator) { o.speechOutput.client = client }
}

// WithInferenceClient sets the client answering conversation prompts.
func WithInferenceClient(client llms.InferenceClient) OrchestratorOption {
	return func(o *Orchestrator) { o.inferenceClient = client }
}

// WithRemarkClient sets the client asked for idle remarks. Without one the
// companion stays quiet while idle.
func WithRemarkClient(client llms.InferenceClient) OrchestratorOption {
	return func(o *Orchestrator) { o.remarkClient = client }
}

// WithInferenceTimeout bounds each inference call, llms.DefaultTimeout by
// default.
func WithInferenceTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.inferenceTimeout = timeout }
}

func WithHistory(store *history.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		if store != nil {
			o.history = store
		}
	}
}

func WithClock(c clock.Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRand makes the choice of status phrases and decoration placement
// reproducible.
func WithRand(r *rand.Rand) OrchestratorOption {
	return func(o *Orchestrator) {
		if r != nil {
			o.rand = r
		}
	}
}

// WithHandsFree sets whether capture restarts on its own whenever the
// companion settles into idle.
func WithHandsFree(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.handsFree = enabled }
}

// WithPlayback sets whether replies are spoken.
func WithPlayback(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.playback = enabled }
}

func WithContextWindow(turns int) OrchestratorOption {
	return func(o *Orchestrator) {
		if turns > 0 {
			o.contextWindow = turns
		}
	}
}

func WithAutoResumeDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.autoResumeDelay = delay }
}

// WithStartupCaptureDelay sets how long after Orchestrate hands-free
// listening starts. A negative delay disables it.
func WithStartupCaptureDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.startupCaptureDelay = delay }
}

func WithStatusPhrases(phrases StatusPhrases) OrchestratorOption {
	return func(o *Orchestrator) { o.phrases = phrases.withDefaults() }
}

func WithDecorationCapacity(capacity int) OrchestratorOption {
	return func(o *Orchestrator) { o.decorationCapacity = capacity }
}

func WithRemarkTopics(topics ...string) OrchestratorOption {
	return func(o *Orchestrator) { o.topics = ambient.NewTopics(topics...) }
}

// WithAmbientSchedule configures the decoration and remark timers. The
// orchestrator's clock is always used.
func WithAmbientSchedule(opts ...ambient.SchedulerOption) OrchestratorOption {
	return func(o *Orchestrator) { o.schedulerOptions = append(o.schedulerOptions, opts...) }
}

// WithoutAmbient disables the decoration and remark timers.
func WithoutAmbient() OrchestratorOption {
	return func(o *Orchestrator) { o.ambientDisabled = true }
}

type OrchestrateOptions struct {
	onModeChange     func(mode Mode)
	onTurn           func(turn history.Turn)
	onStatus         func(status string)
	onTranscript     func(transcript string)
	onDecorations    func(decorations []ambient.Decoration)
	onHistoryReset   func()
	onSettingsChange func(handsFree, playback bool)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithModeChangeCallback registers a callback for every mode change.
//
// All callbacks run on the orchestrator's runtime goroutine and must not
// block.
func WithModeChangeCallback(callback func(mode Mode)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onModeChange = callback }
}

// WithTurnCallback registers a callback for every turn appended to the
// history.
func WithTurnCallback(callback func(turn history.Turn)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTurn = callback }
}

func WithStatusCallback(callback func(status string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onStatus = callback }
}

// WithTranscriptCallback registers a callback for the interim transcript of
// the capture in progress. An empty transcript clears it.
func WithTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onTranscript = callback }
}

func WithDecorationsCallback(callback func(decorations []ambient.Decoration)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onDecorations = callback }
}

func WithHistoryResetCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onHistoryReset = callback }
}

func WithSettingsChangeCallback(callback func(handsFree, playback bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) { o.onSettingsChange = callback }
}
