package orchestration

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/koscakluka/ema-pet/core/ambient"
	"github.com/koscakluka/ema-pet/core/clock"
	"github.com/koscakluka/ema-pet/core/events"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/koscakluka/ema-pet/core/llms"
)

// Orchestrator is the companion's conversation state machine. Every public
// method only queues an event; a single runtime goroutine applies events
// one at a time, so the fields below the actor marker are never touched
// concurrently.
type Orchestrator struct {
	closeOnce sync.Once
	runtime   *conversationRuntime

	inferenceClient  llms.InferenceClient
	remarkClient     llms.InferenceClient
	inferenceTimeout time.Duration
	speechInput      speechInput
	speechOutput     speechOutput
	history          *history.Store
	clock            clock.Clock
	rand             *rand.Rand

	contextWindow       int
	autoResumeDelay     time.Duration
	startupCaptureDelay time.Duration
	phrases             StatusPhrases

	decorationCapacity int
	topics             *ambient.Topics
	schedulerOptions   []ambient.SchedulerOption
	ambientDisabled    bool
	scheduler          *ambient.Scheduler
	startupTimer       clock.Timer

	orchestrateOptions OrchestrateOptions
	baseContext        context.Context

	// actor state
	state            modeState
	handsFree        bool
	playback         bool
	status           string
	statusGeneration uint64
	transcript       string
	lastSpoken       string
	captureFailures  int
	lastEpoch        events.Epoch
	decorations      *ambient.Decorations
	remarkCancel     context.CancelFunc
	remarkEpoch      events.Epoch
	unavailableShown bool
	resumeGeneration uint64
	resumeTimer      clock.Timer
	statusTimer      clock.Timer

	snapshotMu sync.RWMutex
	snapshot   State
}

var ErrClosed = errors.New("orchestrator closed")

const kindSync events.Kind = "orchestrator.sync"

type syncEvent struct {
	events.Base
	done chan struct{}
}

// State is a point-in-time view of the orchestrator.
type State struct {
	Mode        Mode
	HandsFree   bool
	Playback    bool
	Status      string
	Transcript  string
	LastSpoken  string
	Decorations []ambient.Decoration
	Turns       []history.Turn
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runtime:             newConversationRuntime(),
		inferenceTimeout:    llms.DefaultTimeout,
		history:             history.NewStore(nil),
		clock:               clock.Real{},
		rand:                rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		contextWindow:       DefaultContextWindow,
		autoResumeDelay:     DefaultAutoResumeDelay,
		startupCaptureDelay: DefaultStartupCaptureDelay,
		phrases:             DefaultStatusPhrases(),
		decorationCapacity:  ambient.DefaultCapacity,
		topics:              ambient.NewTopics(),
		baseContext:         context.Background(),
		state:               idleState{},
		playback:            true,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.speechInput.post = o.post
	o.speechOutput.post = o.post
	o.decorations = ambient.NewDecorations(
		ambient.WithCapacity(o.decorationCapacity),
		ambient.WithRand(o.rand),
	)
	o.status = o.phrases.Idle
	o.publish()

	return o
}

// Orchestrate starts the runtime. ctx is the base context of every adapter
// and inference call; cancelling it closes the orchestrator.
//
// Orchestrate must be called at most once.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.runtime.isClosed() {
		logger.Warn("orchestrator already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}
	o.baseContext = ctx

	if !o.ambientDisabled {
		o.scheduler = ambient.NewScheduler(
			func() { o.post(events.NewDecorationTimerFired()) },
			func() { o.post(events.NewRemarkTimerFired()) },
			append(o.schedulerOptions, ambient.WithClock(o.clock))...,
		)
	}

	if o.startupCaptureDelay >= 0 {
		o.startupTimer = o.clock.AfterFunc(o.startupCaptureDelay, func() {
			o.post(events.NewStartupCaptureFired())
		})
	}
	if o.scheduler != nil {
		o.scheduler.Start()
	}

	if started := o.runtime.start(o.processQueuedEvent); !started {
		if o.scheduler != nil {
			o.scheduler.Stop()
		}
		if o.startupTimer != nil {
			o.startupTimer.Stop()
		}
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			o.Close()
		case <-o.runtime.done:
		}
	}()
}

// Close stops the runtime and cancels whatever is in flight. It blocks until
// the runtime goroutine has exited.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.runtime.end()
		o.runtime.waitUntilEnded()

		if o.scheduler != nil {
			o.scheduler.Stop()
		}
		if o.startupTimer != nil {
			o.startupTimer.Stop()
		}
		o.cancelAutoResume()
		if o.statusTimer != nil {
			o.statusTimer.Stop()
		}
		o.cancelRemark()
		o.cancelActive(o.baseContext)
	})
}

func (o *Orchestrator) SendPrompt(text string)    { o.enqueue(events.NewSendPrompt(text)) }
func (o *Orchestrator) StartCapture()             { o.enqueue(events.NewStartCapture()) }
func (o *Orchestrator) StopCapture()              { o.enqueue(events.NewStopCapture()) }
func (o *Orchestrator) StopPlayback()             { o.enqueue(events.NewStopPlayback()) }
func (o *Orchestrator) Reset()                    { o.enqueue(events.NewReset()) }
func (o *Orchestrator) SetHandsFree(enabled bool) { o.enqueue(events.NewSetHandsFree(enabled)) }
func (o *Orchestrator) SetPlayback(enabled bool)  { o.enqueue(events.NewSetPlayback(enabled)) }
func (o *Orchestrator) Replay()                   { o.enqueue(events.NewReplay()) }
func (o *Orchestrator) CleanDecoration(id string) { o.enqueue(events.NewCleanDecoration(id)) }

// Sync blocks until every event queued before the call has been handled.
func (o *Orchestrator) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !o.runtime.enqueue(syncEvent{Base: events.NewBase(kindSync), done: done}) {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-o.runtime.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state as of the last handled event. Inside an
// observer callback it already includes the change being reported.
func (o *Orchestrator) Snapshot() State {
	o.snapshotMu.RLock()
	snapshot := o.snapshot
	o.snapshotMu.RUnlock()

	snapshot.Decorations = append([]ambient.Decoration(nil), snapshot.Decorations...)
	snapshot.Turns = o.history.Turns()
	return snapshot
}

func (o *Orchestrator) Mode() Mode {
	o.snapshotMu.RLock()
	defer o.snapshotMu.RUnlock()
	return o.snapshot.Mode
}

func (o *Orchestrator) enqueue(event events.Event) {
	if !o.runtime.enqueue(event) {
		logger.Debug("orchestrator closed, dropping event", "kind", event.Kind())
	}
}

// post queues an event produced by an adapter or timer. It never blocks, so
// it is safe to call from the runtime goroutine itself; a full queue is
// drained by a helper goroutine instead.
func (o *Orchestrator) post(event events.Event) {
	queued, closed := o.runtime.tryEnqueue(event)
	if queued || closed {
		return
	}
	go o.runtime.enqueue(event)
}

// publish copies the actor state into the snapshot read by Snapshot.
func (o *Orchestrator) publish() {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()

	o.snapshot = State{
		Mode:        o.state.mode(),
		HandsFree:   o.handsFree,
		Playback:    o.playback,
		Status:      o.status,
		Transcript:  o.transcript,
		LastSpoken:  o.lastSpoken,
		Decorations: o.decorations.List(),
	}
}
