package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-pet/core/clock"
	"github.com/koscakluka/ema-pet/core/history"
	"github.com/koscakluka/ema-pet/core/speechtotext"
	"github.com/koscakluka/ema-pet/core/texttospeech"
)

// gatedInference answers each prompt with the next reply sent on replies,
// or blocks until the request is cancelled.
type gatedInference struct {
	mu      sync.Mutex
	prompts []string
	replies chan inferenceReply
}

type inferenceReply struct {
	text string
	err  error
}

func newGatedInference() *gatedInference {
	return &gatedInference{replies: make(chan inferenceReply, 8)}
}

func (g *gatedInference) Ask(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	select {
	case reply := <-g.replies:
		return reply.text, reply.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *gatedInference) reply(text string) { g.replies <- inferenceReply{text: text} }

// tryReply answers a request if there is room to queue the reply.
func (g *gatedInference) tryReply(text string) {
	select {
	case g.replies <- inferenceReply{text: text}:
	default:
	}
}

func (g *gatedInference) fail(err error) { g.replies <- inferenceReply{err: err} }

func (g *gatedInference) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *gatedInference) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[len(g.prompts)-1]
}

// stubSpeechToText keeps the callbacks of the last capture session so tests
// can finish it.
type stubSpeechToText struct {
	mu       sync.Mutex
	attempts int
	starts   int
	stops    int
	startErr error
	session  speechtotext.CaptureOptions
	active   bool
}

func (s *stubSpeechToText) StartCapture(_ context.Context, opts ...speechtotext.CaptureOption) error {
	s.mu.Lock()
	s.attempts++
	if s.startErr != nil {
		s.mu.Unlock()
		return s.startErr
	}
	s.starts++
	s.active = true
	s.session = speechtotext.NewCaptureOptions(opts...)
	onStart := s.session.OnStart
	s.mu.Unlock()

	onStart()
	return nil
}

func (s *stubSpeechToText) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.active = false
	return nil
}

// current returns the callbacks of the last capture session.
func (s *stubSpeechToText) current() speechtotext.CaptureOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *stubSpeechToText) partial(text string) { s.current().OnPartial(text) }
func (s *stubSpeechToText) end(text string) {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	s.current().OnEnd(text)
}
func (s *stubSpeechToText) fail(kind speechtotext.ErrorKind) {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
	s.current().OnError(kind)
}

func (s *stubSpeechToText) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *stubSpeechToText) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *stubSpeechToText) setStartErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

func (s *stubSpeechToText) counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

// stubTextToSpeech records utterances. Cancel completes the current one,
// like a real adapter would.
type stubTextToSpeech struct {
	mu       sync.Mutex
	spoken   []string
	cancels  int
	onDone   func()
	speakErr error
}

func (s *stubTextToSpeech) Speak(_ context.Context, text string, onDone func(), _ ...texttospeech.SpeakOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speakErr != nil {
		return s.speakErr
	}
	s.spoken = append(s.spoken, text)
	s.onDone = onDone
	return nil
}

func (s *stubTextToSpeech) Cancel() error {
	s.mu.Lock()
	s.cancels++
	onDone := s.onDone
	s.onDone = nil
	s.mu.Unlock()

	if onDone != nil {
		onDone()
	}
	return nil
}

// finish completes the current utterance as if it played to the end.
func (s *stubTextToSpeech) finish() {
	s.mu.Lock()
	onDone := s.onDone
	s.onDone = nil
	s.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

func (s *stubTextToSpeech) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

func (s *stubTextToSpeech) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onDone != nil
}

func (s *stubTextToSpeech) utterances() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type testHarness struct {
	o     *Orchestrator
	clock *clock.Fake
	store *history.Store
	cbs   *recordedCallbacks
}

type recordedCallbacks struct {
	mu       sync.Mutex
	modes    []Mode
	statuses []string
	resets   int
	onMode   func(Mode)
}

func (r *recordedCallbacks) options() []OrchestrateOption {
	return []OrchestrateOption{
		WithModeChangeCallback(func(mode Mode) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.modes = append(r.modes, mode)
			if r.onMode != nil {
				r.onMode(mode)
			}
		}),
		WithStatusCallback(func(status string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, status)
		}),
		WithHistoryResetCallback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.resets++
		}),
	}
}

func (r *recordedCallbacks) observeModes(observe func(Mode)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onMode = observe
}

func (r *recordedCallbacks) resetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func (r *recordedCallbacks) modeChanges() []Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mode(nil), r.modes...)
}

// newTestHarness starts an orchestrator on a fake clock with the ambient
// timers and startup capture disabled unless opts say otherwise.
func newTestHarness(t *testing.T, opts ...OrchestratorOption) *testHarness {
	t.Helper()

	fake := clock.NewFake()
	store := history.NewStore(history.NewMemoryMedium())
	o := NewOrchestrator(append([]OrchestratorOption{
		WithClock(fake),
		WithHistory(store),
		WithoutAmbient(),
		WithStartupCaptureDelay(-1),
		WithPlayback(false),
	}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		o.Close()
	})

	cbs := &recordedCallbacks{}
	o.Orchestrate(ctx, cbs.options()...)
	return &testHarness{o: o, clock: fake, store: store, cbs: cbs}
}

// sync waits for every queued event to be handled.
func (h *testHarness) sync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.o.Sync(ctx); err != nil {
		t.Fatalf("failed to sync orchestrator: %v", err)
	}
}

func (h *testHarness) waitForMode(t *testing.T, mode Mode) {
	t.Helper()
	waitForCondition(t, 2*time.Second, "mode "+mode.String(), func() bool {
		return h.o.Mode() == mode
	})
}

// advance moves the fake clock and waits for the events posted by the
// fired timers to be handled.
func (h *testHarness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	h.sync(t)
	h.clock.Advance(d)
	h.sync(t)
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

var errTransport = errors.New("connection refused")
