package ambient

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-pet/core/clock"
)

const (
	DefaultDecorationMinInterval = 30 * time.Second
	DefaultDecorationMaxInterval = 90 * time.Second
	DefaultFirstDecorationAfter  = 15 * time.Second
	DefaultRemarkMinInterval     = 120 * time.Second
	DefaultRemarkMaxInterval     = 240 * time.Second
)

// Scheduler runs the decoration and remark timers. Each timer reschedules
// itself unconditionally after firing; whether a fire has any effect is
// decided by whoever receives it, at fire time.
type Scheduler struct {
	clock clock.Clock

	decoration           *loop
	remark               *loop
	firstDecorationAfter time.Duration

	mu      sync.Mutex
	first   clock.Timer
	started bool
	stopped bool
}

type SchedulerOption func(*Scheduler)

func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDecorationInterval sets the bounds of the uniformly random delay
// between decoration timer fires.
func WithDecorationInterval(min, max time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.decoration.min, s.decoration.max = min, max }
}

func WithRemarkInterval(min, max time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.remark.min, s.remark.max = min, max }
}

// WithFirstDecorationAfter adds a one-off decoration fire shortly after
// start. Zero disables it.
func WithFirstDecorationAfter(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.firstDecorationAfter = d }
}

func NewScheduler(onDecoration, onRemark func(), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		clock: clock.Real{},
		decoration: &loop{
			min:  DefaultDecorationMinInterval,
			max:  DefaultDecorationMaxInterval,
			fire: onDecoration,
		},
		remark: &loop{
			min:  DefaultRemarkMinInterval,
			max:  DefaultRemarkMaxInterval,
			fire: onRemark,
		},
		firstDecorationAfter: DefaultFirstDecorationAfter,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.decoration.clock = s.clock
	s.remark.clock = s.clock
	return s
}

// Start arms both timers. Calling it again, or after Stop, does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	s.decoration.next()
	s.remark.next()
	if s.firstDecorationAfter > 0 && s.decoration.fire != nil {
		s.first = s.clock.AfterFunc(s.firstDecorationAfter, s.decoration.fire)
	}
}

// Stop disarms both timers. A fire already in progress may still complete
// but is not rescheduled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.first != nil {
		s.first.Stop()
	}
	s.mu.Unlock()

	s.decoration.stop()
	s.remark.stop()
}

type loop struct {
	clock    clock.Clock
	min, max time.Duration
	fire     func()

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func (l *loop) next() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || l.fire == nil {
		return
	}
	l.timer = l.clock.AfterFunc(clock.Jitter(l.min, l.max), l.tick)
}

func (l *loop) tick() {
	l.fire()
	l.next()
}

func (l *loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	if l.timer != nil {
		l.timer.Stop()
	}
}
