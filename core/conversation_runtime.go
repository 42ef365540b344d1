package orchestration

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-pet/core/events"
)

const conversationEventQueueCapacity = 64

type eventQueueItem struct {
	event    events.Event
	queuedAt time.Time
}

// conversationRuntime is the single consumer of the orchestrator's event
// queue. Every event is handled to completion before the next one is taken.
type conversationRuntime struct {
	queue   chan eventQueueItem
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newConversationRuntime() *conversationRuntime {
	return &conversationRuntime{
		queue:   make(chan eventQueueItem, conversationEventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start launches the consumer goroutine. It reports false if the runtime
// was already started or closed.
func (runtime *conversationRuntime) start(handle func(eventQueueItem)) (started bool) {
	if runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			for {
				select {
				case <-runtime.closeCh:
					return
				case queuedEvent := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					handle(queuedEvent)
				}
			}
		}()
	})

	return started
}

func (runtime *conversationRuntime) end() {
	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *conversationRuntime) waitUntilEnded() {
	if runtime.started.Load() {
		<-runtime.done
	}
}

// enqueue blocks until the event is queued or the runtime is closed.
func (runtime *conversationRuntime) enqueue(event events.Event) bool {
	if runtime.isClosed() {
		return false
	}

	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- eventQueueItem{event: event, queuedAt: time.Now()}:
		return true
	}
}

// tryEnqueue queues the event only if that does not block.
func (runtime *conversationRuntime) tryEnqueue(event events.Event) (queued bool, closed bool) {
	if runtime.isClosed() {
		return false, true
	}

	select {
	case runtime.queue <- eventQueueItem{event: event, queuedAt: time.Now()}:
		return true, false
	default:
		return false, false
	}
}

func (runtime *conversationRuntime) isClosed() bool {
	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *conversationRuntime) queuedEventCount() int {
	return len(runtime.queue)
}
