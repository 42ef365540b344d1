package events

import (
	"strings"
	"time"
)

// Kind names an event as "<source>.<what happened>".
type Kind string

// Source is the part of the kind before the first dot.
func (k Kind) Source() string {
	source, _, _ := strings.Cut(string(k), ".")
	return source
}

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Epoch identifies a single capture session, utterance or inference request.
// Zero is never issued.
type Epoch uint64

// Base is embedded by every event. It records the kind and the moment the
// event was created, before it waited in the queue.
type Base struct {
	kind    Kind
	created time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, created: time.Now()}
}

func (b Base) Kind() Kind           { return b.kind }
func (b Base) Timestamp() time.Time { return b.created }
