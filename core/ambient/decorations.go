// Package ambient holds the companion's idle behaviour: decorations that
// appear while nobody is talking and the timers that produce them and the
// occasional spoken-to-nobody remark.
package ambient

import (
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
)

const DefaultCapacity = 3

// Decoration is a marker placed somewhere in the lower part of the
// companion's scene. X and Y are percentages of the scene width measured
// from the left and of the scene height measured from the bottom.
type Decoration struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Decorations is a bounded population of decorations. It is not safe for
// concurrent use; the orchestrator owns it.
type Decorations struct {
	capacity int
	rand     *rand.Rand
	items    []Decoration
}

type DecorationsOption func(*Decorations)

func WithCapacity(capacity int) DecorationsOption {
	return func(d *Decorations) {
		if capacity > 0 {
			d.capacity = capacity
		}
	}
}

// WithRand makes decoration placement reproducible.
func WithRand(r *rand.Rand) DecorationsOption {
	return func(d *Decorations) {
		if r != nil {
			d.rand = r
		}
	}
}

func NewDecorations(opts ...DecorationsOption) *Decorations {
	d := &Decorations{
		capacity: DefaultCapacity,
		rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Spawn places a new decoration at a random position. It reports false and
// leaves the population untouched when it is already at capacity.
func (d *Decorations) Spawn() (Decoration, bool) {
	if len(d.items) >= d.capacity {
		return Decoration{}, false
	}

	decoration := Decoration{
		ID: uuid.NewString(),
		X:  15 + d.rand.Float64()*70,
		Y:  8 + d.rand.Float64()*15,
	}
	d.items = append(d.items, decoration)
	return decoration, true
}

// Remove deletes the decoration with the given ID and reports whether it
// existed.
func (d *Decorations) Remove(id string) bool {
	index := slices.IndexFunc(d.items, func(item Decoration) bool { return item.ID == id })
	if index < 0 {
		return false
	}
	d.items = slices.Delete(d.items, index, index+1)
	return true
}

func (d *Decorations) Clear() {
	d.items = nil
}

func (d *Decorations) Len() int      { return len(d.items) }
func (d *Decorations) Capacity() int { return d.capacity }

func (d *Decorations) List() []Decoration {
	return slices.Clone(d.items)
}
