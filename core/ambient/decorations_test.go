package ambient

import (
	"math/rand/v2"
	"testing"
)

func TestSpawnIsCappedAtCapacity(t *testing.T) {
	decorations := NewDecorations()

	spawned := 0
	for range 10 {
		if _, ok := decorations.Spawn(); ok {
			spawned++
		}
	}

	if spawned != DefaultCapacity {
		t.Fatalf("expected %d spawns, got %d", DefaultCapacity, spawned)
	}
	if decorations.Len() != DefaultCapacity {
		t.Fatalf("expected population %d, got %d", DefaultCapacity, decorations.Len())
	}
}

func TestRemovePermitsExactlyOneMoreSpawn(t *testing.T) {
	decorations := NewDecorations()
	for range DefaultCapacity {
		decorations.Spawn()
	}

	removed := decorations.List()[1]
	if !decorations.Remove(removed.ID) {
		t.Fatalf("expected decoration %q to be removed", removed.ID)
	}
	if decorations.Remove(removed.ID) {
		t.Fatalf("expected second removal of %q to report false", removed.ID)
	}

	if _, ok := decorations.Spawn(); !ok {
		t.Fatalf("expected a spawn after removal")
	}
	if _, ok := decorations.Spawn(); ok {
		t.Fatalf("expected population to be capped again")
	}
}

func TestSpawnPlacesWithinScene(t *testing.T) {
	decorations := NewDecorations(WithCapacity(200), WithRand(rand.New(rand.NewPCG(1, 2))))

	seen := map[string]bool{}
	for range 200 {
		decoration, ok := decorations.Spawn()
		if !ok {
			t.Fatalf("expected spawn below capacity")
		}
		if decoration.X < 15 || decoration.X > 85 {
			t.Fatalf("x out of range: %v", decoration.X)
		}
		if decoration.Y < 8 || decoration.Y > 23 {
			t.Fatalf("y out of range: %v", decoration.Y)
		}
		if seen[decoration.ID] {
			t.Fatalf("duplicate decoration id %q", decoration.ID)
		}
		seen[decoration.ID] = true
	}
}

func TestListReturnsCopy(t *testing.T) {
	decorations := NewDecorations()
	decorations.Spawn()

	list := decorations.List()
	list[0].ID = "changed"

	if decorations.List()[0].ID == "changed" {
		t.Fatalf("expected List to return a copy")
	}

	decorations.Clear()
	if decorations.Len() != 0 {
		t.Fatalf("expected empty population after Clear")
	}
}
