package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendThenReloadPreservesOrder(t *testing.T) {
	medium := NewMemoryMedium()
	store := NewStore(medium)

	want := []Turn{}
	for i := range 5 {
		turn := UserTurn(fmt.Sprintf("question %d", i))
		if i%2 == 1 {
			turn = AssistantTurn(fmt.Sprintf("answer %d", i))
		}
		store.Append(turn)
		want = append(want, turn)
	}

	reloaded := NewStore(medium)
	reloaded.Load()

	if diff := cmp.Diff(want, reloaded.Turns()); diff != "" {
		t.Fatalf("reloaded turns mismatch (-want +got):\n%s", diff)
	}
}

func TestClearThenReloadIsEmpty(t *testing.T) {
	medium := NewMemoryMedium()
	store := NewStore(medium)
	store.Append(UserTurn("hello"))
	store.Append(AssistantTurn("hi"))

	store.Clear()

	reloaded := NewStore(medium)
	reloaded.Load()
	if got := reloaded.Len(); got != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", got)
	}
	raw, _ := medium.Read(DefaultKey)
	if string(raw) != "[]" {
		t.Fatalf("expected persisted empty array, got %q", raw)
	}
}

func TestLoadFailsSoft(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "absent", data: ""},
		{name: "not json", data: "{{{"},
		{name: "wrong shape", data: `{"role":"user"}`},
		{name: "unknown role", data: `[{"role":"robot","text":"beep"}]`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			medium := NewMemoryMedium()
			if testCase.data != "" {
				_ = medium.Write(DefaultKey, []byte(testCase.data))
			}
			store := NewStore(medium)
			store.Append(UserTurn("stale"))

			store.Load()

			if got := store.Len(); got != 0 {
				t.Fatalf("expected empty history, got %d turns", got)
			}
		})
	}
}

func TestLoadAcceptsLegacyAssistantRole(t *testing.T) {
	medium := NewMemoryMedium()
	_ = medium.Write(DefaultKey, []byte(`[{"role":"user","text":"hey"},{"role":"ai","text":"hello"}]`))

	store := NewStore(medium)
	store.Load()

	want := []Turn{UserTurn("hey"), AssistantTurn("hello")}
	if diff := cmp.Diff(want, store.Turns()); diff != "" {
		t.Fatalf("turns mismatch (-want +got):\n%s", diff)
	}
}

type failingMedium struct{}

func (failingMedium) Read(string) ([]byte, error) { return nil, errors.New("read failed") }
func (failingMedium) Write(string, []byte) error { return errors.New("write failed") }

func TestMediumFailuresDoNotAffectLog(t *testing.T) {
	store := NewStore(failingMedium{})
	store.Load()
	store.Append(UserTurn("hello"))

	if got := store.Len(); got != 1 {
		t.Fatalf("expected 1 turn, got %d", got)
	}
}

func TestRecentReturnsTail(t *testing.T) {
	store := NewStore(nil)
	for i := range 4 {
		store.Append(UserTurn(fmt.Sprint(i)))
	}

	testCases := []struct {
		n    int
		want []Turn
	}{
		{n: 0, want: []Turn{}},
		{n: 2, want: []Turn{UserTurn("2"), UserTurn("3")}},
		{n: 10, want: []Turn{UserTurn("0"), UserTurn("1"), UserTurn("2"), UserTurn("3")}},
	}
	for _, testCase := range testCases {
		if diff := cmp.Diff(testCase.want, store.Recent(testCase.n)); diff != "" {
			t.Errorf("Recent(%d) mismatch (-want +got):\n%s", testCase.n, diff)
		}
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	store := NewStore(nil)
	store.Append(UserTurn("original"))

	turns := store.Turns()
	turns[0].Text = "mutated"

	if got := store.Turns()[0].Text; got != "original" {
		t.Fatalf("expected store to be unaffected by caller mutation, got %q", got)
	}
}

func TestWithKeyPersistsUnderKey(t *testing.T) {
	medium := NewMemoryMedium()
	store := NewStore(medium, WithKey("other"))
	store.Append(SystemTurn("note"))

	if raw, _ := medium.Read(DefaultKey); raw != nil {
		t.Fatalf("expected nothing under default key, got %q", raw)
	}
	if raw, _ := medium.Read("other"); len(raw) == 0 {
		t.Fatalf("expected data under custom key")
	}
}

type recordingMedium struct {
	*MemoryMedium
	writes []int
}

func (m *recordingMedium) Write(key string, data []byte) error {
	m.writes = append(m.writes, len(data))
	return m.MemoryMedium.Write(key, data)
}

func TestAppendWritesWholeLog(t *testing.T) {
	medium := &recordingMedium{MemoryMedium: NewMemoryMedium()}
	store := NewStore(medium)

	for i := range 3 {
		store.Append(UserTurn(fmt.Sprint(i)))
	}

	if len(medium.writes) != 3 {
		t.Fatalf("expected one write per append, got %d", len(medium.writes))
	}
	for i := 1; i < len(medium.writes); i++ {
		if medium.writes[i] <= medium.writes[i-1] {
			t.Fatalf("expected every write to carry the whole log, got sizes %v", medium.writes)
		}
	}
}
