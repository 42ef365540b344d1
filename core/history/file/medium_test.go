package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/koscakluka/ema-pet/core/history"
)

func TestReadMissingKey(t *testing.T) {
	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	data, err := m.Read("missing")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if data != nil {
		t.Fatalf("Read() = %q, want nil", data)
	}
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := m.Write("chat", []byte(`[]`)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := m.Write("chat", []byte(`[{"role":"user","text":"hi"}]`)); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := m.Read("chat")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(data) != `[{"role":"user","text":"hi"}]` {
		t.Fatalf("Read() = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the value file to remain, got %d entries", len(entries))
	}
}

func TestKeyIsSanitized(t *testing.T) {
	dir := t.TempDir()
	m, _ := New(dir)

	if err := m.Write("../escape", []byte("x")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".._escape.json")); err != nil {
		t.Fatalf("expected value inside dir: %v", err)
	}
}

func TestStoreRoundTripThroughFile(t *testing.T) {
	dir := t.TempDir()
	m, _ := New(dir)

	store := history.NewStore(m)
	store.Append(history.UserTurn("hello"))
	store.Append(history.AssistantTurn("hi"))

	reopened, _ := New(dir)
	reloaded := history.NewStore(reopened)
	reloaded.Load()

	turns := reloaded.Turns()
	if len(turns) != 2 || turns[0].Text != "hello" || turns[1].Role != history.RoleAssistant {
		t.Fatalf("unexpected turns after reload: %+v", turns)
	}
}
