package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/koscakluka/ema-pet/core/history"
)

func testMedium(t *testing.T) *Medium {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history_test.db")
	m, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestReadMissing(t *testing.T) {
	m := testMedium(t)

	data, err := m.Read("missing")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if data != nil {
		t.Errorf("Read() = %q, want nil for missing key", data)
	}

	updated, err := m.UpdatedAt("missing")
	if err != nil {
		t.Fatalf("UpdatedAt() error: %v", err)
	}
	if !updated.IsZero() {
		t.Errorf("UpdatedAt() = %v, want zero", updated)
	}
}

func TestWriteUpsert(t *testing.T) {
	m := testMedium(t)

	if err := m.Write("chat", []byte("v1")); err != nil {
		t.Fatalf("Write(v1) error: %v", err)
	}
	if err := m.Write("chat", []byte("v2")); err != nil {
		t.Fatalf("Write(v2) error: %v", err)
	}

	data, err := m.Read("chat")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("Read() = %q, want %q", data, "v2")
	}

	updated, err := m.UpdatedAt("chat")
	if err != nil {
		t.Fatalf("UpdatedAt() error: %v", err)
	}
	if updated.IsZero() {
		t.Errorf("UpdatedAt() is zero after write")
	}
}

func TestStoreRoundTripThroughSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	m, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	store := history.NewStore(m)
	store.Append(history.UserTurn("hello"))
	store.Append(history.AssistantTurn("hi"))
	store.Clear()
	store.Append(history.UserTurn("again"))
	m.Close()

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	reloaded := history.NewStore(reopened)
	reloaded.Load()
	turns := reloaded.Turns()
	if len(turns) != 1 || turns[0].Text != "again" {
		t.Fatalf("unexpected turns after reload: %+v", turns)
	}
}
