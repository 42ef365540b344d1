// Package file persists history as one JSON file per key in a directory.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type Medium struct {
	dir string
}

// New returns a medium storing values under dir, creating it if needed.
func New(dir string) (*Medium, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Medium{dir: dir}, nil
}

func (m *Medium) path(key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(m.dir, name+".json")
}

func (m *Medium) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(m.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the value atomically by writing a temporary file and
// renaming it into place.
func (m *Medium) Write(key string, data []byte) error {
	target := m.path(key)
	tmp, err := os.CreateTemp(m.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
