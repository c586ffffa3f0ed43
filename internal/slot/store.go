// Package slot tracks which blue/green slot currently receives live traffic.
package slot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yukyudata/deployops/internal/model"
)

// Store persists the single active-slot value. Exactly one value exists at a
// time; SetActive commits atomically so a crashed writer can never leave a
// torn state behind.
type Store interface {
	Active(ctx context.Context) (model.Color, error)
	SetActive(ctx context.Context, c model.Color) error
}

// FileStore keeps the active slot as a single-line file, the same contract
// the legacy deploy tooling used. Writes go to a temp file in the same
// directory followed by a rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Active reads the current slot. A missing state file means no deployment has
// ever switched traffic, which defaults to blue.
func (s *FileStore) Active(ctx context.Context) (model.Color, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return model.SlotBlue, nil
	}
	if err != nil {
		return "", fmt.Errorf("read slot state %s: %w", s.path, err)
	}

	c, err := model.ParseColor(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("slot state %s: %w", s.path, err)
	}
	return c, nil
}

// SetActive atomically replaces the slot state file.
func (s *FileStore) SetActive(ctx context.Context, c model.Color) error {
	if !c.Valid() {
		return fmt.Errorf("invalid slot color %q", c)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create slot state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".active_slot-*")
	if err != nil {
		return fmt.Errorf("create slot state temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(string(c) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write slot state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync slot state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close slot state temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit slot state: %w", err)
	}
	return nil
}
