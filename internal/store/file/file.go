package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/Keyring-Network/keyring-gavryn/command-center/internal/store"
)

// FileStore keeps the memory collection as an indented JSON array. Writes go
// through a temp file and rename, so readers in other processes always see
// either the previous or the new collection.
type FileStore struct {
	path string
	now  func() time.Time
}

var writeFile = atomicwriter.WriteFile

// New creates the parent directory and seeds an empty array when the file is
// missing.
func New(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("memory file path is required")
	}
	s := &FileStore{path: path, now: time.Now}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(context.Background(), nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns an empty collection when the file is missing. Undecodable
// content is moved aside and reported as store.ErrCorrupt wrapped with the
// backup location.
func (s *FileStore) Load(ctx context.Context) ([]store.Memory, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []store.Memory{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []store.Memory{}, nil
	}
	var memories []store.Memory
	if err := json.Unmarshal(raw, &memories); err != nil {
		backup, backupErr := s.quarantine()
		if backupErr != nil {
			return []store.Memory{}, fmt.Errorf("%w: %v (backup failed: %v)", store.ErrCorrupt, err, backupErr)
		}
		return []store.Memory{}, fmt.Errorf("%w: %v (moved to %s)", store.ErrCorrupt, err, backup)
	}
	if memories == nil {
		memories = []store.Memory{}
	}
	return memories, nil
}

func (s *FileStore) Save(ctx context.Context, memories []store.Memory) error {
	if memories == nil {
		memories = []store.Memory{}
	}
	data, err := json.MarshalIndent(memories, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := writeFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write memories: %w", err)
	}
	return nil
}

func (s *FileStore) quarantine() (string, error) {
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().Format("20060102150405"))
	if err := os.Rename(s.path, backup); err != nil {
		return "", err
	}
	return backup, nil
}
