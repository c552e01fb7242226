// Package statefile persists the sync continuation token between
// invocations. The file's content is the opaque token; its modification
// time doubles as the last-successful-sync clock, so the file must only
// ever be rewritten when a sync actually completes.
package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FilePerms restricts state files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the state directory.
const DirPerms = 0o700

// State is the on-disk sync state for one space.
type State struct {
	SpaceID   string `json:"space_id"`
	SyncToken string `json:"sync_token"`
}

// Load reads the saved sync state. Returns the state and the file's
// modification time, which is the time of the last successful sync.
// Returns (nil, zero, nil) if no state has been saved yet.
func Load(path string) (*State, time.Time, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, nil
	}

	if err != nil {
		return nil, time.Time{}, fmt.Errorf("statefile: reading %s: %w", path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, time.Time{}, fmt.Errorf("statefile: decoding %s: %w", path, err)
	}

	if st.SyncToken == "" {
		return nil, time.Time{}, fmt.Errorf("statefile: %s missing sync_token field", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("statefile: stat %s: %w", path, err)
	}

	return &st, info.ModTime(), nil
}

// Save writes the sync state atomically (write-to-temp + rename) with
// 0600 permissions, bumping the file's mtime to now.
func Save(path string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("statefile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("statefile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("statefile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("statefile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("statefile: writing: %w", err)
	}

	// Flush to stable storage before rename so a crash between close and
	// rename cannot leave an empty or partial state file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("statefile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("statefile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("statefile: renaming: %w", err)
	}

	success = true

	return nil
}
