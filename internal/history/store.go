// Package history keeps a journal of release runs in <output_dir>/history.yml.
package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the journal file inside the output directory.
const FileName = "history.yml"

// HistoryEntry is one recorded run.
type HistoryEntry struct {
	Timestamp time.Time `yaml:"timestamp"`
	RunID     string    `yaml:"run_id,omitempty"`
	Command   string    `yaml:"command"`
	Tag       string    `yaml:"tag,omitempty"`
	// Action is the reconciler action, e.g. create or overwrite.
	Action   string `yaml:"action,omitempty"`
	DryRun   bool   `yaml:"dry_run,omitempty"`
	ExitCode int    `yaml:"exit_code"`
	Duration string `yaml:"duration"`
	Error    string `yaml:"error,omitempty"`
}

// HistoryFile is the on-disk journal.
type HistoryFile struct {
	Entries []HistoryEntry `yaml:"entries"`
}

// LoadHistory reads the journal in dir. A missing file is an empty journal.
func LoadHistory(dir string) (*HistoryFile, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return &HistoryFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var h HistoryFile
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return &h, nil
}

// SaveHistory writes the journal atomically through a temp file.
func SaveHistory(dir string, h *HistoryFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, FileName))
}
