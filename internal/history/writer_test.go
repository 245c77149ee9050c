package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryWriter_LogEntry(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		setupStore  func(t *testing.T, stateDir string)
		maxEntries  int
		wantEntries int
	}{
		"log entry to empty history": {
			setupStore:  func(t *testing.T, stateDir string) {},
			maxEntries:  DefaultMaxEntries,
			wantEntries: 1,
		},
		"log entry to existing history": {
			setupStore: func(t *testing.T, stateDir string) {
				history := &HistoryFile{
					Entries: []HistoryEntry{
						{Timestamp: time.Now(), Command: "release", Tag: "v1.0.0", Duration: "3s"},
					},
				}
				require.NoError(t, SaveHistory(stateDir, history))
			},
			maxEntries:  DefaultMaxEntries,
			wantEntries: 2,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stateDir := t.TempDir()
			tc.setupStore(t, stateDir)

			writer := NewWriter(stateDir, tc.maxEntries)
			require.NoError(t, writer.LogEntry(HistoryEntry{
				Timestamp: time.Now(),
				RunID:     "1a2b3c4d",
				Command:   "release",
				Tag:       "v1.1.0",
				Action:    "create",
				Duration:  "2s",
			}))

			history, err := LoadHistory(stateDir)
			require.NoError(t, err)
			require.Len(t, history.Entries, tc.wantEntries)
			last := history.Entries[len(history.Entries)-1]
			assert.Equal(t, "v1.1.0", last.Tag)
			assert.Equal(t, "create", last.Action)
			assert.Equal(t, "1a2b3c4d", last.RunID)
		})
	}
}

func TestHistoryWriter_Pruning(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		existingEntries int
		maxEntries      int
		wantEntries     int
		wantOldest      string
	}{
		"no pruning needed": {
			existingEntries: 5,
			maxEntries:      10,
			wantEntries:     6,
			wantOldest:      "v0.0.0",
		},
		"prune oldest when max exceeded": {
			existingEntries: 10,
			maxEntries:      10,
			wantEntries:     10,
			wantOldest:      "v0.0.1",
		},
		"zero keeps everything": {
			existingEntries: 12,
			maxEntries:      0,
			wantEntries:     13,
			wantOldest:      "v0.0.0",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stateDir := t.TempDir()
			existing := &HistoryFile{}
			for i := 0; i < tc.existingEntries; i++ {
				existing.Entries = append(existing.Entries, HistoryEntry{
					Timestamp: time.Now(),
					Command:   "release",
					Tag:       fmt.Sprintf("v0.0.%d", i),
					Duration:  "1s",
				})
			}
			require.NoError(t, SaveHistory(stateDir, existing))

			writer := NewWriter(stateDir, tc.maxEntries)
			require.NoError(t, writer.LogEntry(HistoryEntry{Timestamp: time.Now(), Command: "release", Tag: "v1.0.0", Duration: "1s"}))

			history, err := LoadHistory(stateDir)
			require.NoError(t, err)
			assert.Len(t, history.Entries, tc.wantEntries)
			assert.Equal(t, tc.wantOldest, history.Entries[0].Tag)
			assert.Equal(t, "v1.0.0", history.Entries[len(history.Entries)-1].Tag)
		})
	}
}

func TestHistoryWriter_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	writer := NewWriter(stateDir, 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				assert.NoError(t, writer.LogEntry(HistoryEntry{Timestamp: time.Now(), Command: "release", Duration: "1s"}))
			}
		}()
	}
	wg.Wait()

	history, err := LoadHistory(stateDir)
	require.NoError(t, err)
	assert.Len(t, history.Entries, 50)
}

func TestHistoryWriter_UnwritableDir(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	writer := NewWriter(filepath.Join(blocker, "sub"), DefaultMaxEntries)
	assert.Error(t, writer.LogEntry(HistoryEntry{Timestamp: time.Now(), Command: "release"}))
}

func TestLoadHistory(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		h, err := LoadHistory(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, h.Entries)
	})

	t.Run("corrupt file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("entries: [\n"), 0o644))
		_, err := LoadHistory(dir)
		assert.Error(t, err)
	})
}
