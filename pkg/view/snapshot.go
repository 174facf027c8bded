package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CurrentViewFile is the snapshot file name under the store's views dir.
const CurrentViewFile = "current_view.json"

// Entry maps a view position to the task shown there.
type Entry struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// Snapshot records the page of the most recent view.
type Snapshot struct {
	Generated time.Time `json:"generated"`
	Filter    Filter    `json:"filter"`
	Sort      SortKey   `json:"sort"`
	Page      int       `json:"page"`
	PerPage   int       `json:"per_page"`
	Total     int       `json:"total_tasks"`
	Entries   []Entry   `json:"tasks"`
}

func newSnapshot(res *Result, q Query, now time.Time) *Snapshot {
	snap := &Snapshot{
		Generated: now.UTC(),
		Filter:    q.Filter,
		Sort:      q.Sort,
		Page:      res.Page,
		PerPage:   res.PerPage,
		Total:     res.Total,
		Entries:   make([]Entry, 0, len(res.Tasks)),
	}
	for i, t := range res.Tasks {
		snap.Entries = append(snap.Entries, Entry{
			Position: res.Position(i),
			ID:       t.ID,
			Filename: t.Filename(),
			Title:    t.Title,
		})
	}
	return snap
}

// Lookup returns the entry shown at position.
func (s *Snapshot) Lookup(position int) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Entries {
		if e.Position == position {
			return e, true
		}
	}
	return Entry{}, false
}

// Range returns the first and last position shown, or 0, 0 for an empty page.
func (s *Snapshot) Range() (int, int) {
	if s == nil || len(s.Entries) == 0 {
		return 0, 0
	}
	return s.Entries[0].Position, s.Entries[len(s.Entries)-1].Position
}

// SnapshotStore persists the current snapshot between invocations.
type SnapshotStore interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// MemorySnapshotStore keeps the snapshot in memory only.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

func (m *MemorySnapshotStore) Load() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *MemorySnapshotStore) Save(s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
	return nil
}

// FileSnapshotStore keeps the snapshot as JSON on disk so separate CLI
// invocations share one session.
type FileSnapshotStore struct {
	Path string
}

// NewFileSnapshotStore stores the snapshot as current_view.json in dir.
func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{Path: filepath.Join(dir, CurrentViewFile)}
}

// Load returns nil, nil when no view has been built yet.
func (f *FileSnapshotStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return &snap, nil
}

// Save replaces the snapshot file atomically.
func (f *FileSnapshotStore) Save(s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding view snapshot: %w", err)
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".view-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", f.Path, err)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
