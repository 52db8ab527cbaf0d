package ratings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
)

// FileStore keeps ratings in memory and mirrors them to a JSON file.
//
// The file is a single object keyed by track ID. Keys are written in sorted order,
// so identical contents always produce identical bytes.
type FileStore struct {
	path    string
	entries map[string]models.Rating
	now     func() time.Time
}

// Load reads the store at path. A missing or empty file yields an empty store.
func Load(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: map[string]models.Rating{}, now: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptStore, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptStore, path, err)
	}
	if s.entries == nil {
		s.entries = map[string]models.Rating{}
	}

	for id, r := range s.entries {
		if id == "" {
			return nil, fmt.Errorf("%w: %s: empty track id", shared.ErrCorruptStore, path)
		}
		if err := Validate(r.Value); err != nil {
			return nil, fmt.Errorf("%w: %s: track %s: %v", shared.ErrCorruptStore, path, id, err)
		}
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(trackID string) (models.Rating, bool) {
	r, ok := s.entries[trackID]
	return r, ok
}

// Set validates value, updates the entry and rewrites the file.
// The in-memory entry is restored when the write fails.
func (s *FileStore) Set(trackID string, value float64) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id is empty", shared.ErrInvalidArgument)
	}
	if err := Validate(value); err != nil {
		return err
	}

	prev, existed := s.entries[trackID]
	now := s.now().UTC()

	next := prev
	if !existed {
		next.AddedAt = now
	}
	next.Value = value
	next.UpdatedAt = now
	s.entries[trackID] = next

	if err := s.flush(); err != nil {
		if existed {
			s.entries[trackID] = prev
		} else {
			delete(s.entries, trackID)
		}
		return err
	}
	return nil
}

// Merge adds unrated tracks with value. The file is only rewritten when at least one track was added.
func (s *FileStore) Merge(tracks []models.SavedTrack, value float64) (int, error) {
	if err := Validate(value); err != nil {
		return 0, err
	}

	var added []string
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, ok := s.entries[t.ID]; ok {
			continue
		}

		addedAt := t.AddedAt
		if addedAt.IsZero() {
			addedAt = s.now()
		}
		s.entries[t.ID] = models.Rating{Value: value, AddedAt: addedAt.UTC()}
		added = append(added, t.ID)
	}

	if len(added) == 0 {
		return 0, nil
	}

	if err := s.flush(); err != nil {
		for _, id := range added {
			delete(s.entries, id)
		}
		return 0, err
	}
	return len(added), nil
}

// All yields entries in track ID order from a snapshot taken when iteration starts.
func (s *FileStore) All() iter.Seq2[string, models.Rating] {
	return func(yield func(string, models.Rating) bool) {
		snapshot := maps.Clone(s.entries)
		for _, id := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(id, snapshot[id]) {
				return
			}
		}
	}
}

func (s *FileStore) Len() int { return len(s.entries) }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ratings: %w", err)
	}
	data = append(data, '\n')

	if err := shared.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ratings: %w", err)
	}
	return nil
}
