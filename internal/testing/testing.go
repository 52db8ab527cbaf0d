// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
)

// PlaylistWrite records one call to [MockLibrary.ReplacePlaylist].
type PlaylistWrite struct {
	Owner    string
	Name     string
	TrackIDs []string
}

// MockLibrary is a test double for services.Library.
//
// Liked is returned newest first and truncated to the requested limit. A nil Playing means nothing is playing.
type MockLibrary struct {
	mu sync.Mutex

	UserID  string
	Liked   []models.SavedTrack
	Playing *models.Track

	LikedErr   error
	PlayingErr error
	WriteErr   error
	UserErr    error

	Writes     []PlaylistWrite
	LikedCalls int
}

func (m *MockLibrary) LikedTracks(ctx context.Context, limit int) ([]models.SavedTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LikedCalls++
	if m.LikedErr != nil {
		return nil, m.LikedErr
	}
	if limit > len(m.Liked) {
		limit = len(m.Liked)
	}
	out := make([]models.SavedTrack, limit)
	copy(out, m.Liked[:limit])
	return out, nil
}

func (m *MockLibrary) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	if m.PlayingErr != nil {
		return nil, m.PlayingErr
	}
	if m.Playing == nil {
		return nil, shared.ErrNothingPlaying
	}
	track := *m.Playing
	return &track, nil
}

func (m *MockLibrary) ReplacePlaylist(ctx context.Context, owner, name string, trackIDs []string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	if owner == "" {
		owner = m.UserID
	}
	m.Writes = append(m.Writes, PlaylistWrite{Owner: owner, Name: name, TrackIDs: append([]string(nil), trackIDs...)})
	return &models.Playlist{ID: "playlist-" + name, Name: name, TrackCount: len(trackIDs)}, nil
}

func (m *MockLibrary) CurrentUserID(ctx context.Context) (string, error) {
	if m.UserErr != nil {
		return "", m.UserErr
	}
	return m.UserID, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockClipboard records the last text written to it.
type MockClipboard struct {
	Text string
	Err  error
}

func (c *MockClipboard) WriteAll(text string) error {
	if c.Err != nil {
		return c.Err
	}
	c.Text = text
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}
