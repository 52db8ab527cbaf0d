package models

import (
	"fmt"
	"math"
	"time"

	"github.com/desertthunder/spotility/internal/shared"
)

// Bounds of the rating scale. Higher is better.
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Track represents a music track
type Track struct {
	ID       string
	Name     string
	Artist   string
	Album    string
	Duration int // Duration in seconds
}

// SavedTrack represents a track saved in the user's library.
type SavedTrack struct {
	Track
	AddedAt time.Time
}

// Playlist represents a playlist owned by or visible to the user.
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// Rating is the persisted score for a single track.
//
// The track ID is the key under which a Rating is stored.
type Rating struct {
	Value     float64   `json:"rating"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ValidateRating reports whether v lies within [MinRating, MaxRating].
func ValidateRating(v float64) error {
	if math.IsNaN(v) || v < MinRating || v > MaxRating {
		return fmt.Errorf("%w: %v is outside %v-%v", shared.ErrInvalidRating, v, MinRating, MaxRating)
	}
	return nil
}
