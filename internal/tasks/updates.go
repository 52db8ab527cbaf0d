package tasks

import (
	"fmt"

	"github.com/desertthunder/spotility/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	ResolveUser
	WritePlaylist
	MergeRatings
	FetchPlaying
	SaveRating
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case ResolveUser:
		return "resolve_user"
	case WritePlaylist:
		return "write_playlist"
	case MergeRatings:
		return "merge_ratings"
	case FetchPlaying:
		return "fetch_playing"
	case SaveRating:
		return "save_rating"
	default:
		return ""
	}
}

func fetchingLikedUpdate(step, total, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d newest liked songs...", limit),
	}
}

func fetchedLikedUpdate(step, total int, tracks []models.SavedTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d liked songs", len(tracks)),
		Data:    tracks,
	}
}

func resolveUserUpdate(step, total int, owner string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveUser,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Using playlists owned by %s", owner),
	}
}

func writingPlaylistUpdate(step, total int, name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WritePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Writing %d tracks to %q...", count, name),
	}
}

func wrotePlaylistUpdate(step, total int, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WritePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Playlist updated: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func mergeRatingsUpdate(step, total, added, existing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeRatings,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Added %d new tracks (%d already rated)", added, existing),
	}
}

func fetchPlayingUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaying,
		Step:    step,
		Total:   total,
		Message: "Reading currently playing track...",
	}
}

func saveRatingUpdate(step, total int, track models.Track, value float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveRating,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saving rating %v for %s - %s", value, track.Artist, track.Name),
	}
}
