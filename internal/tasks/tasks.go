// package tasks implements the spotility workflows on top of a remote library and the local rating store.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/services"
	"github.com/desertthunder/spotility/internal/shared"
)

// DefaultSyncLimit is how many liked songs update-db reads when no limit is given.
const DefaultSyncLimit = 50

// TopOptions configures [LibraryEngine.Top].
type TopOptions struct {
	Amount int    // Number of newest liked tracks
	Name   string // Playlist name, defaults to "Top <Amount>"
	Owner  string // Playlist owner, defaults to the current user
}

// TopResult contains the outcome of [LibraryEngine.Top].
type TopResult struct {
	Playlist *models.Playlist
	Tracks   []models.SavedTrack
	Owner    string
}

// SyncResult contains the outcome of [LibraryEngine.SyncRatings].
type SyncResult struct {
	Fetched int // Liked tracks read from the library
	Added   int // Tracks newly inserted into the store
	Total   int // Store size afterwards
}

// RateResult describes a rating change for the currently playing track.
type RateResult struct {
	Track    models.Track
	Previous *models.Rating // nil when the track was not rated before
	Value    float64
}

// Confirmer decides whether a pending rating change should be written.
type Confirmer func(ctx context.Context, change *RateResult) (bool, error)

// LibraryEngine implements the top, update-db and rate workflows.
type LibraryEngine struct {
	library services.Library
	store   ratings.Store
}

// NewLibraryEngine creates an engine. store may be nil for workflows that do not touch ratings.
func NewLibraryEngine(library services.Library, store ratings.Store) *LibraryEngine {
	return &LibraryEngine{library: library, store: store}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// DefaultPlaylistName is the playlist name used by top when none is given.
func DefaultPlaylistName(amount int) string {
	return fmt.Sprintf("Top %d", amount)
}

// Top writes the newest liked tracks, newest first, into the owner's playlist.
func (e *LibraryEngine) Top(ctx context.Context, progress chan<- ProgressUpdate, opts TopOptions) (*TopResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrMissingCredentials)
	}
	if opts.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", shared.ErrInvalidArgument, opts.Amount)
	}
	if opts.Name == "" {
		opts.Name = DefaultPlaylistName(opts.Amount)
	}

	const total = 3

	e.sendProgress(progress, fetchingLikedUpdate(1, total, opts.Amount))
	tracks, err := e.library.LikedTracks(ctx, opts.Amount)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, fetchedLikedUpdate(1, total, tracks))

	owner := opts.Owner
	if owner == "" {
		if owner, err = e.library.CurrentUserID(ctx); err != nil {
			return nil, err
		}
	}
	e.sendProgress(progress, resolveUserUpdate(2, total, owner))

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}

	e.sendProgress(progress, writingPlaylistUpdate(3, total, opts.Name, len(ids)))
	playlist, err := e.library.ReplacePlaylist(ctx, owner, opts.Name, ids)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, wrotePlaylistUpdate(3, total, playlist))

	return &TopResult{Playlist: playlist, Tracks: tracks, Owner: owner}, nil
}

// SyncRatings inserts the newest liked tracks that have no rating yet with defaultRating.
//
// Existing ratings are never changed, so repeating the sync against the same library is a no-op.
func (e *LibraryEngine) SyncRatings(ctx context.Context, progress chan<- ProgressUpdate, limit int, defaultRating float64) (*SyncResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrMissingCredentials)
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: rating store not initialized", shared.ErrCorruptStore)
	}
	if limit <= 0 {
		limit = DefaultSyncLimit
	}
	if err := ratings.Validate(defaultRating); err != nil {
		return nil, err
	}

	const total = 2

	e.sendProgress(progress, fetchingLikedUpdate(1, total, limit))
	tracks, err := e.library.LikedTracks(ctx, limit)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, fetchedLikedUpdate(1, total, tracks))

	added, err := e.store.Merge(tracks, defaultRating)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, mergeRatingsUpdate(2, total, added, len(tracks)-added))

	return &SyncResult{Fetched: len(tracks), Added: added, Total: e.store.Len()}, nil
}

// Rate sets the rating of the currently playing track.
//
// When confirm is non-nil it is asked before writing; a negative answer returns the pending change and
// [shared.ErrCancelled]. Nothing playing is reported as [shared.ErrNothingPlaying].
func (e *LibraryEngine) Rate(ctx context.Context, progress chan<- ProgressUpdate, value float64, confirm Confirmer) (*RateResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrMissingCredentials)
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: rating store not initialized", shared.ErrCorruptStore)
	}
	if err := ratings.Validate(value); err != nil {
		return nil, err
	}

	const total = 2

	e.sendProgress(progress, fetchPlayingUpdate(1, total))
	track, err := e.library.CurrentlyPlaying(ctx)
	if err != nil {
		return nil, err
	}

	change := &RateResult{Track: *track, Value: value}
	if prev, ok := e.store.Get(track.ID); ok {
		change.Previous = &prev
	}

	if confirm != nil {
		ok, err := confirm(ctx, change)
		if err != nil {
			return change, err
		}
		if !ok {
			return change, shared.ErrCancelled
		}
	}

	e.sendProgress(progress, saveRatingUpdate(2, total, change.Track, value))
	if err := e.store.Set(track.ID, value); err != nil {
		return change, err
	}
	return change, nil
}
