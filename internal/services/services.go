package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Library is the remote music library used by the CLI workflows.
type Library interface {
	// LikedTracks returns up to limit saved tracks, most recently liked first.
	LikedTracks(ctx context.Context, limit int) ([]models.SavedTrack, error)

	// CurrentlyPlaying returns the track in the user's player or [shared.ErrNothingPlaying].
	CurrentlyPlaying(ctx context.Context) (*models.Track, error)

	// ReplacePlaylist makes the playlist called name, owned by owner, contain exactly trackIDs in order.
	// The playlist is created when owner has none with that name.
	ReplacePlaylist(ctx context.Context, owner, name string, trackIDs []string) (*models.Playlist, error)

	// CurrentUserID returns the ID of the authenticated user.
	CurrentUserID(ctx context.Context) (string, error)
}

// classify maps a remote error onto the shared error taxonomy, keeping the original in the chain
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, shared.ErrAuthFailed) || errors.Is(err, shared.ErrAPIRequest) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, op, err)
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %w", shared.ErrAuthFailed, op, err)
		}
	}

	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
}
