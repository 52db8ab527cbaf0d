package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultRedirectURI matches the default callback server address.
	DefaultRedirectURI = "http://127.0.0.1:8888/callback"

	// MaxTracksPerRequest is the largest batch the playlist endpoints accept.
	MaxTracksPerRequest = 100

	maxPageSize = 50
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// SpotifyService implements [Library] over the Spotify Web API.
type SpotifyService struct {
	config    *oauth2.Config
	client    *spotify.Client
	source    *refreshableTokenSource
	limiter   *rate.Limiter
	baseURL   string
	public    bool
	onRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a service from client credentials (client_id, client_secret and optional redirect_uri).
// Call [SpotifyService.Authenticate] before making API calls.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	return &SpotifyService{config: config, limiter: rate.NewLimiter(rate.Inf, 1)}, nil
}

// GetOAuthConfig returns the OAuth2 configuration used for authorization.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config { return s.config }

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, classify("exchange auth code", err)
	}
	return token, nil
}

// SetTokenRefreshCallback registers fn to receive every token obtained by refreshing.
// Must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) { s.onRefresh = fn }

// SetRateLimit paces playlist writes to rps requests per second. Non-positive values disable pacing.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// SetPublic controls the visibility of playlists created by [SpotifyService.ReplacePlaylist].
func (s *SpotifyService) SetPublic(public bool) { s.public = public }

// SetBaseURL points the API client at another host. Must be called before [SpotifyService.Authenticate].
func (s *SpotifyService) SetBaseURL(url string) { s.baseURL = url }

// Authenticate installs token for API calls. The token is refreshed when it expires.
//
// A token without an expiry but with a refresh token is treated as expired, so it is refreshed on first use.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: no token available, run `spotility auth`", shared.ErrAuthFailed)
	}

	tok := *token
	if tok.Expiry.IsZero() && tok.RefreshToken != "" {
		tok.Expiry = time.Now().Add(-time.Minute)
	}

	s.source = &refreshableTokenSource{
		base:      s.config.TokenSource(ctx, &tok),
		last:      tok.AccessToken,
		onRefresh: s.onRefresh,
	}

	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	s.client = spotify.New(oauth2.NewClient(ctx, s.source), opts...)
	return nil
}

// Token returns the current token, refreshing it when needed.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: not authenticated", shared.ErrAuthFailed)
	}
	tok, err := s.source.Token()
	if err != nil {
		return nil, classify("refresh token", err)
	}
	return tok, nil
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: not authenticated", shared.ErrAuthFailed)
	}
	return s.client, nil
}

// CurrentUserID returns the authenticated user's ID.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	api, err := s.api()
	if err != nil {
		return "", err
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return "", classify("fetch current user", err)
	}
	return user.ID, nil
}

// LikedTracks pages through the saved tracks until limit tracks are collected or the library ends.
func (s *SpotifyService) LikedTracks(ctx context.Context, limit int) ([]models.SavedTrack, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", shared.ErrInvalidArgument, limit)
	}

	api, err := s.api()
	if err != nil {
		return nil, err
	}

	tracks := make([]models.SavedTrack, 0, limit)
	for len(tracks) < limit {
		size := min(maxPageSize, limit-len(tracks))

		page, err := api.CurrentUsersTracks(ctx, spotify.Limit(size), spotify.Offset(len(tracks)))
		if err != nil {
			return nil, classify("fetch liked songs", err)
		}

		for _, saved := range page.Tracks {
			tracks = append(tracks, convertSavedTrack(saved))
		}

		if len(page.Tracks) < size || page.Next == "" {
			break
		}
	}

	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

// CurrentlyPlaying returns the track loaded in the user's player.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*models.Track, error) {
	api, err := s.api()
	if err != nil {
		return nil, err
	}

	current, err := api.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, classify("fetch currently playing", err)
	}
	if current == nil || current.Item == nil || current.Item.ID == "" {
		return nil, shared.ErrNothingPlaying
	}

	track := convertTrack(*current.Item)
	return &track, nil
}

// ReplacePlaylist finds or creates the playlist and overwrites its tracks.
//
// The first batch replaces the existing contents and later batches are appended, so an empty trackIDs clears it.
func (s *SpotifyService) ReplacePlaylist(ctx context.Context, owner, name string, trackIDs []string) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	api, err := s.api()
	if err != nil {
		return nil, err
	}

	if owner == "" {
		if owner, err = s.CurrentUserID(ctx); err != nil {
			return nil, err
		}
	}

	playlist, err := s.findPlaylist(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	if playlist == nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		created, err := api.CreatePlaylistForUser(ctx, owner, name, "", s.public, false)
		if err != nil {
			return nil, classify("create playlist", err)
		}
		playlist = &models.Playlist{
			ID:          created.ID.String(),
			Name:        created.Name,
			Description: created.Description,
			Public:      created.IsPublic,
		}
	}

	id := spotify.ID(playlist.ID)
	batches := batchIDs(trackIDs, MaxTracksPerRequest)
	for i, batch := range batches {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		if i == 0 {
			if err := api.ReplacePlaylistTracks(ctx, id, batch...); err != nil {
				return nil, classify("replace playlist tracks", err)
			}
			continue
		}

		if _, err := api.AddTracksToPlaylist(ctx, id, batch...); err != nil {
			end := i*MaxTracksPerRequest + len(batch)
			return nil, classify(fmt.Sprintf("add tracks %d-%d", i*MaxTracksPerRequest+1, end), err)
		}
	}

	playlist.TrackCount = len(trackIDs)
	return playlist, nil
}

func (s *SpotifyService) findPlaylist(ctx context.Context, owner, name string) (*models.Playlist, error) {
	page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(maxPageSize))
	if err != nil {
		return nil, classify("list playlists", err)
	}

	for {
		for _, p := range page.Playlists {
			if p.Name == name && p.Owner.ID == owner {
				return &models.Playlist{
					ID:          p.ID.String(),
					Name:        p.Name,
					Description: p.Description,
					TrackCount:  int(p.Tracks.Total),
					Public:      p.IsPublic,
				}, nil
			}
		}

		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return nil, nil
		}
		if err != nil {
			return nil, classify("list playlists", err)
		}
	}
}

// batchIDs splits ids into chunks of at most size. An empty input yields one empty batch.
func batchIDs(ids []string, size int) [][]spotify.ID {
	if len(ids) == 0 {
		return [][]spotify.ID{{}}
	}

	var batches [][]spotify.ID
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		batch := make([]spotify.ID, 0, end-i)
		for _, id := range ids[i:end] {
			batch = append(batch, spotify.ID(id))
		}
		batches = append(batches, batch)
	}
	return batches
}

func convertTrack(t spotify.FullTrack) models.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		ID:       t.ID.String(),
		Name:     t.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    t.Album.Name,
		Duration: int(t.TimeDuration().Seconds()),
	}
}

// convertSavedTrack parses added_at, leaving it zero when Spotify sends an unexpected layout
func convertSavedTrack(saved spotify.SavedTrack) models.SavedTrack {
	addedAt, err := time.Parse(spotify.TimestampLayout, saved.AddedAt)
	if err != nil {
		addedAt, _ = time.Parse(time.RFC3339, saved.AddedAt)
	}

	return models.SavedTrack{Track: convertTrack(saved.FullTrack), AddedAt: addedAt}
}

// refreshableTokenSource reports each newly issued access token to onRefresh.
type refreshableTokenSource struct {
	base      oauth2.TokenSource
	mu        sync.Mutex
	last      string
	onRefresh func(*oauth2.Token)
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	tok, err := r.base.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tok.AccessToken != r.last {
		r.last = tok.AccessToken
		if r.onRefresh != nil {
			r.onRefresh(tok)
		}
	}
	return tok, nil
}
