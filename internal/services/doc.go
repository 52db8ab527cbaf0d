// Package services defines the [Library] interface through which the workflows reach Spotify, and implements it with
// [SpotifyService] on top of github.com/zmb3/spotify/v2.
//
// # Authentication
//
// [SpotifyService] owns an [oauth2.Config] for the authorization code flow. [SpotifyService.GetAuthURL] and
// [SpotifyService.Exchange] drive the interactive flow; [SpotifyService.Authenticate] installs a token whose source
// refreshes automatically. Refreshed tokens are reported through [SpotifyService.SetTokenRefreshCallback] so they
// can be persisted.
//
// # Playlist Writes
//
// [SpotifyService.ReplacePlaylist] finds the owner's playlist by name or creates it, then replaces its contents in
// batches of [MaxTracksPerRequest]. Write requests are paced by a [rate.Limiter].
//
// # Error Handling
//
// Every remote failure is classified into one of:
//   - [shared.ErrAuthFailed] : token rejected (401/403) or token exchange/refresh failed
//   - [shared.ErrAPIRequest] : any other transport or API failure
//
// [shared.ErrNothingPlaying] is returned by [SpotifyService.CurrentlyPlaying] when the player is idle.
// Context cancellation is passed through unchanged.
package services
