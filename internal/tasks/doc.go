// Package tasks orchestrates the spotility workflows with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] combines a services.Library with a ratings.Store:
//
//  1. [LibraryEngine.Top] : newest liked tracks into a playlist
//     - Fetches the newest N liked tracks
//     - Resolves the playlist owner (current user when not given)
//     - Replaces the contents of the playlist named "Top N", creating it when missing
//
//  2. [LibraryEngine.SyncRatings] : seed the rating store
//     - Fetches the newest liked tracks
//     - Inserts every unrated track with the default rating, leaving existing ratings untouched
//
//  3. [LibraryEngine.Rate] : rate the currently playing track
//     - Reads the player, looks up the previous rating
//     - Asks an optional [Confirmer] before writing
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking; a nil channel disables reporting.
package tasks
