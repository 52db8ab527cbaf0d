// Package ratings implements the local rating store.
//
// A [Store] maps Spotify track IDs to a [models.Rating]. Every mutation is persisted before it returns,
// so a crash never loses an acknowledged rating.
//
// # Backends
//
//   - [FileStore] : a flat JSON object keyed by track ID, rewritten atomically (write temp file, rename)
//   - repositories.RatingRepository : a SQLite table with an append-only rating history
//
// [Open] selects the backend from configuration.
//
// # Rating Scale
//
// Ratings are numbers in [MinRating, MaxRating], higher is better.
// [Parse] accepts either a number or one of the labels bad, meh, ok, good, great.
package ratings
