// Package repositories implements SQLite persistence for ratings.
//
// [RatingRepository] satisfies the same contract as the JSON file store: one row per track in the
// ratings table, last write wins. Every rating change also appends a row to rating_history, keyed by a
// random UUID, so earlier scores can be inspected with [RatingRepository.History].
//
// Schema is created by shared.RunMigrations; repositories never issue DDL.
package repositories
