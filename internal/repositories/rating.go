package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
)

// HistoryEntry is one recorded rating change. OldRating is nil for the first rating of a track.
type HistoryEntry struct {
	ID        string
	TrackID   string
	OldRating *float64
	NewRating float64
	ChangedAt time.Time
}

// RatingRepository stores ratings in SQLite.
type RatingRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRatingRepository creates a RatingRepository on a migrated database connection
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db, now: time.Now}
}

// Get returns the rating for trackID. Query failures are reported as not rated.
func (r *RatingRepository) Get(trackID string) (models.Rating, bool) {
	query := `SELECT rating, added_at, updated_at FROM ratings WHERE track_id = ?`

	rating, err := scanRating(r.db.QueryRow(query, trackID))
	if err != nil {
		return models.Rating{}, false
	}
	return rating, true
}

// Set upserts the rating and appends a history row in one transaction
func (r *RatingRepository) Set(trackID string, value float64) error {
	if trackID == "" {
		return fmt.Errorf("%w: track id is empty", shared.ErrInvalidArgument)
	}
	if err := models.ValidateRating(value); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var old sql.NullFloat64
	err = tx.QueryRow(`SELECT rating FROM ratings WHERE track_id = ?`, trackID).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read rating: %w", err)
	}

	now := r.now().UTC()
	upsert := `
		INSERT INTO ratings (track_id, rating, added_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at
	`
	if _, err := tx.Exec(upsert, trackID, value, now, now); err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}

	history := `
		INSERT INTO rating_history (id, track_id, old_rating, new_rating, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(history, shared.GenerateID(), trackID, old, value, now); err != nil {
		return fmt.Errorf("failed to record rating history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rating: %w", err)
	}
	return nil
}

// Merge inserts unrated tracks with value, leaving existing rows untouched
func (r *RatingRepository) Merge(tracks []models.SavedTrack, value float64) (int, error) {
	if err := models.ValidateRating(value); err != nil {
		return 0, err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO ratings (track_id, rating, added_at) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}

		addedAt := t.AddedAt
		if addedAt.IsZero() {
			addedAt = r.now()
		}

		result, err := stmt.Exec(t.ID, value, addedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert rating for %s: %w", t.ID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		added += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return added, nil
}

// All streams rows in track ID order. Iteration stops early on a query or scan error.
//
// The rows hold a connection until iteration ends, so with a single-connection pool the loop body
// must not call back into the repository.
func (r *RatingRepository) All() iter.Seq2[string, models.Rating] {
	return func(yield func(string, models.Rating) bool) {
		rows, err := r.db.Query(`SELECT track_id, rating, added_at, updated_at FROM ratings ORDER BY track_id ASC`)
		if err != nil {
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			var rating models.Rating
			var updated sql.NullTime
			if err := rows.Scan(&id, &rating.Value, &rating.AddedAt, &updated); err != nil {
				return
			}
			if updated.Valid {
				rating.UpdatedAt = updated.Time
			}
			if !yield(id, rating) {
				return
			}
		}
	}
}

func (r *RatingRepository) Len() int {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM ratings`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// History lists recorded changes for trackID, oldest first
func (r *RatingRepository) History(trackID string) ([]HistoryEntry, error) {
	query := `
		SELECT id, track_id, old_rating, new_rating, changed_at
		FROM rating_history
		WHERE track_id = ?
		ORDER BY changed_at ASC, rowid ASC
	`

	rows, err := r.db.Query(query, trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var old sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.TrackID, &old, &e.NewRating, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history: %w", err)
		}
		if old.Valid {
			e.OldRating = &old.Float64
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating history: %w", err)
	}
	return entries, nil
}

func (r *RatingRepository) Close() error { return r.db.Close() }

func scanRating(row *sql.Row) (models.Rating, error) {
	var rating models.Rating
	var updated sql.NullTime

	if err := row.Scan(&rating.Value, &rating.AddedAt, &updated); err != nil {
		return models.Rating{}, err
	}
	if updated.Valid {
		rating.UpdatedAt = updated.Time
	}
	return rating, nil
}
