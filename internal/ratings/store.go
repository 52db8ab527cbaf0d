package ratings

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/repositories"
	"github.com/desertthunder/spotility/internal/shared"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store maps track IDs to ratings. Mutations are persisted before they return.
type Store interface {
	// Get returns the rating for trackID; false means the track is not rated.
	Get(trackID string) (models.Rating, bool)
	// Set creates or replaces the rating for trackID.
	Set(trackID string, value float64) error
	// Merge inserts every track that has no rating yet with value and reports how many were added.
	// Existing entries are never modified.
	Merge(tracks []models.SavedTrack, value float64) (int, error)
	// All yields every entry. Iteration is finite and may be repeated.
	All() iter.Seq2[string, models.Rating]
	Len() int
	Close() error
}

// HistoryReader is implemented by stores that record every rating change.
type HistoryReader interface {
	// History lists the changes for trackID, oldest first.
	History(trackID string) ([]repositories.HistoryEntry, error)
}

var (
	_ Store         = (*FileStore)(nil)
	_ Store         = (*repositories.RatingRepository)(nil)
	_ HistoryReader = (*repositories.RatingRepository)(nil)
)

// Open returns the store selected by cfg.Ratings.Backend.
// A non-empty path overrides the configured location of the selected backend.
func Open(cfg *shared.Config, path string) (Store, error) {
	switch cfg.Ratings.Backend {
	case "", BackendJSON:
		if path == "" {
			path = cfg.Ratings.Path
		}
		return Load(path)
	case BackendSQLite:
		if path == "" {
			path = cfg.Database.Path
		}
		return openSQLite(path, cfg.Database)
	default:
		return nil, fmt.Errorf("%w: unknown ratings backend %q", shared.ErrInvalidConfig, cfg.Ratings.Backend)
	}
}

// Location returns the file backing the store selected by cfg, honoring the same override as [Open].
func Location(cfg *shared.Config, path string) string {
	if path != "" {
		return path
	}
	if cfg.Ratings.Backend == BackendSQLite {
		return cfg.Database.Path
	}
	return cfg.Ratings.Path
}

// Reset empties the store selected by cfg. The JSON file is removed and the SQLite schema is rolled
// back and migrated again. The path override matches [Open].
func Reset(cfg *shared.Config, path string) error {
	location := Location(cfg, path)

	switch cfg.Ratings.Backend {
	case "", BackendJSON:
		if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", location, err)
		}
		return nil
	case BackendSQLite:
		db, err := openDatabase(location, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := shared.ResetMigrations(db); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrCorruptStore, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown ratings backend %q", shared.ErrInvalidConfig, cfg.Ratings.Backend)
	}
}

func openSQLite(path string, dbCfg shared.DatabaseConfig) (*repositories.RatingRepository, error) {
	db, err := openDatabase(path, dbCfg)
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptStore, err)
	}
	return repositories.NewRatingRepository(db), nil
}

func openDatabase(path string, dbCfg shared.DatabaseConfig) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrCorruptStore, err)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptStore, err)
	}
	shared.ConfigureDatabase(db, dbCfg.MaxOpenConns, dbCfg.MaxIdleConns)
	return db, nil
}
