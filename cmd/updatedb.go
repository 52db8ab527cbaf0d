package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotility/internal/tasks"
	"github.com/desertthunder/spotility/internal/ui"
	"github.com/urfave/cli/v3"
)

// UpdateDB inserts the newest liked songs that have no rating yet with the configured default rating.
func (r *Runner) UpdateDB(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	library, err := r.connect(ctx, cmd)
	if err != nil {
		return err
	}

	engine := tasks.NewLibraryEngine(library, store)
	progress, done := r.startProgress()
	result, err := engine.SyncRatings(ctx, progress, cmd.Int("limit"), r.config.Ratings.DefaultRating)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Added %d of %d liked songs", result.Added, result.Fetched)))
	r.writePlain("%s\n", ui.Muted(fmt.Sprintf("%d tracks rated in total", result.Total)))
	return nil
}
