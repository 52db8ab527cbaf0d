package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/repositories"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/tasks"
	"github.com/desertthunder/spotility/internal/ui"
	"github.com/urfave/cli/v3"
)

// Rate sets the rating of the currently playing track.
func (r *Runner) Rate(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("rating")
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("%w: rating, one of %s", shared.ErrMissingArgument, ratings.Labels())
	}
	value, err := ratings.Parse(arg)
	if err != nil {
		return err
	}

	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	library, err := r.connect(ctx, cmd)
	if err != nil {
		return err
	}

	var confirm tasks.Confirmer
	if cmd.Bool("ask") {
		confirm = r.confirm
	}

	engine := tasks.NewLibraryEngine(library, store)
	progress, done := r.startProgress()
	change, err := engine.Rate(ctx, progress, value, confirm)
	close(progress)
	<-done

	if errors.Is(err, shared.ErrCancelled) {
		r.writePlain("%s\n", ui.Warn("Rating unchanged"))
		return err
	}
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Success(describeChange(change)))

	if h, ok := store.(ratings.HistoryReader); ok {
		entries, err := h.History(change.Track.ID)
		if err != nil {
			r.logger.Warn("failed to read rating history", "track", change.Track.ID, "error", err)
		} else if len(entries) > 1 {
			r.writePlain("History: %s\n", describeHistory(entries))
		}
	}
	return nil
}

// historyLimit caps how many past ratings rate prints.
const historyLimit = 5

// describeHistory renders the newest ratings, oldest first.
func describeHistory(entries []repositories.HistoryEntry) string {
	var parts []string
	if len(entries) > historyLimit {
		parts = append(parts, "...")
		entries = entries[len(entries)-historyLimit:]
	}
	for _, e := range entries {
		parts = append(parts, formatRating(e.NewRating))
	}
	return strings.Join(parts, " -> ")
}

// describeChange renders "Artist - Title: old -> new".
func describeChange(change *tasks.RateResult) string {
	previous := "unrated"
	if change.Previous != nil {
		previous = formatRating(change.Previous.Value)
	}
	return fmt.Sprintf("%s - %s: %s -> %s", change.Track.Artist, change.Track.Name, previous, formatRating(change.Value))
}

func formatRating(v float64) string {
	label := ratings.Label(v)
	number := fmt.Sprintf("%v", v)
	if label == number {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, number)
}
