package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/tasks"
	"github.com/desertthunder/spotility/internal/ui"
	"github.com/urfave/cli/v3"
)

// Top copies the newest liked songs into a playlist, replacing its contents.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	amount, err := parseAmount(cmd.StringArg("amount"))
	if err != nil {
		return err
	}

	library, err := r.connect(ctx, cmd)
	if err != nil {
		return err
	}

	owner := cmd.String("username")
	if owner == "" {
		owner = r.config.Credentials.Spotify.Username
	}

	engine := tasks.NewLibraryEngine(library, nil)
	progress, done := r.startProgress()
	result, err := engine.Top(ctx, progress, tasks.TopOptions{Amount: amount, Name: cmd.String("name"), Owner: owner})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ %s now holds %d tracks", result.Playlist.Name, len(result.Tracks))))
	for i, t := range result.Tracks {
		r.writePlain("%3d. %s - %s\n", i+1, t.Artist, t.Name)
	}
	return nil
}

func parseAmount(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("%w: amount (e.g. `spotility top 20`)", shared.ErrMissingArgument)
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: amount must be a positive integer, got %q", shared.ErrInvalidArgument, arg)
	}
	return n, nil
}
