package main

import (
	"context"
	"os"

	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the example config file when none exists and initializes the configured rating store.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		r.logger.Info("config file already exists", "path", r.configPath)
	} else {
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", r.configPath)

		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	if cmd.Bool("reset") {
		if err := ratings.Reset(r.config, ""); err != nil {
			return err
		}
		r.logger.Warn("rating store reset", "backend", r.config.Ratings.Backend, "path", ratings.Location(r.config, ""))
		r.writePlain("✓ Reset: all ratings deleted\n")
	}

	store, err := ratings.Open(r.config, "")
	if err != nil {
		return err
	}
	defer store.Close()

	location := ratings.Location(r.config, "")
	r.logger.Info("rating store ready", "backend", r.config.Ratings.Backend, "path", location, "tracks", store.Len())

	r.writePlain("✓ Config: %s\n", r.configPath)
	r.writePlain("✓ Ratings: %s (%d tracks)\n", location, store.Len())
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s (or SPOTIFY_API_ID/SPOTIFY_API_SECRET)\n", r.configPath)
	r.writePlain("2. Run 'spotility auth'\n")
	r.writePlain("3. Run 'spotility update-db' to seed your ratings\n")
	return nil
}
