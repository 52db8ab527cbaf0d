// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

const version = "0.1.0"

// credentialFlags are shared by every command that talks to Spotify.
func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "id",
			Usage:   "Spotify client ID",
			Sources: cli.EnvVars("SPOTIFY_API_ID"),
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "Spotify client secret",
			Sources: cli.EnvVars("SPOTIFY_API_SECRET"),
		},
	}
}

func dbPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "db-path",
		Usage: "Rating store location (overrides ratings.path, or database.path for the sqlite backend)",
	}
}

// topCommand writes the newest liked songs to a playlist
func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "top",
		Usage:     "Copy the newest liked songs into a playlist",
		ArgsUsage: "<amount>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "amount"},
		},
		Flags: append(credentialFlags(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default: \"Top <amount>\")",
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Owner of the playlist (default: the authenticated user)",
				Sources: cli.EnvVars("SPOTIFY_API_USERNAME"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		),
		Action: r.Top,
	}
}

// rateCommand rates the currently playing track
func rateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "rate",
		Usage:     "Rate the currently playing track",
		ArgsUsage: "<rating>",
		Description: "Rating is a number from 1 (worst) to 5 (best) or one of the labels " +
			"bad, meh, ok, good, great.\n\n" +
			"Files written by the older ratings.json tool use the reverse scale (1 = great, 4 = bad). " +
			"They load without error, but their values must be converted (new = 5 - old for 1-4) " +
			"or the weights come out inverted.",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "rating"},
		},
		Flags: append(credentialFlags(),
			dbPathFlag(),
			&cli.BoolFlag{
				Name:    "ask",
				Aliases: []string{"a"},
				Usage:   "Confirm before saving",
			},
		),
		Action: r.Rate,
	}
}

// weightsCommand exports shuffle weights
func weightsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "weights",
		Usage: "Generate shuffle weights from the rating store",
		Flags: []cli.Flag{
			dbPathFlag(),
			&cli.StringFlag{
				Name:    "output-file",
				Aliases: []string{"o"},
				Usage:   "Write weights to a file",
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Print weights instead of copying them to the clipboard",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: plugin, csv or json (default: weights.format)",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Weighting strategy: rank or minmax (default: weights.strategy)",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Regenerate whenever the rating store changes",
			},
		},
		Action: r.Weights,
	}
}

// updateDBCommand seeds the rating store
func updateDBCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update-db",
		Usage: "Add the newest liked songs to the rating store",
		Flags: append(credentialFlags(),
			dbPathFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Number of newest liked songs to read",
				Value:   50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		),
		Action: r.UpdateDB,
	}
}

// authCommand runs the OAuth flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize spotility with Spotify and save the token",
		Flags:  credentialFlags(),
		Action: r.Auth,
	}
}

// setupCommand writes the example config and prepares the store
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the rating store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Delete every rating and recreate the store (sqlite: roll back and re-apply migrations)",
			},
		},
		Action: r.Setup,
	}
}
