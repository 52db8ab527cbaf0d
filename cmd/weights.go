package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/desertthunder/spotility/internal/formatter"
	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/weights"
	"github.com/urfave/cli/v3"
)

// Weights turns the rating store into a weight list and writes it to a file, stdout or the clipboard.
//
// With --watch the list is regenerated after every change to the store until the command is interrupted.
func (r *Runner) Weights(ctx context.Context, cmd *cli.Command) error {
	strategy, err := weights.ParseStrategy(firstNonEmpty(cmd.String("strategy"), r.config.Weights.Strategy))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(firstNonEmpty(cmd.String("format"), r.config.Weights.Format))
	if err != nil {
		return err
	}

	generate := func() error {
		store, err := r.openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		ws := weights.Generate(store.All(), strategy)
		data, err := formatter.Render(ws, format, r.config.Weights.Scale)
		if err != nil {
			return err
		}
		return r.deliverWeights(cmd, data, len(ws))
	}

	if err := generate(); err != nil {
		return err
	}
	if !cmd.Bool("watch") {
		return nil
	}

	path := ratings.Location(r.config, cmd.String("db-path"))
	r.logger.Info("watching rating store, press ctrl+c to stop", "path", path)
	return ratings.Watch(ctx, path, generate)
}

func (r *Runner) deliverWeights(cmd *cli.Command, data []byte, count int) error {
	if path := cmd.String("output-file"); path != "" {
		if err := shared.WriteFileAtomic(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write weights: %w", err)
		}
		r.logger.Info("weights written", "path", path, "tracks", count)
		return nil
	}

	if cmd.Bool("stdout") {
		if !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := r.clipboard.WriteAll(string(data)); err != nil {
		return fmt.Errorf("failed to copy weights to clipboard (try --stdout or --output-file): %w", err)
	}
	r.logger.Info("weights copied to clipboard", "tracks", count)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
