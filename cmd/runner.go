package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/services"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/tasks"
	"github.com/desertthunder/spotility/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Clipboard receives weights when neither --output-file nor --stdout is given.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	clipboard  Clipboard
	confirm    tasks.Confirmer
	openURL    func(string) error

	saveMu sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config flag when the app starts. A nil Library is built from the
// Spotify credentials on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Library    services.Library
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Clipboard  Clipboard
	Confirm    tasks.Confirmer
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Clipboard == nil {
		opts.Clipboard = systemClipboard{}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		library:    opts.Library,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		clipboard:  opts.Clipboard,
		confirm:    opts.Confirm,
		openURL:    opts.OpenURL,
	}
	if r.confirm == nil {
		r.confirm = r.askConfirm
	}
	return r
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "spotility",
		Usage:   "Playlists, ratings and shuffle weights for your Spotify Liked Songs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: ./config.toml, then ~/.config/spotility/config.toml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to a rotating file",
			},
		},
		Before:    r.before,
		Commands:  r.register(),
		Writer:    r.output,
		ErrWriter: os.Stderr,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		topCommand, rateCommand, weightsCommand, updateDBCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before configures logging and loads the config for every command.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("log-file"); path != "" {
		logger, err := shared.NewFileLogger(path)
		if err != nil {
			return ctx, err
		}
		r.logger = logger
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if explicit := cmd.String("config"); explicit != "" || r.configPath == "" {
		r.configPath = shared.ResolveConfigPath(explicit)
	}

	if r.config == nil {
		config, err := shared.LoadOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("configuration loaded", "path", r.configPath)
	}
	return ctx, nil
}

// openStore opens the rating store, honoring --db-path.
func (r *Runner) openStore(cmd *cli.Command) (ratings.Store, error) {
	store, err := ratings.Open(r.config, cmd.String("db-path"))
	if err != nil {
		return nil, err
	}
	r.logger.Debug("rating store opened", "backend", r.config.Ratings.Backend, "path", ratings.Location(r.config, cmd.String("db-path")))
	return store, nil
}

// connect returns the remote library, authenticating with the saved token or the interactive flow.
func (r *Runner) connect(ctx context.Context, cmd *cli.Command) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}

	svc, err := r.newSpotifyService(cmd)
	if err != nil {
		return nil, err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		r.logger.Info("no saved token, starting authorization")
		if token, err = r.authorize(ctx, svc); err != nil {
			return nil, err
		}
		if err := r.saveToken(token); err != nil {
			return nil, err
		}
	}

	svc.SetTokenRefreshCallback(func(tok *oauth2.Token) {
		if err := r.saveToken(tok); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", r.configPath)
	})

	if err := svc.Authenticate(ctx, token); err != nil {
		return nil, err
	}

	r.library = svc
	return svc, nil
}

// newSpotifyService builds an unauthenticated client. Flags (and their environment variables) take
// precedence over the config file.
func (r *Runner) newSpotifyService(cmd *cli.Command) (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if id := cmd.String("id"); id != "" {
		creds.ClientID = id
	}
	if secret := cmd.String("secret"); secret != "" {
		creds.ClientSecret = secret
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, fmt.Errorf("%w (use --id/--secret, SPOTIFY_API_ID/SPOTIFY_API_SECRET or %s)", err, r.configPath)
	}
	svc.SetPublic(r.config.Playlist.Public)
	svc.SetRateLimit(r.config.Playlist.RequestsPerSecond)
	return svc, nil
}

// saveToken writes token into the config file.
func (r *Runner) saveToken(token *oauth2.Token) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// startProgress logs progress updates until the returned channel is closed. The done channel is
// closed once every update has been logged.
func (r *Runner) startProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase.String(), "step", fmt.Sprintf("%d/%d", u.Step, u.Total))
		}
	}()

	return progress, done
}

func (r *Runner) askConfirm(ctx context.Context, change *tasks.RateResult) (bool, error) {
	return ui.RunConfirm(ctx, r.input, r.output, "Save rating?", describeChange(change))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
