package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/ratings"
	"github.com/desertthunder/spotility/internal/services"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/desertthunder/spotility/internal/tasks"
	tu "github.com/desertthunder/spotility/internal/testing"
	"golang.org/x/oauth2"
)

type testEnv struct {
	runner    *Runner
	output    *bytes.Buffer
	clipboard *tu.MockClipboard
	config    *shared.Config
	dir       string
}

func newTestEnv(t *testing.T, lib *tu.MockLibrary) *testEnv {
	t.Helper()
	t.Setenv("SPOTIFY_API_ID", "")
	t.Setenv("SPOTIFY_API_SECRET", "")
	t.Setenv("SPOTIFY_API_USERNAME", "")

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Ratings.Path = filepath.Join(dir, "ratings.json")
	config.Database.Path = filepath.Join(dir, "ratings.db")

	var library services.Library
	if lib != nil {
		library = lib
	}

	env := &testEnv{output: &bytes.Buffer{}, clipboard: &tu.MockClipboard{}, config: config, dir: dir}
	env.runner = NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: filepath.Join(dir, "config.toml"),
		Library:    library,
		Logger:     shared.NewLogger(io.Discard),
		Output:     env.output,
		Clipboard:  env.clipboard,
	})
	return env
}

func (e *testEnv) run(args ...string) error {
	return e.runner.App().Run(context.Background(), append([]string{"spotility"}, args...))
}

func (e *testEnv) seed(t *testing.T, values map[string]float64) {
	t.Helper()
	store, err := ratings.Load(e.config.Ratings.Path)
	if err != nil {
		t.Fatal(err)
	}
	for id, v := range values {
		if err := store.Set(id, v); err != nil {
			t.Fatal(err)
		}
	}
}

func liked(n int) []models.SavedTrack {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.SavedTrack, n)
	for i := range out {
		out[i] = models.SavedTrack{
			Track:   models.Track{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Song %d", i), Artist: "Band"},
			AddedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestTopCommand(t *testing.T) {
	t.Run("writes default playlist", func(t *testing.T) {
		lib := &tu.MockLibrary{UserID: "me", Liked: liked(5)}
		env := newTestEnv(t, lib)

		if err := env.run("top", "3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lib.Writes) != 1 {
			t.Fatalf("expected one write, got %d", len(lib.Writes))
		}
		if w := lib.Writes[0]; w.Name != "Top 3" || w.Owner != "me" || len(w.TrackIDs) != 3 {
			t.Errorf("unexpected write: %+v", w)
		}
		if out := env.output.String(); !strings.Contains(out, "Top 3") || !strings.Contains(out, "Band - Song 0") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("name and username flags", func(t *testing.T) {
		lib := &tu.MockLibrary{UserID: "me", Liked: liked(5)}
		env := newTestEnv(t, lib)

		if err := env.run("top", "--name", "Fresh", "--username", "friend", "2"); err != nil {
			t.Fatal(err)
		}
		if w := lib.Writes[0]; w.Name != "Fresh" || w.Owner != "friend" {
			t.Errorf("unexpected write: %+v", w)
		}
	})

	t.Run("username from environment", func(t *testing.T) {
		lib := &tu.MockLibrary{UserID: "me", Liked: liked(2)}
		env := newTestEnv(t, lib)
		t.Setenv("SPOTIFY_API_USERNAME", "from-env")

		if err := env.run("top", "2"); err != nil {
			t.Fatal(err)
		}
		if w := lib.Writes[0]; w.Owner != "from-env" {
			t.Errorf("expected owner from environment, got %q", w.Owner)
		}
	})

	t.Run("json output", func(t *testing.T) {
		lib := &tu.MockLibrary{UserID: "me", Liked: liked(2)}
		env := newTestEnv(t, lib)

		if err := env.run("top", "--json", "2"); err != nil {
			t.Fatal(err)
		}
		var result map[string]any
		if err := json.Unmarshal(env.output.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, env.output.String())
		}
		if result["Owner"] != "me" {
			t.Errorf("unexpected owner: %v", result["Owner"])
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{name: "missing amount", args: []string{"top"}, want: shared.ErrMissingArgument},
			{name: "not a number", args: []string{"top", "many"}, want: shared.ErrInvalidArgument},
			{name: "zero", args: []string{"top", "0"}, want: shared.ErrInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				lib := &tu.MockLibrary{}
				env := newTestEnv(t, lib)

				if err := env.run(tt.args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if len(lib.Writes) != 0 {
					t.Error("no playlist should be written")
				}
			})
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.config.Credentials.Spotify.ClientID = ""
		env.config.Credentials.Spotify.ClientSecret = ""

		if err := env.run("top", "3"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestRateCommand(t *testing.T) {
	playing := &models.Track{ID: "now", Name: "Current", Artist: "Band"}

	t.Run("rates by label", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})

		if err := env.run("rate", "great"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out := env.output.String(); !strings.Contains(out, "unrated -> great (5)") {
			t.Errorf("unexpected output: %s", out)
		}

		store, err := ratings.Load(env.config.Ratings.Path)
		if err != nil {
			t.Fatal(err)
		}
		if r, ok := store.Get("now"); !ok || r.Value != 5 {
			t.Errorf("expected stored rating 5, got %+v", r)
		}
	})

	t.Run("shows previous rating", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		env.seed(t, map[string]float64{"now": 2})

		if err := env.run("rate", "4"); err != nil {
			t.Fatal(err)
		}
		if out := env.output.String(); !strings.Contains(out, "meh (2) -> good (4)") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("sqlite store prints history", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		env.config.Ratings.Backend = ratings.BackendSQLite

		if err := env.run("rate", "2"); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(env.output.String(), "History:") {
			t.Errorf("first rating should not print history: %s", env.output.String())
		}

		for _, arg := range []string{"4", "5"} {
			if err := env.run("rate", arg); err != nil {
				t.Fatal(err)
			}
		}
		if out := env.output.String(); !strings.Contains(out, "History: meh (2) -> good (4) -> great (5)") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("json store has no history", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		env.seed(t, map[string]float64{"now": 2})

		if err := env.run("rate", "4"); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(env.output.String(), "History:") {
			t.Errorf("unexpected history: %s", env.output.String())
		}
	})

	t.Run("db-path override", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		path := filepath.Join(env.dir, "other", "ratings.json")

		if err := env.run("rate", "--db-path", path, "ok"); err != nil {
			t.Fatal(err)
		}
		tu.AssertFileExists(t, path)
	})

	t.Run("declined prompt", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		env.seed(t, map[string]float64{"now": 2})
		env.runner.confirm = func(context.Context, *tasks.RateResult) (bool, error) { return false, nil }

		err := env.run("rate", "--ask", "5")
		if !errors.Is(err, shared.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
		if exitCode(env.runner.logger, err) != 0 {
			t.Error("cancelled rating should exit 0")
		}
		if !strings.Contains(env.output.String(), "Rating unchanged") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("prompt only with ask", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})
		env.runner.confirm = func(context.Context, *tasks.RateResult) (bool, error) {
			t.Error("confirm should not be called without --ask")
			return false, nil
		}

		if err := env.run("rate", "3"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("nothing playing", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{})

		err := env.run("rate", "3")
		if !errors.Is(err, shared.ErrNothingPlaying) {
			t.Fatalf("expected ErrNothingPlaying, got %v", err)
		}
		if exitCode(env.runner.logger, err) != 0 {
			t.Error("nothing playing should exit 0")
		}
	})

	t.Run("invalid rating", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Playing: playing})

		for _, arg := range []string{"0", "6", "superb"} {
			if err := env.run("rate", arg); !errors.Is(err, shared.ErrInvalidRating) {
				t.Errorf("%s: expected ErrInvalidRating, got %v", arg, err)
			}
		}
		if err := env.run("rate"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestWeightsCommand(t *testing.T) {
	values := map[string]float64{"A": 1, "B": 5, "C": 3}

	t.Run("stdout", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.seed(t, values)

		if err := env.run("weights", "--stdout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, want := env.output.String(), "B:10.00|C:6.67|A:3.33\n"; got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("clipboard by default", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.seed(t, values)

		if err := env.run("weights"); err != nil {
			t.Fatal(err)
		}
		if env.clipboard.Text != "B:10.00|C:6.67|A:3.33" {
			t.Errorf("unexpected clipboard text %q", env.clipboard.Text)
		}
		if env.output.Len() != 0 {
			t.Errorf("expected no stdout output, got %q", env.output.String())
		}
	})

	t.Run("clipboard failure", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.clipboard.Err = errors.New("no display")

		if err := env.run("weights"); err == nil || !strings.Contains(err.Error(), "--stdout") {
			t.Errorf("expected clipboard error with hint, got %v", err)
		}
	})

	t.Run("csv to file", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.seed(t, values)
		out := filepath.Join(env.dir, "weights.csv")

		if err := env.run("weights", "--format", "csv", "--output-file", out); err != nil {
			t.Fatal(err)
		}
		data := string(tu.MustReadFile(t, out))
		if !strings.HasPrefix(data, "track_id,weight,rating\nB,1.0000,5\n") {
			t.Errorf("unexpected csv:\n%s", data)
		}
	})

	t.Run("minmax strategy", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.seed(t, values)

		if err := env.run("weights", "--stdout", "--strategy", "minmax"); err != nil {
			t.Fatal(err)
		}
		if got, want := env.output.String(), "B:10.00|C:5.50|A:1.00\n"; got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("config defaults", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.seed(t, values)
		env.config.Weights.Format = "json"

		if err := env.run("weights", "--stdout"); err != nil {
			t.Fatal(err)
		}
		var ws []map[string]any
		if err := json.Unmarshal(env.output.Bytes(), &ws); err != nil {
			t.Fatalf("expected json output: %v", err)
		}
		if len(ws) != 3 || ws[0]["track_id"] != "B" {
			t.Errorf("unexpected weights: %v", ws)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		env := newTestEnv(t, nil)

		if err := env.run("weights", "--stdout"); err != nil {
			t.Fatal(err)
		}
		if env.output.String() != "\n" {
			t.Errorf("expected empty weight list, got %q", env.output.String())
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		env := newTestEnv(t, nil)

		if err := env.run("weights", "--strategy", "random"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for strategy, got %v", err)
		}
		if err := env.run("weights", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for format, got %v", err)
		}
	})
}

func TestUpdateDBCommand(t *testing.T) {
	t.Run("seeds unrated tracks", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Liked: liked(4)})
		env.seed(t, map[string]float64{"t1": 5})

		if err := env.run("update-db"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out := env.output.String(); !strings.Contains(out, "Added 3 of 4") {
			t.Errorf("unexpected output: %s", out)
		}

		store, err := ratings.Load(env.config.Ratings.Path)
		if err != nil {
			t.Fatal(err)
		}
		if r, _ := store.Get("t1"); r.Value != 5 {
			t.Errorf("existing rating overwritten: %v", r.Value)
		}
		if r, _ := store.Get("t3"); r.Value != ratings.DefaultRating {
			t.Errorf("expected default rating, got %v", r.Value)
		}
	})

	t.Run("second run is byte identical", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Liked: liked(6)})

		if err := env.run("update-db"); err != nil {
			t.Fatal(err)
		}
		first := tu.MustReadFile(t, env.config.Ratings.Path)

		if err := env.run("update-db"); err != nil {
			t.Fatal(err)
		}
		if second := tu.MustReadFile(t, env.config.Ratings.Path); !bytes.Equal(first, second) {
			t.Error("ratings file changed on second run")
		}
	})

	t.Run("limit flag", func(t *testing.T) {
		lib := &tu.MockLibrary{Liked: liked(10)}
		env := newTestEnv(t, lib)

		if err := env.run("update-db", "--limit", "4", "--json"); err != nil {
			t.Fatal(err)
		}
		var result tasks.SyncResult
		if err := json.Unmarshal(env.output.Bytes(), &result); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if result.Fetched != 4 || result.Added != 4 || result.Total != 4 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("sqlite backend", func(t *testing.T) {
		env := newTestEnv(t, &tu.MockLibrary{Liked: liked(3)})
		env.config.Ratings.Backend = ratings.BackendSQLite

		if err := env.run("update-db"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, env.config.Database.Path)

		if err := env.run("weights", "--stdout"); err != nil {
			t.Fatal(err)
		}
		if n := strings.Count(env.output.String(), "|"); n != 2 {
			t.Errorf("expected 3 weights, got output %q", env.output.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("creates config", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.runner.config = nil

		if err := env.run("setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, env.runner.configPath)
		if !strings.Contains(env.output.String(), "spotility auth") {
			t.Errorf("expected next steps, got:\n%s", env.output.String())
		}
	})

	t.Run("initializes sqlite store", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.config.Ratings.Backend = ratings.BackendSQLite
		if err := shared.SaveConfig(env.runner.configPath, env.config); err != nil {
			t.Fatal(err)
		}

		if err := env.run("setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, env.config.Database.Path)
	})

	t.Run("reset empties sqlite store", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.config.Ratings.Backend = ratings.BackendSQLite
		if err := shared.SaveConfig(env.runner.configPath, env.config); err != nil {
			t.Fatal(err)
		}

		store, err := ratings.Open(env.config, "")
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Set("t1", 5); err != nil {
			t.Fatal(err)
		}
		store.Close()

		if err := env.run("setup", "--reset"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "(0 tracks)") {
			t.Errorf("expected empty store, got:\n%s", env.output.String())
		}
	})

	t.Run("without reset keeps ratings", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if err := shared.SaveConfig(env.runner.configPath, env.config); err != nil {
			t.Fatal(err)
		}
		env.seed(t, map[string]float64{"t1": 4})

		if err := env.run("setup"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(env.output.String(), "(1 tracks)") {
			t.Errorf("expected seeded store, got:\n%s", env.output.String())
		}
	})
}

// fakeAuthorizer issues tokens for any code without contacting Spotify.
type fakeAuthorizer struct {
	redirect string
	codes    chan string
}

func (f *fakeAuthorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.codes <- code
	return &oauth2.Token{AccessToken: "access-" + code, RefreshToken: "refresh"}, nil
}

func (f *fakeAuthorizer) GetAuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuthorizer) GetOAuthConfig() *oauth2.Config {
	return &oauth2.Config{RedirectURL: f.redirect}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestAuthorize(t *testing.T) {
	t.Run("exchanges callback code", func(t *testing.T) {
		port := freePort(t)
		auth := &fakeAuthorizer{redirect: fmt.Sprintf("http://127.0.0.1:%d/cb", port), codes: make(chan string, 1)}

		env := newTestEnv(t, nil)
		env.runner.openURL = func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			callback := fmt.Sprintf("%s?code=abc&state=%s", auth.redirect, url.QueryEscape(u.Query().Get("state")))
			go func() {
				resp, err := http.Get(callback)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		token, err := env.runner.authorize(context.Background(), auth)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access-abc" {
			t.Errorf("unexpected token %+v", token)
		}
		if code := <-auth.codes; code != "abc" {
			t.Errorf("unexpected code %q", code)
		}
	})

	t.Run("rejects wrong state", func(t *testing.T) {
		port := freePort(t)
		auth := &fakeAuthorizer{redirect: fmt.Sprintf("http://127.0.0.1:%d/callback", port), codes: make(chan string, 1)}

		env := newTestEnv(t, nil)
		env.runner.openURL = func(string) error {
			go func() {
				resp, err := http.Get(auth.redirect + "?code=abc&state=forged")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		if _, err := env.runner.authorize(context.Background(), auth); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("prints url when browser fails", func(t *testing.T) {
		port := freePort(t)
		auth := &fakeAuthorizer{redirect: fmt.Sprintf("http://127.0.0.1:%d/callback", port), codes: make(chan string, 1)}

		env := newTestEnv(t, nil)
		env.runner.openURL = func(string) error { return errors.New("no browser") }

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		_, err := env.runner.authorize(ctx, auth)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if !strings.Contains(env.output.String(), "https://accounts.example.com/authorize") {
			t.Errorf("expected auth URL in output:\n%s", env.output.String())
		}
	})
}

func TestExitCode(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "nothing playing", err: fmt.Errorf("rate: %w", shared.ErrNothingPlaying), want: 0},
		{name: "cancelled", err: shared.ErrCancelled, want: 0},
		{name: "interrupted", err: context.Canceled, want: exitInterrupted},
		{name: "auth failure", err: shared.ErrAuthFailed, want: 1},
		{name: "corrupt store", err: fmt.Errorf("%w: bad json", shared.ErrCorruptStore), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(logger, tt.err); got != tt.want {
				t.Errorf("expected exit code %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRateHelp(t *testing.T) {
	env := newTestEnv(t, nil)
	desc := rateCommand(env.runner).Description

	for _, want := range []string{"1 (worst) to 5 (best)", "reverse scale (1 = great, 4 = bad)", "new = 5 - old"} {
		if !strings.Contains(desc, want) {
			t.Errorf("expected rate help to mention %q, got:\n%s", want, desc)
		}
	}
}
