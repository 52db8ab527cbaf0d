package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotility/internal/server"
	"github.com/desertthunder/spotility/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthTimeout bounds how long the callback server waits for the browser.
const AuthTimeout = 2 * time.Minute

// authorizer is the part of the Spotify service used by the authorization flow.
type authorizer interface {
	server.Exchanger
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
}

// Auth performs the OAuth2 authorization flow and saves the token to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.newSpotifyService(cmd)
	if err != nil {
		return err
	}

	token, err := r.authorize(ctx, svc)
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	return nil
}

// authorize runs a local callback server, opens the browser and waits for the authorization code.
func (r *Runner) authorize(ctx context.Context, auth authorizer) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	redirectURI := auth.GetOAuthConfig().RedirectURL
	handler := server.NewOAuthHandler(auth, redirectURI, state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	addr := server.CallbackAddr(redirectURI)
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}

	httpServer, serverErrors, err := server.Listen(addr, router)
	if err != nil {
		return nil, err
	}
	r.logger.Info("started OAuth callback server", "addr", addr, "path", server.CallbackPath(redirectURI))

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := auth.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openURL(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", AuthTimeout)

	timeout := time.NewTimer(AuthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, AuthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}
