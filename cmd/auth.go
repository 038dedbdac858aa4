package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/server"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout bounds how long the login flow waits for the browser callback.
var authTimeout = 2 * time.Minute

// SpotifyAuth runs the authorization code flow and saves the user token to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if !r.config.HasSpotifyApp() {
		return fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or credentials.spotify in the config", shared.ErrMissingCredentials)
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlain("%s\n", r.styles.OK("✓ Spotify authorization successful"))
	if r.configPath != "" {
		r.writePlain("Token saved to %s\n", r.configPath)
	}
	if !token.Expiry.IsZero() {
		r.writePlain("Expires: %s\n", token.Expiry.Local().Format("2006-01-02 15:04"))
	}
	r.writePlain("%s\n", r.styles.Help("Use 'emotionquest generate --create-spotify' to save playlists to your account"))
	return nil
}

// doOAuth serves the redirect URI locally, opens the consent page and waits for the callback.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(r.oauth.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: credentials.spotify.redirect_uri %q", shared.ErrInvalidConfig, r.oauth.RedirectURL)
	}

	state, err := shared.NewState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.oauth.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(r.oauth, state)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	httpServer := &http.Server{
		Handler:           oauthHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: no authorization after %s", shared.ErrTimeout, authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidCredentials, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrInvalidCredentials)
	}
	return result.Token, nil
}

// AuthStatus reports the YouTube backend health and the saved Spotify login.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Authentication")

	yt := r.config.Credentials.YouTube
	switch {
	case yt.Backend == "data_api":
		if yt.APIKey != "" {
			r.writePlain("YouTube: %s\n", r.styles.OK("✓ Data API key configured"))
		} else {
			r.writePlain("YouTube: %s\n", r.styles.Err("✗ Data API key missing"))
		}
	case yt.ProxyURL == "":
		r.writePlain("YouTube: %s\n", r.styles.Err("✗ proxy_url not configured"))
	default:
		if err := services.NewAPIService(yt.ProxyURL, r.httpClient).Ping(ctx); err != nil {
			r.logger.Debug("proxy health check failed", "error", err)
			r.writePlain("YouTube: %s\n", r.styles.Err("✗ proxy unreachable at "+yt.ProxyURL))
		} else {
			r.writePlain("YouTube: %s\n", r.styles.OK("✓ proxy healthy at "+yt.ProxyURL))
		}
	}

	if r.config.Credentials.Gemini.APIKey != "" {
		r.writePlain("Gemini: %s\n", r.styles.OK("✓ API key configured"))
	} else {
		r.writePlain("Gemini: %s\n", r.styles.Err("✗ API key missing"))
	}

	if !r.config.HasSpotifyApp() {
		return r.writePlain("Spotify: %s\n", r.styles.Warn("not configured"))
	}
	tok := r.config.Credentials.Spotify.Token()
	switch {
	case tok == nil:
		r.writePlain("Spotify: %s\n", r.styles.Warn("client credentials only (run 'emotionquest auth spotify' to log in)"))
	case tok.Valid() && tok.Expiry.IsZero():
		r.writePlain("Spotify: %s\n", r.styles.OK("✓ logged in"))
	case tok.Valid():
		r.writePlain("Spotify: %s\n", r.styles.OK("✓ logged in until "+tok.Expiry.Local().Format("2006-01-02 15:04")))
	case tok.RefreshToken != "":
		r.writePlain("Spotify: %s\n", r.styles.OK("✓ logged in (token refreshes on next use)"))
	default:
		r.writePlain("Spotify: %s\n", r.styles.Err("✗ login expired"))
	}
	return nil
}
