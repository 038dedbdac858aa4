// Spotify Web API implementation of [TrackSearcher] and [SpotifyLibrary]
//
// Built on github.com/zmb3/spotify/v2. Credentials are resolved once per call through an explicit [SpotifyAuth].
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// MaxTracksPerRequest is the Spotify limit on URIs per add-tracks call.
const MaxTracksPerRequest = 100

const spotifyTrackURIPrefix = "spotify:track:"

// AuthMode selects how Spotify requests are authorized.
type AuthMode int

const (
	// AuthClientCredentials uses the application's client id and secret. Search and audio features only.
	AuthClientCredentials AuthMode = iota
	// AuthUserToken uses an access token issued to a user. Required for playlist creation.
	AuthUserToken
)

func (m AuthMode) String() string {
	switch m {
	case AuthClientCredentials:
		return "client_credentials"
	case AuthUserToken:
		return "user_token"
	default:
		return ""
	}
}

// SpotifyAuth is the resolved credential for one pipeline call.
type SpotifyAuth struct {
	Mode         AuthMode
	ClientID     string
	ClientSecret string
	AccessToken  string
	TokenURL     string // defaults to the Spotify accounts endpoint
}

// ResolveSpotifyAuth picks the auth mode for a request: a user token when one is supplied, otherwise client
// credentials when the application is configured. ok is false when neither is available.
func ResolveSpotifyAuth(userToken string, creds shared.SpotifyConfig) (SpotifyAuth, bool) {
	if userToken != "" {
		return SpotifyAuth{Mode: AuthUserToken, AccessToken: userToken}, true
	}
	if creds.ClientID != "" && creds.ClientSecret != "" {
		return SpotifyAuth{Mode: AuthClientCredentials, ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}, true
	}
	return SpotifyAuth{}, false
}

// HTTPClient returns an [http.Client] that authorizes every request for the auth mode.
func (a SpotifyAuth) HTTPClient(ctx context.Context) (*http.Client, error) {
	switch a.Mode {
	case AuthUserToken:
		if a.AccessToken == "" {
			return nil, fmt.Errorf("%w: spotify access token", shared.ErrMissingCredentials)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.AccessToken, TokenType: "Bearer"})
		return oauth2.NewClient(ctx, ts), nil
	case AuthClientCredentials:
		if a.ClientID == "" || a.ClientSecret == "" {
			return nil, fmt.Errorf("%w: spotify client id and secret", shared.ErrMissingCredentials)
		}
		tokenURL := a.TokenURL
		if tokenURL == "" {
			tokenURL = spotifyauth.TokenURL
		}
		cfg := &clientcredentials.Config{ClientID: a.ClientID, ClientSecret: a.ClientSecret, TokenURL: tokenURL}
		return cfg.Client(ctx), nil
	default:
		return nil, fmt.Errorf("%w: unknown spotify auth mode %d", shared.ErrInvalidConfig, a.Mode)
	}
}

// UserScopes are requested by the login flow; enough to read the profile and create private playlists.
var UserScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
}

// SpotifyOAuthConfig returns the authorization code flow configuration for creds.
func SpotifyOAuthConfig(creds shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       UserScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

// FreshUserToken returns tok when it is still valid, otherwise a refreshed token from cfg.
//
// A token that is expired and has no refresh token yields [shared.ErrTokenExpired].
func FreshUserToken(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no spotify user token, run the spotify login first", shared.ErrMissingCredentials)
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify user token expired at %s", shared.ErrTokenExpired, tok.Expiry.Format("2006-01-02 15:04"))
	}

	fresh, err := cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, spotifyError(err)
	}
	return fresh, nil
}

// SpotifyService implements [TrackSearcher] and [SpotifyLibrary].
type SpotifyService struct {
	client *spotify.Client
	mode   AuthMode
}

// NewSpotifyService creates a service for auth. opts are passed to [spotify.New], e.g. [spotify.WithBaseURL] in tests.
func NewSpotifyService(ctx context.Context, auth SpotifyAuth, opts ...spotify.ClientOption) (*SpotifyService, error) {
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	return &SpotifyService{client: spotify.New(httpClient, opts...), mode: auth.Mode}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Provider implements [TrackSearcher].
func (s *SpotifyService) Provider() models.Provider {
	return models.ProviderSpotify
}

// Mode reports the auth mode the service was created with.
func (s *SpotifyService) Mode() AuthMode {
	return s.mode
}

// Search implements [TrackSearcher].
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, spotifyError(err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		results = append(results, trackResult(t))
	}

	return results, nil
}

func trackResult(t spotify.FullTrack) SearchResult {
	r := SearchResult{
		ID:          string(t.ID),
		Title:       t.Name,
		Album:       t.Album.Name,
		Duration:    int(t.Duration) / 1000,
		Popularity:  int(t.Popularity),
		URI:         string(t.URI),
		PlaybackURL: t.ExternalURLs["spotify"],
	}
	if r.URI == "" && t.ID != "" {
		r.URI = spotifyTrackURIPrefix + string(t.ID)
	}
	for _, a := range t.Artists {
		r.Artists = append(r.Artists, a.Name)
	}
	for _, img := range t.Album.Images {
		r.Thumbnails = append(r.Thumbnails, models.Thumbnail{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
	}
	return r
}

// Profile implements [SpotifyLibrary]. Requires [AuthUserToken].
func (s *SpotifyService) Profile(ctx context.Context) (*Profile, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, spotifyError(err)
	}
	return &Profile{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// CreatePlaylist implements [SpotifyLibrary].
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.SpotifyPlaylistRef, error) {
	pl, err := s.client.CreatePlaylistForUser(ctx, ownerID, name, description, public, false)
	if err != nil {
		return nil, spotifyError(err)
	}

	return &models.SpotifyPlaylistRef{
		ID:   string(pl.ID),
		Name: pl.Name,
		URL:  pl.ExternalURLs["spotify"],
	}, nil
}

// AddTracks implements [SpotifyLibrary].
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) > MaxTracksPerRequest {
		return fmt.Errorf("%w: %d > %d", shared.ErrTooManyTracks, len(uris), MaxTracksPerRequest)
	}
	if len(uris) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(uris))
	for i, uri := range uris {
		ids[i] = spotify.ID(TrackIDFromURI(uri))
	}

	if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return spotifyError(err)
	}
	return nil
}

// AudioFeatures implements [SpotifyLibrary].
func (s *SpotifyService) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	sids := make([]spotify.ID, len(ids))
	for i, id := range ids {
		sids[i] = spotify.ID(TrackIDFromURI(id))
	}

	features, err := s.client.GetAudioFeatures(ctx, sids...)
	if err != nil {
		return nil, spotifyError(err)
	}

	out := make([]*models.AudioFeatures, len(ids))
	for i := range out {
		if i >= len(features) || features[i] == nil {
			continue
		}
		f := features[i]
		out[i] = &models.AudioFeatures{
			Tempo:            float64(f.Tempo),
			Energy:           float64(f.Energy),
			Valence:          float64(f.Valence),
			Danceability:     float64(f.Danceability),
			Acousticness:     float64(f.Acousticness),
			Instrumentalness: float64(f.Instrumentalness),
		}
	}

	return out, nil
}

// TrackIDFromURI extracts the track id from "spotify:track:{id}". Plain ids are returned unchanged.
func TrackIDFromURI(uri string) string {
	return strings.TrimPrefix(uri, spotifyTrackURIPrefix)
}

// spotifyError classifies errors so that rejected or expired credentials are distinguishable from other failures.
func spotifyError(err error) error {
	var serr spotify.Error
	if errors.As(err, &serr) {
		return classifySpotifyStatus(serr.Status, serr.Message)
	}
	var pserr *spotify.Error
	if errors.As(err, &pserr) {
		return classifySpotifyStatus(pserr.Status, pserr.Message)
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return fmt.Errorf("%w: spotify token request: %v", shared.ErrInvalidCredentials, rerr)
	}

	return fmt.Errorf("%w: spotify: %v", shared.ErrServiceUnavailable, err)
}

func classifySpotifyStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized && strings.Contains(strings.ToLower(message), "expired"):
		return fmt.Errorf("%w: spotify: %s", shared.ErrTokenExpired, message)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify: %s", shared.ErrInvalidCredentials, message)
	default:
		return fmt.Errorf("%w: spotify (status %d): %s", shared.ErrAPIRequest, status, message)
	}
}
