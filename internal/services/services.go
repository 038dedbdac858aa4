// package services defines the provider interfaces the pipeline depends on
//
// YouTube Music (via proxy or the YouTube Data API), Spotify, Gemini
package services

import (
	"context"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
)

// TrackSearcher searches a provider catalogue for tracks.
type TrackSearcher interface {
	// Search returns at most limit results for a free-text query, in provider relevance order.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Provider identifies the catalogue searched.
	Provider() models.Provider
}

// TextModel generates text from a prompt.
type TextModel interface {
	Generate(ctx context.Context, prompt string, cfg SamplingConfig) (string, error)
}

// SpotifyLibrary is the subset of the Spotify API used to materialize a playlist.
type SpotifyLibrary interface {
	// Profile returns the user that owns the credential.
	Profile(ctx context.Context) (*Profile, error)

	// CreatePlaylist creates an empty playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.SpotifyPlaylistRef, error)

	// AddTracks appends tracks by URI. More than [MaxTracksPerRequest] URIs is rejected with [shared.ErrTooManyTracks].
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// AudioFeatures returns features positionally aligned with ids; unknown ids yield nil entries.
	AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error)
}

// SamplingConfig controls generation randomness and length.
type SamplingConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// Profile is a provider user.
type Profile struct {
	ID          string
	DisplayName string
}

// SearchResult is a provider-neutral search hit.
type SearchResult struct {
	ID          string
	Title       string
	Artists     []string
	Album       string
	Duration    int // Duration in seconds
	Popularity  int // 0-100, Spotify only
	URI         string
	PlaybackURL string
	Thumbnails  []models.Thumbnail
}

// Artist joins all credited artists.
func (r SearchResult) Artist() string {
	return strings.Join(r.Artists, ", ")
}

// Resolve converts a matched result into a [models.ResolvedTrack] for candidate c.
func (r SearchResult) Resolve(c models.TrackCandidate, provider models.Provider) models.ResolvedTrack {
	return models.ResolvedTrack{
		TrackCandidate: c,
		Found:          true,
		Provider:       provider,
		ProviderID:     r.ID,
		URI:            r.URI,
		Duration:       r.Duration,
		Thumbnails:     r.Thumbnails,
		PlaybackURL:    r.PlaybackURL,
	}
}
