// YouTube Music [TrackSearcher] implementation
//
// Communicates with the FastAPI proxy server running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
)

const (
	defaultYTBaseURL string = "http://localhost:8080"
	ytMusicWatchURL  string = "https://music.youtube.com/watch?v="
	youtubeWatchURL  string = "https://www.youtube.com/watch?v="
)

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a song result in YouTube Music search responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"` // Duration in seconds
	Thumbnails  []YouTubeImage  `json:"thumbnails"`
}

// YouTubeMusicService implements [TrackSearcher] for YouTube Music via proxy.
type YouTubeMusicService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeMusicService creates a new YouTube Music service instance.
//
// authFile is the optional path to a browser.json or oauth.json the proxy should use.
func NewYouTubeMusicService(baseURL, authFile string, client *http.Client) *YouTubeMusicService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeMusicService{
		baseURL:    baseURL,
		authFile:   authFile,
		httpClient: client,
	}
}

// Name returns the service name.
func (y *YouTubeMusicService) Name() string {
	return "YouTube Music"
}

// Provider implements [TrackSearcher].
func (y *YouTubeMusicService) Provider() models.Provider {
	return models.ProviderYouTubeMusic
}

func (y *YouTubeMusicService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := shared.ErrAPIRequest
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = shared.ErrInvalidCredentials
		}

		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music (status %d): %s", kind, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music status %d", kind, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Search implements [TrackSearcher].
//
// Calls GET /api/search?q={query}&filter=songs&limit={limit} on the proxy.
func (y *YouTubeMusicService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "songs")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var tracks []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, "/api/search?"+params.Encode(), &tracks); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(tracks))
	for _, t := range tracks {
		if t.VideoID == "" {
			continue
		}
		results = append(results, t.toSearchResult())
		if limit > 0 && len(results) == limit {
			break
		}
	}

	return results, nil
}

func (t YouTubeTrack) toSearchResult() SearchResult {
	r := SearchResult{
		ID:          t.VideoID,
		Title:       t.Title,
		Duration:    t.DurationSec,
		URI:         ytMusicWatchURL + t.VideoID,
		PlaybackURL: youtubeWatchURL + t.VideoID,
	}
	if r.Duration == 0 && t.Duration != "" {
		r.Duration = parseClockDuration(t.Duration)
	}

	for _, a := range t.Artists {
		r.Artists = append(r.Artists, a.Name)
	}
	if t.Album != nil {
		r.Album = t.Album.Name
	}
	for _, img := range t.Thumbnails {
		r.Thumbnails = append(r.Thumbnails, models.Thumbnail{URL: img.URL, Width: img.Width, Height: img.Height})
	}

	return r
}

// parseClockDuration converts "m:ss" or "h:mm:ss" to seconds, returning 0 when malformed.
func parseClockDuration(s string) int {
	total := 0
	part := 0
	digits := 0
	for _, r := range s + ":" {
		switch {
		case r >= '0' && r <= '9':
			part = part*10 + int(r-'0')
			digits++
		case r == ':':
			if digits == 0 {
				return 0
			}
			total = total*60 + part
			part, digits = 0, 0
		default:
			return 0
		}
	}
	return total
}
