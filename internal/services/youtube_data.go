package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const musicCategoryID = "10"

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// YouTubeDataService implements [TrackSearcher] with the YouTube Data API v3.
//
// Used when no ytmusicapi proxy is available. Artist names come from the channel title, with the " - Topic" suffix of
// auto-generated music channels removed.
type YouTubeDataService struct {
	svc *youtube.Service
}

// NewYouTubeDataService creates the client. apiKey may be empty when opts already carry credentials.
func NewYouTubeDataService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeDataService, error) {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &YouTubeDataService{svc: svc}, nil
}

// Name returns the service name.
func (y *YouTubeDataService) Name() string {
	return "YouTube"
}

// Provider implements [TrackSearcher].
func (y *YouTubeDataService) Provider() models.Provider {
	return models.ProviderYouTubeMusic
}

// Search implements [TrackSearcher]. Durations are filled from a follow-up videos.list call.
func (y *YouTubeDataService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(musicCategoryID).
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, googleError(err)
	}

	results := make([]SearchResult, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		results = append(results, snippetResult(item.Id.VideoId, item.Snippet))
		ids = append(ids, item.Id.VideoId)
	}
	if len(ids) == 0 {
		return results, nil
	}

	videos, err := y.svc.Videos.List([]string{"contentDetails"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, googleError(err)
	}

	durations := make(map[string]int, len(videos.Items))
	for _, v := range videos.Items {
		if v.ContentDetails != nil {
			durations[v.Id] = parseISODuration(v.ContentDetails.Duration)
		}
	}
	for i := range results {
		results[i].Duration = durations[results[i].ID]
	}

	return results, nil
}

func snippetResult(videoID string, s *youtube.SearchResultSnippet) SearchResult {
	r := SearchResult{
		ID:          videoID,
		Title:       s.Title,
		URI:         ytMusicWatchURL + videoID,
		PlaybackURL: youtubeWatchURL + videoID,
	}
	if artist := strings.TrimSuffix(s.ChannelTitle, " - Topic"); artist != "" {
		r.Artists = []string{artist}
	}

	if t := s.Thumbnails; t != nil {
		for _, th := range []*youtube.Thumbnail{t.Default, t.Medium, t.High} {
			if th != nil && th.Url != "" {
				r.Thumbnails = append(r.Thumbnails, models.Thumbnail{URL: th.Url, Width: int(th.Width), Height: int(th.Height)})
			}
		}
	}

	return r
}

// googleError classifies a YouTube Data API error. Rejected keys map to [shared.ErrInvalidCredentials].
func googleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: youtube: %v", shared.ErrServiceUnavailable, err)
	}

	if gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: youtube: %s", shared.ErrInvalidCredentials, gerr.Message)
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "keyInvalid", "keyExpired", "authError", "forbidden":
			return fmt.Errorf("%w: youtube: %s", shared.ErrInvalidCredentials, gerr.Message)
		}
	}

	return fmt.Errorf("%w: youtube (status %d): %s", shared.ErrAPIRequest, gerr.Code, gerr.Message)
}

// parseISODuration converts an ISO 8601 duration such as PT4M13S to seconds.
func parseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * unit
	}
	return total
}
