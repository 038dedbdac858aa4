package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"google.golang.org/api/option"
)

func newYouTubeDataTestService(t *testing.T, handler http.HandlerFunc) *YouTubeDataService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewYouTubeDataService(context.Background(), "",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestYouTubeDataService(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		svc := newYouTubeDataTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.HasSuffix(r.URL.Path, "/search"):
				if r.URL.Query().Get("q") != "Bolero Ravel" {
					t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
				}
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{
							"id": map[string]string{"kind": "youtube#video", "videoId": "v1"},
							"snippet": map[string]any{
								"title":        "Boléro",
								"channelTitle": "Maurice Ravel - Topic",
								"thumbnails": map[string]any{
									"default": map[string]any{"url": "https://i.ytimg.com/v1.jpg", "width": 120, "height": 90},
								},
							},
						},
						{"id": map[string]string{"kind": "youtube#channel", "channelId": "c1"}, "snippet": map[string]any{"title": "x"}},
					},
				})
			case strings.HasSuffix(r.URL.Path, "/videos"):
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{"id": "v1", "contentDetails": map[string]string{"duration": "PT15M50S"}},
					},
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		})

		results, err := svc.Search(context.Background(), "Bolero Ravel", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 video result, got %d", len(results))
		}

		r := results[0]
		if r.Artist() != "Maurice Ravel" {
			t.Errorf("expected topic suffix stripped, got %q", r.Artist())
		}
		if r.Duration != 950 {
			t.Errorf("expected 950s, got %d", r.Duration)
		}
		if len(r.Thumbnails) != 1 || r.Thumbnails[0].Height != 90 {
			t.Errorf("unexpected thumbnails %+v", r.Thumbnails)
		}
	})

	t.Run("invalid key is a credential error", func(t *testing.T) {
		svc := newYouTubeDataTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid.", "errors": [{"reason": "keyInvalid", "message": "API key not valid."}]}}`))
		})

		_, err := svc.Search(context.Background(), "q", 5)
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("quota error is an api error", func(t *testing.T) {
		svc := newYouTubeDataTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))
		})

		_, err := svc.Search(context.Background(), "q", 5)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("parseISODuration", func(t *testing.T) {
		tc := map[string]int{"PT4M13S": 253, "PT1H2M": 3720, "PT45S": 45, "P1DT1S": 86401, "garbage": 0}
		for in, want := range tc {
			if got := parseISODuration(in); got != want {
				t.Errorf("parseISODuration(%q) = %d, want %d", in, got, want)
			}
		}
	})
}
