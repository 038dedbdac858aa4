package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	tu "github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/testing"
)

func TestYouTubeMusicService(t *testing.T) {
	t.Run("NewYouTubeMusicService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewYouTubeMusicService("", "", nil); svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
		})

		t.Run("creates service with custom URL", func(t *testing.T) {
			customURL := "http://localhost:9000"
			if svc := NewYouTubeMusicService(customURL, "", nil); svc.baseURL != customURL {
				t.Errorf("expected baseURL to be %s, got %s", customURL, svc.baseURL)
			}
		})
	})

	t.Run("Provider", func(t *testing.T) {
		svc := NewYouTubeMusicService("", "", nil)
		if svc.Provider() != models.ProviderYouTubeMusic {
			t.Errorf("expected provider youtube_music, got %s", svc.Provider())
		}
		if svc.Name() != "YouTube Music" {
			t.Errorf("expected name to be 'YouTube Music', got %s", svc.Name())
		}
	})

	t.Run("Search", func(t *testing.T) {
		t.Run("maps song results", func(t *testing.T) {
			mockResults := []map[string]any{
				{
					"videoId":          "vid1",
					"title":            "Clair de Lune",
					"artists":          []map[string]string{{"name": "Claude Debussy", "id": "a1"}},
					"album":            map[string]string{"name": "Suite bergamasque", "id": "al1"},
					"duration":         "5:02",
					"duration_seconds": 302,
					"thumbnails":       []map[string]any{{"url": "https://img/1.jpg", "width": 60, "height": 60}},
				},
				{
					"videoId":  "vid2",
					"title":    "Gymnopédie No. 1",
					"artists":  []map[string]string{{"name": "Erik Satie"}, {"name": "Pascal Rogé"}},
					"duration": "1:03:05",
				},
				{"title": "No video id"},
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/search" {
					t.Errorf("expected path /api/search, got %s", r.URL.Path)
				}
				if q := r.URL.Query().Get("q"); q != "Clair de Lune Debussy" {
					t.Errorf("expected query to be passed through, got %q", q)
				}
				if f := r.URL.Query().Get("filter"); f != "songs" {
					t.Errorf("expected filter=songs, got %q", f)
				}
				if r.Header.Get("X-Auth-File") != "/path/browser.json" {
					t.Errorf("expected auth file header, got %q", r.Header.Get("X-Auth-File"))
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(mockResults)
			}))
			defer server.Close()

			svc := NewYouTubeMusicService(server.URL, "/path/browser.json", nil)
			results, err := svc.Search(context.Background(), "Clair de Lune Debussy", 5)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(results) != 2 {
				t.Fatalf("expected 2 results, got %d", len(results))
			}

			first := results[0]
			if first.ID != "vid1" || first.Duration != 302 || first.Album != "Suite bergamasque" {
				t.Errorf("unexpected first result %+v", first)
			}
			if first.URI != "https://music.youtube.com/watch?v=vid1" {
				t.Errorf("unexpected URI %s", first.URI)
			}
			if len(first.Thumbnails) != 1 || first.Thumbnails[0].Width != 60 {
				t.Errorf("unexpected thumbnails %+v", first.Thumbnails)
			}

			second := results[1]
			if second.Artist() != "Erik Satie, Pascal Rogé" {
				t.Errorf("expected joined artists, got %q", second.Artist())
			}
			if second.Duration != 3785 {
				t.Errorf("expected duration parsed from clock string, got %d", second.Duration)
			}
		})

		t.Run("respects limit", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("limit") != "1" {
					t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
				}
				json.NewEncoder(w).Encode([]map[string]any{{"videoId": "a"}, {"videoId": "b"}})
			}))
			defer server.Close()

			results, err := NewYouTubeMusicService(server.URL, "", nil).Search(context.Background(), "q", 1)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(results) != 1 {
				t.Errorf("expected 1 result, got %d", len(results))
			}
		})

		t.Run("classifies errors", func(t *testing.T) {
			tc := []struct {
				name   string
				status int
				body   string
				want   error
			}{
				{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail": "bad auth file"}`, want: shared.ErrInvalidCredentials},
				{name: "forbidden", status: http.StatusForbidden, body: `{}`, want: shared.ErrInvalidCredentials},
				{name: "server error", status: http.StatusInternalServerError, body: `{"detail": "boom"}`, want: shared.ErrAPIRequest},
				{name: "bad json", status: http.StatusOK, body: `not json`, want: shared.ErrAPIRequest},
			}

			for _, tt := range tc {
				t.Run(tt.name, func(t *testing.T) {
					client := &http.Client{Transport: tu.NewMockRoundTripper(tu.JSONResponse(tt.status, tt.body), nil)}
					_, err := NewYouTubeMusicService("http://proxy", "", client).Search(context.Background(), "q", 5)
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
				})
			}
		})

		t.Run("transport failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			_, err := NewYouTubeMusicService("http://proxy", "", client).Search(context.Background(), "q", 5)
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
			if shared.IsCredentialError(err) {
				t.Error("transport failure must not be a credential error")
			}
		})
	})

	t.Run("parseClockDuration", func(t *testing.T) {
		tc := map[string]int{"3:25": 205, "1:00:00": 3600, "45": 45, "": 0, "a:bc": 0, "3::1": 0}
		for in, want := range tc {
			if got := parseClockDuration(in); got != want {
				t.Errorf("parseClockDuration(%q) = %d, want %d", in, got, want)
			}
		}
	})
}
