package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repositories"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	tu "github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/testing"
)

type fakePipeline struct {
	result    *tasks.GenerateResult
	err       error
	requests  []tasks.GenerateRequest
	playlists map[string]*models.GeneratedPlaylist
}

func (f *fakePipeline) Generate(_ context.Context, req tasks.GenerateRequest, _ chan<- tasks.ProgressUpdate) (*tasks.GenerateResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePipeline) Playlist(id string) (*models.GeneratedPlaylist, error) {
	if pl, ok := f.playlists[id]; ok {
		return pl, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

func (f *fakePipeline) Forget(id string) bool {
	_, ok := f.playlists[id]
	delete(f.playlists, id)
	return ok
}

type fakeArchive struct {
	records   []*repositories.Record
	createErr error
	listOpts  []repositories.ListOptions
}

func (f *fakeArchive) Create(_ context.Context, rec *repositories.Record) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeArchive) Get(_ context.Context, id string) (*models.GeneratedPlaylist, error) {
	for _, rec := range f.records {
		if rec.Playlist.ID == id {
			return rec.Playlist, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

func (f *fakeArchive) Delete(_ context.Context, id string) error {
	for i, rec := range f.records {
		if rec.Playlist.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

func (f *fakeArchive) List(_ context.Context, opts repositories.ListOptions) ([]*repositories.Record, error) {
	f.listOpts = append(f.listOpts, opts)
	return f.records, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func samplePlaylist(id string) *models.GeneratedPlaylist {
	return &models.GeneratedPlaylist{
		ID:    id,
		Title: "Evening Calm",
		Songs: []models.ResolvedTrack{{
			TrackCandidate: models.TrackCandidate{Title: "Clair de Lune", Artist: "Claude Debussy"},
			Found:          true,
			Provider:       models.ProviderYouTubeMusic,
			ProviderID:     "abc",
		}},
		OriginalSongsCount: 1,
		TotalSongs:         1,
		CreatedAt:          time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger, _ := tu.BufferLogger()
	opts.Logger = logger
	if opts.Config.AllowedOrigins == nil {
		opts.Config.AllowedOrigins = []string{"http://localhost:5173"}
	}
	return NewServer(opts)
}

func do(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Success bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestServer_Health(t *testing.T) {
	t.Run("healthy without an upstream check", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: &fakePipeline{}})
		rec := do(s, http.MethodGet, "/health", "", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var health HealthResponse
		if env := decodeEnvelope(t, rec, &health); !env.Success {
			t.Error("expected success envelope")
		}
		if health.Status != "healthy" || health.Archive {
			t.Errorf("unexpected health %+v", health)
		}
	})

	t.Run("degraded when the proxy is down", func(t *testing.T) {
		s := newTestServer(t, Options{
			Pipeline: &fakePipeline{},
			Health:   fakePinger{err: fmt.Errorf("%w: connection refused", shared.ErrServiceUnavailable)},
			Archive:  &fakeArchive{},
		})
		rec := do(s, http.MethodGet, "/health", "", nil)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		var health HealthResponse
		decodeEnvelope(t, rec, &health)
		if health.Status != "degraded" || !health.Archive || !strings.Contains(health.Error, "connection refused") {
			t.Errorf("unexpected health %+v", health)
		}
	})
}

func TestServer_Moods(t *testing.T) {
	s := newTestServer(t, Options{Pipeline: &fakePipeline{}})
	rec := do(s, http.MethodGet, "/api/moods", "", nil)

	var tags []string
	decodeEnvelope(t, rec, &tags)
	if len(tags) != len(tasks.MoodTags()) {
		t.Errorf("expected %d tags, got %v", len(tasks.MoodTags()), tags)
	}
}

func TestServer_Generate(t *testing.T) {
	t.Run("returns and archives the result", func(t *testing.T) {
		pipeline := &fakePipeline{result: &tasks.GenerateResult{
			Playlist:   samplePlaylist("pl-1"),
			Status:     tasks.StatusPartial,
			FoundRatio: 0.5,
			Mood:       "calm",
			Spotify:    &models.SpotifyPlaylistRef{ID: "sp", URL: "https://open.spotify.com/playlist/sp"},
		}}
		archive := &fakeArchive{}
		s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})

		rec := do(s, http.MethodPost, "/api/playlists/generate",
			`{"description":"a calm evening","language":"es","createSpotify":true}`,
			map[string]string{"Authorization": "Bearer user-token", "Content-Type": "application/json"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "user-token") {
			t.Error("provider credential must not be echoed")
		}

		var result tasks.GenerateResult
		decodeEnvelope(t, rec, &result)
		if result.Status != tasks.StatusPartial || result.Playlist.ID != "pl-1" || result.FoundRatio != 0.5 {
			t.Errorf("unexpected result %+v", result)
		}

		req := pipeline.requests[0]
		if req.Description != "a calm evening" || req.Language != "es" || !req.CreateSpotify || req.ProviderCredential != "user-token" {
			t.Errorf("unexpected request %+v", req)
		}

		if len(archive.records) != 1 {
			t.Fatalf("expected 1 archived record, got %d", len(archive.records))
		}
		got := archive.records[0]
		if got.Mood != "calm" || got.Language != "es" || got.Status != "partial" || got.SpotifyURL != "https://open.spotify.com/playlist/sp" {
			t.Errorf("unexpected record %+v", got)
		}
		if got.Playlist == pipeline.result.Playlist {
			t.Error("archive must receive a copy of the playlist")
		}
	})

	t.Run("archive failure does not fail the request", func(t *testing.T) {
		pipeline := &fakePipeline{result: &tasks.GenerateResult{Playlist: samplePlaylist("pl-1"), Status: tasks.StatusSuccess}}
		s := newTestServer(t, Options{Pipeline: pipeline, Archive: &fakeArchive{createErr: errors.New("disk full")}})

		rec := do(s, http.MethodPost, "/api/playlists/generate", `{"description":"rain"}`, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("ignores non-bearer authorization", func(t *testing.T) {
		pipeline := &fakePipeline{result: &tasks.GenerateResult{Playlist: samplePlaylist("pl-1")}}
		s := newTestServer(t, Options{Pipeline: pipeline})

		do(s, http.MethodPost, "/api/playlists/generate", `{"description":"rain"}`, map[string]string{"Authorization": "Basic abc"})
		if pipeline.requests[0].ProviderCredential != "" {
			t.Errorf("expected no credential, got %q", pipeline.requests[0].ProviderCredential)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		pipeline := &fakePipeline{}
		s := newTestServer(t, Options{Pipeline: pipeline})

		for name, body := range map[string]string{
			"not json":  `{description`,
			"too large": `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
		} {
			rec := do(s, http.MethodPost, "/api/playlists/generate", body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", name, rec.Code)
			}
		}
		if len(pipeline.requests) != 0 {
			t.Errorf("pipeline should not run for invalid bodies, got %d calls", len(pipeline.requests))
		}
	})

	t.Run("maps pipeline errors", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{fmt.Errorf("%w: description is required", shared.ErrInvalidInput), http.StatusBadRequest},
			{fmt.Errorf("%w: youtube", shared.ErrTokenExpired), http.StatusUnauthorized},
			{shared.ErrNoMatches, http.StatusNotFound},
			{fmt.Errorf("%w: both attempts", shared.ErrGenerationFailed), http.StatusBadGateway},
			{fmt.Errorf("%w: proxy down", shared.ErrServiceUnavailable), http.StatusServiceUnavailable},
			{context.DeadlineExceeded, http.StatusGatewayTimeout},
			{errors.New("boom"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			s := newTestServer(t, Options{Pipeline: &fakePipeline{err: tt.err}})
			rec := do(s, http.MethodPost, "/api/playlists/generate", `{"description":"rain"}`, nil)

			if rec.Code != tt.want {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
			}
			env := decodeEnvelope(t, rec, nil)
			if env.Success || env.Error == "" {
				t.Errorf("%v: expected an error envelope, got %+v", tt.err, env)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(env.Error, "boom") {
				t.Error("internal error details must not leak")
			}
		}
	})
}

func TestServer_GetPlaylist(t *testing.T) {
	pipeline := &fakePipeline{playlists: map[string]*models.GeneratedPlaylist{"cached": samplePlaylist("cached")}}
	archive := &fakeArchive{records: []*repositories.Record{{Playlist: samplePlaylist("archived")}}}

	t.Run("from the cache", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})
		rec := do(s, http.MethodGet, "/api/playlists/cached", "", nil)

		var pl models.GeneratedPlaylist
		decodeEnvelope(t, rec, &pl)
		if rec.Code != http.StatusOK || pl.ID != "cached" || len(pl.Songs) != 1 {
			t.Errorf("unexpected response %d %+v", rec.Code, pl)
		}
	})

	t.Run("falls back to the archive", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})
		rec := do(s, http.MethodGet, "/api/playlists/archived", "", nil)

		var pl models.GeneratedPlaylist
		decodeEnvelope(t, rec, &pl)
		if rec.Code != http.StatusOK || pl.ID != "archived" {
			t.Errorf("unexpected response %d %+v", rec.Code, pl)
		}
	})

	t.Run("not found", func(t *testing.T) {
		for name, archive := range map[string]Archive{"with archive": archive, "without archive": nil} {
			s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})
			rec := do(s, http.MethodGet, "/api/playlists/missing", "", nil)
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", name, rec.Code)
			}
		}
	})
}

func TestServer_DeletePlaylist(t *testing.T) {
	newFixtures := func() (*fakePipeline, *fakeArchive) {
		pipeline := &fakePipeline{playlists: map[string]*models.GeneratedPlaylist{
			"both":   samplePlaylist("both"),
			"cached": samplePlaylist("cached"),
		}}
		archive := &fakeArchive{records: []*repositories.Record{
			{Playlist: samplePlaylist("both")},
			{Playlist: samplePlaylist("archived")},
		}}
		return pipeline, archive
	}

	for _, id := range []string{"both", "cached", "archived"} {
		t.Run(id, func(t *testing.T) {
			pipeline, archive := newFixtures()
			s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})

			rec := do(s, http.MethodDelete, "/api/playlists/"+id, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := do(s, http.MethodGet, "/api/playlists/"+id, "", nil); got.Code != http.StatusNotFound {
				t.Errorf("expected deleted playlist to be gone, got %d", got.Code)
			}
		})
	}

	t.Run("not found", func(t *testing.T) {
		pipeline, archive := newFixtures()
		for name, archive := range map[string]Archive{"with archive": archive, "without archive": nil} {
			s := newTestServer(t, Options{Pipeline: pipeline, Archive: archive})
			if rec := do(s, http.MethodDelete, "/api/playlists/missing", "", nil); rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", name, rec.Code)
			}
		}
	})
}

func TestServer_ListPlaylists(t *testing.T) {
	t.Run("summaries", func(t *testing.T) {
		archive := &fakeArchive{records: []*repositories.Record{
			{Sequence: 2, Playlist: samplePlaylist("b"), Mood: "calm", Status: "success"},
			{Sequence: 1, Playlist: samplePlaylist("a"), Status: "partial", SpotifyURL: "https://open.spotify.com/playlist/a"},
		}}
		s := newTestServer(t, Options{Pipeline: &fakePipeline{}, Archive: archive})

		rec := do(s, http.MethodGet, "/api/playlists?mood=calm", "", nil)
		var summaries []PlaylistSummary
		decodeEnvelope(t, rec, &summaries)

		if len(summaries) != 2 || summaries[0].ID != "b" || summaries[0].Sequence != 2 || summaries[1].SpotifyURL == "" {
			t.Errorf("unexpected summaries %+v", summaries)
		}
		if opts := archive.listOpts[0]; opts.Mood != "calm" || opts.Limit != defaultListLimit {
			t.Errorf("unexpected list options %+v", opts)
		}
	})

	t.Run("limit", func(t *testing.T) {
		archive := &fakeArchive{}
		s := newTestServer(t, Options{Pipeline: &fakePipeline{}, Archive: archive})

		do(s, http.MethodGet, "/api/playlists?limit=1000", "", nil)
		if archive.listOpts[0].Limit != maxListLimit {
			t.Errorf("expected limit capped at %d, got %d", maxListLimit, archive.listOpts[0].Limit)
		}

		for _, raw := range []string{"0", "-1", "ten"} {
			rec := do(s, http.MethodGet, "/api/playlists?limit="+raw, "", nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit %q: expected 400, got %d", raw, rec.Code)
			}
		}
	})

	t.Run("without archive", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: &fakePipeline{}})
		rec := do(s, http.MethodGet, "/api/playlists", "", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}

func TestServer_Middleware(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		s := newTestServer(t, Options{
			Pipeline: &fakePipeline{},
			Config:   shared.ServerConfig{RateLimitRPS: 0.001, RateLimitBurst: 2},
		})

		headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}
		for i := range 2 {
			if rec := do(s, http.MethodGet, "/api/moods", "", headers); rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
			}
		}

		rec := do(s, http.MethodGet, "/api/moods", "", headers)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}

		other := do(s, http.MethodGet, "/api/moods", "", map[string]string{"X-Forwarded-For": "203.0.113.8"})
		if other.Code != http.StatusOK {
			t.Errorf("other clients should not be limited, got %d", other.Code)
		}

		if health := do(s, http.MethodGet, "/health", "", headers); health.Code != http.StatusOK {
			t.Errorf("health should not be limited, got %d", health.Code)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: &fakePipeline{}})
		rec := do(s, http.MethodOptions, "/api/playlists/generate", "", map[string]string{
			"Origin":                        "http://localhost:5173",
			"Access-Control-Request-Method": http.MethodPost,
		})

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("expected allowed origin header, got %q", got)
		}
	})

	t.Run("recovers from panics", func(t *testing.T) {
		s := newTestServer(t, Options{Pipeline: nil})
		rec := do(s, http.MethodGet, "/api/playlists/x", "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrMissingArgument, http.StatusBadRequest},
		{shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: pl-1", shared.ErrPlaylistNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: 500", shared.ErrAPIRequest), http.StatusBadGateway},
		{shared.ErrMissingCredentials, http.StatusServiceUnavailable},
		{fmt.Errorf("search: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
