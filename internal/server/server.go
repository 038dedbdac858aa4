package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repositories"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	maxBodyBytes     = 16 << 10
	defaultListLimit = 20
	maxListLimit     = 100
	limiterTTL       = 10 * time.Minute
)

// Archive stores generated playlists beyond the cache lifetime.
type Archive interface {
	Create(ctx context.Context, rec *repositories.Record) error
	Get(ctx context.Context, id string) (*models.GeneratedPlaylist, error)
	List(ctx context.Context, opts repositories.ListOptions) ([]*repositories.Record, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether an upstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options contains the collaborators of a [Server]. Archive and Health are optional.
type Options struct {
	Pipeline tasks.PlaylistGenerator
	Archive  Archive
	Health   Pinger
	Config   shared.ServerConfig
	Logger   *log.Logger
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	pipeline tasks.PlaylistGenerator
	archive  Archive
	health   Pinger
	config   shared.ServerConfig
	limiter  *KeyedRateLimiter
	router   *chi.Mux
	logger   *log.Logger
}

// NewServer creates a Server with all routes configured.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	s := &Server{
		pipeline: opts.Pipeline,
		archive:  opts.Archive,
		health:   opts.Health,
		config:   opts.Config,
		router:   chi.NewRouter(),
		logger:   opts.Logger.With("component", "server"),
	}
	if opts.Config.RateLimitRPS > 0 {
		s.limiter = NewKeyedRateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst, limiterTTL)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter, s.logger))
		}
		r.Get("/moods", s.handleMoods)
		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleListPlaylists)
			r.Post("/generate", s.handleGenerate)
			r.Get("/{id}", s.handleGetPlaylist)
			r.Delete("/{id}", s.handleDeletePlaylist)
		})
	})
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepDone := make(chan struct{})
	defer close(sweepDone)
	if s.limiter != nil {
		go s.sweepLimiter(sweepDone)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) sweepLimiter(done <-chan struct{}) {
	ticker := time.NewTicker(limiterTTL)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(); n > 0 {
				s.logger.Debug("rate limiter swept", "dropped", n)
			}
		}
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Archive bool   `json:"archive"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Archive: s.archive != nil}
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			resp.Status, resp.Error = "degraded", err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp, s.logger)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}

func (s *Server) handleMoods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tasks.MoodTags(), s.logger)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req tasks.GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", s.logger)
		return
	}
	req.ProviderCredential = bearerToken(r)

	result, err := s.pipeline.Generate(r.Context(), req, nil)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}

	s.archiveResult(r.Context(), req, result)
	writeJSON(w, http.StatusOK, result, s.logger)
}

// archiveResult stores result when an archive is configured. Failures are logged and never fail the request.
func (s *Server) archiveResult(ctx context.Context, req tasks.GenerateRequest, result *tasks.GenerateResult) {
	if s.archive == nil {
		return
	}
	rec := &repositories.Record{
		Playlist: result.Playlist.Clone(),
		Mood:     result.Mood,
		Language: req.Language,
		Status:   string(result.Status),
	}
	if result.Spotify != nil {
		rec.SpotifyURL = result.Spotify.URL
	}
	if err := s.archive.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to archive playlist", "id", result.Playlist.ID, "error", err)
	}
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pl, err := s.pipeline.Playlist(id)
	if errors.Is(err, shared.ErrPlaylistNotFound) && s.archive != nil {
		pl, err = s.archive.Get(r.Context(), id)
	}
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, pl, s.logger)
}

// handleDeletePlaylist drops a playlist from the cache and soft-deletes its archived copy.
// It is not found only when neither held it.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cached := s.pipeline.Forget(id)
	if s.archive != nil {
		err := s.archive.Delete(r.Context(), id)
		if err != nil && (!cached || !errors.Is(err, shared.ErrPlaylistNotFound)) {
			handleError(w, err, s.logger)
			return
		}
	} else if !cached {
		handleError(w, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id), s.logger)
		return
	}

	s.logger.Info("deleted playlist", "id", id, "cached", cached)
	writeJSON(w, http.StatusOK, map[string]string{"id": id}, s.logger)
}

// PlaylistSummary is one entry of GET /api/playlists.
type PlaylistSummary struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	Title      string    `json:"title"`
	Mood       string    `json:"mood,omitempty"`
	Status     string    `json:"status"`
	TotalSongs int       `json:"totalSongs"`
	SpotifyURL string    `json:"spotifyUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		handleError(w, fmt.Errorf("%w: no playlist archive configured", shared.ErrServiceUnavailable), s.logger)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", s.logger)
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := s.archive.List(r.Context(), repositories.ListOptions{Mood: r.URL.Query().Get("mood"), Limit: limit})
	if err != nil {
		handleError(w, err, s.logger)
		return
	}

	summaries := make([]PlaylistSummary, len(records))
	for i, rec := range records {
		summaries[i] = PlaylistSummary{
			ID:         rec.Playlist.ID,
			Sequence:   rec.Sequence,
			Title:      rec.Playlist.Title,
			Mood:       rec.Mood,
			Status:     rec.Status,
			TotalSongs: rec.Playlist.TotalSongs,
			SpotifyURL: rec.SpotifyURL,
			CreatedAt:  rec.Playlist.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, summaries, s.logger)
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
