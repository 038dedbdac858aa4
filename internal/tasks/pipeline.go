package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/cache"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repair"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
)

// Status summarizes how many candidates were resolved.
type Status string

const (
	StatusSuccess Status = "success" // every candidate resolved
	StatusPartial Status = "partial" // at least one resolved, some missing
)

// GenerateRequest is one playlist generation call.
type GenerateRequest struct {
	Description        string `json:"description" validate:"required,max=1000"`
	Language           string `json:"language,omitempty" validate:"max=50"`
	CreateSpotify      bool   `json:"createSpotify,omitempty"`
	ProviderCredential string `json:"-"` // Spotify user access token, never serialized
}

// GenerateResult contains the assembled playlist and the outcome of the Spotify side channel.
type GenerateResult struct {
	Playlist   *models.GeneratedPlaylist `json:"playlist"`
	Status     Status                    `json:"status"`
	FoundRatio float64                   `json:"foundRatio"`
	Mood       string                    `json:"mood,omitempty"`
	Fallback   bool                      `json:"fallback"`
	Strategy   repair.Strategy           `json:"parseStrategy"`

	Spotify                *models.SpotifyPlaylistRef `json:"spotify,omitempty"`
	SpotifyTracks          []models.ResolvedTrack     `json:"spotifyTracks,omitempty"`
	SpotifyError           string                     `json:"spotifyError,omitempty"`
	SpotifyCredentialError bool                       `json:"spotifyCredentialError,omitempty"`
}

// PlaylistGenerator is the pipeline entry point used by the HTTP server, the CLI and the TUI.
type PlaylistGenerator interface {
	Generate(ctx context.Context, req GenerateRequest, progress chan<- ProgressUpdate) (*GenerateResult, error)
	Playlist(id string) (*models.GeneratedPlaylist, error)
	Forget(id string) bool
}

var _ PlaylistGenerator = (*Pipeline)(nil)

// SpotifyClient is everything the Spotify branch needs from one authorized client.
type SpotifyClient interface {
	services.TrackSearcher
	services.SpotifyLibrary
}

// SpotifyConnector opens a client for auth.
type SpotifyConnector func(ctx context.Context, auth services.SpotifyAuth) (SpotifyClient, error)

// ConnectSpotify is the default [SpotifyConnector].
func ConnectSpotify(ctx context.Context, auth services.SpotifyAuth) (SpotifyClient, error) {
	return services.NewSpotifyService(ctx, auth)
}

// PipelineDeps contains the collaborators of a [Pipeline].
type PipelineDeps struct {
	Generator    *Generator
	YouTube      *Resolver                               // Mandatory provider
	Playlists    *cache.Cache[*models.GeneratedPlaylist] // Assembled playlists by ID
	Searches     *cache.Cache[models.ResolvedTrack]      // Shared with per-call Spotify resolvers
	ResolverOpts ResolverOpts                            // Applied to per-call Spotify resolvers
	Refiner      *Refiner                                // nil disables refinement
	SpotifyApp   shared.SpotifyConfig                    // Client credentials, may be empty
	Connect      SpotifyConnector                        // nil disables the Spotify branch
	Logger       *log.Logger
	Clock        func() time.Time
}

// Pipeline runs description → candidates → resolution → playlist, with an optional Spotify side channel.
type Pipeline struct {
	generator    *Generator
	youtube      *Resolver
	playlists    *cache.Cache[*models.GeneratedPlaylist]
	searches     *cache.Cache[models.ResolvedTrack]
	resolverOpts ResolverOpts
	refiner      *Refiner
	spotifyApp   shared.SpotifyConfig
	connect      SpotifyConnector
	validator    *shared.Validator
	logger       *log.Logger
	now          func() time.Time
}

// NewPipeline creates a Pipeline from deps.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = shared.DiscardLogger()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Playlists == nil {
		deps.Playlists = cache.New[*models.GeneratedPlaylist](cache.Options{Name: "playlists", Logger: deps.Logger})
	}
	return &Pipeline{
		generator:    deps.Generator,
		youtube:      deps.YouTube,
		playlists:    deps.Playlists,
		searches:     deps.Searches,
		resolverOpts: deps.ResolverOpts,
		refiner:      deps.Refiner,
		spotifyApp:   deps.SpotifyApp,
		connect:      deps.Connect,
		validator:    shared.NewValidator(),
		logger:       deps.Logger.With("component", "pipeline"),
		now:          deps.Clock,
	}
}

type spotifyOutcome struct {
	ref    *models.SpotifyPlaylistRef
	tracks []models.ResolvedTrack
	err    error
}

// Generate runs the pipeline for req.
//
// Errors: [shared.ErrInvalidInput], [shared.ErrGenerationFailed], [shared.ErrNoMatches] or a credential error from
// the YouTube provider. Spotify failures never fail the call; they are reported on the result.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest, progress chan<- ProgressUpdate) (*GenerateResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := p.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	draft, err := p.generator.Generate(ctx, req.Description, req.Language, progress)
	if err != nil {
		return nil, err
	}

	var spotifyDone chan spotifyOutcome
	spotifyCtx, cancelSpotify := context.WithCancel(ctx)
	defer cancelSpotify()

	if auth, ok := p.spotifyAuth(req); ok {
		spotifyDone = make(chan spotifyOutcome, 1)
		go func() {
			spotifyDone <- p.runSpotify(spotifyCtx, auth, req.Description, draft, progress)
		}()
	}

	// Stop the side channel before returning so nothing is sent on progress after the caller closes it.
	abort := func(err error) (*GenerateResult, error) {
		if spotifyDone != nil {
			cancelSpotify()
			<-spotifyDone
		}
		return nil, err
	}

	tracks, resolveErr := p.youtube.resolveMany(ctx, draft.Songs, progress, ResolveTracks)
	found := Found(tracks)
	if len(found) == 0 {
		if resolveErr != nil {
			return abort(resolveErr)
		}
		return abort(fmt.Errorf("%w: 0 of %d candidates", shared.ErrNoMatches, len(draft.Songs)))
	}
	if resolveErr != nil {
		p.logger.Warn("some searches failed", "error", resolveErr)
	}

	playlist := &models.GeneratedPlaylist{
		ID:                 shared.GenerateID(),
		Title:              draft.Title,
		Description:        draft.Description,
		Songs:              found,
		OriginalSongsCount: len(draft.Songs),
		TotalSongs:         len(found),
		CreatedAt:          p.now().UTC(),
	}
	p.playlists.Put(playlist.ID, playlist.Clone())
	sendProgress(progress, assembleUpdate(playlist))

	result := &GenerateResult{
		Playlist:   playlist,
		Status:     StatusSuccess,
		FoundRatio: float64(len(found)) / float64(len(draft.Songs)),
		Mood:       draft.Mood,
		Fallback:   draft.Fallback,
		Strategy:   draft.Strategy,
	}
	if len(found) < len(draft.Songs) {
		result.Status = StatusPartial
	}

	if spotifyDone != nil {
		out := <-spotifyDone
		result.Spotify = out.ref
		result.SpotifyTracks = out.tracks
		if out.err != nil {
			p.logger.Warn("spotify side channel failed", "error", out.err)
			result.SpotifyError = out.err.Error()
			result.SpotifyCredentialError = shared.IsCredentialError(out.err)
		}
	}

	p.logger.Info("playlist generated",
		"id", playlist.ID, "status", result.Status, "found", len(found), "candidates", len(draft.Songs),
		"mood", draft.Mood, "fallback", draft.Fallback, "spotify", result.Spotify != nil)
	return result, nil
}

// Playlist returns a copy of a cached playlist.
func (p *Pipeline) Playlist(id string) (*models.GeneratedPlaylist, error) {
	pl, ok := p.playlists.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return pl.Clone(), nil
}

// Forget drops a cached playlist and reports whether it was cached.
func (p *Pipeline) Forget(id string) bool {
	return p.playlists.Delete(id)
}

// spotifyAuth decides whether the Spotify branch runs. A user token always enables it. Client credentials only do
// when the caller asked for Spotify, since they cannot create playlists.
func (p *Pipeline) spotifyAuth(req GenerateRequest) (services.SpotifyAuth, bool) {
	if p.connect == nil {
		return services.SpotifyAuth{}, false
	}
	auth, ok := services.ResolveSpotifyAuth(req.ProviderCredential, p.spotifyApp)
	if !ok {
		return auth, false
	}
	return auth, auth.Mode == services.AuthUserToken || req.CreateSpotify
}

func (p *Pipeline) runSpotify(ctx context.Context, auth services.SpotifyAuth, description string, draft *Draft, progress chan<- ProgressUpdate) (out spotifyOutcome) {
	logger := p.logger.With("branch", "spotify", "mode", auth.Mode)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("spotify branch panicked", "panic", rec)
			out = spotifyOutcome{err: fmt.Errorf("%w: spotify branch panicked: %v", shared.ErrAPIRequest, rec)}
		}
	}()

	client, err := p.connect(ctx, auth)
	if err != nil {
		return spotifyOutcome{err: err}
	}

	resolver := NewResolver(client, p.searches, p.resolverOpts, p.logger)
	tracks, err := resolver.resolveMany(ctx, draft.Songs, progress, SpotifyResolve)
	if err != nil {
		return spotifyOutcome{err: err}
	}

	found := Found(tracks)
	if len(found) == 0 {
		return spotifyOutcome{err: fmt.Errorf("%w: spotify", shared.ErrNoMatches)}
	}

	refined := false
	if p.refiner != nil {
		sendProgress(progress, featuresUpdate(len(found)))
		if err := attachFeatures(ctx, client, found); err != nil {
			logger.Warn("audio features unavailable, keeping order", "error", err)
		} else {
			ordered, err := p.refiner.Refine(ctx, description, found)
			sendProgress(progress, refineUpdate(err))
			if err != nil {
				logger.Warn("refinement rejected, keeping order", "error", err)
			} else {
				found, refined = ordered, true
			}
		}
	}

	out.tracks = found
	if auth.Mode != services.AuthUserToken {
		return out
	}

	out.ref, out.err = createSpotifyPlaylist(ctx, client, draft, found, progress)
	if out.ref != nil {
		out.ref.Refined = refined
	}
	return out
}

// attachFeatures sets Features on tracks in place, fetching at most [services.MaxTracksPerRequest] ids per call.
func attachFeatures(ctx context.Context, lib services.SpotifyLibrary, tracks []models.ResolvedTrack) error {
	for start := 0; start < len(tracks); start += services.MaxTracksPerRequest {
		end := min(start+services.MaxTracksPerRequest, len(tracks))

		ids := make([]string, 0, end-start)
		for _, t := range tracks[start:end] {
			ids = append(ids, t.ProviderID)
		}

		features, err := lib.AudioFeatures(ctx, ids)
		if err != nil {
			return err
		}
		for i, f := range features {
			if start+i < end {
				tracks[start+i].Features = f
			}
		}
	}
	return nil
}

// createSpotifyPlaylist creates a private playlist for the token owner and adds tracks in chunks.
func createSpotifyPlaylist(ctx context.Context, lib services.SpotifyLibrary, draft *Draft, tracks []models.ResolvedTrack, progress chan<- ProgressUpdate) (*models.SpotifyPlaylistRef, error) {
	profile, err := lib.Profile(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := lib.CreatePlaylist(ctx, profile.ID, draft.Title, draft.Description, false)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, createPlaylistUpdate(ref))

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}

	chunks := (len(uris) + services.MaxTracksPerRequest - 1) / services.MaxTracksPerRequest
	for i := range chunks {
		start := i * services.MaxTracksPerRequest
		end := min(start+services.MaxTracksPerRequest, len(uris))
		if err := lib.AddTracks(ctx, ref.ID, uris[start:end]); err != nil {
			return ref, fmt.Errorf("playlist %s created but adding tracks failed: %w", ref.ID, err)
		}
		ref.TrackCount += end - start
		sendProgress(progress, addTracksUpdate(i+1, chunks, end-start))
	}

	return ref, nil
}
