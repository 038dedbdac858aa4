package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/formatter"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repositories"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Generate runs the pipeline for a mood description and prints the playlist.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	description := strings.TrimSpace(cmd.StringArg("description"))
	if description == "" {
		return fmt.Errorf("%w: description is required", shared.ErrMissingArgument)
	}

	req := tasks.GenerateRequest{
		Description:        description,
		Language:           cmd.String("language"),
		CreateSpotify:      cmd.Bool("create-spotify"),
		ProviderCredential: cmd.String("spotify-token"),
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	if req.CreateSpotify && req.ProviderCredential == "" {
		token, err := r.savedSpotifyToken(ctx)
		if err != nil {
			r.logger.Warn("no usable spotify login, falling back to client credentials", "error", err)
		} else {
			req.ProviderCredential = token
		}
	}

	pipeline, err := r.playlistPipeline(ctx)
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if !asJSON {
				r.writeProgress(update)
			}
		}
	}()

	result, err := pipeline.Generate(ctx, req, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		if err := r.archive(ctx, req, result); err != nil {
			return err
		}
	}

	if asJSON {
		return r.writeJSON(result, true)
	}
	return r.writeResult(result, cmd.String("format"))
}

// savedSpotifyToken returns a valid access token from the saved login, refreshing and saving it when expired.
func (r *Runner) savedSpotifyToken(ctx context.Context) (string, error) {
	saved := r.config.Credentials.Spotify.Token()
	tok, err := services.FreshUserToken(ctx, r.oauth, saved)
	if err != nil {
		return "", err
	}
	if tok.AccessToken != saved.AccessToken {
		if err := r.saveTokens(tok); err != nil {
			r.logger.Warn("failed to save refreshed spotify token", "error", err)
		}
	}
	return tok.AccessToken, nil
}

// archive stores result in the local database.
func (r *Runner) archive(ctx context.Context, req tasks.GenerateRequest, result *tasks.GenerateResult) error {
	repo, db, err := r.openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	rec := &repositories.Record{
		Playlist: result.Playlist.Clone(),
		Mood:     result.Mood,
		Language: req.Language,
		Status:   string(result.Status),
	}
	if result.Spotify != nil {
		rec.SpotifyURL = result.Spotify.URL
	}
	if err := repo.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to archive playlist: %w", err)
	}

	r.logger.Info("playlist archived", "id", rec.Playlist.ID, "sequence", rec.Sequence)
	return nil
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.MoodDetection, tasks.GenerateCandidates:
		r.writePlain("• %s\n", update.Message)
	case tasks.FallbackGeneration, tasks.RefineOrder:
		r.writePlain("%s\n", r.styles.Warn("! "+update.Message))
	case tasks.ResolveTracks, tasks.SpotifyResolve:
		if update.Total > 0 {
			r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	default:
		r.writePlain("• %s\n", update.Message)
	}
}

func (r *Runner) writeResult(result *tasks.GenerateResult, format string) error {
	pl := result.Playlist

	r.writePlain("\n")
	r.writePlainHeader(pl.Title)
	if err := formatter.Render(r.output, pl, format); err != nil {
		return fmt.Errorf("failed to render playlist: %w", err)
	}

	r.writePlain("\nStatus: %s (%.0f%% found)\n", r.styles.Status(string(result.Status)), result.FoundRatio*100)
	if result.Mood != "" {
		r.writePlain("Mood: %s\n", result.Mood)
	}
	if result.Fallback {
		r.writePlain("%s\n", r.styles.Warn("Generated with the fallback prompt"))
	}
	r.writePlain("Playlist ID: %s\n", pl.ID)

	switch {
	case result.Spotify != nil:
		r.writePlain("%s %s\n", r.styles.OK("✓ Spotify playlist:"), result.Spotify.URL)
	case result.SpotifyError != "":
		r.writePlain("%s %s\n", r.styles.Err("✗ Spotify:"), result.SpotifyError)
		if result.SpotifyCredentialError {
			r.writePlain("%s\n", r.styles.Help("Run 'emotionquest auth spotify' to log in again"))
		}
	case len(result.SpotifyTracks) > 0:
		r.writePlain("Spotify matches: %d\n", len(tasks.Found(result.SpotifyTracks)))
	}
	return nil
}

// Search resolves one title/artist pair against the chosen provider.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	candidate := models.TrackCandidate{
		Title:  strings.TrimSpace(cmd.StringArg("title")),
		Artist: strings.TrimSpace(cmd.StringArg("artist")),
	}
	if err := validate.Struct(candidate); err != nil {
		return fmt.Errorf("%w: title and artist are required", shared.ErrMissingArgument)
	}

	var searcher services.TrackSearcher
	switch provider := cmd.String("provider"); provider {
	case "youtube", "yt":
		yt, err := r.youtubeSearcher(ctx)
		if err != nil {
			return err
		}
		searcher = yt
	case "spotify":
		auth, ok := services.ResolveSpotifyAuth("", r.config.Credentials.Spotify)
		if !ok {
			return fmt.Errorf("%w: spotify client id and secret", shared.ErrMissingCredentials)
		}
		svc, err := services.NewSpotifyService(ctx, auth)
		if err != nil {
			return err
		}
		searcher = svc
	default:
		return fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, provider)
	}

	resolver := tasks.NewResolver(searcher, nil, tasks.ResolverOptsFromConfig(r.config.Resolver), r.logger)
	track, err := resolver.ResolveOne(ctx, candidate)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	if !track.Found {
		r.writePlain("%s %s by %s\n", r.styles.Err("✗ No match for"), candidate.Title, candidate.Artist)
		return nil
	}
	r.writePlain("%s %s by %s\n", r.styles.OK("✓"), track.Title, track.Artist)
	r.writePlain("Provider: %s\n", track.Provider)
	r.writePlain("ID: %s\n", track.ProviderID)
	if track.Duration > 0 {
		r.writePlain("Duration: %s\n", formatter.FormatDuration(track.Duration))
	}
	if track.URI != "" {
		r.writePlain("URI: %s\n", track.URI)
	}
	return nil
}
