package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/formatter"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repositories"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ArchiveList prints archived playlists, newest first.
func (r *Runner) ArchiveList(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repo.List(ctx, repositories.ListOptions{Mood: cmd.String("mood"), Limit: cmd.Int("limit")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, true)
	}

	if len(records) == 0 {
		return r.writePlain("No archived playlists\n")
	}

	r.writePlainHeader(fmt.Sprintf("Archived playlists (%d)", len(records)))
	for _, rec := range records {
		pl := rec.Playlist
		mood := rec.Mood
		if mood == "" {
			mood = "-"
		}
		r.writePlain("#%-4d %s  %s\n", rec.Sequence, pl.CreatedAt.Local().Format("2006-01-02 15:04"), pl.Title)
		r.writePlain("      %d songs · %s · %s · %s\n", pl.TotalSongs, mood, r.styles.Status(rec.Status), pl.ID)
	}
	return nil
}

// ArchiveShow prints one archived playlist in the requested format.
func (r *Runner) ArchiveShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	repo, db, err := r.openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := repo.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if format == formatter.FormatText {
		r.writePlainHeader(rec.Playlist.Title)
	}
	if err := formatter.Render(r.output, rec.Playlist, format); err != nil {
		return fmt.Errorf("failed to render playlist: %w", err)
	}
	if format == formatter.FormatText && rec.SpotifyURL != "" {
		r.writePlain("\nSpotify: %s\n", rec.SpotifyURL)
	}
	return nil
}

// ArchiveExport writes archived playlists to files using the export worker pool.
func (r *Runner) ArchiveExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringArgs("ids")
	exportAll := cmd.Bool("all")
	if len(ids) == 0 && !exportAll {
		return fmt.Errorf("%w: pass playlist ids or --all", shared.ErrMissingArgument)
	}
	if len(ids) > 0 && exportAll {
		return fmt.Errorf("%w: cannot combine playlist ids with --all", shared.ErrInvalidArgument)
	}

	repo, db, err := r.openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	if exportAll {
		records, err := repo.List(ctx, repositories.ListOptions{})
		if err != nil {
			return err
		}
		for _, rec := range records {
			ids = append(ids, rec.Playlist.ID)
		}
		if len(ids) == 0 {
			return r.writePlain("No archived playlists to export\n")
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.ExportPlaylists(ctx, progressCh, repo, ids, tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Covers:     cmd.Bool("covers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)

	if result.FailedExports > 0 {
		r.writePlain("%s\n", r.styles.Err(fmt.Sprintf("Failed: %d", result.FailedExports)))
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  ✗ %s: %s\n", res.PlaylistID, res.Error)
			}
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}

// ArchiveDelete removes a playlist from the archive.
func (r *Runner) ArchiveDelete(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}

	repo, db, err := r.openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s %s\n", r.styles.OK("✓ Deleted"), id)
}
