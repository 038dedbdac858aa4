package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/formatter"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"golang.org/x/time/rate"
)

// PlaylistSource loads saved playlists by ID, e.g. the archive repository.
type PlaylistSource interface {
	Get(ctx context.Context, id string) (*models.GeneratedPlaylist, error)
}

// ExportOpts contains configuration for bulk playlist exports.
type ExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: emotionquest_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max: 10)
	RateLimit  float64 // Cover downloads per second (default: 5)
	Covers     bool    // Download the first thumbnail as cover.jpg for markdown exports
}

// ExportJob is one playlist queued for a worker.
type ExportJob struct {
	Playlist *models.GeneratedPlaylist
}

// ExportFileResult is the outcome of exporting one playlist.
type ExportFileResult struct {
	PlaylistID string   `json:"playlist_id"`
	Title      string   `json:"title"`
	Success    bool     `json:"success"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ExportResult summarizes a bulk export; it is also written as the manifest.
type ExportResult struct {
	TotalPlaylists    int                `json:"total_playlists"`
	SuccessfulExports int                `json:"successful_exports"`
	FailedExports     int                `json:"failed_exports"`
	OutputDirectory   string             `json:"output_directory"`
	Format            string             `json:"format"`
	ManifestPath      string             `json:"-"`
	Results           []ExportFileResult `json:"results"`
}

// ExportPlaylists writes the playlists named by ids to opts.OutputDir using a worker pool.
//
// A playlist that cannot be loaded or written is recorded as failed without stopping the others. An
// export_manifest.json summarizing every result is written last.
func ExportPlaylists(ctx context.Context, prog chan<- ProgressUpdate, src PlaylistSource, ids []string, opts ExportOpts) (*ExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("emotionquest_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		Results:         make([]ExportFileResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan ExportJob, len(ids))
	results := make(chan ExportFileResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, id := range ids {
			if ctx.Err() != nil {
				return
			}

			pl, err := src.Get(ctx, id)
			if err != nil {
				results <- ExportFileResult{
					PlaylistID: id,
					Title:      fmt.Sprintf("Unknown (%s)", id),
					Error:      fmt.Sprintf("failed to load playlist: %v", err),
				}
				continue
			}
			jobs <- ExportJob{Playlist: pl}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
		sendProgress(prog, exportUpdate(completed, len(ids), res))
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteJSON(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, ctx.Err()
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan ExportJob,
	results chan<- ExportFileResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- exportPlaylist(ctx, limiter, job, opts)
	}
}

// exportPlaylist writes a single playlist in the requested format.
func exportPlaylist(ctx context.Context, limiter *rate.Limiter, j ExportJob, opts ExportOpts) ExportFileResult {
	pl := j.Playlist
	result := ExportFileResult{PlaylistID: pl.ID, Title: pl.Title}

	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(pl, filepath.Join(opts.OutputDir, pl.ID))
		if err != nil {
			result.Error = fmt.Sprintf("CSV export failed: %v", err)
			return result
		}
		result.Files = []string{res.TracksFile, res.MetadataFile}

	case formatter.FormatMarkdown:
		var imageURL string
		if opts.Covers {
			if err := limiter.Wait(ctx); err == nil {
				imageURL = formatter.CoverURL(pl)
			}
		}
		res, err := formatter.WriteMarkdownExport(pl, filepath.Join(opts.OutputDir, pl.ID), imageURL)
		if err != nil {
			result.Error = fmt.Sprintf("markdown export failed: %v", err)
			return result
		}
		result.Files = res.Files

	case formatter.FormatText:
		path, err := formatter.WriteTextExport(pl, filepath.Join(opts.OutputDir, pl.ID+"_tracks.txt"))
		if err != nil {
			result.Error = fmt.Sprintf("text export failed: %v", err)
			return result
		}
		result.Files = []string{path}

	default:
		path := filepath.Join(opts.OutputDir, pl.ID+".json")
		if err := formatter.WriteJSON(pl, path); err != nil {
			result.Error = err.Error()
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}

func exportUpdate(step, total int, res ExportFileResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Title, len(res.Files))
	if !res.Success {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Title, res.Error)
	}
	return ProgressUpdate{Phase: ExportPlaylist, Step: step, Total: total, Message: msg, Data: res}
}
