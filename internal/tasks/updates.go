package tasks

import (
	"fmt"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	MoodDetection Phase = iota
	GenerateCandidates
	FallbackGeneration
	ResolveTracks
	AssemblePlaylist
	SpotifyResolve
	FetchFeatures
	RefineOrder
	CreatePlaylist
	AddTracks
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case MoodDetection:
		return "detect_mood"
	case GenerateCandidates:
		return "generate_candidates"
	case FallbackGeneration:
		return "fallback_generation"
	case ResolveTracks:
		return "resolve_tracks"
	case AssemblePlaylist:
		return "assemble_playlist"
	case SpotifyResolve:
		return "spotify_resolve"
	case FetchFeatures:
		return "fetch_features"
	case RefineOrder:
		return "refine_order"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func moodUpdate(mood string, ok bool) ProgressUpdate {
	msg := "No mood keywords found, using a neutral prompt"
	if ok {
		msg = fmt.Sprintf("Detected mood: %s", mood)
	}
	return ProgressUpdate{Phase: MoodDetection, Step: 1, Total: 1, Message: msg, Data: mood}
}

func generateUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   GenerateCandidates,
		Step:    1,
		Total:   1,
		Message: "Asking the model for a classical playlist...",
	}
}

func fallbackUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FallbackGeneration,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Primary generation failed (%v), retrying with well-known pieces...", err),
	}
}

func resolveUpdate(phase Phase, step, total int, tr models.ResolvedTrack) ProgressUpdate {
	mark := "✗"
	if tr.Found {
		mark = "✓"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, tr.Artist, tr.Title),
		Data:    tr,
	}
}

func assembleUpdate(pl *models.GeneratedPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AssemblePlaylist,
		Step:    pl.TotalSongs,
		Total:   pl.OriginalSongsCount,
		Message: fmt.Sprintf("Playlist ready: %s (%d/%d tracks)", pl.Title, pl.TotalSongs, pl.OriginalSongsCount),
		Data:    pl.ID,
	}
}

func featuresUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", n),
	}
}

func refineUpdate(err error) ProgressUpdate {
	msg := "Reordered tracks by audio features"
	if err != nil {
		msg = fmt.Sprintf("Kept original order: %v", err)
	}
	return ProgressUpdate{Phase: RefineOrder, Step: 1, Total: 1, Message: msg}
}

func createPlaylistUpdate(ref *models.SpotifyPlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Spotify playlist created: %s (ID: %s)", ref.Name, ref.ID),
		Data:    ref,
	}
}

func addTracksUpdate(step, total, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Added %d tracks", step, total, added),
	}
}
