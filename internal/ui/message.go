package ui

import (
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
)

// progressUpdateMsg carries one pipeline progress event.
type progressUpdateMsg tasks.ProgressUpdate

// generateCompleteMsg carries the pipeline outcome.
type generateCompleteMsg struct {
	result *tasks.GenerateResult
	err    error
}
