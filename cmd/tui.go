package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/tasks"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist generation.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := cmd.String("log-file")
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(shared.NewLogger(logFile))

	pipeline, err := r.playlistPipeline(ctx)
	if err != nil {
		return err
	}

	template := tasks.GenerateRequest{Language: cmd.String("language")}
	p := tea.NewProgram(ui.NewModel(ctx, pipeline, template), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
