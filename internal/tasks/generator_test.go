package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repair"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	tu "github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/testing"
)

func TestGenerator(t *testing.T) {
	t.Run("primary success uses primary sampling", func(t *testing.T) {
		model := newFakeModel(modelReply{text: jsonPayload("Evening", candidates(10), false)})
		g := NewGenerator(model, GeneratorOpts{}, nil)

		draft, err := g.Generate(context.Background(), "a calm evening", "any", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if draft.Fallback {
			t.Error("expected primary draft")
		}
		if draft.Mood != "calm" {
			t.Errorf("expected calm mood, got %q", draft.Mood)
		}
		if draft.Strategy != repair.StrategyDirect {
			t.Errorf("expected direct strategy, got %s", draft.Strategy)
		}
		if len(draft.Songs) != 10 {
			t.Errorf("expected 10 songs, got %d", len(draft.Songs))
		}

		cfg := model.configs[0]
		if cfg.Temperature != 0.7 || cfg.TopK != 40 || cfg.TopP != 0.95 || cfg.MaxOutputTokens != 2048 {
			t.Errorf("unexpected primary sampling %+v", cfg)
		}
	})

	t.Run("truncates to the first ten in order", func(t *testing.T) {
		songs := candidates(12)
		model := newFakeModel(modelReply{text: jsonPayload("Long", songs, false)})

		draft, err := NewGenerator(model, GeneratorOpts{}, nil).Generate(context.Background(), "x", "", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(draft.Songs) != 10 {
			t.Fatalf("expected exactly 10 songs, got %d", len(draft.Songs))
		}
		for i := range draft.Songs {
			if draft.Songs[i] != songs[i] {
				t.Errorf("song %d: expected %v, got %v", i, songs[i], draft.Songs[i])
			}
		}
	})

	t.Run("fewer songs are kept with a warning", func(t *testing.T) {
		logger, buf := tu.BufferLogger()
		model := newFakeModel(modelReply{text: jsonPayload("Short", candidates(4), false)})

		draft, err := NewGenerator(model, GeneratorOpts{}, logger).Generate(context.Background(), "x", "", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(draft.Songs) != 4 {
			t.Errorf("expected 4 songs, got %d", len(draft.Songs))
		}
		if !strings.Contains(buf.String(), "fewer songs") {
			t.Errorf("expected a warning, got log: %s", buf.String())
		}
		if model.calls() != 1 {
			t.Errorf("short payload should not trigger fallback, got %d calls", model.calls())
		}
	})

	t.Run("primary error falls back", func(t *testing.T) {
		model := newFakeModel(
			modelReply{err: shared.ErrAPIRequest},
			modelReply{text: jsonPayload("Famous", candidates(10), false)},
		)
		progress := make(chan ProgressUpdate, 10)

		draft, err := NewGenerator(model, GeneratorOpts{}, nil).Generate(context.Background(), "x", "", progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !draft.Fallback || draft.Title != "Famous" {
			t.Errorf("expected fallback draft, got %+v", draft)
		}

		cfg := model.configs[1]
		if cfg.Temperature != 0.3 || cfg.TopK != 20 || cfg.TopP != 0.8 {
			t.Errorf("unexpected fallback sampling %+v", cfg)
		}

		close(progress)
		var sawFallback bool
		for u := range progress {
			if u.Phase == FallbackGeneration {
				sawFallback = true
			}
		}
		if !sawFallback {
			t.Error("expected a fallback progress update")
		}
	})

	t.Run("emergency parse of primary falls back", func(t *testing.T) {
		model := newFakeModel(
			modelReply{text: "I'm sorry, I can't help with that."},
			modelReply{text: jsonPayload("Famous", candidates(10), false)},
		)

		draft, err := NewGenerator(model, GeneratorOpts{}, nil).Generate(context.Background(), "x", "", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !draft.Fallback || draft.Title != "Famous" {
			t.Errorf("expected fallback draft, got %+v", draft)
		}
	})

	t.Run("emergency parse of fallback is accepted", func(t *testing.T) {
		model := newFakeModel(
			modelReply{text: "nope"},
			modelReply{text: "still nope"},
		)

		draft, err := NewGenerator(model, GeneratorOpts{}, nil).Generate(context.Background(), "x", "", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if draft.Strategy != repair.StrategyEmergency || len(draft.Songs) != 10 {
			t.Errorf("expected emergency draft with 10 songs, got %s with %d", draft.Strategy, len(draft.Songs))
		}
	})

	t.Run("both attempts failing is a generation failure", func(t *testing.T) {
		model := newFakeModel(
			modelReply{err: errors.New("primary down")},
			modelReply{err: errors.New("fallback down")},
		)

		_, err := NewGenerator(model, GeneratorOpts{}, nil).Generate(context.Background(), "x", "", nil)
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if model.calls() != 2 {
			t.Errorf("expected exactly one fallback, got %d calls", model.calls())
		}
	})

	t.Run("GeneratorOptsFromConfig", func(t *testing.T) {
		opts := GeneratorOptsFromConfig(shared.DefaultConfig().Generator).withDefaults()
		if opts.SongCount != 10 || opts.MaxOutputTokens != 2048 || opts.PrimaryTemperature != 0.7 || opts.FallbackTemperature != 0.3 {
			t.Errorf("unexpected opts %+v", opts)
		}
	})
}
