package tasks

import (
	"context"
	"fmt"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/repair"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
)

// GeneratorOpts contains sampling configuration for both generation attempts.
type GeneratorOpts struct {
	SongCount           int     // Songs requested and kept (default: 10)
	MaxOutputTokens     int     // Token cap for both attempts (default: 2048)
	PrimaryTemperature  float64 // default: 0.7
	FallbackTemperature float64 // default: 0.3
}

// GeneratorOptsFromConfig maps the [generator] config section.
func GeneratorOptsFromConfig(cfg shared.GeneratorConfig) GeneratorOpts {
	return GeneratorOpts{
		SongCount:           cfg.SongCount,
		MaxOutputTokens:     cfg.MaxOutputTokens,
		PrimaryTemperature:  cfg.PrimaryTemperature,
		FallbackTemperature: cfg.FallbackTemperature,
	}
}

func (o GeneratorOpts) withDefaults() GeneratorOpts {
	if o.SongCount <= 0 {
		o.SongCount = 10
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = 2048
	}
	if o.PrimaryTemperature <= 0 {
		o.PrimaryTemperature = 0.7
	}
	if o.FallbackTemperature <= 0 {
		o.FallbackTemperature = 0.3
	}
	return o
}

func (o GeneratorOpts) primarySampling() services.SamplingConfig {
	return services.SamplingConfig{Temperature: o.PrimaryTemperature, TopK: 40, TopP: 0.95, MaxOutputTokens: o.MaxOutputTokens}
}

func (o GeneratorOpts) fallbackSampling() services.SamplingConfig {
	return services.SamplingConfig{Temperature: o.FallbackTemperature, TopK: 20, TopP: 0.8, MaxOutputTokens: o.MaxOutputTokens}
}

// Draft is a validated set of candidates produced by the model.
type Draft struct {
	Title       string
	Description string
	Songs       []models.TrackCandidate
	Mood        string          // Detected mood tag, empty when neutral
	Fallback    bool            // Produced by the fallback attempt
	Strategy    repair.Strategy // Repair stage that decoded the response
}

// Generator turns a description into candidates with one primary attempt and one fallback.
type Generator struct {
	model  services.TextModel
	parser *repair.Parser
	opts   GeneratorOpts
	logger *log.Logger
}

// NewGenerator creates a Generator. A nil logger discards output.
func NewGenerator(model services.TextModel, opts GeneratorOpts, logger *log.Logger) *Generator {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Generator{
		model:  model,
		parser: repair.New(logger),
		opts:   opts.withDefaults(),
		logger: logger.With("component", "generator"),
	}
}

// Generate produces candidates for description.
//
// The primary attempt is mood-driven. Any failure, including an emergency parse, triggers a single fallback attempt
// whose emergency parse is accepted. Fallback failure wraps [shared.ErrGenerationFailed].
func (g *Generator) Generate(ctx context.Context, description, language string, progress chan<- ProgressUpdate) (*Draft, error) {
	mood, hasMood := DetectMood(description)
	sendProgress(progress, moodUpdate(mood.Tag, hasMood))
	g.logger.Debug("mood detection", "mood", mood.Tag, "matched", hasMood)

	sendProgress(progress, generateUpdate())
	prompt := primaryPrompt(description, language, mood, hasMood, g.opts.SongCount)
	draft, err := g.attempt(ctx, prompt, g.opts.primarySampling(), false)
	if err == nil {
		draft.Mood = mood.Tag
		return draft, nil
	}

	g.logger.Warn("primary generation failed, falling back", "error", err)
	sendProgress(progress, fallbackUpdate(err))

	draft, ferr := g.attempt(ctx, fallbackPrompt(description, language, g.opts.SongCount), g.opts.fallbackSampling(), true)
	if ferr != nil {
		g.logger.Error("fallback generation failed", "error", ferr)
		return nil, fmt.Errorf("%w: primary: %v; fallback: %v", shared.ErrGenerationFailed, err, ferr)
	}

	draft.Mood = mood.Tag
	draft.Fallback = true
	return draft, nil
}

func (g *Generator) attempt(ctx context.Context, prompt string, cfg services.SamplingConfig, acceptEmergency bool) (*Draft, error) {
	raw, err := g.model.Generate(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}

	res := g.parser.Parse(raw)
	if res.Emergency() && !acceptEmergency {
		return nil, fmt.Errorf("%w: response could not be repaired", shared.ErrInvalidPayload)
	}
	if err := g.parser.Validate(res.Payload); err != nil {
		return nil, err
	}

	songs := res.Payload.Songs
	switch {
	case len(songs) > g.opts.SongCount:
		g.logger.Debug("truncating songs", "got", len(songs), "keep", g.opts.SongCount)
		songs = songs[:g.opts.SongCount]
	case len(songs) < g.opts.SongCount:
		g.logger.Warn("model returned fewer songs than requested", "got", len(songs), "want", g.opts.SongCount)
	}

	return &Draft{
		Title:       res.Payload.Title,
		Description: res.Payload.Description,
		Songs:       songs,
		Strategy:    res.Strategy,
	}, nil
}
