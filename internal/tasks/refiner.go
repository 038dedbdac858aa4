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

var refineSampling = services.SamplingConfig{Temperature: 0.3, TopK: 20, TopP: 0.8, MaxOutputTokens: 2048}

type refinedTrack struct {
	Title  string `json:"title" validate:"required"`
	Artist string `json:"artist" validate:"required"`
	URI    string `json:"uri" validate:"required"`
}

type refinedOrder struct {
	Tracks []refinedTrack `json:"tracks" validate:"required,min=1,dive"`
}

// Refiner asks the model to reorder resolved tracks using their audio features.
//
// The model only chooses an order: every returned track is one of the input values, looked up by URI.
type Refiner struct {
	model     services.TextModel
	parser    *repair.Parser
	validator *shared.Validator
	logger    *log.Logger
}

// NewRefiner creates a Refiner. A nil logger discards output.
func NewRefiner(model services.TextModel, logger *log.Logger) *Refiner {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Refiner{
		model:     model,
		parser:    repair.New(logger),
		validator: shared.NewValidator(),
		logger:    logger.With("component", "refiner"),
	}
}

// Refine returns tracks reordered by the model.
//
// Tracks without a URI are not sent to the model and follow the ordered ones in their original order, as do eligible
// tracks the model left out. Errors wrap [shared.ErrRefinementIntegrity] or come from the model call; callers keep
// their original order on any error.
func (r *Refiner) Refine(ctx context.Context, description string, tracks []models.ResolvedTrack) ([]models.ResolvedTrack, error) {
	var eligible, rest []models.ResolvedTrack
	for _, t := range tracks {
		if t.URI != "" {
			eligible = append(eligible, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(eligible) < 2 {
		return tracks, nil
	}

	raw, err := r.model.Generate(ctx, refinePrompt(description, eligible), refineSampling)
	if err != nil {
		return nil, err
	}

	var order refinedOrder
	strategy, err := r.parser.ParseInto(raw, &order.Tracks)
	if err != nil {
		// Some responses wrap the array as {"tracks": [...]}.
		strategy, err = r.parser.ParseInto(raw, &order)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefinementIntegrity, err)
	}
	if err := r.validator.Struct(order); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefinementIntegrity, err)
	}

	index := make(map[string]int, len(eligible))
	for i, t := range eligible {
		if _, dup := index[t.URI]; !dup {
			index[t.URI] = i
		}
	}

	used := make([]bool, len(eligible))
	out := make([]models.ResolvedTrack, 0, len(tracks))
	for _, rt := range order.Tracks {
		i, ok := index[rt.URI]
		if !ok {
			return nil, fmt.Errorf("%w: unknown uri %q", shared.ErrRefinementIntegrity, rt.URI)
		}
		if used[i] {
			continue
		}
		used[i] = true
		out = append(out, eligible[i])
	}

	omitted := 0
	for i, t := range eligible {
		if !used[i] {
			out = append(out, t)
			omitted++
		}
	}
	out = append(out, rest...)

	r.logger.Info("refined track order", "strategy", strategy, "tracks", len(eligible), "omitted", omitted)
	return out, nil
}
