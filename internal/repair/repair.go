// Package repair decodes generative model output that is supposed to be a single JSON value but often is not.
//
// Decoding is an ordered chain of strategies, each tried only when the previous one failed:
//
//  1. [StrategyDirect] : strip a fenced code block and surrounding prose, decode strictly
//  2. [StrategyQuoteNormalization] : coerce single/backtick quotes to double quotes, fix mismatched quotes at value edges
//  3. [StrategyEscapeQuotes] : escape unescaped double quotes inside string values
//  4. [StrategyRegexExtraction] : pull title, description and song pairs out with field-level patterns
//  5. [StrategyEmergency] : a fixed payload of well-known classical pieces
//
// [Parser.Parse] never fails and never panics. [Parser.ParseInto] runs only the structural stages (1-3) for callers that must not receive fabricated data.
package repair

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
)

// Strategy names the decoding stage that produced a result.
type Strategy string

const (
	StrategyDirect             Strategy = "direct"
	StrategyQuoteNormalization Strategy = "quote_normalization"
	StrategyEscapeQuotes       Strategy = "escape_quotes"
	StrategyRegexExtraction    Strategy = "regex_extraction"
	StrategyEmergency          Strategy = "emergency"
)

// MaxExtractedSongs bounds the songs recovered by regex extraction.
const MaxExtractedSongs = 10

// Payload is the playlist shape requested from the model.
type Payload struct {
	Title       string                  `json:"title" validate:"required"`
	Description string                  `json:"description" validate:"required"`
	Songs       []models.TrackCandidate `json:"songs" validate:"required,min=1,dive"`
}

// Result is a decoded payload together with the stage that produced it.
type Result struct {
	Payload  Payload
	Strategy Strategy
}

// Emergency reports whether the result is the fixed fallback payload rather than anything derived from the input.
func (r Result) Emergency() bool {
	return r.Strategy == StrategyEmergency
}

// stage is one structural repair: a pure text transform whose output is handed to the strict decoder.
type stage struct {
	name   Strategy
	repair func(string) string
}

var structuralStages = []stage{
	{name: StrategyDirect, repair: func(s string) string { return s }},
	{name: StrategyQuoteNormalization, repair: NormalizeQuotes},
	{name: StrategyEscapeQuotes, repair: func(s string) string { return EscapeInnerQuotes(NormalizeQuotes(s)) }},
}

// Parser runs the strategy chain.
type Parser struct {
	logger    *log.Logger
	validator *shared.Validator
}

// New creates a Parser. A nil logger discards output.
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Parser{
		logger:    logger.With("component", "repair"),
		validator: shared.NewValidator(),
	}
}

// Validate checks that p has a title, a description and at least one song with both fields set.
func (p *Parser) Validate(payload Payload) error {
	return p.validator.Struct(payload)
}

// Parse decodes raw into a [Payload]. It always returns a payload that passes [Parser.Validate].
func (p *Parser) Parse(raw string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("repair chain panicked, using emergency payload", "panic", r)
			res = Result{Payload: EmergencyPayload(), Strategy: StrategyEmergency}
		}
	}()

	for _, text := range candidates(raw) {
		for _, st := range structuralStages {
			payload, err := decodePayload(st.repair(text))
			if err != nil {
				p.logger.Debug("strategy failed", "strategy", st.name, "error", err)
				continue
			}
			if err := p.Validate(payload); err != nil {
				p.logger.Debug("strategy produced invalid payload", "strategy", st.name, "error", err)
				continue
			}
			p.logger.Info("parsed model response", "strategy", st.name, "songs", len(payload.Songs))
			return Result{Payload: payload, Strategy: st.name}
		}
	}

	payload, recovered := ExtractFields(StripCodeFence(raw))
	if recovered {
		p.logger.Info("parsed model response", "strategy", StrategyRegexExtraction, "songs", len(payload.Songs))
		return Result{Payload: payload, Strategy: StrategyRegexExtraction}
	}

	p.logger.Warn("nothing recoverable in model response, using emergency payload")
	return Result{Payload: payload, Strategy: StrategyEmergency}
}

// ParseInto strictly decodes raw into v using only the structural stages.
//
// Returns the stage that succeeded, or an error wrapping [shared.ErrInvalidPayload].
func (p *Parser) ParseInto(raw string, v any) (Strategy, error) {
	var lastErr error
	for _, text := range candidates(raw) {
		for _, st := range structuralStages {
			if err := json.Unmarshal([]byte(st.repair(text)), v); err != nil {
				lastErr = err
				continue
			}
			p.logger.Debug("decoded model response", "strategy", st.name)
			return st.name, nil
		}
	}

	return "", fmt.Errorf("%w: %v", shared.ErrInvalidPayload, lastErr)
}

// candidates returns the text spanned by the earliest '{' or '['. When a '[' comes first and an object follows it,
// the object's span is returned too, since brackets in prose ahead of the value make the first span undecodable.
func candidates(raw string) []string {
	s := StripCodeFence(raw)

	obj, arr := strings.IndexByte(s, '{'), strings.IndexByte(s, '[')
	switch {
	case obj < 0 && arr < 0:
		return []string{s}
	case arr < 0:
		return []string{span(s, obj, "}")}
	case obj < 0:
		return []string{span(s, arr, "]")}
	case obj < arr:
		return []string{span(s, obj, "}")}
	default:
		return []string{span(s, arr, "]"), span(s, obj, "}")}
	}
}

// span cuts s from start to the last closer, or to the end when no closer follows start.
func span(s string, start int, closer string) string {
	if end := strings.LastIndex(s, closer); end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// StripCodeFence removes a ``` fence (optionally followed by a language tag) and its closing fence, and trims
// whitespace. Text before the opening fence is dropped.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}

	s = s[open+3:]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}

	return strings.TrimSpace(s)
}

// decodePayload decodes an object payload, or a bare array of songs which is given the canonical title and description.
func decodePayload(text string) (Payload, error) {
	var payload Payload
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &payload.Songs); err != nil {
			return Payload{}, err
		}
		payload.Title = emergencyTitle
		payload.Description = emergencyDescription
		return payload, nil
	}

	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Payload{}, err
	}
	return payload, nil
}
