// package matching scores provider search results against a title/artist query
package matching

import (
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
)

const (
	TitleWeight  = 0.7
	ArtistWeight = 0.3

	// MaxAdjustment bounds provider bonuses and penalties so metadata never outweighs lexical relevance.
	MaxAdjustment = 0.15
)

// Similarity scores two free-text strings in [0, 1].
//
// Normalized equality scores 1, except that two blank strings score 0. Otherwise it is the number of distinct words of
// the shorter string found in the longer one, divided by the word count of the longer string.
func Similarity(a, b string) float64 {
	a, b = shared.NormalizeText(a), shared.NormalizeText(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	short, long := wa, wb
	if len(short) > len(long) {
		short, long = long, short
	}

	set := make(map[string]struct{}, len(long))
	for _, w := range long {
		set[w] = struct{}{}
	}

	seen := make(map[string]struct{}, len(short))
	common := 0
	for _, w := range short {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := set[w]; ok {
			common++
		}
	}

	return float64(common) / float64(len(long))
}

// Score is the composite relevance of a candidate: 0.7 title similarity plus 0.3 artist similarity.
// The artist term contributes nothing when either artist is empty.
func Score(title, artist, candTitle, candArtist string) float64 {
	score := TitleWeight * Similarity(title, candTitle)
	if strings.TrimSpace(artist) != "" && strings.TrimSpace(candArtist) != "" {
		score += ArtistWeight * Similarity(artist, candArtist)
	}
	return score
}

// Fields extracts the title and artist a result is scored on.
type Fields[T any] func(T) (title, artist string)

// Adjust returns a provider bonus (positive) or penalty (negative). It is clamped to [-MaxAdjustment, MaxAdjustment].
type Adjust[T any] func(T) float64

// BestMatch returns the result that best matches title and artist.
//
// A single result is returned without scoring. Ties keep the provider's original order. adjust may be nil.
func BestMatch[T any](results []T, title, artist string, fields Fields[T], adjust Adjust[T]) (T, bool) {
	var zero T
	switch len(results) {
	case 0:
		return zero, false
	case 1:
		return results[0], true
	}

	best, bestScore := 0, -1.0
	for i, r := range results {
		candTitle, candArtist := fields(r)
		score := Score(title, artist, candTitle, candArtist)
		if adjust != nil {
			score += clamp(adjust(r), -MaxAdjustment, MaxAdjustment)
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	return results[best], true
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
