package repair

import (
	"regexp"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
)

const (
	emergencyTitle       = "Classical Essentials"
	emergencyDescription = "A curated journey through timeless classical masterpieces, from serene reflection to grand finales."
)

var (
	titleField       = fieldPattern("title")
	artistField      = fieldPattern("artist")
	descriptionField = fieldPattern("description")
	songsKey         = regexp.MustCompile(`(?i)["'\x60]?songs["'\x60]?\s*:`)
	flatObject       = regexp.MustCompile(`\{[^{}]*\}`)
	loosePair        = regexp.MustCompile(
		`(?is)["'\x60]?title["'\x60]?\s*:\s*["'\x60](.+?)["'\x60]\s*,\s*["'\x60]?artist["'\x60]?\s*:\s*["'\x60](.+?)["'\x60]\s*(?:,|\}|$)`,
	)
)

// fieldPattern matches `name: "value"` with any quote style, capturing value up to the quote that precedes a separator.
func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)["'\x60]?\b` + name + `\b["'\x60]?\s*:\s*["'\x60](.+?)["'\x60]\s*(?:,|\}|\]|$)`)
}

// ExtractFields recovers a payload from text that is not valid JSON by matching individual fields. It never fails.
//
// A missing title or description is replaced by the canonical one, and the emergency songs stand in when no
// title/artist pair is found. At most [MaxExtractedSongs] songs are kept. recovered reports whether anything at all
// came from text; when it is false the payload equals [EmergencyPayload].
func ExtractFields(text string) (payload Payload, recovered bool) {
	head, body := text, text
	if loc := songsKey.FindStringIndex(text); loc != nil {
		head, body = text[:loc[0]], text[loc[1]:]
	}

	payload = Payload{
		Title:       firstMatch(titleField, head, ""),
		Description: firstMatch(descriptionField, head, ""),
		Songs:       extractSongs(body),
	}
	recovered = payload.Title != "" || payload.Description != "" || len(payload.Songs) > 0

	emergency := EmergencyPayload()
	if payload.Title == "" {
		payload.Title = emergency.Title
	}
	if payload.Description == "" {
		payload.Description = emergency.Description
	}
	if len(payload.Songs) == 0 {
		payload.Songs = emergency.Songs
	}

	return payload, recovered
}

func extractSongs(body string) []models.TrackCandidate {
	songs := make([]models.TrackCandidate, 0, MaxExtractedSongs)

	for _, obj := range flatObject.FindAllString(body, -1) {
		if len(songs) == MaxExtractedSongs {
			return songs
		}
		title := firstMatch(titleField, obj, "")
		artist := firstMatch(artistField, obj, "")
		if title != "" && artist != "" {
			songs = append(songs, models.TrackCandidate{Title: title, Artist: artist})
		}
	}
	if len(songs) > 0 {
		return songs
	}

	for _, m := range loosePair.FindAllStringSubmatch(body, MaxExtractedSongs) {
		title, artist := cleanValue(m[1]), cleanValue(m[2])
		if title != "" && artist != "" {
			songs = append(songs, models.TrackCandidate{Title: title, Artist: artist})
		}
	}
	return songs
}

func firstMatch(re *regexp.Regexp, s, fallback string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return fallback
	}
	if v := cleanValue(m[1]); v != "" {
		return v
	}
	return fallback
}

func cleanValue(v string) string {
	v = strings.ReplaceAll(v, `\"`, `"`)
	return strings.TrimSpace(v)
}

// EmergencyPayload returns the fixed playlist used when nothing could be recovered from the model output.
func EmergencyPayload() Payload {
	return Payload{
		Title:       emergencyTitle,
		Description: emergencyDescription,
		Songs: []models.TrackCandidate{
			{Title: "Clair de Lune", Artist: "Claude Debussy"},
			{Title: "Gymnopédie No. 1", Artist: "Erik Satie"},
			{Title: "Canon in D", Artist: "Johann Pachelbel"},
			{Title: "Moonlight Sonata", Artist: "Ludwig van Beethoven"},
			{Title: "The Four Seasons: Spring", Artist: "Antonio Vivaldi"},
			{Title: "Eine kleine Nachtmusik", Artist: "Wolfgang Amadeus Mozart"},
			{Title: "Air on the G String", Artist: "Johann Sebastian Bach"},
			{Title: "Nocturne in E-flat Major, Op. 9 No. 2", Artist: "Frédéric Chopin"},
			{Title: "The Swan", Artist: "Camille Saint-Saëns"},
			{Title: "Symphony No. 5", Artist: "Ludwig van Beethoven"},
		},
	}
}
