package tasks

import (
	"fmt"
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
)

const payloadShape = `{
  "title": "playlist title",
  "description": "one or two sentences about the journey",
  "songs": [
    {"title": "work title", "artist": "composer"}
  ]
}`

// languageHint returns the regional instruction for language, or "" for no preference.
func languageHint(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" || strings.EqualFold(lang, "any") {
		return ""
	}
	return fmt.Sprintf("Prefer composers and performers associated with %s-speaking countries when it fits the mood. Write the title and description in %s.\n", lang, lang)
}

// primaryPrompt asks for a mood-driven, ordered classical playlist.
func primaryPrompt(description, language string, mood models.MoodProfile, hasMood bool, count int) string {
	var b strings.Builder

	b.WriteString("You are a classical music curator.\n")
	fmt.Fprintf(&b, "Create a playlist of exactly %d classical pieces for this listener: %q\n\n", count, description)
	b.WriteString("Rules:\n")
	b.WriteString("- Only classical repertoire (Baroque through contemporary concert music). No pop, film or game soundtracks.\n")
	b.WriteString("- Use the well-known catalogue title of each work and the composer as the artist.\n")
	b.WriteString("- Order the pieces as an arc: open gently, build energy and tempo toward the middle, resolve at the end.\n")
	if hasMood {
		fmt.Fprintf(&b, "- The mood is %s: favour %s.\n", mood.Tag, mood.StyleHint)
	}
	b.WriteString(languageHint(language))
	b.WriteString("\nRespond with strict JSON only, no prose and no code fences, in exactly this shape:\n")
	b.WriteString(payloadShape)
	b.WriteString("\n")

	return b.String()
}

// fallbackPrompt is the conservative retry: famous pieces only, so search is likely to succeed.
func fallbackPrompt(description, language string, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "List exactly %d very famous classical pieces that suit this description: %q\n", count, description)
	b.WriteString("Only choose mainstream works that any streaming service carries, with the composer as the artist.\n")
	b.WriteString(languageHint(language))
	b.WriteString("Respond with strict JSON only, in exactly this shape:\n")
	b.WriteString(payloadShape)
	b.WriteString("\n")

	return b.String()
}

// refinePrompt asks for a reordering of tracks by their audio features.
func refinePrompt(description string, tracks []models.ResolvedTrack) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reorder these classical tracks into the best listening arc for: %q\n", description)
	b.WriteString("Use the audio features to move from calm to energetic and back to a satisfying close.\n\n")
	for i, t := range tracks {
		fmt.Fprintf(&b, "%d. %q by %s uri=%s", i+1, t.Title, t.Artist, t.URI)
		if f := t.Features; f != nil {
			fmt.Fprintf(&b, " tempo=%.0f energy=%.2f valence=%.2f acousticness=%.2f", f.Tempo, f.Energy, f.Valence, f.Acousticness)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with a strict JSON array only, using the uris exactly as given:\n")
	b.WriteString(`[{"title": "work title", "artist": "composer", "uri": "uri from the list"}]`)
	b.WriteString("\n")

	return b.String()
}
