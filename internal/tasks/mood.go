package tasks

import (
	"strings"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
)

// moodProfiles is scanned in order; the first profile with a keyword in the description wins.
var moodProfiles = []models.MoodProfile{
	{
		Tag:       "calm",
		Keywords:  []string{"calm", "relax", "peace", "serene", "tranquil", "sleep", "chill", "soothing", "calma", "relaj", "tranquil"},
		StyleHint: "gentle, slow pieces with soft dynamics: nocturnes, adagios, lullabies and impressionist piano works",
	},
	{
		Tag:       "energetic",
		Keywords:  []string{"energ", "workout", "exercise", "running", "pump", "upbeat", "power", "enérgic", "ejercicio"},
		StyleHint: "fast, driving movements with strong rhythm: allegros, prestos, marches and virtuosic concertos",
	},
	{
		Tag:       "melancholic",
		Keywords:  []string{"sad", "melanchol", "nostalg", "lonely", "grief", "heartbreak", "rain", "triste", "melancol", "nostalgi"},
		StyleHint: "introspective minor-key works: elegies, slow string pieces and late-Romantic piano music",
	},
	{
		Tag:       "romantic",
		Keywords:  []string{"love", "romant", "date", "tender", "passion", "amor", "romántic", "pasión"},
		StyleHint: "lyrical, warm Romantic-era works with singing melodies: love themes, serenades and song transcriptions",
	},
	{
		Tag:       "focus",
		Keywords:  []string{"focus", "concentrat", "productiv", "coding", "reading", "concentr", "enfoque"},
		StyleHint: "steady, unobtrusive textures without sudden dynamic changes: Baroque keyboard works and minimalist pieces",
	},
	{
		Tag:       "joyful",
		Keywords:  []string{"happy", "joy", "cheer", "celebrat", "bright", "sunny", "feliz", "alegr", "celebra"},
		StyleHint: "bright major-key works full of momentum: Classical-era divertimenti, dances and festive overtures",
	},
	{
		Tag:       "dramatic",
		Keywords:  []string{"drama", "epic", "intense", "powerful", "battle", "storm", "dramátic", "épic", "intens"},
		StyleHint: "large-scale orchestral works with bold contrasts: symphonic climaxes, requiems and opera overtures",
	},
	{
		Tag:       "mysterious",
		Keywords:  []string{"myster", "dark", "night", "eerie", "haunt", "enigm", "misterio", "oscur", "noche"},
		StyleHint: "atmospheric pieces with unusual harmonies: impressionist, late-Romantic and early modern works",
	},
}

// DetectMood returns the first mood profile whose keywords appear in description.
// ok is false when no keyword matches and the prompt should stay neutral.
func DetectMood(description string) (models.MoodProfile, bool) {
	text := strings.ToLower(description)
	for _, profile := range moodProfiles {
		for _, kw := range profile.Keywords {
			if strings.Contains(text, kw) {
				return profile, true
			}
		}
	}
	return models.MoodProfile{}, false
}

// MoodTags lists the known mood tags in detection order.
func MoodTags() []string {
	tags := make([]string, len(moodProfiles))
	for i, p := range moodProfiles {
		tags[i] = p.Tag
	}
	return tags
}
