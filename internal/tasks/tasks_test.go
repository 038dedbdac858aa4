package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
)

type modelReply struct {
	text string
	err  error
}

// fakeModel replays scripted replies in order and records every prompt.
type fakeModel struct {
	mu      sync.Mutex
	replies []modelReply
	prompts []string
	configs []services.SamplingConfig
}

func newFakeModel(replies ...modelReply) *fakeModel {
	return &fakeModel{replies: replies}
}

func (m *fakeModel) Generate(ctx context.Context, prompt string, cfg services.SamplingConfig) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.configs = append(m.configs, cfg)
	if len(m.replies) == 0 {
		return "", fmt.Errorf("no scripted reply for call %d", len(m.prompts))
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.text, r.err
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// fakeSearcher answers queries from a fixed catalogue keyed by "title artist".
type fakeSearcher struct {
	provider models.Provider
	catalog  map[string][]services.SearchResult
	errFor   map[string]error
	failAll  error
	panicFor string
	delay    time.Duration

	searches atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeSearcher(provider models.Provider) *fakeSearcher {
	return &fakeSearcher{
		provider: provider,
		catalog:  make(map[string][]services.SearchResult),
		errFor:   make(map[string]error),
	}
}

// add registers a matching result for c.
func (s *fakeSearcher) add(c models.TrackCandidate) {
	id := strings.ReplaceAll(strings.ToLower(c.Title), " ", "-")
	uri := "https://music.youtube.com/watch?v=" + id
	if s.provider == models.ProviderSpotify {
		uri = "spotify:track:" + id
	}
	s.catalog[c.Title+" "+c.Artist] = []services.SearchResult{{
		ID:       id,
		Title:    c.Title,
		Artists:  []string{c.Artist},
		Duration: 240,
		URI:      uri,
	}}
}

func (s *fakeSearcher) Provider() models.Provider {
	return s.provider
}

func (s *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]services.SearchResult, error) {
	s.searches.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panicFor != "" && query == s.panicFor {
		panic("search exploded")
	}
	if s.failAll != nil {
		return nil, s.failAll
	}
	if err, ok := s.errFor[query]; ok {
		return nil, err
	}
	return s.catalog[query], nil
}

// fakeSpotify is a [SpotifyClient] backed by a fakeSearcher.
type fakeSpotify struct {
	*fakeSearcher

	mu          sync.Mutex
	profileErr  error
	features    map[string]*models.AudioFeatures
	featuresErr error
	created     []*models.SpotifyPlaylistRef
	createdPub  []bool
	added       [][]string
}

func newFakeSpotify() *fakeSpotify {
	return &fakeSpotify{
		fakeSearcher: newFakeSearcher(models.ProviderSpotify),
		features:     make(map[string]*models.AudioFeatures),
	}
}

func (s *fakeSpotify) Profile(ctx context.Context) (*services.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &services.Profile{ID: "listener", DisplayName: "Listener"}, nil
}

func (s *fakeSpotify) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.SpotifyPlaylistRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := &models.SpotifyPlaylistRef{ID: "sp-playlist", Name: name, URL: "https://open.spotify.com/playlist/sp-playlist"}
	s.created = append(s.created, ref)
	s.createdPub = append(s.createdPub, public)
	return ref, nil
}

func (s *fakeSpotify) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(uris) > services.MaxTracksPerRequest {
		return fmt.Errorf("too many uris: %d", len(uris))
	}
	s.added = append(s.added, append([]string(nil), uris...))
	return nil
}

func (s *fakeSpotify) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	if s.featuresErr != nil {
		return nil, s.featuresErr
	}
	out := make([]*models.AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = s.features[id]
	}
	return out, nil
}

func candidates(n int) []models.TrackCandidate {
	pieces := []models.TrackCandidate{
		{Title: "Clair de Lune", Artist: "Claude Debussy"},
		{Title: "Gymnopedie No 1", Artist: "Erik Satie"},
		{Title: "Canon in D", Artist: "Johann Pachelbel"},
		{Title: "Moonlight Sonata", Artist: "Ludwig van Beethoven"},
		{Title: "Spring", Artist: "Antonio Vivaldi"},
		{Title: "Eine kleine Nachtmusik", Artist: "Wolfgang Amadeus Mozart"},
		{Title: "Air on the G String", Artist: "Johann Sebastian Bach"},
		{Title: "Nocturne Op 9 No 2", Artist: "Frederic Chopin"},
		{Title: "The Swan", Artist: "Camille Saint-Saens"},
		{Title: "Adagio for Strings", Artist: "Samuel Barber"},
		{Title: "Bolero", Artist: "Maurice Ravel"},
		{Title: "Pavane", Artist: "Gabriel Faure"},
	}
	out := make([]models.TrackCandidate, 0, n)
	for i := 0; i < n; i++ {
		c := pieces[i%len(pieces)]
		if i >= len(pieces) {
			c.Title = fmt.Sprintf("%s %d", c.Title, i)
		}
		out = append(out, c)
	}
	return out
}

// jsonPayload renders a model reply for songs. singleQuoted mimics a sloppy fenced reply.
func jsonPayload(title string, songs []models.TrackCandidate, singleQuoted bool) string {
	q := `"`
	if singleQuoted {
		q = `'`
	}
	parts := make([]string, len(songs))
	for i, s := range songs {
		parts[i] = fmt.Sprintf("{%stitle%s: %s%s%s, %sartist%s: %s%s%s}", q, q, q, s.Title, q, q, q, q, s.Artist, q)
	}
	body := fmt.Sprintf("{%stitle%s: %s%s%s, %sdescription%s: %sA quiet journey%s, %ssongs%s: [%s]}",
		q, q, q, title, q, q, q, q, q, q, q, strings.Join(parts, ", "))
	if singleQuoted {
		return "Here you go!\n```json\n" + body + "\n```"
	}
	return body
}

func TestDetectMood(t *testing.T) {
	tc := []struct {
		description string
		want        string
		ok          bool
	}{
		{description: "something calm before bed", want: "calm", ok: true},
		{description: "Pump me up for a WORKOUT", want: "energetic", ok: true},
		{description: "a sad rainy evening", want: "melancholic", ok: true},
		{description: "dinner date with someone I love", want: "romantic", ok: true},
		{description: "I need to focus on coding", want: "focus", ok: true},
		{description: "happy sunday morning", want: "joyful", ok: true},
		{description: "an epic battle", want: "dramatic", ok: true},
		{description: "a dark mysterious forest", want: "mysterious", ok: true},
		{description: "música tranquila para relajarme", want: "calm", ok: true},
		{description: "music for deep studying", ok: false},
		{description: "", ok: false},
	}

	for _, tt := range tc {
		t.Run(tt.description, func(t *testing.T) {
			got, ok := DetectMood(tt.description)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (%s)", tt.ok, ok, got.Tag)
			}
			if got.Tag != tt.want {
				t.Errorf("expected mood %q, got %q", tt.want, got.Tag)
			}
			if ok && got.StyleHint == "" {
				t.Error("expected a style hint")
			}
		})
	}

	t.Run("first match wins", func(t *testing.T) {
		got, _ := DetectMood("calm but also energetic")
		if got.Tag != "calm" {
			t.Errorf("expected earlier table entry to win, got %q", got.Tag)
		}
	})

	t.Run("MoodTags order", func(t *testing.T) {
		want := []string{"calm", "energetic", "melancholic", "romantic", "focus", "joyful", "dramatic", "mysterious"}
		got := MoodTags()
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestPrompts(t *testing.T) {
	mood, _ := DetectMood("calm")

	t.Run("primary with mood and language", func(t *testing.T) {
		p := primaryPrompt("calm evening", "Spanish", mood, true, 10)
		for _, want := range []string{"exactly 10", "calm evening", "Only classical", mood.StyleHint, "Spanish", `"songs"`} {
			if !strings.Contains(p, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
	})

	t.Run("primary neutral without language", func(t *testing.T) {
		p := primaryPrompt("music for deep studying", "any", mood, false, 10)
		if strings.Contains(p, "The mood is") {
			t.Error("neutral prompt should not include a mood hint")
		}
		if strings.Contains(p, "speaking countries") {
			t.Error("language \"any\" should not add a regional hint")
		}
	})

	t.Run("fallback", func(t *testing.T) {
		p := fallbackPrompt("rain", "", 10)
		if !strings.Contains(p, "very famous") || !strings.Contains(p, "exactly 10") {
			t.Errorf("unexpected fallback prompt: %s", p)
		}
	})

	t.Run("refine lists uris and features", func(t *testing.T) {
		tracks := []models.ResolvedTrack{{
			TrackCandidate: models.TrackCandidate{Title: "Bolero", Artist: "Ravel"},
			URI:            "spotify:track:1",
			Features:       &models.AudioFeatures{Tempo: 72, Energy: 0.31},
		}}
		p := refinePrompt("build up", tracks)
		if !strings.Contains(p, "uri=spotify:track:1") || !strings.Contains(p, "tempo=72 energy=0.31") {
			t.Errorf("unexpected refine prompt: %s", p)
		}
	})
}

func TestProgressUpdate_NonBlocking(t *testing.T) {
	t.Run("nil channel", func(t *testing.T) {
		sendProgress(nil, generateUpdate())
	})

	t.Run("full channel does not block", func(t *testing.T) {
		ch := make(chan ProgressUpdate, 1)
		done := make(chan struct{})
		go func() {
			sendProgress(ch, generateUpdate())
			sendProgress(ch, generateUpdate())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sendProgress blocked on a full channel")
		}
		if len(ch) != 1 {
			t.Errorf("expected 1 buffered update, got %d", len(ch))
		}
	})

	t.Run("phase names", func(t *testing.T) {
		for p := MoodDetection; p <= ExportPlaylist; p++ {
			if p.String() == "" {
				t.Errorf("phase %d has no name", p)
			}
		}
		if Phase(99).String() != "" {
			t.Error("unknown phase should have an empty name")
		}
	})
}
