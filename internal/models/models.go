// package models defines the data model for the playlist generation pipeline
package models

import (
	"slices"
	"time"
)

// Provider names a track search provider.
type Provider string

const (
	ProviderYouTubeMusic Provider = "youtube_music"
	ProviderSpotify      Provider = "spotify"
)

// TrackCandidate is a title/artist pair to be resolved against a provider.
type TrackCandidate struct {
	Title  string `json:"title" validate:"required"`
	Artist string `json:"artist" validate:"required"`
}

// Thumbnail is a provider image reference.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// AudioFeatures is the provider audio analysis used by the refiner.
type AudioFeatures struct {
	Tempo            float64 `json:"tempo"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
}

// ResolvedTrack is a [TrackCandidate] after a provider lookup.
//
// When Found is false every provider field is zero.
type ResolvedTrack struct {
	TrackCandidate
	Found       bool           `json:"found"`
	Provider    Provider       `json:"provider,omitempty"`
	ProviderID  string         `json:"providerId,omitempty"`
	URI         string         `json:"uri,omitempty"`
	Duration    int            `json:"duration,omitempty"` // seconds
	Thumbnails  []Thumbnail    `json:"thumbnails,omitempty"`
	PlaybackURL string         `json:"playbackUrl,omitempty"`
	Features    *AudioFeatures `json:"audioFeatures,omitempty"`
}

// NotFound returns the unresolved form of c.
func NotFound(c TrackCandidate) ResolvedTrack {
	return ResolvedTrack{TrackCandidate: c}
}

// Clone returns a deep copy of t.
func (t ResolvedTrack) Clone() ResolvedTrack {
	t.Thumbnails = slices.Clone(t.Thumbnails)
	if t.Features != nil {
		f := *t.Features
		t.Features = &f
	}
	return t
}

// GeneratedPlaylist is the assembled result of one pipeline run.
type GeneratedPlaylist struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Songs              []ResolvedTrack `json:"songs"`
	OriginalSongsCount int             `json:"originalSongsCount"`
	TotalSongs         int             `json:"totalSongs"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// Clone returns a deep copy of p.
func (p *GeneratedPlaylist) Clone() *GeneratedPlaylist {
	if p == nil {
		return nil
	}
	c := *p
	c.Songs = make([]ResolvedTrack, len(p.Songs))
	for i, s := range p.Songs {
		c.Songs[i] = s.Clone()
	}
	return &c
}

// MoodProfile maps a mood tag to its detection keywords and prompt style hint.
type MoodProfile struct {
	Tag       string
	Keywords  []string
	StyleHint string
}

// SpotifyPlaylistRef describes a playlist created on Spotify by the side channel.
type SpotifyPlaylistRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	TrackCount int    `json:"trackCount"`
	Refined    bool   `json:"refined"`
}
