package ui

import (
	"fmt"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/formatter"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.ResolvedTrack] to implement [list.Item].
type trackItem struct {
	track models.ResolvedTrack
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Duration > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(i.track.Duration))
	}
	return desc
}

func trackItems(tracks []models.ResolvedTrack) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, tr := range tracks {
		items[i] = trackItem{track: tr}
	}
	return items
}
