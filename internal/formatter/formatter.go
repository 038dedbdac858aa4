// package formatter renders generated playlists to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
)

// Supported output formats
const (
	FormatText     = "txt"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Formats lists every format accepted by [Render] and the export writers.
var Formats = []string{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// Render writes playlist to w in format. Unknown formats fall back to plain text.
func Render(w io.Writer, playlist *models.GeneratedPlaylist, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = shared.MarshalJSON(playlist, true)
		data = append(data, '\n')
	case FormatMarkdown:
		data, err = ToMarkdown(playlist, "")
	case FormatCSV:
		data, err = ToCSV(playlist)
	default:
		data, err = ToText(playlist)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// ToCSV converts a playlist to CSV with columns: Position, Title, Artist, Provider, ProviderID, URI, Duration
func ToCSV(playlist *models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Provider", "ProviderID", "URI", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range playlist.Songs {
		record := []string{
			strconv.Itoa(i + 1),
			track.Title,
			track.Artist,
			string(track.Provider),
			track.ProviderID,
			track.URI,
			strconv.Itoa(track.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a playlist to Markdown with an optional cover image and playback links
func ToMarkdown(playlist *models.GeneratedPlaylist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d of %d found\n", playlist.TotalSongs, playlist.OriginalSongsCount)
	fmt.Fprintf(&buf, "**Created**: %s\n\n", playlist.CreatedAt.Format(time.RFC1123))

	buf.WriteString("## Tracks\n\n")
	for i, track := range playlist.Songs {
		title := track.Title
		if track.PlaybackURL != "" {
			title = fmt.Sprintf("[%s](%s)", track.Title, track.PlaybackURL)
		}
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, title, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ToText converts a playlist to plain text
func ToText(playlist *models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Title)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d/%d\n\n", playlist.TotalSongs, playlist.OriginalSongsCount)

	for i, track := range playlist.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, track.Artist, track.Title)
		if track.PlaybackURL != "" {
			fmt.Fprintf(&buf, " <%s>", track.PlaybackURL)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss for an hour or more. Zero renders as "-:--".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-:--"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// CoverURL picks the largest thumbnail of the first track that has one.
func CoverURL(playlist *models.GeneratedPlaylist) string {
	for _, track := range playlist.Songs {
		var best models.Thumbnail
		for _, th := range track.Thumbnails {
			if best.URL == "" || th.Width*th.Height > best.Width*best.Height {
				best = th
			}
		}
		if best.URL != "" {
			return best.URL
		}
	}
	return ""
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist *models.GeneratedPlaylist) ([]byte, error) {
	meta := struct {
		ID                 string    `json:"id"`
		Title              string    `json:"title"`
		Description        string    `json:"description"`
		OriginalSongsCount int       `json:"originalSongsCount"`
		TotalSongs         int       `json:"totalSongs"`
		CreatedAt          time.Time `json:"createdAt"`
	}{
		ID:                 playlist.ID,
		Title:              playlist.Title,
		Description:        playlist.Description,
		OriginalSongsCount: playlist.OriginalSongsCount,
		TotalSongs:         playlist.TotalSongs,
		CreatedAt:          playlist.CreatedAt,
	}
	return shared.MarshalJSON(meta, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes {base}_tracks.csv and {base}_metadata.json. base defaults to the playlist ID.
func WriteCSVExport(playlist *models.GeneratedPlaylist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.ID
	}

	csvData, err := ToCSV(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when imageURL downloads, {dir}/cover.jpg.
//
// Directory name defaults to the playlist ID. A failed cover download is not an error.
func WriteMarkdownExport(playlist *models.GeneratedPlaylist, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		if imageData, err := DownloadImage(imageURL); err == nil {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes a playlist as plain text. Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(playlist *models.GeneratedPlaylist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", playlist.ID)
	}

	textData, err := ToText(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSON writes v as indented JSON to path.
func WriteJSON(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}
	return nil
}
