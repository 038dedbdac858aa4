package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
)

const playlistColumns = `id, sequence, title, description, mood, language, status, original_songs_count, total_songs, songs, spotify_url, created_at, deleted_at`

// Record is an archived playlist with the request context stored alongside it.
type Record struct {
	Sequence   int
	Playlist   *models.GeneratedPlaylist
	Mood       string
	Language   string
	Status     string
	SpotifyURL string
	DeletedAt  *time.Time
}

// ListOptions filters [PlaylistRepository.List].
type ListOptions struct {
	Mood  string // exact mood tag, empty for all
	Limit int    // 0 means no limit
}

// PlaylistRepository archives generated playlists in the generated_playlists table.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a PlaylistRepository on db. The schema must already be migrated.
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts rec, assigning its sequence. A playlist without an ID gets a new one.
func (r *PlaylistRepository) Create(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Playlist == nil {
		return fmt.Errorf("%w: no playlist to archive", shared.ErrInvalidInput)
	}
	pl := rec.Playlist
	if pl.Title == "" {
		return fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	}
	if pl.ID == "" {
		pl.ID = shared.GenerateID()
	}
	if pl.CreatedAt.IsZero() {
		pl.CreatedAt = time.Now().UTC()
	}

	songs, err := json.Marshal(pl.Songs)
	if err != nil {
		return fmt.Errorf("failed to encode songs: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "generated_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO generated_playlists (id, sequence, title, description, mood, language, status, original_songs_count, total_songs, songs, spotify_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		pl.ID,
		sequence,
		pl.Title,
		pl.Description,
		rec.Mood,
		rec.Language,
		rec.statusOrDefault(),
		pl.OriginalSongsCount,
		pl.TotalSongs,
		string(songs),
		rec.SpotifyURL,
		pl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}

	rec.Sequence = sequence
	return nil
}

// Get returns the archived playlist with id. It satisfies the export source used by bulk exports.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.GeneratedPlaylist, error) {
	rec, err := r.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Playlist, nil
}

// GetRecord returns the archived record with id, excluding soft-deleted rows.
func (r *PlaylistRepository) GetRecord(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + playlistColumns + ` FROM generated_playlists WHERE id = ? AND deleted_at IS NULL`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return rec, err
}

// List returns archived records, newest first.
func (r *PlaylistRepository) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	query := `SELECT ` + playlistColumns + ` FROM generated_playlists WHERE deleted_at IS NULL`
	args := []any{}

	if opts.Mood != "" {
		query += " AND mood = ?"
		args = append(args, opts.Mood)
	}

	query += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Delete soft-deletes the playlist with id.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE generated_playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

func (rec *Record) statusOrDefault() string {
	if rec.Status == "" {
		return "success"
	}
	return rec.Status
}

// scanner is the Scan method shared by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		pl        models.GeneratedPlaylist
		rec       Record
		songs     string
		deletedAt sql.NullTime
	)

	err := s.Scan(
		&pl.ID, &rec.Sequence, &pl.Title, &pl.Description, &rec.Mood, &rec.Language, &rec.Status,
		&pl.OriginalSongsCount, &pl.TotalSongs, &songs, &rec.SpotifyURL, &pl.CreatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if err := json.Unmarshal([]byte(songs), &pl.Songs); err != nil {
		return nil, fmt.Errorf("failed to decode songs of playlist %s: %w", pl.ID, err)
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}

	rec.Playlist = &pl
	return &rec, nil
}
