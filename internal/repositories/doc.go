// Package repositories persists generated playlists in SQLite so they outlive the in-memory cache.
//
// [PlaylistRepository] stores one row per playlist in generated_playlists, with the track list encoded as JSON.
// Rows are soft-deleted via deleted_at and excluded from reads afterwards. Each row carries a sequence number from
// [NextSequence], allocated in the same transaction as the insert, which the CLI uses for listing order.
//
// The schema comes from the embedded migrations run by [shared.RunMigrations].
package repositories
