// Package tasks turns a mood description into a resolved classical playlist with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline.Generate] runs the stages in order:
//
//  1. [Generator] : keyword mood detection, a mood-driven prompt, and one conservative fallback prompt
//     - Model output is decoded with the repair parser, validated, and truncated to the requested song count
//     - An emergency parse of the primary response triggers the fallback; from the fallback it is accepted
//
//  2. [Resolver] : fuzzy search of every candidate on YouTube Music
//     - Concurrent batches with a pause between them, paced by a rate limiter
//     - Hits and misses are cached per provider and normalized query
//
//  3. Assembly : found tracks become a [models.GeneratedPlaylist], cached by ID
//
// # Spotify Side Channel
//
// With a user token (or client credentials and an explicit request) a second branch runs concurrently: resolve on
// Spotify, fetch audio features, reorder with the [Refiner], and create a private playlist for the token owner.
// Its failures are reported on [GenerateResult] and never fail the call.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for rendering.
// Updates use select with default to prevent blocking.
//
// # Export
//
// [ExportPlaylists] writes archived playlists to disk with a worker pool, one file set per playlist plus a manifest.
package tasks
