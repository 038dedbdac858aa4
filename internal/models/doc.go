// Package models defines the domain entities that flow through the playlist pipeline.
//
// Entities, in lifecycle order:
//   - [TrackCandidate] : a title/artist pair proposed by the generative model or a caller
//   - [ResolvedTrack] : a candidate after lookup against one search provider
//   - [GeneratedPlaylist] : the assembled result, keyed by a v4 UUID
//
// A [GeneratedPlaylist] is immutable once built. Caches and archives operate on copies obtained through [GeneratedPlaylist.Clone].
//
// [MoodProfile] entries are static lookup data used for keyword mood detection; they are never request scoped.
package models
