// Package server exposes the playlist pipeline over HTTP and hosts the OAuth callback used by the CLI login flow.
//
// # API
//
// [Server] routes requests with chi:
//
//	GET  /health                  proxy reachability, 503 when degraded
//	GET  /api/moods               mood tags the generator understands
//	POST /api/playlists/generate  run the pipeline for {description, language, createSpotify}
//	GET  /api/playlists           archived playlists, newest first
//	GET  /api/playlists/{id}      cached playlist, then the archive
//
// Responses use one JSON envelope ({data, error, success}). Pipeline errors map to status codes in [StatusFor]. A
// Spotify user token is read from the Authorization header as a bearer token and never echoed back.
//
// Every route except /health is rate limited per client IP by [KeyedRateLimiter].
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback. It validates the state parameter, exchanges the code
// for a token, and sends the result through a channel. It processes a single callback and rejects the rest.
package server
