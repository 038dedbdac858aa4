// Package services defines the provider interfaces used by the playlist pipeline and implements them.
//
// # Interfaces
//
//   - [TrackSearcher] : free-text track search against one catalogue
//   - [TextModel] : prompt in, raw text out, with a [SamplingConfig]
//   - [SpotifyLibrary] : profile lookup, playlist creation, track addition and audio features
//
// # YouTube Music Implementation
//
// [YouTubeMusicService] communicates with the FastAPI proxy server wrapping ytmusicapi.
// The auth_file path, when configured, is sent via X-Auth-File header on each request.
// [YouTubeDataService] searches the YouTube Data API v3 instead and needs only an API key.
//
// # Spotify Implementation
//
// [SpotifyService] wraps github.com/zmb3/spotify/v2. Authorization is an explicit [AuthMode] resolved once per call by
// [ResolveSpotifyAuth]: a user access token, or the application's client credentials.
//
// # Gemini Implementation
//
// [GeminiService] calls the generateContent REST endpoint.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrInvalidCredentials] : the provider rejected the credential
//   - [shared.ErrTokenExpired] : the user token expired, re-authorization needed
//   - [shared.ErrAPIRequest] : the provider answered with an error
//   - [shared.ErrServiceUnavailable] : the provider could not be reached
//   - [shared.ErrTooManyTracks] : more than [MaxTracksPerRequest] URIs in one add call
//
// Callers use [shared.IsCredentialError] to tell a re-authentication prompt apart from a generic failure.
package services
