// Package resolver turns a URL or a search phrase into track metadata and a
// stream URL the voice transport can decode.
package resolver

import (
	"context"

	"schedule-bot/internal/music/media"
)

// MaxSearchResults caps every Search result.
const MaxSearchResults = 5

// Resolver is what the command layer needs from a media backend.
//
// ResolveByURL fails with *apperr.ResolutionError on invalid or unavailable
// media. Search never fails: resolver errors are logged and yield an empty
// slice. Search results carry PageURL only and must be resolved before
// playback.
type Resolver interface {
	ResolveByURL(ctx context.Context, url string, streaming bool) (media.Track, error)
	Search(ctx context.Context, term string) []media.Track
}
