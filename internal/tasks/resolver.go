package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/cache"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/matching"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/models"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/services"
	"github.com/PixelDroid19/EMOTIONQUEST-BACKEND/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	popularityBonus = 0.10
	shortTrackSecs  = 60
	shortTrackCost  = 0.05
)

// ResolverOpts bounds the load a [Resolver] puts on its provider.
type ResolverOpts struct {
	BatchSize         int           // Concurrent searches per batch (default: 4)
	BatchPause        time.Duration // Pause between batches
	SearchLimit       int           // Results requested per search (default: 5)
	RequestsPerSecond float64       // Outbound pacing, 0 disables
}

// ResolverOptsFromConfig maps the [resolver] config section.
func ResolverOptsFromConfig(cfg shared.ResolverConfig) ResolverOpts {
	return ResolverOpts{
		BatchSize:         cfg.BatchSize,
		BatchPause:        cfg.BatchPause,
		SearchLimit:       cfg.SearchLimit,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
}

// Resolver looks candidates up on one provider, caching hits and misses.
type Resolver struct {
	searcher services.TrackSearcher
	cache    *cache.Cache[models.ResolvedTrack]
	opts     ResolverOpts
	limiter  *rate.Limiter
	adjust   matching.Adjust[services.SearchResult]
	logger   *log.Logger
}

// NewResolver creates a Resolver. Passing a nil cache disables caching.
func NewResolver(searcher services.TrackSearcher, c *cache.Cache[models.ResolvedTrack], opts ResolverOpts, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 4
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.BatchSize)
	}

	return &Resolver{
		searcher: searcher,
		cache:    c,
		opts:     opts,
		limiter:  limiter,
		adjust:   ProviderAdjust(searcher.Provider()),
		logger:   logger.With("component", "resolver", "provider", searcher.Provider()),
	}
}

// Provider reports the catalogue this resolver searches.
func (r *Resolver) Provider() models.Provider {
	return r.searcher.Provider()
}

// ProviderAdjust returns the score adjustment for results from p.
//
// Very short tracks are penalized on every provider. Spotify results also earn a popularity bonus.
func ProviderAdjust(p models.Provider) matching.Adjust[services.SearchResult] {
	return func(res services.SearchResult) float64 {
		var adj float64
		if res.Duration > 0 && res.Duration < shortTrackSecs {
			adj -= shortTrackCost
		}
		if p == models.ProviderSpotify {
			adj += popularityBonus * float64(res.Popularity) / 100
		}
		return adj
	}
}

func searchFields(res services.SearchResult) (string, string) {
	return res.Title, res.Artist()
}

// CacheKey is the search cache key for a query on provider p.
func CacheKey(p models.Provider, query string) string {
	return string(p) + ":" + shared.NormalizeText(query)
}

// ResolveOne searches for c and returns the best match, or the unresolved form of c when nothing matches.
//
// Credential failures are returned unchanged so callers can check [shared.IsCredentialError]. Every other
// failure wraps [shared.ErrAPIRequest].
func (r *Resolver) ResolveOne(ctx context.Context, c models.TrackCandidate) (models.ResolvedTrack, error) {
	query := strings.TrimSpace(c.Title + " " + c.Artist)
	key := CacheKey(r.Provider(), query)

	if r.cache != nil {
		if hit, ok := r.cache.Get(key); ok {
			r.logger.Debug("cache hit", "query", query, "found", hit.Found)
			hit = hit.Clone()
			hit.TrackCandidate = c
			return hit, nil
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return models.NotFound(c), fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		}
	}

	results, err := r.searcher.Search(ctx, query, r.opts.SearchLimit)
	if err != nil {
		if shared.IsCredentialError(err) || errors.Is(err, shared.ErrAPIRequest) {
			return models.NotFound(c), err
		}
		return models.NotFound(c), fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	track := models.NotFound(c)
	if best, ok := matching.BestMatch(results, c.Title, c.Artist, searchFields, r.adjust); ok {
		track = best.Resolve(c, r.Provider())
	}

	if r.cache != nil {
		r.cache.Put(key, track.Clone())
	}
	r.logger.Debug("resolved", "query", query, "results", len(results), "found", track.Found)
	return track, nil
}

// ResolveMany resolves cs in concurrent batches and returns results in input order.
//
// A failing item degrades to not found. If any item failed on credentials that error is returned alongside the
// complete results.
func (r *Resolver) ResolveMany(ctx context.Context, cs []models.TrackCandidate) ([]models.ResolvedTrack, error) {
	return r.resolveMany(ctx, cs, nil, ResolveTracks)
}

func (r *Resolver) resolveMany(ctx context.Context, cs []models.TrackCandidate, progress chan<- ProgressUpdate, phase Phase) ([]models.ResolvedTrack, error) {
	results := make([]models.ResolvedTrack, len(cs))
	for i, c := range cs {
		results[i] = models.NotFound(c)
	}

	var (
		mu      sync.Mutex
		credErr error
		done    int
	)

	for start := 0; start < len(cs); start += r.opts.BatchSize {
		if start > 0 && r.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(r.opts.BatchPause):
			}
		}

		end := min(start+r.opts.BatchSize, len(cs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						r.logger.Error("search panicked", "title", cs[i].Title, "panic", rec)
					}
				}()

				track, err := r.ResolveOne(ctx, cs[i])
				if err != nil {
					r.logger.Warn("search failed", "title", cs[i].Title, "artist", cs[i].Artist, "error", err)
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil && credErr == nil && shared.IsCredentialError(err) {
					credErr = err
				}
				if err == nil {
					results[i] = track
				}
				done++
				sendProgress(progress, resolveUpdate(phase, done, len(cs), results[i]))
			}(i)
		}
		wg.Wait()
	}

	return results, credErr
}

// Found filters tracks down to the resolved ones, keeping order.
func Found(tracks []models.ResolvedTrack) []models.ResolvedTrack {
	found := make([]models.ResolvedTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.Found {
			found = append(found, t)
		}
	}
	return found
}
