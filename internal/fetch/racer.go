package fetch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/policyscope/policyscope/internal/cache"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/util"
)

// Racer tries candidate URLs for one document type strictly in priority
// order and accepts the first extracted text that clears the minimum content
// threshold. Individual candidate failures are swallowed and logged; only
// exhaustion of the whole list yields absent.
type Racer struct {
	fetcher    *Fetcher
	extractor  *Extractor
	robots     *util.RobotsChecker // nil disables robots.txt checks
	limiter    *Limiter
	minContent int
}

// NewRacer builds a racer from configuration
func NewRacer(cfg *model.Config) *Racer {
	var robots *util.RobotsChecker
	if cfg.Fetch.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.Fetch.PerFetchTimeout)
	}

	fetcher := NewFetcher(cfg.HTTP, cfg.Fetch.PerFetchTimeout)
	if cfg.Cache.ContentTTL > 0 {
		if cfg.Cache.Dir != "" {
			fetcher.WithCache(cache.NewLayered(cfg.Cache.ContentTTL, cfg.Cache.Dir, cfg.Cache.ContentTTL), cfg.Cache.ContentTTL)
		} else {
			fetcher.WithCache(cache.NewMemory(cfg.Cache.ContentTTL, cfg.Cache.SweepInterval), cfg.Cache.ContentTTL)
		}
	}

	return &Racer{
		fetcher:    fetcher,
		extractor:  NewExtractor(cfg.Fetch),
		robots:     robots,
		limiter:    NewLimiter(cfg.Fetch.RatePerDomain, cfg.Fetch.RateBurst),
		minContent: cfg.Fetch.MinContentLen,
	}
}

// Race attempts the candidates left to right and returns the first extracted
// text longer than the content threshold. The second return is false when
// every candidate failed or was undersized, or the context expired first.
func (r *Racer) Race(ctx context.Context, candidates []model.URLCandidate, docType model.PolicyType) (string, bool) {
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return "", false
		}

		if err := r.limiter.Wait(ctx, candidate.URL); err != nil {
			log.Debug().Str("url", candidate.URL).Err(err).Msg("rate limit wait aborted")
			return "", false
		}

		if r.robots != nil && !r.robots.CanFetch(ctx, candidate.URL) {
			log.Debug().Str("url", candidate.URL).Msg("skipping candidate disallowed by robots.txt")
			continue
		}

		body, err := r.fetcher.Fetch(ctx, candidate.URL)
		if err != nil {
			log.Debug().Str("url", candidate.URL).Str("type", string(docType)).Err(err).
				Msg("candidate fetch failed, trying next")
			continue
		}

		text := r.extractor.Extract(body, docType)
		if len(text) > r.minContent {
			log.Debug().Str("url", candidate.URL).Str("type", string(docType)).
				Int("chars", len(text)).Msg("candidate accepted")
			return text, true
		}

		log.Debug().Str("url", candidate.URL).Str("type", string(docType)).
			Int("chars", len(text)).Msg("candidate undersized, trying next")
	}

	return "", false
}
