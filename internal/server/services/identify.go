package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/logging"
)

// Identifier is the upstream identification provider.
type Identifier interface {
	Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error)
}

type IdentifyService interface {
	Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error)
}

type identifyService struct {
	provider Identifier
	cache    *cache.ResultCache
	ttl      time.Duration
	log      logging.Logger
}

// NewIdentifyService caches normalised results under the request
// fingerprint, so repeating an identical request within ttl costs no
// upstream call.
func NewIdentifyService(provider Identifier, c *cache.ResultCache, ttl time.Duration, logger logging.Logger) IdentifyService {
	return &identifyService{provider: provider, cache: c, ttl: ttl, log: logger.With("module", "identify")}
}

func (s *identifyService) Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := api.IdentifyKey(api.IdentifyFingerprint(req))
	if res, e, ok := cache.GetJSON[*api.IdentifyResult](ctx, s.cache, key); ok && e.Fresh(s.cache.Now()) {
		s.log.Debug(ctx, "identify served from cache", "key", key)
		return res, nil
	}

	res, err := s.provider.Identify(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := cache.PutJSON(ctx, s.cache, key, res, s.ttl); err != nil {
		s.log.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
	return res, nil
}
