package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/stockout/pkg/redis"
)

// CachedPredictor memoizes responses in Redis keyed by run id and feature row.
// Cache errors are logged and the request is scored directly.
type CachedPredictor struct {
	ctx   *Context
	cache *redis.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedPredictor wraps c; a disabled cache makes it a plain pass-through
func NewCachedPredictor(c *Context, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *CachedPredictor {
	if ttl <= 0 {
		ttl = redis.TTLMedium
	}
	return &CachedPredictor{
		ctx:   c,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "inference.CachedPredictor").Logger(),
	}
}

// Info describes the loaded model
func (p *CachedPredictor) Info() ModelInfo { return p.ctx.Info() }

// Ready reports whether requests can be scored
func (p *CachedPredictor) Ready() bool { return p.ctx.Ready() }

// Predict scores one request, consulting the cache first
func (p *CachedPredictor) Predict(ctx context.Context, req Request) (*Response, error) {
	row, err := p.ctx.Row(req)
	if err != nil {
		return nil, err
	}
	if p.cache == nil || !p.cache.Enabled() {
		return p.ctx.Score(row)
	}

	// predicted_stockout depends on the threshold, so it is part of the key
	key := redis.PredictionKey(fmt.Sprintf("%s@%g", p.ctx.info.RunID, p.ctx.threshold), row)

	var cached Response
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.log.Warn().Err(err).Msg("prediction cache read failed")
	}
	if found {
		return &cached, nil
	}

	resp, err := p.ctx.Score(row)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, resp, p.ttl); err != nil {
		p.log.Warn().Err(err).Msg("prediction cache write failed")
	}
	return resp, nil
}
