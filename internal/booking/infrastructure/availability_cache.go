package infrastructure

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

const availabilityKeyPrefix = "availability:"

// CachedAvailabilityReader guarda no Redis a listagem de trens por rota.
// Uma falha do Redis nunca derruba a consulta; ela cai direto no leitor de origem.
type CachedAvailabilityReader struct {
	next   domain.AvailabilityReader
	client redis.UniversalClient
	ttl    time.Duration
	logger pkgApp.AppLogger
}

func NewCachedAvailabilityReader(next domain.AvailabilityReader, client redis.UniversalClient, ttl time.Duration, logger pkgApp.AppLogger) *CachedAvailabilityReader {
	return &CachedAvailabilityReader{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func availabilityKey(source, destination string) string {
	return availabilityKeyPrefix + source + ":" + destination
}

func (c *CachedAvailabilityReader) FindByRoute(ctx context.Context, source, destination string) ([]domain.Train, error) {
	key := availabilityKey(source, destination)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		trains, decodeErr := pkgApp.UnmarshalPayload[[]domain.Train](raw)
		if decodeErr == nil {
			pkgApp.LogTrace(ctx, c.logger, "availability cache hit", map[string]interface{}{"key": key})
			return trains, nil
		}
		pkgApp.LogError(ctx, c.logger, "failed to decode cached availability", decodeErr, map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
	default:
		pkgApp.LogError(ctx, c.logger, "failed to read availability cache", err, map[string]interface{}{"key": key})
	}

	trains, err := c.next.FindByRoute(ctx, source, destination)
	if err != nil {
		return nil, err
	}

	payload, err := pkgApp.MarshalPayload(trains)
	if err != nil {
		return trains, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		pkgApp.LogError(ctx, c.logger, "failed to write availability cache", err, map[string]interface{}{"key": key})
	}
	return trains, nil
}

func (c *CachedAvailabilityReader) Invalidate(ctx context.Context, source, destination string) error {
	return c.client.Del(ctx, availabilityKey(source, destination)).Err()
}
