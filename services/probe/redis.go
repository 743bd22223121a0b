package probesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisProbe reports cache/broker readiness with a PING. The connection URL
// may embed a password; authenticated and unauthenticated probes behave the
// same beyond the handshake.
type RedisProbe struct {
	client *redis.Client
}

func NewRedisProbe(rawURL string) (*RedisProbe, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	return &RedisProbe{client: redis.NewClient(opts)}, nil
}

func (p *RedisProbe) Name() string { return "cache" }

func (p *RedisProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.client.Ping(ctx).Err()
}

func (p *RedisProbe) Close() error { return p.client.Close() }
