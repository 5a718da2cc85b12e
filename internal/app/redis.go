package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"billpay/internal/config"
)

const redisPingTimeout = 3 * time.Second

// NewRedisClient connects to Redis and, when nrApp is set, reports every
// command as a datastore segment named after the key family it touches.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(&nrRedisHook{})
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	log.Printf("[REDIS] connected to %s db=%d (catalog ttl %s)", cfg.Addr, cfg.DB, cfg.CacheTTL)
	return client, nil
}

// keyCollection maps a key such as "remember:device-1" or
// "idempotency:dev:/v1/flows:k" to its family ("remember", "idempotency").
func keyCollection(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "billpay"
	}
	key, ok := args[1].(string)
	if !ok || key == "" {
		return "billpay"
	}
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// pipelineCollection names a pipeline after its first keyed command.
// MULTI/EXEC wrappers carry no key and are skipped.
func pipelineCollection(cmds []redis.Cmder) string {
	for _, cmd := range cmds {
		switch cmd.Name() {
		case "multi", "exec":
			continue
		}
		return keyCollection(cmd)
	}
	return "billpay"
}

// nrRedisHook implements redis.Hook for New Relic instrumentation.
type nrRedisHook struct{}

func (h *nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: keyCollection(cmd),
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

func (h *nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if txn := newrelic.FromContext(ctx); txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  "pipeline",
				Collection: pipelineCollection(cmds),
			}
			defer segment.End()
		}
		return next(ctx, cmds)
	}
}
