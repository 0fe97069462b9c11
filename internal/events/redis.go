package events

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisForwarder republishes bus events on per-user Redis channels so that
// dashboard gateways running in other processes can follow the ledger.
type RedisForwarder struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisForwarder(client *redis.Client, prefix string, log *zap.Logger) *RedisForwarder {
	return &RedisForwarder{
		client: client,
		prefix: prefix,
		log:    log.Named("events.redis"),
	}
}

func (f *RedisForwarder) Channel(userID string) string {
	return f.prefix + ":" + userID
}

// Run forwards until ctx is done or the subscription is closed.
func (f *RedisForwarder) Run(ctx context.Context, sub *Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				f.log.Warn("marshal event", zap.String("kind", event.Kind), zap.Error(err))
				continue
			}
			if err := f.client.Publish(ctx, f.Channel(event.UserID), payload).Err(); err != nil {
				f.log.Warn("publish event",
					zap.String("kind", event.Kind),
					zap.String("user_id", event.UserID),
					zap.Error(err),
				)
			}
		}
	}
}
