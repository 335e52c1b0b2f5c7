package eventlog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"propertyhub/internal/modules/notification"

	"github.com/go-redis/redis/v8"
)

// RedisJournal appends records to a capped Redis stream.
type RedisJournal struct {
	client *redis.Client
	stream string
	maxLen int64
	owned  bool
}

func NewRedisJournal(client *redis.Client, stream string, maxLen int64) *RedisJournal {
	return &RedisJournal{client: client, stream: stream, maxLen: maxLen}
}

// DialRedis connects and pings before returning.
func DialRedis(ctx context.Context, addr, password string, db int, stream string, maxLen int64) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	j := NewRedisJournal(client, stream, maxLen)
	j.owned = true
	return j, nil
}

func (j *RedisJournal) Record(ctx context.Context, rec notification.Record) error {
	e := newEntry(rec)
	args := &redis.XAddArgs{
		Stream: j.stream,
		Values: map[string]interface{}{
			"kind":       string(e.Kind),
			"wire_type":  e.WireType,
			"order_id":   strconv.FormatInt(e.OrderID, 10),
			"recipients": strconv.Itoa(e.Recipients),
			"delivered":  strconv.Itoa(e.Delivered),
			"frame":      string(e.Frame),
			"at":         e.At.Format(time.RFC3339Nano),
		},
	}
	if j.maxLen > 0 {
		args.MaxLen = j.maxLen
		args.Approx = true
	}
	if err := j.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", j.stream, err)
	}
	return nil
}

func (j *RedisJournal) Close() error {
	if !j.owned {
		return nil
	}
	return j.client.Close()
}
