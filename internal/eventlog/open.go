package eventlog

import (
	"context"
	"fmt"

	"propertyhub/internal/config"
	"propertyhub/internal/modules/notification"

	"go.uber.org/zap"
)

// Open builds the configured journal wrapped in an Async queue.
// It returns nil when the backend is "none".
func Open(ctx context.Context, cfg config.JournalConfig, logger *zap.Logger) (*Async, error) {
	var inner notification.Journal

	switch cfg.Backend {
	case config.JournalNone, "":
		return nil, nil
	case config.JournalRedis:
		j, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStream, cfg.RedisMaxLen)
		if err != nil {
			return nil, err
		}
		inner = j
	case config.JournalAMQP:
		j, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		inner = j
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}

	logger.Info("event journal enabled", zap.String("backend", cfg.Backend))
	return NewAsync(inner, 1024, 0, logger), nil
}
