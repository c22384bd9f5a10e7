// Package storage mirrors board snapshots into Redis so out-of-process
// renderers can read the latest board and follow changes. The store never
// restores itself from the mirror.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"task-board/domain"
)

const (
	DefaultChannel = "board-updates"
	DefaultKey     = "board:snapshot"
)

type cachedBoard struct {
	Version  int          `json:"version"`
	CachedAt time.Time    `json:"cachedAt"`
	Board    domain.Board `json:"board"`
}

// Mirror writes each snapshot to a key and announces it on a channel.
type Mirror struct {
	redis   *redis.Client
	logger  *log.Logger
	channel string
	key     string
	ttl     time.Duration
	now     func() time.Time
}

// NewMirror creates a Mirror. Empty channel or key fall back to the defaults;
// a non-positive ttl keeps the key without expiry.
func NewMirror(client *redis.Client, logger *log.Logger, channel, key string, ttl time.Duration) *Mirror {
	if client == nil || logger == nil {
		panic("storage.NewMirror: redis client and logger are required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if key == "" {
		key = DefaultKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Mirror{redis: client, logger: logger, channel: channel, key: key, ttl: ttl, now: time.Now}
}

// Publish stores b and publishes it in one pipeline.
func (m *Mirror) Publish(ctx context.Context, b domain.Board) error {
	data, err := sonic.Marshal(cachedBoard{Version: 1, CachedAt: m.now().UTC(), Board: b})
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	_, err = m.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.key, data, m.ttl)
		pipe.Publish(ctx, m.channel, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror board v%d: %w", b.Version, err)
	}
	return nil
}

// Load returns the last mirrored board. The bool is false when nothing usable
// is stored; a corrupt entry is deleted.
func (m *Mirror) Load(ctx context.Context) (domain.Board, bool) {
	data, err := m.redis.Get(ctx, m.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.logger.WithError(err).WithField("key", m.key).Warn("load mirrored board")
		}
		return domain.Board{}, false
	}
	b, err := decode(data)
	if err != nil {
		m.logger.WithError(err).WithField("key", m.key).Warn("dropping corrupt mirrored board")
		_ = m.redis.Del(ctx, m.key).Err()
		return domain.Board{}, false
	}
	return b, true
}

func decode(data []byte) (domain.Board, error) {
	var cb cachedBoard
	if err := sonic.Unmarshal(data, &cb); err != nil {
		return domain.Board{}, err
	}
	return cb.Board, nil
}

// Subscribe delivers every board published on channel to fn until ctx is
// done, resubscribing if the connection drops.
func Subscribe(ctx context.Context, rc *redis.Client, channel string, logger *log.Logger, fn func(domain.Board)) {
	if channel == "" {
		channel = DefaultChannel
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b, err := decode([]byte(msg.Payload))
				if err != nil {
					logger.WithError(err).WithField("channel", channel).Error("unable to parse board update")
					continue
				}
				fn(b)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.WithField("channel", channel).Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
