package main

import (
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"task-board/board"
	"task-board/config"
	"task-board/loading"
	"task-board/notify"
	"task-board/search"
	"task-board/storage"
)

// app is the composition root: one of each core component, owned for the
// lifetime of the process.
type app struct {
	loading *loading.Coordinator
	notes   *notify.Queue
	store   *board.Store
	search  *search.Path
	redis   *redis.Client
}

func newApp(cfg config.Config, logger *log.Logger, opts ...board.Option) (*app, error) {
	a := &app{
		loading: loading.New(logger),
		notes:   notify.NewQueue(logger, cfg.NotificationTTL),
	}
	if cfg.RedisConn != "" {
		redisOpts, err := config.RedisOptions(cfg.RedisConn)
		if err != nil {
			return nil, err
		}
		a.redis = redis.NewClient(redisOpts)
		mirror := storage.NewMirror(a.redis, logger, cfg.SnapshotChannel, cfg.SnapshotKey, cfg.SnapshotTTL)
		opts = append(opts, board.WithPublisher(mirror))
	}
	a.store = board.New(a.loading, a.notes, logger, opts...)
	a.search = search.NewPath(a.store, logger,
		search.WithDebounce(cfg.SearchDebounce),
		search.WithHighlighter(search.NewHighlighter(cfg.HighlightTTL)),
	)
	return a, nil
}

func (a *app) Close() {
	a.search.Close()
	a.notes.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
