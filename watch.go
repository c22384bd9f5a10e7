package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"task-board/config"
	"task-board/domain"
	"task-board/storage"
)

func watchCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow board snapshots mirrored to Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if cfg.RedisConn == "" {
				return errors.New("watch needs REDIS_CONNECTION_STRING")
			}
			opts, err := config.RedisOptions(cfg.RedisConn)
			if err != nil {
				return err
			}
			rc := redis.NewClient(opts)
			defer rc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mirror := storage.NewMirror(rc, logger, cfg.SnapshotChannel, cfg.SnapshotKey, cfg.SnapshotTTL)
			if b, ok := mirror.Load(ctx); ok {
				logSnapshot(logger, b)
			}
			storage.Subscribe(ctx, rc, cfg.SnapshotChannel, logger, func(b domain.Board) {
				logSnapshot(logger, b)
			})
			return nil
		},
	}
}

func logSnapshot(logger *log.Logger, b domain.Board) {
	logger.WithFields(log.Fields{
		"version":    b.Version,
		"busy":       b.Busy,
		"todo":       len(b.Todo),
		"inProgress": len(b.InProgress),
		"done":       len(b.Done),
	}).Info("board.snapshot")
}
