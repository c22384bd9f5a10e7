package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"task-board/config"
)

var Version = "dev"

func main() {
	var configFile string
	rootCmd := &cobra.Command{
		Use:          "taskboard",
		Short:        "Task board core with HTTP and event stream adapters",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")

	load := func() (config.Config, *log.Logger, error) {
		cfg, err := config.Load(config.New(), configFile)
		if err != nil {
			return config.Config{}, nil, err
		}
		return cfg, newLogger(cfg), nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(demoCmd(load))
	rootCmd.AddCommand(watchCmd(load))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func() (config.Config, *log.Logger, error)

func newLogger(cfg config.Config) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
