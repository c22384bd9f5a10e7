// Package config loads runtime settings from the environment and an
// optional YAML file.
package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Config holds the settings of the serve and demo commands.
type Config struct {
	Debug           bool
	ListenAddr      string
	RedisConn       string
	SnapshotChannel string
	SnapshotKey     string
	SnapshotTTL     time.Duration
	NotificationTTL time.Duration
	SearchDebounce  time.Duration
	HighlightTTL    time.Duration
}

const (
	keyDebug           = "DEBUG"
	keyListenAddr      = "LISTEN_ADDR"
	keyRedisConn       = "REDIS_CONNECTION_STRING"
	keySnapshotChannel = "SNAPSHOT_CHANNEL"
	keySnapshotKey     = "SNAPSHOT_KEY"
	keySnapshotTTL     = "SNAPSHOT_TTL"
	keyNotificationTTL = "NOTIFICATION_TTL"
	keySearchDebounce  = "SEARCH_DEBOUNCE"
	keyHighlightTTL    = "HIGHLIGHT_TTL"
)

// New returns a viper instance with defaults set and environment binding
// enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyDebug, false)
	v.SetDefault(keyListenAddr, ":8080")
	v.SetDefault(keyRedisConn, "")
	v.SetDefault(keySnapshotChannel, "board-updates")
	v.SetDefault(keySnapshotKey, "board:snapshot")
	v.SetDefault(keySnapshotTTL, "24h")
	v.SetDefault(keyNotificationTTL, "3s")
	v.SetDefault(keySearchDebounce, "300ms")
	v.SetDefault(keyHighlightTTL, "2500ms")
	v.AutomaticEnv()
	return v
}

// Load reads settings from the environment, layered over file when it is
// not empty.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg := Config{
		Debug:           v.GetBool(keyDebug),
		ListenAddr:      v.GetString(keyListenAddr),
		RedisConn:       v.GetString(keyRedisConn),
		SnapshotChannel: v.GetString(keySnapshotChannel),
		SnapshotKey:     v.GetString(keySnapshotKey),
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{keySnapshotTTL, &cfg.SnapshotTTL},
		{keyNotificationTTL, &cfg.NotificationTTL},
		{keySearchDebounce, &cfg.SearchDebounce},
		{keyHighlightTTL, &cfg.HighlightTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", d.key, v.GetString(d.key))
		}
		*d.dst = parsed
	}
	return cfg, nil
}

// RedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("empty redis connection string")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
