package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/bridgectl/internal/relay"
)

type appConfig struct {
	Relay    relay.ServiceConfig
	LogLevel string
}

type fileConfig struct {
	ListenAddr             string   `toml:"listen_addr"`
	AdminAddr              string   `toml:"admin_addr"`
	AdminCorsOrigins       []string `toml:"admin_cors_origins"`
	ArtifactsDir           string   `toml:"artifacts_dir"`
	MaxBrowserMessageBytes int64    `toml:"max_browser_message_bytes"`
	MaxEngineMessageBytes  int64    `toml:"max_engine_message_bytes"`
	HeartbeatInterval      string   `toml:"heartbeat_interval"`
	LogLevel               string   `toml:"log_level"`
}

// loadAppConfig overlays an optional TOML file onto built-in defaults. A
// missing file at the default path is not an error; a path set explicitly
// via BRIDGECTL_CONFIG must exist.
func loadAppConfig(path string) (appConfig, error) {
	cfg := appConfig{Relay: relay.DefaultServiceConfig(), LogLevel: "info"}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv("BRIDGECTL_CONFIG") == "" {
			return cfg, nil
		}
		return appConfig{}, fmt.Errorf("load relay config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		addr := strings.TrimSpace(raw.ListenAddr)
		if addr != "" {
			cfg.Relay.ListenAddr = addr
		}
	}

	if meta.IsDefined("admin_addr") {
		cfg.Relay.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("admin_cors_origins") {
		cfg.Relay.AdminCorsOrigins = normalizeOrigins(raw.AdminCorsOrigins)
	}

	if meta.IsDefined("artifacts_dir") {
		dir := strings.TrimSpace(raw.ArtifactsDir)
		if dir != "" {
			cfg.Relay.ArtifactsDir = dir
		}
	}

	if meta.IsDefined("max_browser_message_bytes") {
		if raw.MaxBrowserMessageBytes <= 0 {
			return appConfig{}, fmt.Errorf("max_browser_message_bytes must be positive")
		}
		cfg.Relay.MaxBrowserMessageBytes = uint32(raw.MaxBrowserMessageBytes)
	}

	if meta.IsDefined("max_engine_message_bytes") {
		if raw.MaxEngineMessageBytes <= 0 {
			return appConfig{}, fmt.Errorf("max_engine_message_bytes must be positive")
		}
		cfg.Relay.MaxEngineMessageBytes = uint32(raw.MaxEngineMessageBytes)
	}

	if meta.IsDefined("heartbeat_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HeartbeatInterval))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.Relay.HeartbeatInterval = d
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
