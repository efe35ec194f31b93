package main

import (
	"fmt"
	"os"

	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/relay"
)

func main() {
	observability.InitLogger("bridgectl")

	cfg, err := loadAppConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
	observability.SetLevel(cfg.LogLevel)

	svc := relay.NewServiceWithConfig(cfg.Relay)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
}

// configPath resolves the config file location. The relay takes no CLI
// arguments: the browser launches it directly, so the only override knob is
// the environment.
func configPath() string {
	if p := os.Getenv("BRIDGECTL_CONFIG"); p != "" {
		return p
	}
	return "bridgectl.toml"
}
