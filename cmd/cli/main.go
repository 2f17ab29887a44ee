package main

import (
	"os"
	"strings"

	"github.com/dakar-humidity/alert-gateway/internal/app"
	"github.com/dakar-humidity/alert-gateway/internal/config"
	"github.com/dakar-humidity/alert-gateway/pkg/logger"
	"github.com/dakar-humidity/alert-gateway/pkg/pg"
)

// usage: cli [migrate|status] --env=.env --dir=./migrations
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	pgConf := app.WriteConfig(config.Get())
	dir := getMigrationPath()

	switch command() {
	case "status":
		err = pg.MigrationStatus(pgConf, dir)
	case "migrate":
		err = pg.Migrate(pgConf, dir)
	default:
		logger.Error("unknown command, expected migrate or status", "command", command())
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration: error running command", "command", command(), "error", err)
		os.Exit(1)
	}
}

func command() string {
	for _, v := range os.Args[1:] {
		if !strings.HasPrefix(v, "--") {
			return v
		}
	}
	return "migrate"
}

func getEnvPath() string {
	if p := app.EnvPath(); p != "" {
		return p
	}
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args[1:] {
		if strings.HasPrefix(v, "--dir=") {
			return strings.TrimPrefix(v, "--dir=")
		}
	}
	return "./migrations"
}
