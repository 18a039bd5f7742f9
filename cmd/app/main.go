// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/gwozai/DailyNotes/internal/config"
	"github.com/gwozai/DailyNotes/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// Best effort; config comes from flags, env and config.toml
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:   "app",
		Usage:  "Start the DailyNotes server",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			{
				Name:   "cleanup",
				Usage:  "Remove expired tokens and stale rate limit records, then exit",
				Flags:  config.Flags(),
				Action: server.RunCleanup,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
