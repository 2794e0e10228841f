// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command mattermost-warden is a moderation and message-archival bot for a
// Mattermost workspace. It classifies messages against configured word
// lists, quarantines offenders, and forwards user-flagged content across
// channels with duplicate suppression.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aiku/mattermost-warden/pkg/warden"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	writeExample := flag.Bool("write-example-config", false, "write the example config to the given path and exit")
	flag.Parse()

	if *writeExample {
		exerrors.PanicIfNotNil(os.WriteFile(*configPath, []byte(warden.ExampleConfig), 0o600))
		fmt.Println("Wrote example config to", *configPath)
		return
	}

	// Secrets may live in a .env file next to the binary.
	_ = godotenv.Load()

	cfg := exerrors.Must(warden.LoadConfig(*configPath))
	log := newLogger(cfg)
	log.Info().
		Str("tag", Tag).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Msg("Starting mattermost-warden")

	client := exerrors.Must(warden.NewClient(cfg, log))

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	log.Info().Msg("Connected, watching for events")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	client.Disconnect()
}

// newLogger builds the root logger: console on stderr, plus a rotating file
// when log_file is configured.
func newLogger(cfg *warden.Config) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
		})
	}
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
