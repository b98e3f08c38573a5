// Copyright 2024 Vadim Vygonets.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Qrshaped serves the shaped QR code API over HTTP.
//
// Rendered artifacts are kept under the configured storage directory
// and served at /static/; render records are kept in SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/unixdj/qrshape"
	"github.com/unixdj/qrshape/internal/api"
	"github.com/unixdj/qrshape/internal/catalog"
	"github.com/unixdj/qrshape/internal/config"
	"github.com/unixdj/qrshape/internal/storage"
	"github.com/unixdj/qrshape/verify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, listen, logLevel string
	flagSet := pflag.NewFlagSet("qrshaped", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&listen, "listen", "", "listen address, overriding the config")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error, overriding the config")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := storage.New(cfg.Storage.Dir, cfg.Storage.CompressVectors)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	s := &api.Server{
		Config:   cfg,
		Store:    store,
		Catalog:  cat,
		Renderer: &qrshape.Renderer{Logger: logger, Limits: cfg.RenderLimits()},
		Verifier: verify.Default(),
		Logger:   logger,
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "storage", cfg.Storage.Dir,
			"database", cfg.Database.Path)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
