/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/HamedShams/jirasnow/internal/adapters/snowflake"
    "github.com/HamedShams/jirasnow/internal/config"
    httpapi "github.com/HamedShams/jirasnow/internal/http"
    "github.com/HamedShams/jirasnow/internal/jobs"
    "github.com/HamedShams/jirasnow/internal/logger"
    "github.com/HamedShams/jirasnow/internal/services"
    "github.com/HamedShams/jirasnow/internal/tools"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    if err := cfg.Validate(); err != nil {
        log.Fatal().Err(err).Msg("invalid configuration")
    }

    // Adapters
    wh := snowflake.NewClient(cfg, log)

    // Services
    svc := services.New(cfg, wh, log)
    registry := tools.NewRegistry(svc)

    // HTTP server (Gin)
    router := httpapi.NewRouter(cfg, log, registry)

    // Cron
    cron := jobs.NewCron(cfg, log, wh)
    cron.Start()
    defer cron.Stop()

    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
