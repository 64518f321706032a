/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog"

    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/tools"
)

func NewRouter(cfg config.Config, log zerolog.Logger, reg *tools.Registry) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, reg)

    r.GET("/healthz", h.Healthz)
    r.GET("/metrics", gin.WrapH(promhttp.Handler()))
    r.GET("/tools", h.ListTools)
    r.POST("/tools/:name", h.CallTool)

    return r
}
