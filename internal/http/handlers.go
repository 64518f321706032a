/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "errors"
    "io"
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/domain"
    "github.com/HamedShams/jirasnow/internal/tools"
)

// tokenHeader lets a caller supply a per-request warehouse token; without it
// the configured service token is used.
const tokenHeader = "X-Snowflake-Token"

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    reg *tools.Registry
}

func NewHandlers(cfg config.Config, log zerolog.Logger, reg *tools.Registry) *Handlers {
    return &Handlers{cfg: cfg, log: log, reg: reg}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) ListTools(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"tools": h.reg.List()})
}

func statusFor(err error) int {
    var unknown tools.ErrUnknownTool
    if errors.As(err, &unknown) { return http.StatusNotFound }
    switch domain.KindOf(err) {
    case domain.KindValidation, domain.KindQuerySyntax:
        return http.StatusBadRequest
    case domain.KindRateLimited:
        return http.StatusTooManyRequests
    case domain.KindQueryTimeout:
        return http.StatusGatewayTimeout
    case domain.KindQueryPermission:
        return http.StatusForbidden
    default:
        return http.StatusBadGateway
    }
}

func errorBody(err error) gin.H {
    var unknown tools.ErrUnknownTool
    if errors.As(err, &unknown) {
        return gin.H{"error": gin.H{"kind": domain.KindValidation, "code": "", "message": unknown.Error()}}
    }
    var de *domain.Error
    if errors.As(err, &de) {
        return gin.H{"error": gin.H{"kind": de.Kind, "code": de.Code, "message": de.Message}}
    }
    return gin.H{"error": gin.H{"kind": domain.KindQueryExecution, "code": "", "message": err.Error()}}
}

func (h *Handlers) CallTool(c *gin.Context) {
    name := c.Param("name")
    body, err := io.ReadAll(c.Request.Body)
    if err != nil {
        c.JSON(http.StatusBadRequest, errorBody(domain.Validationf("reading request body: %v", err)))
        return
    }

    out, err := h.reg.Call(c.Request.Context(), name, c.GetHeader(tokenHeader), body)
    if err != nil {
        status := statusFor(err)
        if status >= http.StatusInternalServerError {
            h.log.Error().Err(err).Str("tool", name).Msg("tool call failed")
        }
        c.JSON(status, errorBody(err))
        return
    }
    c.JSON(http.StatusOK, out)
}
