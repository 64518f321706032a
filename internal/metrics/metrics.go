/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "jirasnow_tool_calls_total",
        Help: "Total number of tool calls",
    }, []string{"tool", "status"})

    toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
        Name:    "jirasnow_tool_call_duration_seconds",
        Help:    "Duration of tool calls in seconds",
        Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
    }, []string{"tool"})

    snowflakeQueries = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "jirasnow_snowflake_queries_total",
        Help: "Total number of Snowflake statements executed",
    }, []string{"status"})

    queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
        Name:    "jirasnow_snowflake_query_duration_seconds",
        Help:    "Duration of Snowflake statements in seconds",
        Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
    })

    cacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "jirasnow_cache_operations_total",
        Help: "Query cache lookups by result",
    }, []string{"result"})

    cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "jirasnow_cache_entries",
        Help: "Entries currently held by the query cache",
    })
)

func ObserveToolCall(tool string, start time.Time, err error) {
    status := "success"
    if err != nil { status = "error" }
    toolCalls.WithLabelValues(tool, status).Inc()
    toolDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}

func ObserveQuery(start time.Time, err error) {
    status := "success"
    if err != nil { status = "error" }
    snowflakeQueries.WithLabelValues(status).Inc()
    queryDuration.Observe(time.Since(start).Seconds())
}

func ObserveCache(hit bool) {
    if hit { cacheOps.WithLabelValues("hit").Inc(); return }
    cacheOps.WithLabelValues("miss").Inc()
}

func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }
