/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string
    LogLevel string

    SnowflakeBaseURL   string
    SnowflakeToken     string
    SnowflakeDatabase  string
    SnowflakeSchema    string
    SnowflakeWarehouse string

    MaxConnections int
    HTTPTimeout    time.Duration
    QueryTimeout   time.Duration

    RatePerSecond float64
    RateBurst     int
    RateWait      time.Duration

    EnableCaching  bool
    CacheTTL       time.Duration
    CacheMaxSize   int
    CacheSweepCron string

    BatchSize        int
    BatchConcurrency int
    MaxIssueKeys     int
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func atof(key string, def float64) float64 {
    v := os.Getenv(key)
    if v == "" { return def }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil { return def }
    return f
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func boolenv(key string, def bool) bool {
    v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
    if v == "" { return def }
    return v == "1" || v == "true" || v == "yes"
}

func Load() Config {
    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "UTC"),
        HTTPAddr: getenv("HTTP_ADDR", ":8080"),
        LogLevel: getenv("LOG_LEVEL", "info"),

        SnowflakeBaseURL:   strings.TrimRight(getenv("SNOWFLAKE_BASE_URL", ""), "/"),
        SnowflakeToken:     getenv("SNOWFLAKE_TOKEN", ""),
        SnowflakeDatabase:  getenv("SNOWFLAKE_DATABASE", ""),
        SnowflakeSchema:    getenv("SNOWFLAKE_SCHEMA", ""),
        SnowflakeWarehouse: getenv("SNOWFLAKE_WAREHOUSE", "DEFAULT"),

        MaxConnections: atoi("MAX_HTTP_CONNECTIONS", 20),
        HTTPTimeout:    dur("HTTP_TIMEOUT", 60*time.Second),
        QueryTimeout:   dur("MAX_QUERY_TIMEOUT", 60*time.Second),

        RatePerSecond: atof("RATE_LIMIT_PER_SECOND", 50),
        RateBurst:     atoi("RATE_LIMIT_BURST", 10),
        RateWait:      dur("RATE_LIMIT_WAIT", 5*time.Second),

        EnableCaching:  boolenv("ENABLE_CACHING", true),
        CacheTTL:       dur("CACHE_TTL", 5*time.Minute),
        CacheMaxSize:   atoi("CACHE_MAX_SIZE", 1000),
        CacheSweepCron: getenv("CACHE_SWEEP_CRON", "*/5 * * * *"),

        BatchSize:        atoi("QUERY_BATCH_SIZE", 5),
        BatchConcurrency: atoi("BATCH_CONCURRENCY", 4),
        MaxIssueKeys:     atoi("MAX_ISSUE_KEYS", 100),
    }
    if loc, err := time.LoadLocation(cfg.TZ); err == nil { time.Local = loc }
    return cfg
}

// Validate catches configuration that would otherwise only fail mid-request.
func (c Config) Validate() error {
    if c.MaxConnections < 1 { return fmt.Errorf("config: MAX_HTTP_CONNECTIONS must be >= 1, got %d", c.MaxConnections) }
    if c.RatePerSecond <= 0 { return fmt.Errorf("config: RATE_LIMIT_PER_SECOND must be > 0, got %v", c.RatePerSecond) }
    if c.RateBurst < 1 { return fmt.Errorf("config: RATE_LIMIT_BURST must be >= 1, got %d", c.RateBurst) }
    if c.CacheTTL < 0 { return fmt.Errorf("config: CACHE_TTL must not be negative, got %s", c.CacheTTL) }
    if c.CacheMaxSize < 1 { return fmt.Errorf("config: CACHE_MAX_SIZE must be >= 1, got %d", c.CacheMaxSize) }
    if c.BatchSize < 1 { return fmt.Errorf("config: QUERY_BATCH_SIZE must be >= 1, got %d", c.BatchSize) }
    if c.BatchConcurrency < 1 { return fmt.Errorf("config: BATCH_CONCURRENCY must be >= 1, got %d", c.BatchConcurrency) }
    if c.QueryTimeout <= 0 { return fmt.Errorf("config: MAX_QUERY_TIMEOUT must be > 0, got %s", c.QueryTimeout) }
    return nil
}
