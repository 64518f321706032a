package jobs

import (
    "time"

    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"

    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/metrics"
)

type cacheStats interface { CacheLen() int }

type Cron struct {
    cfg   config.Config
    log   zerolog.Logger
    cache cacheStats
    c     *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, cache cacheStats) *Cron {
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, cache: cache, c: c}
    _, _ = c.AddFunc(cfg.CacheSweepCron, cr.sweep)
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

// sweep publishes the live cache size. Expired entries drop out of the LRU on
// their own; this keeps the gauge honest between queries.
func (cr *Cron) sweep() {
    n := cr.cache.CacheLen()
    metrics.SetCacheEntries(n)
    cr.log.Info().Int("entries", n).Msg("cron: cache sweep")
}
