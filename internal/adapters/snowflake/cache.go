package snowflake

import (
    "crypto/sha256"
    "encoding/hex"
    "time"

    lru "github.com/hashicorp/golang-lru/v2/expirable"

    "github.com/HamedShams/jirasnow/internal/query"
)

// resultCache memoizes query results for a bounded TTL and entry count. It is
// best effort: a miss only costs a warehouse round trip.
type resultCache struct {
    lru *lru.LRU[string, Rows]
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
    return &resultCache{lru: lru.NewLRU[string, Rows](maxSize, nil, ttl)}
}

// fingerprint identifies a memoizable query. It covers the statement text,
// every bind, and the token, so one principal never sees another's rows.
func fingerprint(stmt query.Statement, token string) string {
    h := sha256.New()
    h.Write([]byte(stmt.SQL))
    for _, b := range stmt.Binds {
        h.Write([]byte{0})
        h.Write([]byte(b.Type))
        h.Write([]byte{0})
        h.Write([]byte(b.Value))
    }
    h.Write([]byte{0})
    h.Write([]byte(token))
    return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) (Rows, bool) {
    if c == nil { return Rows{}, false }
    return c.lru.Get(key)
}

func (c *resultCache) put(key string, rows Rows) {
    if c == nil { return }
    c.lru.Add(key, rows)
}

func (c *resultCache) len() int {
    if c == nil { return 0 }
    return c.lru.Len()
}
