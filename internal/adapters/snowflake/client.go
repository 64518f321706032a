/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package snowflake

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
    "golang.org/x/sync/semaphore"
    "golang.org/x/time/rate"

    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/domain"
    "github.com/HamedShams/jirasnow/internal/metrics"
    "github.com/HamedShams/jirasnow/internal/query"
)

// Client talks to the Snowflake SQL API statements endpoint. It is the only
// process-wide mutable state besides the cache: one connection pool, one rate
// limiter, one concurrency ceiling, shared by every in-flight operation.
type Client struct {
    baseURL   string
    token     string
    database  string
    schema    string
    warehouse string

    http         *http.Client
    limiter      *rate.Limiter
    sem          *semaphore.Weighted
    rateWait     time.Duration
    queryTimeout time.Duration
    cache        *resultCache
    log          zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    transport := &http.Transport{
        MaxIdleConns:        cfg.MaxConnections,
        MaxIdleConnsPerHost: cfg.MaxConnections,
        MaxConnsPerHost:     cfg.MaxConnections,
        IdleConnTimeout:     90 * time.Second,
    }
    c := &Client{
        baseURL:      strings.TrimRight(cfg.SnowflakeBaseURL, "/"),
        token:        cfg.SnowflakeToken,
        database:     cfg.SnowflakeDatabase,
        schema:       cfg.SnowflakeSchema,
        warehouse:    cfg.SnowflakeWarehouse,
        http:         &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport},
        limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
        sem:          semaphore.NewWeighted(int64(cfg.MaxConnections)),
        rateWait:     cfg.RateWait,
        queryTimeout: cfg.QueryTimeout,
        log:          log,
    }
    if cfg.EnableCaching { c.cache = newResultCache(cfg.CacheMaxSize, cfg.CacheTTL) }
    return c
}

// CacheLen reports the number of memoized results (0 when caching is off).
func (c *Client) CacheLen() int { return c.cache.len() }

type statementRequest struct {
    Statement  string                `json:"statement"`
    Timeout    int                   `json:"timeout"`
    Database   string                `json:"database,omitempty"`
    Schema     string                `json:"schema,omitempty"`
    Warehouse  string                `json:"warehouse,omitempty"`
    Bindings   map[string]query.Bind `json:"bindings,omitempty"`
    Parameters map[string]any        `json:"parameters,omitempty"`
}

type statementResponse struct {
    Code            string `json:"code"`
    Message         string `json:"message"`
    SQLState        string `json:"sqlState"`
    StatementHandle string `json:"statementHandle"`
    ResultSetMetaData struct {
        NumRows int64 `json:"numRows"`
        RowType []struct {
            Name string `json:"name"`
            Type string `json:"type"`
        } `json:"rowType"`
        PartitionInfo []struct {
            RowCount int64 `json:"rowCount"`
        } `json:"partitionInfo"`
    } `json:"resultSetMetaData"`
    Data [][]any `json:"data"`
}

// Execute runs one statement and returns its rows. token overrides the
// configured credential for this call (header-scoped tokens); empty falls
// back to config. Safe for concurrent use.
func (c *Client) Execute(ctx context.Context, token string, stmt query.Statement) (Rows, error) {
    if token == "" { token = c.token }
    if token == "" { return Rows{}, domain.Validationf("snowflake token not available: set SNOWFLAKE_TOKEN or pass X-Snowflake-Token") }
    if c.baseURL == "" { return Rows{}, domain.Validationf("snowflake base URL not configured") }

    key := fingerprint(stmt, token)
    if rows, ok := c.cache.get(key); ok {
        metrics.ObserveCache(true)
        return rows, nil
    }
    if c.cache != nil { metrics.ObserveCache(false) }

    if err := c.sem.Acquire(ctx, 1); err != nil { return Rows{}, domain.Executionf(err, "acquiring warehouse slot: %v", err) }
    defer c.sem.Release(1)

    waitCtx, cancel := context.WithTimeout(ctx, c.rateWait)
    err := c.limiter.Wait(waitCtx)
    cancel()
    if err != nil {
        // caller cancellation is not a warehouse deadline and not saturation
        switch {
        case errors.Is(ctx.Err(), context.Canceled):
            return Rows{}, domain.Executionf(ctx.Err(), "statement canceled while waiting for rate limiter")
        case errors.Is(ctx.Err(), context.DeadlineExceeded):
            return Rows{}, domain.Timeoutf("deadline reached while waiting for rate limiter")
        default:
            return Rows{}, domain.RateLimitedf("local rate limit saturated after %s", c.rateWait)
        }
    }

    start := time.Now()
    rows, err := c.submit(ctx, token, stmt)
    metrics.ObserveQuery(start, err)
    if err != nil { return Rows{}, err }

    c.cache.put(key, rows)
    return rows, nil
}

func (c *Client) submit(ctx context.Context, token string, stmt query.Statement) (Rows, error) {
    ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
    defer cancel()

    payload := statementRequest{
        Statement:  stmt.SQL,
        Timeout:    int(c.queryTimeout.Seconds()),
        Database:   c.database,
        Schema:     c.schema,
        Warehouse:  c.warehouse,
        Parameters: map[string]any{"rows_per_resultset": 0},
    }
    if len(stmt.Binds) > 0 {
        payload.Bindings = make(map[string]query.Bind, len(stmt.Binds))
        for i, b := range stmt.Binds { payload.Bindings[strconv.Itoa(i+1)] = b }
    }
    body, err := json.Marshal(payload)
    if err != nil { return Rows{}, domain.Executionf(err, "encoding statement: %v", err) }

    // requestId keeps retried POSTs idempotent on the Snowflake side
    requestID := uuid.NewString()
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        if attempt > 0 {
            select {
            case <-ctx.Done():
                return Rows{}, c.ctxError(ctx)
            case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
            }
        }
        u := c.baseURL + "/statements?requestId=" + requestID
        if attempt > 0 { u += "&retry=true" }
        resp, reqErr := c.doJSON(ctx, http.MethodPost, u, token, body)
        if reqErr != nil {
            if ctx.Err() != nil { return Rows{}, c.ctxError(ctx) }
            lastErr = domain.Executionf(reqErr, "snowflake request failed: %v", reqErr)
            continue
        }
        if resp.retryable {
            lastErr = domain.Executionf(nil, "snowflake api status=%d body=%s", resp.status, resp.errBody)
            continue
        }
        if resp.err != nil { return Rows{}, resp.err }
        return c.collect(ctx, token, resp.body)
    }
    if lastErr == nil { lastErr = domain.Executionf(nil, "snowflake request failed") }
    return Rows{}, lastErr
}

func (c *Client) ctxError(ctx context.Context) error {
    if errors.Is(ctx.Err(), context.DeadlineExceeded) { return domain.Timeoutf("statement exceeded %s deadline", c.queryTimeout) }
    return domain.Executionf(ctx.Err(), "statement canceled")
}

type apiResult struct {
    status    int
    body      *statementResponse
    err       error
    errBody   string
    retryable bool
}

// doJSON performs one HTTP exchange and classifies the outcome: decoded body,
// terminal application error, or retryable transient failure.
func (c *Client) doJSON(ctx context.Context, method, u, token string, body []byte) (apiResult, error) {
    var r io.Reader
    if body != nil { r = bytes.NewReader(body) }
    req, err := http.NewRequestWithContext(ctx, method, u, r)
    if err != nil { return apiResult{}, err }
    req.Header.Set("Authorization", "Bearer "+token)
    req.Header.Set("Accept", "application/json")
    if body != nil { req.Header.Set("Content-Type", "application/json") }

    resp, err := c.http.Do(req)
    if err != nil { return apiResult{}, err }
    defer resp.Body.Close()

    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        trimmed := strings.TrimSpace(string(b))
        if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
            return apiResult{status: resp.StatusCode, errBody: trimmed, retryable: true}, nil
        }
        return apiResult{status: resp.StatusCode, err: remoteError(resp.StatusCode, trimmed)}, nil
    }
    var out statementResponse
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return apiResult{status: resp.StatusCode, err: domain.Executionf(err, "malformed snowflake response: %v", err)}, nil
    }
    return apiResult{status: resp.StatusCode, body: &out}, nil
}

// remoteError maps a 4xx error payload onto the taxonomy, preserving the
// remote code verbatim for diagnosability.
func remoteError(status int, body string) error {
    var payload struct {
        Code     string `json:"code"`
        Message  string `json:"message"`
        SQLState string `json:"sqlState"`
    }
    _ = json.Unmarshal([]byte(body), &payload)
    msg := payload.Message
    if msg == "" { msg = body }
    if status == http.StatusUnauthorized || status == http.StatusForbidden {
        return domain.NewError(domain.KindQueryPermission, payload.Code, fmt.Sprintf("snowflake rejected credentials (status=%d): %s", status, msg), nil)
    }
    // compilation errors carry 001xxx codes; everything else 4xx is still an
    // application-level rejection of our statement
    if strings.HasPrefix(payload.Code, "001") {
        return domain.NewError(domain.KindQuerySyntax, payload.Code, fmt.Sprintf("snowflake rejected statement: %s", msg), nil)
    }
    return domain.NewError(domain.KindQueryExecution, payload.Code, fmt.Sprintf("snowflake api status=%d: %s", status, msg), nil)
}

// collect converts a decoded response into Rows, following additional result
// partitions when the metadata announces them.
func (c *Client) collect(ctx context.Context, token string, resp *statementResponse) (Rows, error) {
    rows := Rows{Columns: make([]string, 0, len(resp.ResultSetMetaData.RowType))}
    for _, col := range resp.ResultSetMetaData.RowType { rows.Columns = append(rows.Columns, col.Name) }
    rows.Data = convertData(resp.Data)

    nParts := len(resp.ResultSetMetaData.PartitionInfo)
    if nParts > 1 && resp.StatementHandle != "" {
        c.log.Debug().Int("partitions", nParts).Str("handle", resp.StatementHandle).Msg("snowflake: fetching result partitions")
        for p := 1; p < nParts; p++ {
            u := fmt.Sprintf("%s/statements/%s?partition=%d", c.baseURL, resp.StatementHandle, p)
            part, err := c.doJSON(ctx, http.MethodGet, u, token, nil)
            if err != nil {
                if ctx.Err() != nil { return Rows{}, c.ctxError(ctx) }
                return Rows{}, domain.Executionf(err, "fetching partition %d: %v", p, err)
            }
            if part.err != nil { return Rows{}, part.err }
            if part.retryable { return Rows{}, domain.Executionf(nil, "fetching partition %d: status=%d body=%s", p, part.status, part.errBody) }
            rows.Data = append(rows.Data, convertData(part.body.Data)...)
        }
    }
    return rows, nil
}

func convertData(data [][]any) [][]*string {
    out := make([][]*string, 0, len(data))
    for _, row := range data {
        converted := make([]*string, len(row))
        for i, cell := range row { converted[i] = cellToString(cell) }
        out = append(out, converted)
    }
    return out
}
