/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "sort"
    "strings"
    "sync"

    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"

    "github.com/HamedShams/jirasnow/internal/adapters/snowflake"
    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/domain"
    "github.com/HamedShams/jirasnow/internal/query"
)

// Warehouse is the slice of the Snowflake client the service needs.
type Warehouse interface {
    Execute(ctx context.Context, token string, stmt query.Statement) (snowflake.Rows, error)
}

type Service struct {
    cfg config.Config
    wh  Warehouse
    log zerolog.Logger
}

func New(cfg config.Config, wh Warehouse, log zerolog.Logger) *Service {
    return &Service{cfg: cfg, wh: wh, log: log.With().Str("component", "services").Logger()}
}

func issueFiltersApplied(f query.IssueFilters) map[string]any {
    out := map[string]any{}
    if f.Project != "" { out["project"] = f.Project }
    if f.IssueType != "" { out["issue_type"] = f.IssueType }
    if f.Status != "" { out["status"] = f.Status }
    if f.Priority != "" { out["priority"] = f.Priority }
    if f.SearchText != "" { out["search_text"] = f.SearchText }
    if f.Components != nil { out["components"] = f.Components }
    if f.FixVersion != "" { out["fix_version"] = f.FixVersion }
    if f.CreatedDays > 0 { out["created_days"] = f.CreatedDays }
    if f.UpdatedDays > 0 { out["updated_days"] = f.UpdatedDays }
    if f.ResolvedDays > 0 { out["resolved_days"] = f.ResolvedDays }
    if f.TimeframeDays > 0 { out["timeframe_days"] = f.TimeframeDays }
    if f.Limit > 0 { out["limit"] = f.Limit }
    return out
}

// attachLabels decorates summaries with their labels. Label lookup is an
// enrichment: a failure degrades the response instead of failing it.
func (s *Service) attachLabels(ctx context.Context, token string, issues []domain.IssueSummary, ids []string) {
    if len(ids) == 0 { return }
    stmt, err := query.IssueLabels(ids)
    if err != nil { return }
    rows, err := s.wh.Execute(ctx, token, stmt)
    if err != nil {
        s.log.Warn().Err(err).Msg("label enrichment failed")
        return
    }
    byIssue := labelsByIssue(rows)
    for i := range issues {
        if labels, ok := byIssue[deref(issues[i].ID)]; ok { issues[i].Labels = labels }
    }
}

// ListIssues runs the filtered issue listing with label enrichment.
func (s *Service) ListIssues(ctx context.Context, token string, f query.IssueFilters) (*domain.ListIssuesResult, error) {
    res := &domain.ListIssuesResult{Issues: []domain.IssueSummary{}, FiltersApplied: issueFiltersApplied(f)}
    stmt, err := query.ListIssues(f)
    if errors.Is(err, query.ErrNoMatch) { return res, nil }
    if err != nil { return nil, err }

    rows, err := s.wh.Execute(ctx, token, stmt)
    if err != nil { return nil, err }

    issues, ids := assembleIssueSummaries(rows)
    s.attachLabels(ctx, token, issues, ids)
    res.Issues = issues
    res.TotalReturned = len(issues)
    return res, nil
}

// normalizeKeys trims, uppercases and deduplicates, rejecting malformed keys
// here so no batch is dispatched for a request that can never succeed.
func normalizeKeys(keys []string) ([]string, error) {
    seen := map[string]bool{}
    out := make([]string, 0, len(keys))
    for _, k := range keys {
        k = strings.ToUpper(strings.TrimSpace(k))
        if k == "" || seen[k] { continue }
        if err := query.CheckIssueKey(k); err != nil { return nil, err }
        seen[k] = true
        out = append(out, k)
    }
    return out, nil
}

func chunk(keys []string, size int) [][]string {
    var out [][]string
    for len(keys) > size {
        out = append(out, keys[:size])
        keys = keys[size:]
    }
    if len(keys) > 0 { out = append(out, keys) }
    return out
}

// GetIssueDetails fetches full records for a set of keys. Keys are queried in
// batches; a batch that fails twice only marks its keys not found, and the
// call errors only when every batch failed.
func (s *Service) GetIssueDetails(ctx context.Context, token string, keys []string) (*domain.IssueDetailsResult, error) {
    keys, err := normalizeKeys(keys)
    if err != nil { return nil, err }
    if len(keys) == 0 { return nil, domain.Validationf("issue_keys is required") }
    if len(keys) > s.cfg.MaxIssueKeys {
        return nil, domain.Validationf("too many issue keys: %d exceeds the maximum of %d", len(keys), s.cfg.MaxIssueKeys)
    }

    batches := chunk(keys, s.cfg.BatchSize)

    var (
        mu      sync.Mutex
        details []domain.IssueDetail
        ids     []string
        failed  int
        lastErr error
    )
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(s.cfg.BatchConcurrency)
    for _, batch := range batches {
        batch := batch
        g.Go(func() error {
            stmt, err := query.IssueDetailsByKeys(batch)
            if err != nil { return err }
            rows, err := s.wh.Execute(gctx, token, stmt)
            if err != nil {
                // one retry before giving the batch up
                rows, err = s.wh.Execute(gctx, token, stmt)
            }
            mu.Lock()
            defer mu.Unlock()
            if err != nil {
                s.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("issue detail batch failed")
                failed++
                lastErr = err
                return nil
            }
            batchDetails, batchIDs := assembleIssueDetails(rows)
            details = append(details, batchDetails...)
            ids = append(ids, batchIDs...)
            return nil
        })
    }
    if err := g.Wait(); err != nil { return nil, err }
    if failed == len(batches) { return nil, lastErr }

    s.enrichDetails(ctx, token, details, ids)

    found := make(map[string]domain.IssueDetail, len(details))
    for _, d := range details { found[deref(d.Key)] = d }
    notFound := []string{}
    for _, k := range keys {
        if _, ok := found[k]; !ok { notFound = append(notFound, k) }
    }
    return &domain.IssueDetailsResult{
        FoundIssues:    found,
        NotFound:       notFound,
        TotalFound:     len(found),
        TotalRequested: len(keys),
        Partial:        failed > 0,
    }, nil
}

// enrichDetails runs the four child lookups concurrently and merges them in.
// Each lookup is best effort; failures are logged and leave the collection
// empty.
func (s *Service) enrichDetails(ctx context.Context, token string, details []domain.IssueDetail, ids []string) {
    if len(ids) == 0 || len(details) == 0 { return }

    requested := make(map[string]bool, len(ids))
    for _, id := range ids { requested[id] = true }

    var (
        labels   map[string][]string
        comments map[string][]domain.Comment
        links    map[string][]domain.IssueLink
        versions map[string][]string
    )
    var wg sync.WaitGroup
    run := func(name string, build func() (query.Statement, error), apply func(snowflake.Rows)) {
        wg.Add(1)
        go func() {
            defer wg.Done()
            stmt, err := build()
            if err != nil { return }
            rows, err := s.wh.Execute(ctx, token, stmt)
            if err != nil {
                s.log.Warn().Err(err).Str("lookup", name).Msg("issue enrichment failed")
                return
            }
            apply(rows)
        }()
    }
    run("labels", func() (query.Statement, error) { return query.IssueLabels(ids) },
        func(rows snowflake.Rows) { labels = labelsByIssue(rows) })
    run("comments", func() (query.Statement, error) { return query.IssueComments(ids) },
        func(rows snowflake.Rows) { comments = commentsByIssue(rows) })
    run("links", func() (query.Statement, error) { return query.IssueLinks(ids) },
        func(rows snowflake.Rows) { links = linksByIssue(rows, requested) })
    run("versions", func() (query.Statement, error) { return query.IssueVersions(ids) },
        func(rows snowflake.Rows) { versions = versionsByIssue(rows) })
    wg.Wait()

    for i := range details {
        id := deref(details[i].ID)
        if v, ok := labels[id]; ok { details[i].Labels = v }
        if v, ok := comments[id]; ok { details[i].Comments = v }
        if v, ok := links[id]; ok { details[i].Links = v }
        if v, ok := versions[id]; ok { details[i].FixVersions = v }
    }
}

// GetProjectSummary aggregates per-project issue counts.
func (s *Service) GetProjectSummary(ctx context.Context, token string) (*domain.ProjectSummaryResult, error) {
    rows, err := s.wh.Execute(ctx, token, query.ProjectSummary())
    if err != nil { return nil, err }
    return assembleProjectSummary(rows), nil
}

// GetIssueLinks resolves a key to its id and returns every link touching it.
func (s *Service) GetIssueLinks(ctx context.Context, token, issueKey string) (*domain.IssueLinksResult, error) {
    stmt, err := query.IssueByKey(issueKey)
    if err != nil { return nil, err }
    rows, err := s.wh.Execute(ctx, token, stmt)
    if err != nil { return nil, err }
    if rows.Len() == 0 { return nil, domain.Validationf("issue %q not found", strings.ToUpper(strings.TrimSpace(issueKey))) }

    rd := newRowReader(rows)
    id := deref(rd.get(rows.Data[0], "ID"))
    key := deref(rd.get(rows.Data[0], "ISSUE_KEY"))

    res := &domain.IssueLinksResult{IssueKey: key, IssueID: id, Links: []domain.IssueLink{}}
    linkStmt, err := query.IssueLinks([]string{id})
    if err != nil { return nil, err }
    linkRows, err := s.wh.Execute(ctx, token, linkStmt)
    if err != nil { return nil, err }

    if links := linksByIssue(linkRows, map[string]bool{id: true})[id]; links != nil { res.Links = links }
    sort.SliceStable(res.Links, func(i, j int) bool { return res.Links[i].LinkType < res.Links[j].LinkType })
    res.TotalLinks = len(res.Links)
    return res, nil
}

// GetIssuesBySprint lists the issues attached to a named sprint. An unknown
// sprint name yields an empty result, not an error.
func (s *Service) GetIssuesBySprint(ctx context.Context, token, sprintName, project string, limit int) (*domain.SprintIssuesResult, error) {
    // limit is checked here so a bad value never costs the resolve query
    if _, err := query.CheckLimit(limit); err != nil { return nil, err }
    stmt, err := query.SprintByName(sprintName)
    if err != nil { return nil, err }
    rows, err := s.wh.Execute(ctx, token, stmt)
    if err != nil { return nil, err }

    res := &domain.SprintIssuesResult{SprintName: strings.TrimSpace(sprintName), Issues: []domain.IssueSummary{}}
    if rows.Len() == 0 { return res, nil }

    rd := newRowReader(rows)
    sprintID := deref(rd.get(rows.Data[0], "ID"))
    res.SprintID = rd.get(rows.Data[0], "ID")

    issueStmt, err := query.IssuesBySprint(sprintID, project, limit)
    if err != nil { return nil, err }
    issueRows, err := s.wh.Execute(ctx, token, issueStmt)
    if err != nil { return nil, err }

    issues, ids := assembleIssueSummaries(issueRows)
    s.attachLabels(ctx, token, issues, ids)
    res.Issues = issues
    res.TotalReturned = len(issues)
    return res, nil
}

// ListComponents runs the filtered component listing.
func (s *Service) ListComponents(ctx context.Context, token string, f query.ComponentFilters) (*domain.ComponentsResult, error) {
    res := &domain.ComponentsResult{Components: []domain.Component{}, FiltersApplied: map[string]any{}}
    if f.Project != "" { res.FiltersApplied["project"] = f.Project }
    if f.Archived != "" { res.FiltersApplied["archived"] = f.Archived }
    if f.Deleted != "" { res.FiltersApplied["deleted"] = f.Deleted }
    if f.SearchText != "" { res.FiltersApplied["search_text"] = f.SearchText }
    if f.Limit > 0 { res.FiltersApplied["limit"] = f.Limit }

    stmt, err := query.ComponentList(f)
    if err != nil { return nil, err }
    rows, err := s.wh.Execute(ctx, token, stmt)
    if err != nil { return nil, err }

    res.Components = assembleComponents(rows)
    res.TotalReturned = len(res.Components)
    return res, nil
}
