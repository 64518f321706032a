/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "strings"
    "sync"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/jirasnow/internal/adapters/snowflake"
    "github.com/HamedShams/jirasnow/internal/config"
    "github.com/HamedShams/jirasnow/internal/domain"
    "github.com/HamedShams/jirasnow/internal/query"
)

func sp(s string) *string { return &s }

func mkRows(columns []string, data ...[]*string) snowflake.Rows {
    return snowflake.Rows{Columns: columns, Data: data}
}

// fakeWarehouse dispatches on statement text so each test controls exactly
// the row sets its scenario needs.
type fakeWarehouse struct {
    mu       sync.Mutex
    handlers []func(stmt query.Statement) (snowflake.Rows, error, bool)
    executed []query.Statement
}

func (f *fakeWarehouse) on(match string, rows snowflake.Rows, err error) {
    f.handlers = append(f.handlers, func(stmt query.Statement) (snowflake.Rows, error, bool) {
        if strings.Contains(stmt.SQL, match) { return rows, err, true }
        return snowflake.Rows{}, nil, false
    })
}

func (f *fakeWarehouse) onFunc(fn func(stmt query.Statement) (snowflake.Rows, error, bool)) {
    f.handlers = append(f.handlers, fn)
}

func (f *fakeWarehouse) Execute(_ context.Context, _ string, stmt query.Statement) (snowflake.Rows, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.executed = append(f.executed, stmt)
    for _, h := range f.handlers {
        if rows, err, ok := h(stmt); ok { return rows, err }
    }
    return snowflake.Rows{}, nil
}

func (f *fakeWarehouse) calls() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return len(f.executed)
}

func testService(wh Warehouse) *Service {
    cfg := config.Config{BatchSize: 2, BatchConcurrency: 2, MaxIssueKeys: 10}
    return New(cfg, wh, zerolog.Nop())
}

var summaryColumns = []string{
    "ID", "ISSUE_KEY", "PROJECT", "ISSUENUM", "ISSUETYPE", "SUMMARY",
    "DESCRIPTION_TRUNCATED", "PRIORITY", "ISSUESTATUS", "RESOLUTION",
    "CREATED", "UPDATED", "DUEDATE", "RESOLUTIONDATE", "VOTES", "WATCHES",
    "ENVIRONMENT", "COMPONENT", "FIXFOR",
}

func summaryRow(id, key string) []*string {
    row := make([]*string, len(summaryColumns))
    row[0] = sp(id)
    row[1] = sp(key)
    row[2] = sp("SMQE")
    row[5] = sp("summary of " + key)
    return row
}

func TestListIssues(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_ISSUE_NON_PII", mkRows(summaryColumns, summaryRow("100", "SMQE-1"), summaryRow("101", "SMQE-2")), nil)
    wh.on("FROM JIRA_LABEL_RHAI", mkRows([]string{"ISSUE", "LABEL"},
        []*string{sp("100"), sp("triaged")},
        []*string{sp("100"), sp("urgent")},
    ), nil)

    res, err := testService(wh).ListIssues(context.Background(), "", query.IssueFilters{Project: "SMQE", Limit: 2})
    require.NoError(t, err)
    assert.Equal(t, 2, res.TotalReturned)
    assert.Equal(t, []string{"triaged", "urgent"}, res.Issues[0].Labels)
    assert.Empty(t, res.Issues[1].Labels)
    assert.NotNil(t, res.Issues[1].Labels, "labels must serialize as [] not null")
    assert.Equal(t, map[string]any{"project": "SMQE", "limit": 2}, res.FiltersApplied)
}

func TestListIssuesIdempotent(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_ISSUE_NON_PII", mkRows(summaryColumns, summaryRow("100", "SMQE-1"), summaryRow("101", "SMQE-2")), nil)
    wh.on("FROM JIRA_LABEL_RHAI", mkRows([]string{"ISSUE", "LABEL"},
        []*string{sp("100"), sp("triaged")},
    ), nil)

    svc := testService(wh)
    filters := query.IssueFilters{Project: "SMQE", Limit: 2}
    first, err := svc.ListIssues(context.Background(), "", filters)
    require.NoError(t, err)
    second, err := svc.ListIssues(context.Background(), "", filters)
    require.NoError(t, err)
    assert.Equal(t, first, second, "identical filters over unchanged data must yield identical ordered output")
}

func TestListIssuesEmptyComponentsShortCircuits(t *testing.T) {
    wh := &fakeWarehouse{}
    res, err := testService(wh).ListIssues(context.Background(), "", query.IssueFilters{Components: []string{}})
    require.NoError(t, err)
    assert.Empty(t, res.Issues)
    assert.Zero(t, res.TotalReturned)
    assert.Zero(t, wh.calls(), "no statement may reach the warehouse")
}

func TestListIssuesLabelFailureDegrades(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_ISSUE_NON_PII", mkRows(summaryColumns, summaryRow("100", "SMQE-1")), nil)
    wh.on("FROM JIRA_LABEL_RHAI", snowflake.Rows{}, domain.Executionf(nil, "warehouse down"))

    res, err := testService(wh).ListIssues(context.Background(), "", query.IssueFilters{})
    require.NoError(t, err, "label lookup failure must not fail the listing")
    assert.Equal(t, 1, res.TotalReturned)
    assert.Empty(t, res.Issues[0].Labels)
}

func detailColumns() []string {
    cols := make([]string, 0, len(summaryColumns)+7)
    for _, c := range summaryColumns {
        if c == "DESCRIPTION_TRUNCATED" { c = "DESCRIPTION" }
        cols = append(cols, c)
    }
    return append(cols, "TIMEORIGINALESTIMATE", "TIMEESTIMATE", "TIMESPENT", "WORKFLOW_ID", "SECURITY", "ARCHIVED", "ARCHIVEDDATE")
}

func detailRow(id, key string) []*string {
    row := make([]*string, len(detailColumns()))
    row[0] = sp(id)
    row[1] = sp(key)
    row[6] = sp("full description of " + key)
    return row
}

func TestGetIssueDetailsFoundAndNotFound(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.onFunc(func(stmt query.Statement) (snowflake.Rows, error, bool) {
        if !strings.Contains(stmt.SQL, "ISSUE_KEY IN") { return snowflake.Rows{}, nil, false }
        // only X-1 exists regardless of which batch asked
        for _, b := range stmt.Binds {
            if b.Value == "X-1" { return mkRows(detailColumns(), detailRow("100", "X-1")), nil, true }
        }
        return mkRows(detailColumns()), nil, true
    })
    wh.on("FROM JIRA_COMMENT_NON_PII", mkRows([]string{"ID", "ISSUEID", "ROLELEVEL", "BODY", "CREATED", "UPDATED"},
        []*string{sp("9000"), sp("100"), nil, sp("first comment"), sp("2025-01-01"), nil},
    ), nil)

    res, err := testService(wh).GetIssueDetails(context.Background(), "", []string{"x-1", "X-999", "X-1"})
    require.NoError(t, err)
    assert.Equal(t, 2, res.TotalRequested, "duplicates collapse")
    assert.Equal(t, 1, res.TotalFound)
    assert.Equal(t, []string{"X-999"}, res.NotFound)
    assert.False(t, res.Partial)

    d, ok := res.FoundIssues["X-1"]
    require.True(t, ok)
    assert.Equal(t, "full description of X-1", d.Description)
    require.Len(t, d.Comments, 1)
    assert.Equal(t, "first comment", *d.Comments[0].Body)
    assert.NotNil(t, d.Links)
    assert.NotNil(t, d.FixVersions)
    assert.NotNil(t, d.Labels)
}

func TestGetIssueDetailsBatchFailureIsPartial(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.onFunc(func(stmt query.Statement) (snowflake.Rows, error, bool) {
        if !strings.Contains(stmt.SQL, "ISSUE_KEY IN") { return snowflake.Rows{}, nil, false }
        for _, b := range stmt.Binds {
            if b.Value == "B-1" { return snowflake.Rows{}, domain.Executionf(nil, "warehouse down"), true }
        }
        return mkRows(detailColumns(), detailRow("200", "A-1"), detailRow("201", "A-2")), nil, true
    })

    svc := New(config.Config{BatchSize: 2, BatchConcurrency: 2, MaxIssueKeys: 10}, wh, zerolog.Nop())
    res, err := svc.GetIssueDetails(context.Background(), "", []string{"A-1", "A-2", "B-1", "B-2"})
    require.NoError(t, err)
    assert.True(t, res.Partial)
    assert.Equal(t, 2, res.TotalFound)
    assert.ElementsMatch(t, []string{"B-1", "B-2"}, res.NotFound)
}

func TestGetIssueDetailsAllBatchesFail(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("ISSUE_KEY IN", snowflake.Rows{}, domain.Executionf(nil, "warehouse down"))

    _, err := testService(wh).GetIssueDetails(context.Background(), "", []string{"A-1", "A-2"})
    require.Error(t, err)
    assert.Equal(t, domain.KindQueryExecution, domain.KindOf(err))
}

func TestGetIssueDetailsMalformedKeyRejectedBeforeDispatch(t *testing.T) {
    wh := &fakeWarehouse{}
    svc := testService(wh)
    keys := []string{"A-1", "A-2", "A-3", strings.Repeat("X", 65)}
    _, err := svc.GetIssueDetails(context.Background(), "", keys)
    require.Error(t, err)
    assert.True(t, domain.IsValidation(err))
    assert.Zero(t, wh.calls(), "no batch may reach the warehouse when a key is malformed")
}

func TestGetIssueDetailsValidation(t *testing.T) {
    svc := testService(&fakeWarehouse{})
    _, err := svc.GetIssueDetails(context.Background(), "", nil)
    assert.True(t, domain.IsValidation(err))

    keys := make([]string, 11)
    for i := range keys { keys[i] = "K-" + string(rune('A'+i)) }
    _, err = svc.GetIssueDetails(context.Background(), "", keys)
    assert.True(t, domain.IsValidation(err))
}

func TestGetIssueLinksDirections(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("WHERE ISSUE_KEY = ?", mkRows([]string{"ID", "ISSUE_KEY"}, []*string{sp("100"), sp("SMQE-1")}), nil)
    wh.on("FROM JIRA_ISSUE_LINK_NON_PII", mkRows(
        []string{"ID", "SOURCE", "DESTINATION", "LINKNAME", "INWARD", "OUTWARD", "SOURCE_KEY", "DESTINATION_KEY"},
        []*string{sp("1"), sp("100"), sp("200"), sp("Blocks"), sp("is blocked by"), sp("blocks"), sp("SMQE-1"), sp("SMQE-2")},
        []*string{sp("2"), sp("300"), sp("100"), sp("Duplicate"), sp("is duplicated by"), sp("duplicates"), sp("SMQE-3"), sp("SMQE-1")},
    ), nil)

    res, err := testService(wh).GetIssueLinks(context.Background(), "", "smqe-1")
    require.NoError(t, err)
    assert.Equal(t, "SMQE-1", res.IssueKey)
    assert.Equal(t, "100", res.IssueID)
    require.Equal(t, 2, res.TotalLinks)

    byType := map[string]domain.IssueLink{}
    for _, l := range res.Links { byType[l.LinkType] = l }
    assert.Equal(t, "outward", byType["Blocks"].Direction)
    assert.Equal(t, "SMQE-2", *byType["Blocks"].LinkedIssueKey)
    assert.Equal(t, "inward", byType["Duplicate"].Direction)
    assert.Equal(t, "SMQE-3", *byType["Duplicate"].LinkedIssueKey)
}

func TestGetIssueLinksUnknownIssue(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("WHERE ISSUE_KEY = ?", mkRows([]string{"ID", "ISSUE_KEY"}), nil)

    _, err := testService(wh).GetIssueLinks(context.Background(), "", "NOPE-1")
    require.Error(t, err)
    assert.True(t, domain.IsValidation(err))
    assert.Contains(t, err.Error(), "NOPE-1")
}

func TestGetIssuesBySprint(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_SPRINT_RHAI", mkRows([]string{"ID", "NAME"}, []*string{sp("4512"), sp("Sprint 42")}), nil)
    wh.on("JOIN JIRA_ISSUE_SPRINT_RHAI", mkRows(summaryColumns, summaryRow("100", "SMQE-1")), nil)

    res, err := testService(wh).GetIssuesBySprint(context.Background(), "", "Sprint 42", "", 0)
    require.NoError(t, err)
    require.NotNil(t, res.SprintID)
    assert.Equal(t, "4512", *res.SprintID)
    assert.Equal(t, 1, res.TotalReturned)
}

func TestGetIssuesBySprintRejectsLimitBeforeResolve(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_SPRINT_RHAI", mkRows([]string{"ID", "NAME"}, []*string{sp("4512"), sp("Sprint 42")}), nil)

    _, err := testService(wh).GetIssuesBySprint(context.Background(), "", "Sprint 42", "", 9999)
    require.Error(t, err)
    assert.True(t, domain.IsValidation(err))
    assert.Zero(t, wh.calls(), "limit must be rejected before the resolve query")
}

func TestGetIssuesBySprintUnknownName(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_SPRINT_RHAI", mkRows([]string{"ID", "NAME"}), nil)

    res, err := testService(wh).GetIssuesBySprint(context.Background(), "", "Sprint Zzz", "", 0)
    require.NoError(t, err, "an unknown sprint is an empty result, not an error")
    assert.Nil(t, res.SprintID)
    assert.Empty(t, res.Issues)
    assert.Equal(t, 1, wh.calls(), "no issue listing after a failed resolve")
}

func TestGetProjectSummary(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("GROUP BY PROJECT", mkRows([]string{"PROJECT", "ISSUESTATUS", "PRIORITY", "COUNT"},
        []*string{sp("SMQE"), sp("Open"), sp("Major"), sp("3")},
        []*string{sp("SMQE"), sp("Closed"), sp("Major"), sp("2")},
        []*string{sp("OCPBUGS"), nil, sp("Minor"), sp("7")},
    ), nil)

    res, err := testService(wh).GetProjectSummary(context.Background(), "")
    require.NoError(t, err)
    assert.Equal(t, 2, res.TotalProjects)
    assert.Equal(t, 12, res.TotalIssues)
    assert.Equal(t, 5, res.Projects["SMQE"].TotalIssues)
    assert.Equal(t, 3, res.Projects["SMQE"].Statuses["Open"])
    assert.Equal(t, 5, res.Projects["SMQE"].Priorities["Major"])
    assert.Equal(t, 7, res.Projects["OCPBUGS"].Statuses["Unknown"])
}

func TestListComponents(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_COMPONENT_RHAI", mkRows(
        []string{"ID", "PROJECT", "CNAME", "DESCRIPTION", "URL", "LEAD", "ASSIGNEETYPE", "ARCHIVED", "DELETED", "_FIVETRAN_SYNCED"},
        []*string{sp("12"), sp("12325621"), sp("api"), nil, nil, nil, nil, sp("N"), sp("N"), nil},
    ), nil)

    res, err := testService(wh).ListComponents(context.Background(), "", query.ComponentFilters{Project: "12325621"})
    require.NoError(t, err)
    assert.Equal(t, 1, res.TotalReturned)
    assert.Equal(t, "api", *res.Components[0].Name)
    assert.Equal(t, "", res.Components[0].Description)
    assert.Equal(t, map[string]any{"project": "12325621"}, res.FiltersApplied)
}

func TestWarehouseErrorPassesThrough(t *testing.T) {
    wh := &fakeWarehouse{}
    wh.on("FROM JIRA_ISSUE_NON_PII", snowflake.Rows{}, domain.RateLimitedf("saturated"))

    _, err := testService(wh).ListIssues(context.Background(), "", query.IssueFilters{})
    require.Error(t, err)
    assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestNormalizeKeysAndChunk(t *testing.T) {
    keys, err := normalizeKeys([]string{" a-1 ", "A-1", "", "b-2"})
    require.NoError(t, err)
    assert.Equal(t, []string{"A-1", "B-2"}, keys)

    _, err = normalizeKeys([]string{"A-1", strings.Repeat("K", 65)})
    assert.True(t, domain.IsValidation(err))

    batches := chunk([]string{"1", "2", "3", "4", "5"}, 2)
    require.Len(t, batches, 3)
    assert.Equal(t, []string{"5"}, batches[2])
}

func TestChunkEmpty(t *testing.T) {
    assert.Nil(t, chunk(nil, 3))
}
