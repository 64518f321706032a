/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package query

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/jirasnow/internal/domain"
)

func TestListIssuesNoFilters(t *testing.T) {
    stmt, err := ListIssues(IssueFilters{})
    require.NoError(t, err)
    assert.NotContains(t, stmt.SQL, "WHERE")
    assert.Contains(t, stmt.SQL, "ORDER BY CREATED DESC, ID DESC")
    assert.True(t, strings.HasSuffix(stmt.SQL, "LIMIT ?"))
    require.Len(t, stmt.Binds, 1)
    assert.Equal(t, Bind{Type: "FIXED", Value: "50"}, stmt.Binds[0])
}

func TestListIssuesFilters(t *testing.T) {
    stmt, err := ListIssues(IssueFilters{
        Project:    "smqe",
        IssueType:  "1",
        Status:     "6",
        Components: []string{"api", "worker"},
        Limit:      10,
    })
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "PROJECT = ?")
    assert.Contains(t, stmt.SQL, "COMPONENT IN (?, ?)")
    // project uppercased, then type, status, two components, limit
    require.Len(t, stmt.Binds, 6)
    assert.Equal(t, "SMQE", stmt.Binds[0].Value)
    assert.Equal(t, "10", stmt.Binds[5].Value)
}

func TestListIssuesEmptyComponents(t *testing.T) {
    _, err := ListIssues(IssueFilters{Components: []string{}})
    assert.ErrorIs(t, err, ErrNoMatch)
}

func TestListIssuesSearchTextEscaped(t *testing.T) {
    stmt, err := ListIssues(IssueFilters{SearchText: "100%_done"})
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, `ESCAPE '\\'`)
    require.Len(t, stmt.Binds, 3)
    assert.Equal(t, `%100\%\_done%`, stmt.Binds[0].Value)
    assert.Equal(t, stmt.Binds[0].Value, stmt.Binds[1].Value)
}

func TestListIssuesTimeframeBinds(t *testing.T) {
    stmt, err := ListIssues(IssueFilters{TimeframeDays: 30, CreatedDays: 7})
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "CREATED >= DATEADD(day, -?, CURRENT_TIMESTAMP())")
    // created window, three timeframe binds, limit
    require.Len(t, stmt.Binds, 5)
}

func TestListIssuesValidation(t *testing.T) {
    cases := []IssueFilters{
        {IssueType: "Bug"},
        {Status: "Open"},
        {Priority: "High"},
        {CreatedDays: -1},
        {TimeframeDays: 4000},
        {Limit: 501},
        {Limit: -5},
    }
    for _, f := range cases {
        _, err := ListIssues(f)
        assert.True(t, domain.IsValidation(err), "expected validation error for %+v", f)
    }
}

func TestIssueDetailsByKeys(t *testing.T) {
    stmt, err := IssueDetailsByKeys([]string{"smqe-1", "SMQE-2"})
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "ISSUE_KEY IN (?, ?)")
    assert.Contains(t, stmt.SQL, "ORDER BY ISSUE_KEY ASC")
    require.Len(t, stmt.Binds, 2)
    assert.Equal(t, "SMQE-1", stmt.Binds[0].Value)
    assert.Equal(t, "SMQE-2", stmt.Binds[1].Value)
}

func TestIssueDetailsByKeysEmpty(t *testing.T) {
    _, err := IssueDetailsByKeys(nil)
    assert.ErrorIs(t, err, ErrNoMatch)
}

func TestIssueLinksDoublesBinds(t *testing.T) {
    stmt, err := IssueLinks([]string{"100", "200"})
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "L.SOURCE IN (?, ?) OR L.DESTINATION IN (?, ?)")
    require.Len(t, stmt.Binds, 4)
    assert.Equal(t, stmt.Binds[0], stmt.Binds[2])
    assert.Equal(t, stmt.Binds[1], stmt.Binds[3])
}

func TestChildLookupsRejectNonNumericIDs(t *testing.T) {
    for _, build := range []func([]string) (Statement, error){IssueLabels, IssueComments, IssueLinks, IssueVersions} {
        _, err := build([]string{"100; DROP TABLE X"})
        assert.True(t, domain.IsValidation(err))
    }
}

func TestProjectSummary(t *testing.T) {
    stmt := ProjectSummary()
    assert.Contains(t, stmt.SQL, "GROUP BY PROJECT, ISSUESTATUS, PRIORITY")
    assert.Empty(t, stmt.Binds)
}

func TestComponentList(t *testing.T) {
    stmt, err := ComponentList(ComponentFilters{Project: "12325621", Archived: "n", SearchText: "auth"})
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "ARCHIVED = ?")
    assert.Contains(t, stmt.SQL, "ORDER BY CNAME ASC")
    require.Len(t, stmt.Binds, 5)
    assert.Equal(t, "N", stmt.Binds[1].Value)

    _, err = ComponentList(ComponentFilters{Archived: "maybe"})
    assert.True(t, domain.IsValidation(err))
}

func TestSprintStatements(t *testing.T) {
    stmt, err := SprintByName("Sprint 42")
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "WHERE NAME = ? LIMIT 1")

    _, err = SprintByName("   ")
    assert.True(t, domain.IsValidation(err))

    stmt, err = IssuesBySprint("4512", "smqe", 0)
    require.NoError(t, err)
    assert.Contains(t, stmt.SQL, "S.SPRINT = ? AND I.PROJECT = ?")
    require.Len(t, stmt.Binds, 3)
    assert.Equal(t, "SMQE", stmt.Binds[1].Value)

    _, err = IssuesBySprint("abc", "", 0)
    assert.True(t, domain.IsValidation(err))
}
