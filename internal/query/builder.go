/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package query

import (
    "errors"
    "fmt"
    "strconv"
    "strings"

    "github.com/HamedShams/jirasnow/internal/domain"
)

const (
    DefaultLimit = 50
    MaxLimit     = 500
    maxDays      = 3650
    maxKeyLen    = 64
)

// ErrNoMatch means a membership filter was supplied with zero values: the
// query is defined to return no rows, so no statement should be executed.
var ErrNoMatch = errors.New("query: empty membership filter matches no rows")

// Bind is one positional parameter in the Snowflake SQL API binding format.
type Bind struct {
    Type  string `json:"type"`
    Value string `json:"value"`
}

// Statement is a SQL template plus its positional binds. The template carries
// one '?' per bind and no caller-supplied literals.
type Statement struct {
    SQL   string
    Binds []Bind
}

func text(v string) Bind { return Bind{Type: "TEXT", Value: v} }
func fixed(v int) Bind   { return Bind{Type: "FIXED", Value: strconv.Itoa(v)} }

// escapeLike neutralizes LIKE metacharacters so user text matches literally.
// Generated predicates must carry ESCAPE '\\'.
func escapeLike(s string) string {
    s = strings.ReplaceAll(s, `\`, `\\`)
    s = strings.ReplaceAll(s, `%`, `\%`)
    s = strings.ReplaceAll(s, `_`, `\_`)
    return s
}

func isDigits(s string) bool {
    if s == "" { return false }
    for _, r := range s { if r < '0' || r > '9' { return false } }
    return true
}

// CheckLimit validates a caller-supplied limit and applies the default. It is
// exported so operations can reject a bad limit before any statement runs.
func CheckLimit(limit int) (int, error) {
    if limit == 0 { return DefaultLimit, nil }
    if limit < 0 || limit > MaxLimit { return 0, domain.Validationf("limit must be between 1 and %d, got %d", MaxLimit, limit) }
    return limit, nil
}

func checkDays(name string, days int) error {
    if days < 0 || days > maxDays { return domain.Validationf("%s must be between 1 and %d, got %d", name, maxDays, days) }
    return nil
}

func checkNumericID(name, v string) error {
    if !isDigits(v) { return domain.Validationf("%s must be a numeric id, got %q", name, v) }
    return nil
}

// CheckIssueKey validates one trimmed issue key. Exported so operations can
// reject malformed keys before dispatching any batch.
func CheckIssueKey(key string) error {
    if key == "" || len(key) > maxKeyLen { return domain.Validationf("invalid issue key %q", key) }
    return nil
}

// placeholders renders "?, ?, ?" for an IN list of n binds.
func placeholders(n int) string {
    if n == 1 { return "?" }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// IssueFilters is the optional filter surface of list_jira_issues. Zero
// values mean "no constraint"; a non-nil empty Components slice means the
// caller asked for membership in the empty set.
type IssueFilters struct {
    Project       string
    IssueType     string
    Status        string
    Priority      string
    SearchText    string
    Components    []string
    FixVersion    string
    CreatedDays   int
    UpdatedDays   int
    ResolvedDays  int
    TimeframeDays int
    Limit         int
}

func (f IssueFilters) validate() error {
    if f.IssueType != "" { if err := checkNumericID("issue_type", f.IssueType); err != nil { return err } }
    if f.Status != "" { if err := checkNumericID("status", f.Status); err != nil { return err } }
    if f.Priority != "" { if err := checkNumericID("priority", f.Priority); err != nil { return err } }
    if err := checkDays("created_days", f.CreatedDays); err != nil { return err }
    if err := checkDays("updated_days", f.UpdatedDays); err != nil { return err }
    if err := checkDays("resolved_days", f.ResolvedDays); err != nil { return err }
    if err := checkDays("timeframe_days", f.TimeframeDays); err != nil { return err }
    return nil
}

// ListIssues builds the primary issue listing statement. Ordering is fixed to
// creation date descending so limit truncation is reproducible.
func ListIssues(f IssueFilters) (Statement, error) {
    if err := f.validate(); err != nil { return Statement{}, err }
    limit, err := CheckLimit(f.Limit)
    if err != nil { return Statement{}, err }

    var conds []string
    var binds []Bind

    if f.Project != "" {
        conds = append(conds, "PROJECT = ?")
        binds = append(binds, text(strings.ToUpper(f.Project)))
    }
    if f.IssueType != "" { conds = append(conds, "ISSUETYPE = ?"); binds = append(binds, text(f.IssueType)) }
    if f.Status != "" { conds = append(conds, "ISSUESTATUS = ?"); binds = append(binds, text(f.Status)) }
    if f.Priority != "" { conds = append(conds, "PRIORITY = ?"); binds = append(binds, text(f.Priority)) }
    if f.SearchText != "" {
        pattern := "%" + escapeLike(strings.ToLower(f.SearchText)) + "%"
        conds = append(conds, `(LOWER(SUMMARY) LIKE ? ESCAPE '\\' OR LOWER(DESCRIPTION) LIKE ? ESCAPE '\\')`)
        binds = append(binds, text(pattern), text(pattern))
    }
    if f.Components != nil {
        if len(f.Components) == 0 { return Statement{}, ErrNoMatch }
        conds = append(conds, fmt.Sprintf("COMPONENT IN (%s)", placeholders(len(f.Components))))
        for _, c := range f.Components { binds = append(binds, text(c)) }
    }
    if f.FixVersion != "" { conds = append(conds, "FIXFOR = ?"); binds = append(binds, text(f.FixVersion)) }
    if f.CreatedDays > 0 {
        conds = append(conds, "CREATED >= DATEADD(day, -?, CURRENT_TIMESTAMP())")
        binds = append(binds, fixed(f.CreatedDays))
    }
    if f.UpdatedDays > 0 {
        conds = append(conds, "UPDATED >= DATEADD(day, -?, CURRENT_TIMESTAMP())")
        binds = append(binds, fixed(f.UpdatedDays))
    }
    if f.ResolvedDays > 0 {
        conds = append(conds, "RESOLUTIONDATE >= DATEADD(day, -?, CURRENT_TIMESTAMP())")
        binds = append(binds, fixed(f.ResolvedDays))
    }
    if f.TimeframeDays > 0 {
        // a specific window and the timeframe window AND together
        conds = append(conds, `(CREATED >= DATEADD(day, -?, CURRENT_TIMESTAMP())
        OR UPDATED >= DATEADD(day, -?, CURRENT_TIMESTAMP())
        OR RESOLUTIONDATE >= DATEADD(day, -?, CURRENT_TIMESTAMP()))`)
        binds = append(binds, fixed(f.TimeframeDays), fixed(f.TimeframeDays), fixed(f.TimeframeDays))
    }

    sql := fmt.Sprintf("SELECT %s\nFROM %s", issueSummaryColumns, issueTable)
    if len(conds) > 0 { sql += "\nWHERE " + strings.Join(conds, "\n  AND ") }
    sql += "\nORDER BY CREATED DESC, ID DESC\nLIMIT ?"
    binds = append(binds, fixed(limit))
    return Statement{SQL: sql, Binds: binds}, nil
}

// IssueDetailsByKeys selects full issue rows for a batch of keys.
func IssueDetailsByKeys(keys []string) (Statement, error) {
    if len(keys) == 0 { return Statement{}, ErrNoMatch }
    binds := make([]Bind, 0, len(keys))
    for _, k := range keys {
        k = strings.TrimSpace(k)
        if err := CheckIssueKey(k); err != nil { return Statement{}, err }
        binds = append(binds, text(strings.ToUpper(k)))
    }
    sql := fmt.Sprintf("SELECT %s\nFROM %s\nWHERE ISSUE_KEY IN (%s)\nORDER BY ISSUE_KEY ASC",
        issueDetailColumns, issueTable, placeholders(len(keys)))
    return Statement{SQL: sql, Binds: binds}, nil
}

// IssueByKey resolves a single key to its numeric id.
func IssueByKey(key string) (Statement, error) {
    key = strings.TrimSpace(key)
    if key == "" { return Statement{}, domain.Validationf("issue_key is required") }
    if err := CheckIssueKey(key); err != nil { return Statement{}, err }
    sql := fmt.Sprintf("SELECT ID, ISSUE_KEY FROM %s WHERE ISSUE_KEY = ? LIMIT 1", issueTable)
    return Statement{SQL: sql, Binds: []Bind{text(strings.ToUpper(key))}}, nil
}

func numericIDBinds(name string, ids []string) ([]Bind, error) {
    if len(ids) == 0 { return nil, ErrNoMatch }
    binds := make([]Bind, 0, len(ids))
    for _, id := range ids {
        if err := checkNumericID(name, id); err != nil { return nil, err }
        binds = append(binds, text(id))
    }
    return binds, nil
}

// IssueLabels fetches label rows for a set of issue ids.
func IssueLabels(issueIDs []string) (Statement, error) {
    binds, err := numericIDBinds("issue id", issueIDs)
    if err != nil { return Statement{}, err }
    sql := fmt.Sprintf("SELECT ISSUE, LABEL FROM %s\nWHERE ISSUE IN (%s) AND LABEL IS NOT NULL\nORDER BY ISSUE, LABEL",
        labelTable, placeholders(len(issueIDs)))
    return Statement{SQL: sql, Binds: binds}, nil
}

// IssueComments fetches comment rows for a set of issue ids, oldest first.
func IssueComments(issueIDs []string) (Statement, error) {
    binds, err := numericIDBinds("issue id", issueIDs)
    if err != nil { return Statement{}, err }
    sql := fmt.Sprintf("SELECT ID, ISSUEID, ROLELEVEL, BODY, CREATED, UPDATED FROM %s\nWHERE ISSUEID IN (%s) AND BODY IS NOT NULL\nORDER BY ISSUEID, CREATED ASC",
        commentTable, placeholders(len(issueIDs)))
    return Statement{SQL: sql, Binds: binds}, nil
}

// IssueLinks fetches link edges touching any of the issue ids, in either
// direction, with the link-type wording and both endpoint keys joined in.
func IssueLinks(issueIDs []string) (Statement, error) {
    binds, err := numericIDBinds("issue id", issueIDs)
    if err != nil { return Statement{}, err }
    ph := placeholders(len(issueIDs))
    sql := fmt.Sprintf(`SELECT L.ID, L.SOURCE, L.DESTINATION, T.LINKNAME, T.INWARD, T.OUTWARD,
    S.ISSUE_KEY AS SOURCE_KEY, D.ISSUE_KEY AS DESTINATION_KEY
FROM %s L
JOIN %s T ON L.LINKTYPE = T.ID
LEFT JOIN %s S ON L.SOURCE = S.ID
LEFT JOIN %s D ON L.DESTINATION = D.ID
WHERE L.SOURCE IN (%s) OR L.DESTINATION IN (%s)
ORDER BY L.ID`, issueLinkTable, linkTypeTable, issueTable, issueTable, ph, ph)
    all := append(append([]Bind{}, binds...), binds...)
    return Statement{SQL: sql, Binds: all}, nil
}

// IssueVersions fetches fix-version names per issue id.
func IssueVersions(issueIDs []string) (Statement, error) {
    binds, err := numericIDBinds("issue id", issueIDs)
    if err != nil { return Statement{}, err }
    sql := fmt.Sprintf(`SELECT F.ISSUE, V.VNAME
FROM %s F
JOIN %s V ON F.VERSION = V.ID
WHERE F.ISSUE IN (%s) AND V.VNAME IS NOT NULL
ORDER BY F.ISSUE, V.VNAME`, fixVersionTable, versionTable, placeholders(len(issueIDs)))
    return Statement{SQL: sql, Binds: binds}, nil
}

// ProjectSummary aggregates issue counts by project, status and priority.
func ProjectSummary() Statement {
    sql := fmt.Sprintf(`SELECT PROJECT, ISSUESTATUS, PRIORITY, COUNT(*) AS COUNT
FROM %s
GROUP BY PROJECT, ISSUESTATUS, PRIORITY
ORDER BY PROJECT, ISSUESTATUS, PRIORITY`, issueTable)
    return Statement{SQL: sql}
}

// ComponentFilters is the optional filter surface of list_jira_components.
type ComponentFilters struct {
    Project    string
    Archived   string
    Deleted    string
    SearchText string
    Limit      int
}

func checkFlag(name, v string) (string, error) {
    v = strings.ToUpper(strings.TrimSpace(v))
    if v != "Y" && v != "N" { return "", domain.Validationf("%s must be 'Y' or 'N', got %q", name, v) }
    return v, nil
}

// ComponentList builds the component listing statement, ordered by name.
func ComponentList(f ComponentFilters) (Statement, error) {
    limit, err := CheckLimit(f.Limit)
    if err != nil { return Statement{}, err }

    var conds []string
    var binds []Bind

    if f.Project != "" {
        if err := checkNumericID("project", f.Project); err != nil { return Statement{}, err }
        conds = append(conds, "PROJECT = ?")
        binds = append(binds, text(f.Project))
    }
    if f.Archived != "" {
        v, err := checkFlag("archived", f.Archived)
        if err != nil { return Statement{}, err }
        conds = append(conds, "ARCHIVED = ?")
        binds = append(binds, text(v))
    }
    if f.Deleted != "" {
        v, err := checkFlag("deleted", f.Deleted)
        if err != nil { return Statement{}, err }
        conds = append(conds, "DELETED = ?")
        binds = append(binds, text(v))
    }
    if f.SearchText != "" {
        pattern := "%" + escapeLike(strings.ToLower(f.SearchText)) + "%"
        conds = append(conds, `(LOWER(CNAME) LIKE ? ESCAPE '\\' OR LOWER(DESCRIPTION) LIKE ? ESCAPE '\\')`)
        binds = append(binds, text(pattern), text(pattern))
    }

    sql := fmt.Sprintf("SELECT %s\nFROM %s", componentColumns, componentTable)
    if len(conds) > 0 { sql += "\nWHERE " + strings.Join(conds, "\n  AND ") }
    sql += "\nORDER BY CNAME ASC\nLIMIT ?"
    binds = append(binds, fixed(limit))
    return Statement{SQL: sql, Binds: binds}, nil
}

// SprintByName resolves a sprint name to its id.
func SprintByName(name string) (Statement, error) {
    name = strings.TrimSpace(name)
    if name == "" { return Statement{}, domain.Validationf("sprint_name is required") }
    sql := fmt.Sprintf("SELECT ID, NAME FROM %s WHERE NAME = ? LIMIT 1", sprintTable)
    return Statement{SQL: sql, Binds: []Bind{text(name)}}, nil
}

// IssuesBySprint lists issues attached to a sprint id, newest first.
func IssuesBySprint(sprintID, project string, limitArg int) (Statement, error) {
    if err := checkNumericID("sprint id", sprintID); err != nil { return Statement{}, err }
    limit, err := CheckLimit(limitArg)
    if err != nil { return Statement{}, err }

    conds := []string{"S.SPRINT = ?"}
    binds := []Bind{text(sprintID)}
    if project != "" {
        conds = append(conds, "I.PROJECT = ?")
        binds = append(binds, text(strings.ToUpper(project)))
    }

    sql := fmt.Sprintf(`SELECT %s
FROM %s I
JOIN %s S ON I.ID = S.ISSUE
WHERE %s
ORDER BY I.CREATED DESC, I.ID DESC
LIMIT ?`, issueSummaryColumnsQualified, issueTable, issueSprintTable, strings.Join(conds, " AND "))
    binds = append(binds, fixed(limit))
    return Statement{SQL: sql, Binds: binds}, nil
}
