/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "strconv"

    "github.com/HamedShams/jirasnow/internal/adapters/snowflake"
    "github.com/HamedShams/jirasnow/internal/domain"
)

// The assembler half of the service: pure functions merging raw row sets into
// issue-keyed records. Inputs are never mutated; every record starts with
// empty (not nil) child collections.

func deref(s *string) string { if s == nil { return "" }; return *s }

type rowReader struct {
    idx map[string]int
}

func newRowReader(rows snowflake.Rows) rowReader { return rowReader{idx: rows.ColumnIndex()} }

func (r rowReader) get(row []*string, col string) *string {
    i, ok := r.idx[col]
    if !ok || i >= len(row) { return nil }
    return row[i]
}

func issueSummaryFromRow(rd rowReader, row []*string) domain.IssueSummary {
    return domain.IssueSummary{
        ID:             rd.get(row, "ID"),
        Key:            rd.get(row, "ISSUE_KEY"),
        Project:        rd.get(row, "PROJECT"),
        IssueNumber:    rd.get(row, "ISSUENUM"),
        IssueType:      rd.get(row, "ISSUETYPE"),
        Summary:        rd.get(row, "SUMMARY"),
        Description:    deref(rd.get(row, "DESCRIPTION_TRUNCATED")),
        Priority:       rd.get(row, "PRIORITY"),
        Status:         rd.get(row, "ISSUESTATUS"),
        Resolution:     rd.get(row, "RESOLUTION"),
        Created:        rd.get(row, "CREATED"),
        Updated:        rd.get(row, "UPDATED"),
        DueDate:        rd.get(row, "DUEDATE"),
        ResolutionDate: rd.get(row, "RESOLUTIONDATE"),
        Votes:          rd.get(row, "VOTES"),
        Watches:        rd.get(row, "WATCHES"),
        Environment:    rd.get(row, "ENVIRONMENT"),
        Component:      rd.get(row, "COMPONENT"),
        FixVersion:     rd.get(row, "FIXFOR"),
        Labels:         []string{},
    }
}

// assembleIssueSummaries turns a primary row set into summary records plus
// the numeric ids usable for child lookups.
func assembleIssueSummaries(rows snowflake.Rows) ([]domain.IssueSummary, []string) {
    rd := newRowReader(rows)
    issues := make([]domain.IssueSummary, 0, rows.Len())
    ids := make([]string, 0, rows.Len())
    for _, row := range rows.Data {
        issue := issueSummaryFromRow(rd, row)
        issues = append(issues, issue)
        if id := deref(issue.ID); isNumeric(id) { ids = append(ids, id) }
    }
    return issues, ids
}

func assembleIssueDetails(rows snowflake.Rows) ([]domain.IssueDetail, []string) {
    rd := newRowReader(rows)
    details := make([]domain.IssueDetail, 0, rows.Len())
    ids := make([]string, 0, rows.Len())
    for _, row := range rows.Data {
        d := domain.IssueDetail{
            IssueSummary:         issueSummaryFromRow(rd, row),
            TimeOriginalEstimate: rd.get(row, "TIMEORIGINALESTIMATE"),
            TimeEstimate:         rd.get(row, "TIMEESTIMATE"),
            TimeSpent:            rd.get(row, "TIMESPENT"),
            WorkflowID:           rd.get(row, "WORKFLOW_ID"),
            Security:             rd.get(row, "SECURITY"),
            Archived:             rd.get(row, "ARCHIVED"),
            ArchivedDate:         rd.get(row, "ARCHIVEDDATE"),
            Comments:             []domain.Comment{},
            Links:                []domain.IssueLink{},
            FixVersions:          []string{},
        }
        // detail rows carry the full DESCRIPTION instead of the truncated one
        d.Description = deref(rd.get(row, "DESCRIPTION"))
        details = append(details, d)
        if id := deref(d.ID); isNumeric(id) { ids = append(ids, id) }
    }
    return details, ids
}

func isNumeric(s string) bool {
    if s == "" { return false }
    for _, r := range s { if r < '0' || r > '9' { return false } }
    return true
}

// labelsByIssue shapes label rows into issue id -> label list.
func labelsByIssue(rows snowflake.Rows) map[string][]string {
    rd := newRowReader(rows)
    out := map[string][]string{}
    for _, row := range rows.Data {
        id := deref(rd.get(row, "ISSUE"))
        label := rd.get(row, "LABEL")
        if id == "" || label == nil { continue }
        out[id] = append(out[id], *label)
    }
    return out
}

// commentsByIssue shapes comment rows into issue id -> ordered comments. Row
// order is the statement's ORDER BY, which already sorts by created time.
func commentsByIssue(rows snowflake.Rows) map[string][]domain.Comment {
    rd := newRowReader(rows)
    out := map[string][]domain.Comment{}
    for _, row := range rows.Data {
        id := deref(rd.get(row, "ISSUEID"))
        if id == "" { continue }
        out[id] = append(out[id], domain.Comment{
            ID:        rd.get(row, "ID"),
            RoleLevel: rd.get(row, "ROLELEVEL"),
            Body:      rd.get(row, "BODY"),
            Created:   rd.get(row, "CREATED"),
            Updated:   rd.get(row, "UPDATED"),
        })
    }
    return out
}

// linksByIssue resolves each link edge once per requested endpoint: an issue
// that is the SOURCE sees an outward link, a DESTINATION sees an inward one.
func linksByIssue(rows snowflake.Rows, requested map[string]bool) map[string][]domain.IssueLink {
    rd := newRowReader(rows)
    out := map[string][]domain.IssueLink{}
    for _, row := range rows.Data {
        src := deref(rd.get(row, "SOURCE"))
        dst := deref(rd.get(row, "DESTINATION"))
        name := deref(rd.get(row, "LINKNAME"))
        if requested[src] {
            out[src] = append(out[src], domain.IssueLink{
                LinkType:       name,
                Direction:      "outward",
                LinkedIssueID:  rd.get(row, "DESTINATION"),
                LinkedIssueKey: rd.get(row, "DESTINATION_KEY"),
            })
        }
        if requested[dst] {
            out[dst] = append(out[dst], domain.IssueLink{
                LinkType:       name,
                Direction:      "inward",
                LinkedIssueID:  rd.get(row, "SOURCE"),
                LinkedIssueKey: rd.get(row, "SOURCE_KEY"),
            })
        }
    }
    return out
}

func versionsByIssue(rows snowflake.Rows) map[string][]string {
    rd := newRowReader(rows)
    out := map[string][]string{}
    for _, row := range rows.Data {
        id := deref(rd.get(row, "ISSUE"))
        name := rd.get(row, "VNAME")
        if id == "" || name == nil { continue }
        out[id] = append(out[id], *name)
    }
    return out
}

func assembleProjectSummary(rows snowflake.Rows) *domain.ProjectSummaryResult {
    rd := newRowReader(rows)
    res := &domain.ProjectSummaryResult{Projects: map[string]*domain.ProjectStats{}}
    for _, row := range rows.Data {
        project := deref(rd.get(row, "PROJECT"))
        status := deref(rd.get(row, "ISSUESTATUS"))
        priority := deref(rd.get(row, "PRIORITY"))
        if project == "" { project = "Unknown" }
        if status == "" { status = "Unknown" }
        if priority == "" { priority = "Unknown" }
        count, _ := strconv.Atoi(deref(rd.get(row, "COUNT")))

        stats, ok := res.Projects[project]
        if !ok {
            stats = &domain.ProjectStats{Statuses: map[string]int{}, Priorities: map[string]int{}}
            res.Projects[project] = stats
        }
        stats.TotalIssues += count
        stats.Statuses[status] += count
        stats.Priorities[priority] += count
        res.TotalIssues += count
    }
    res.TotalProjects = len(res.Projects)
    return res
}

func assembleComponents(rows snowflake.Rows) []domain.Component {
    rd := newRowReader(rows)
    out := make([]domain.Component, 0, rows.Len())
    for _, row := range rows.Data {
        out = append(out, domain.Component{
            ID:           rd.get(row, "ID"),
            Project:      rd.get(row, "PROJECT"),
            Name:         rd.get(row, "CNAME"),
            Description:  deref(rd.get(row, "DESCRIPTION")),
            URL:          rd.get(row, "URL"),
            Lead:         rd.get(row, "LEAD"),
            AssigneeType: rd.get(row, "ASSIGNEETYPE"),
            Archived:     rd.get(row, "ARCHIVED"),
            Deleted:      rd.get(row, "DELETED"),
            Synced:       rd.get(row, "_FIVETRAN_SYNCED"),
        })
    }
    return out
}
