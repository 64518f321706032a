/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package query

// Identifier allow-list. Every table and column name in generated SQL comes
// from these constants; caller input only ever travels through binds.
const (
    issueTable       = "JIRA_ISSUE_NON_PII"
    labelTable       = "JIRA_LABEL_RHAI"
    commentTable     = "JIRA_COMMENT_NON_PII"
    componentTable   = "JIRA_COMPONENT_RHAI"
    issueLinkTable   = "JIRA_ISSUE_LINK_NON_PII"
    linkTypeTable    = "JIRA_ISSUE_LINK_TYPE_NON_PII"
    versionTable     = "JIRA_VERSION_RHAI"
    fixVersionTable  = "JIRA_FIX_VERSION_RHAI"
    sprintTable      = "JIRA_SPRINT_RHAI"
    issueSprintTable = "JIRA_ISSUE_SPRINT_RHAI"
)

const (
    issueSummaryColumns = `ID, ISSUE_KEY, PROJECT, ISSUENUM, ISSUETYPE, SUMMARY,
    SUBSTRING(DESCRIPTION, 1, 500) AS DESCRIPTION_TRUNCATED,
    PRIORITY, ISSUESTATUS, RESOLUTION, CREATED, UPDATED, DUEDATE, RESOLUTIONDATE,
    VOTES, WATCHES, ENVIRONMENT, COMPONENT, FIXFOR`

    issueDetailColumns = `ID, ISSUE_KEY, PROJECT, ISSUENUM, ISSUETYPE, SUMMARY, DESCRIPTION,
    PRIORITY, ISSUESTATUS, RESOLUTION, CREATED, UPDATED, DUEDATE, RESOLUTIONDATE,
    VOTES, WATCHES, ENVIRONMENT, COMPONENT, FIXFOR,
    TIMEORIGINALESTIMATE, TIMEESTIMATE, TIMESPENT, WORKFLOW_ID,
    SECURITY, ARCHIVED, ARCHIVEDDATE`

    // issueSummaryColumns qualified for joins against the issue table as I
    issueSummaryColumnsQualified = `I.ID, I.ISSUE_KEY, I.PROJECT, I.ISSUENUM, I.ISSUETYPE, I.SUMMARY,
    SUBSTRING(I.DESCRIPTION, 1, 500) AS DESCRIPTION_TRUNCATED,
    I.PRIORITY, I.ISSUESTATUS, I.RESOLUTION, I.CREATED, I.UPDATED, I.DUEDATE, I.RESOLUTIONDATE,
    I.VOTES, I.WATCHES, I.ENVIRONMENT, I.COMPONENT, I.FIXFOR`

    componentColumns = `ID, PROJECT, CNAME, DESCRIPTION, URL, LEAD,
    ASSIGNEETYPE, ARCHIVED, DELETED, _FIVETRAN_SYNCED`
)
