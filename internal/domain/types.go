package domain

// Record types produced by the result assembler. Scalar columns come off the
// warehouse as text or NULL; nullable ones are pointers so NULL survives into
// the JSON as null rather than collapsing to "".

type IssueSummary struct {
    ID             *string  `json:"id"`
    Key            *string  `json:"key"`
    Project        *string  `json:"project"`
    IssueNumber    *string  `json:"issue_number"`
    IssueType      *string  `json:"issue_type"`
    Summary        *string  `json:"summary"`
    Description    string   `json:"description"`
    Priority       *string  `json:"priority"`
    Status         *string  `json:"status"`
    Resolution     *string  `json:"resolution"`
    Created        *string  `json:"created"`
    Updated        *string  `json:"updated"`
    DueDate        *string  `json:"due_date"`
    ResolutionDate *string  `json:"resolution_date"`
    Votes          *string  `json:"votes"`
    Watches        *string  `json:"watches"`
    Environment    *string  `json:"environment"`
    Component      *string  `json:"component"`
    FixVersion     *string  `json:"fix_version"`
    Labels         []string `json:"labels"`
}

type IssueDetail struct {
    IssueSummary
    TimeOriginalEstimate *string     `json:"time_original_estimate"`
    TimeEstimate         *string     `json:"time_estimate"`
    TimeSpent            *string     `json:"time_spent"`
    WorkflowID           *string     `json:"workflow_id"`
    Security             *string     `json:"security"`
    Archived             *string     `json:"archived"`
    ArchivedDate         *string     `json:"archived_date"`
    Comments             []Comment   `json:"comments"`
    Links                []IssueLink `json:"links"`
    FixVersions          []string    `json:"fix_versions"`
}

type Comment struct {
    ID        *string `json:"id"`
    RoleLevel *string `json:"role_level"`
    Body      *string `json:"body"`
    Created   *string `json:"created"`
    Updated   *string `json:"updated"`
}

// IssueLink is one edge of the link graph seen from a given issue. Direction
// is "outward" when the issue is the link source, "inward" when it is the
// destination; the type name picks the matching wording.
type IssueLink struct {
    LinkType       string  `json:"link_type"`
    Direction      string  `json:"direction"`
    LinkedIssueID  *string `json:"linked_issue_id"`
    LinkedIssueKey *string `json:"linked_issue_key"`
}

type Component struct {
    ID           *string `json:"id"`
    Project      *string `json:"project"`
    Name         *string `json:"name"`
    Description  string  `json:"description"`
    URL          *string `json:"url"`
    Lead         *string `json:"lead"`
    AssigneeType *string `json:"assignee_type"`
    Archived     *string `json:"archived"`
    Deleted      *string `json:"deleted"`
    Synced       *string `json:"synced"`
}

type ProjectStats struct {
    TotalIssues int            `json:"total_issues"`
    Statuses    map[string]int `json:"statuses"`
    Priorities  map[string]int `json:"priorities"`
}

// Operation result envelopes.

type ListIssuesResult struct {
    Issues         []IssueSummary `json:"issues"`
    TotalReturned  int            `json:"total_returned"`
    FiltersApplied map[string]any `json:"filters_applied"`
}

type IssueDetailsResult struct {
    FoundIssues    map[string]IssueDetail `json:"found_issues"`
    NotFound       []string               `json:"not_found"`
    TotalFound     int                    `json:"total_found"`
    TotalRequested int                    `json:"total_requested"`
    Partial        bool                   `json:"partial"`
}

type ProjectSummaryResult struct {
    Projects      map[string]*ProjectStats `json:"projects"`
    TotalProjects int                      `json:"total_projects"`
    TotalIssues   int                      `json:"total_issues"`
}

type IssueLinksResult struct {
    IssueKey   string      `json:"issue_key"`
    IssueID    string      `json:"issue_id"`
    Links      []IssueLink `json:"links"`
    TotalLinks int         `json:"total_links"`
}

type SprintIssuesResult struct {
    SprintName    string         `json:"sprint_name"`
    SprintID      *string        `json:"sprint_id"`
    Issues        []IssueSummary `json:"issues"`
    TotalReturned int            `json:"total_returned"`
}

type ComponentsResult struct {
    Components     []Component    `json:"components"`
    TotalReturned  int            `json:"total_returned"`
    FiltersApplied map[string]any `json:"filters_applied"`
}
