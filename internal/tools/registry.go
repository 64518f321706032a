/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package tools

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/HamedShams/jirasnow/internal/domain"
    "github.com/HamedShams/jirasnow/internal/metrics"
    "github.com/HamedShams/jirasnow/internal/query"
    "github.com/HamedShams/jirasnow/internal/services"
)

// Param describes one accepted parameter of a tool. Type is "string", "int"
// or "string[]".
type Param struct {
    Name        string `json:"name"`
    Type        string `json:"type"`
    Required    bool   `json:"required"`
    Description string `json:"description"`
}

// Tool is a named query operation plus its parameter contract.
type Tool struct {
    Name        string  `json:"name"`
    Description string  `json:"description"`
    Params      []Param `json:"params"`

    handler func(ctx context.Context, token string, args arguments) (any, error)
}

// ErrUnknownTool reports a tool name outside the registry.
type ErrUnknownTool struct{ Name string }

func (e ErrUnknownTool) Error() string { return fmt.Sprintf("unknown tool %q", e.Name) }

// Registry maps tool names to their handlers. The set is static; it is built
// once at startup from the service.
type Registry struct {
    svc   *services.Service
    tools map[string]Tool
    order []string
}

// arguments wraps the decoded request body with typed, validated accessors.
type arguments map[string]any

func (a arguments) str(name string) (string, error) {
    v, ok := a[name]
    if !ok || v == nil { return "", nil }
    s, ok := v.(string)
    if !ok { return "", domain.Validationf("parameter %q must be a string", name) }
    return s, nil
}

func (a arguments) integer(name string) (int, error) {
    v, ok := a[name]
    if !ok || v == nil { return 0, nil }
    // JSON numbers decode as float64; reject fractional values
    f, ok := v.(float64)
    if !ok || f != float64(int(f)) { return 0, domain.Validationf("parameter %q must be an integer", name) }
    return int(f), nil
}

func (a arguments) strings(name string) ([]string, error) {
    v, ok := a[name]
    if !ok || v == nil { return nil, nil }
    raw, ok := v.([]any)
    if !ok { return nil, domain.Validationf("parameter %q must be an array of strings", name) }
    out := make([]string, 0, len(raw))
    for _, item := range raw {
        s, ok := item.(string)
        if !ok { return nil, domain.Validationf("parameter %q must be an array of strings", name) }
        out = append(out, s)
    }
    return out, nil
}

func NewRegistry(svc *services.Service) *Registry {
    r := &Registry{svc: svc, tools: map[string]Tool{}}
    r.register(listIssuesTool(svc))
    r.register(issueDetailsTool(svc))
    r.register(projectSummaryTool(svc))
    r.register(issueLinksTool(svc))
    r.register(sprintIssuesTool(svc))
    r.register(componentsTool(svc))
    return r
}

func (r *Registry) register(t Tool) {
    r.tools[t.Name] = t
    r.order = append(r.order, t.Name)
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []Tool {
    out := make([]Tool, 0, len(r.order))
    for _, name := range r.order { out = append(out, r.tools[name]) }
    return out
}

// Call decodes the raw JSON body against the named tool's contract and runs
// it. Unknown parameters and type mismatches are validation errors.
func (r *Registry) Call(ctx context.Context, name, token string, body []byte) (any, error) {
    t, ok := r.tools[name]
    if !ok { return nil, ErrUnknownTool{Name: name} }

    args := arguments{}
    if len(body) > 0 {
        if err := json.Unmarshal(body, &args); err != nil {
            return nil, domain.Validationf("request body must be a JSON object: %v", err)
        }
    }
    allowed := map[string]bool{}
    for _, p := range t.Params { allowed[p.Name] = true }
    for k := range args {
        if !allowed[k] { return nil, domain.Validationf("unknown parameter %q for tool %q", k, name) }
    }

    start := time.Now()
    out, err := t.handler(ctx, token, args)
    metrics.ObserveToolCall(name, start, err)
    return out, err
}

func listIssuesTool(svc *services.Service) Tool {
    return Tool{
        Name:        "list_jira_issues",
        Description: "List issues with optional filters on project, type, status, priority, text, components, fix version and time windows.",
        Params: []Param{
            {Name: "project", Type: "string"},
            {Name: "issue_type", Type: "string"},
            {Name: "status", Type: "string"},
            {Name: "priority", Type: "string"},
            {Name: "search_text", Type: "string"},
            {Name: "components", Type: "string[]"},
            {Name: "fix_version", Type: "string"},
            {Name: "created_days", Type: "int"},
            {Name: "updated_days", Type: "int"},
            {Name: "resolved_days", Type: "int"},
            {Name: "timeframe_days", Type: "int"},
            {Name: "limit", Type: "int"},
        },
        handler: func(ctx context.Context, token string, args arguments) (any, error) {
            var f query.IssueFilters
            var err error
            if f.Project, err = args.str("project"); err != nil { return nil, err }
            if f.IssueType, err = args.str("issue_type"); err != nil { return nil, err }
            if f.Status, err = args.str("status"); err != nil { return nil, err }
            if f.Priority, err = args.str("priority"); err != nil { return nil, err }
            if f.SearchText, err = args.str("search_text"); err != nil { return nil, err }
            if f.Components, err = args.strings("components"); err != nil { return nil, err }
            if f.FixVersion, err = args.str("fix_version"); err != nil { return nil, err }
            if f.CreatedDays, err = args.integer("created_days"); err != nil { return nil, err }
            if f.UpdatedDays, err = args.integer("updated_days"); err != nil { return nil, err }
            if f.ResolvedDays, err = args.integer("resolved_days"); err != nil { return nil, err }
            if f.TimeframeDays, err = args.integer("timeframe_days"); err != nil { return nil, err }
            if f.Limit, err = args.integer("limit"); err != nil { return nil, err }
            return svc.ListIssues(ctx, token, f)
        },
    }
}

func issueDetailsTool(svc *services.Service) Tool {
    return Tool{
        Name:        "get_jira_issue_details",
        Description: "Fetch full records for a set of issue keys, including labels, comments, links and fix versions.",
        Params: []Param{
            {Name: "issue_keys", Type: "string[]", Required: true},
        },
        handler: func(ctx context.Context, token string, args arguments) (any, error) {
            keys, err := args.strings("issue_keys")
            if err != nil { return nil, err }
            return svc.GetIssueDetails(ctx, token, keys)
        },
    }
}

func projectSummaryTool(svc *services.Service) Tool {
    return Tool{
        Name:        "get_jira_project_summary",
        Description: "Aggregate issue counts per project, broken down by status and priority.",
        handler: func(ctx context.Context, token string, _ arguments) (any, error) {
            return svc.GetProjectSummary(ctx, token)
        },
    }
}

func issueLinksTool(svc *services.Service) Tool {
    return Tool{
        Name:        "get_jira_issue_links",
        Description: "List every link touching an issue, with direction and the linked issue's key.",
        Params: []Param{
            {Name: "issue_key", Type: "string", Required: true},
        },
        handler: func(ctx context.Context, token string, args arguments) (any, error) {
            key, err := args.str("issue_key")
            if err != nil { return nil, err }
            return svc.GetIssueLinks(ctx, token, key)
        },
    }
}

func sprintIssuesTool(svc *services.Service) Tool {
    return Tool{
        Name:        "get_jira_issues_by_sprint",
        Description: "List the issues attached to a named sprint, optionally restricted to a project.",
        Params: []Param{
            {Name: "sprint_name", Type: "string", Required: true},
            {Name: "project", Type: "string"},
            {Name: "limit", Type: "int"},
        },
        handler: func(ctx context.Context, token string, args arguments) (any, error) {
            name, err := args.str("sprint_name")
            if err != nil { return nil, err }
            project, err := args.str("project")
            if err != nil { return nil, err }
            limit, err := args.integer("limit")
            if err != nil { return nil, err }
            return svc.GetIssuesBySprint(ctx, token, name, project, limit)
        },
    }
}

func componentsTool(svc *services.Service) Tool {
    return Tool{
        Name:        "list_jira_components",
        Description: "List project components with optional filters on project, archived and deleted flags and text.",
        Params: []Param{
            {Name: "project", Type: "string"},
            {Name: "archived", Type: "string"},
            {Name: "deleted", Type: "string"},
            {Name: "search_text", Type: "string"},
            {Name: "limit", Type: "int"},
        },
        handler: func(ctx context.Context, token string, args arguments) (any, error) {
            var f query.ComponentFilters
            var err error
            if f.Project, err = args.str("project"); err != nil { return nil, err }
            if f.Archived, err = args.str("archived"); err != nil { return nil, err }
            if f.Deleted, err = args.str("deleted"); err != nil { return nil, err }
            if f.SearchText, err = args.str("search_text"); err != nil { return nil, err }
            if f.Limit, err = args.integer("limit"); err != nil { return nil, err }
            return svc.ListComponents(ctx, token, f)
        },
    }
}
