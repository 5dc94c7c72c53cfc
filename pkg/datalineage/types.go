package datalineage

import "time"

// Process states and origin types used by this tool.
const (
	StateCompleted   = "COMPLETED"
	SourceTypeCustom = "CUSTOM"
)

// Location identifies the project and region that own lineage resources.
type Location struct {
	Project string
	Region  string
}

// Parent returns the resource prefix "projects/{p}/locations/{r}".
func (l Location) Parent() string {
	return "projects/" + l.Project + "/locations/" + l.Region
}

// Origin tags where a process was defined.
type Origin struct {
	SourceType string `json:"sourceType"`
	Name       string `json:"name"`
}

// Process is a named unit of work that produces lineage edges.
type Process struct {
	DisplayName string `json:"displayName"`
	Origin      Origin `json:"origin"`
}

// Run is one execution of a Process.
type Run struct {
	DisplayName string `json:"displayName"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	State       string `json:"state"`
}

// EntityReference names a resource by its fully-qualified name.
type EntityReference struct {
	FullyQualifiedName string `json:"fullyQualifiedName"`
}

// EventLink is a single source → target assertion inside an Event.
type EventLink struct {
	Source EntityReference `json:"source"`
	Target EntityReference `json:"target"`
}

// Event is the recording unit attached to a Run.
type Event struct {
	Links     []EventLink `json:"links"`
	StartTime string      `json:"startTime"`
}

// Link is an edge returned by a search-links query.
type Link struct {
	Name   string          `json:"name,omitempty"`
	Source EntityReference `json:"source"`
	Target EntityReference `json:"target"`
}

// LinkQuery selects links by exactly one of Source or Target.
type LinkQuery struct {
	Source string
	Target string
}

// SearchResult is the outcome of a successful search-links call. An empty
// result is a success, distinct from a failed call.
type SearchResult struct {
	Links []Link
}

// Empty reports whether the search matched no links.
func (r *SearchResult) Empty() bool {
	return r == nil || len(r.Links) == 0
}

// Timestamp renders t the way the lineage API expects: RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
