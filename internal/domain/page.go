package domain

import "time"

type PageState string

const (
	PageStateUnresolved PageState = "unresolved"
	PageStateResolved   PageState = "resolved"
)

// Snapshot is the whole view state published by one resolution cycle.
type Snapshot struct {
	State      PageState `json:"state"`
	Links      []string  `json:"links"`
	Generation uint64    `json:"generation"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

type ToolbarAction struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Tooltip  string `json:"tooltip"`
	Icon     string `json:"icon"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Breadcrumb struct {
	DisplayName string `json:"display_name"`
	Href        string `json:"href"`
}

type ToolbarState struct {
	PageTitle   string                   `json:"page_title"`
	Breadcrumbs []Breadcrumb             `json:"breadcrumbs"`
	Actions     map[string]ToolbarAction `json:"actions"`
}
