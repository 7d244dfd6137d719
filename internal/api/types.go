// Package api is the HTTP/JSON client for the VeloxCase integration API.
package api

// Sync result statuses reported by the server.
const (
	StatusSuccess   = "success"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// Folder is a node of the test-management repository tree.
type Folder struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// IssuePreview summarizes a single tracker issue.
type IssuePreview struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Icon    string `json:"icon"`
}

// SyncRequest starts a server-side synchronization.
type SyncRequest struct {
	// IssueInput is one issue key or a comma separated batch.
	IssueInput  string `json:"jira_input"`
	FolderID    int64  `json:"folder_id"`
	ProjectID   int64  `json:"project_id"`
	ForceUpdate bool   `json:"force_update,omitempty"`
}

// SyncResult is the outcome for one issue key.
type SyncResult struct {
	Task     string `json:"task"`
	Status   string `json:"status"`
	CaseName string `json:"case_name,omitempty"`
	Msg      string `json:"msg,omitempty"`
	Images   int    `json:"images"`
}

// Detail returns the case name for successes and the message otherwise.
func (r SyncResult) Detail() string {
	if r.Status == StatusSuccess {
		return r.CaseName
	}
	return r.Msg
}

// HistoryEntry is one past synchronization.
type HistoryEntry struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Task   string `json:"task"`
	Case   string `json:"case"`
	Status string `json:"status"`
}

// Stats are the dashboard summary counters.
type Stats struct {
	TotalCases  int `json:"total_cases"`
	TotalImages int `json:"total_images"`
	TodaySyncs  int `json:"today_syncs"`
}

// Settings is the free-form integration credential record.
type Settings map[string]string
