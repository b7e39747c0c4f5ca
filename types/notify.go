package types

const (
	NotifyTypeFlowProgress = "flow_progress"
	NotifyTypeFlowDone     = "flow_done"
	NotifyTypeFlowFailed   = "flow_failed"
	NotifyTypeFilesChanged = "files_changed"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // e.g. "flow_progress", "flow_done"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
