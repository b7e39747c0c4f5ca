package types

// FileSource tells where a FileRecord came from.
type FileSource string

const (
	SourceChat      FileSource = "chat"
	SourceLocal     FileSource = "local"
	SourceProcessed FileSource = "processed"
)

// FileStatus is the processing state of a FileRecord.
type FileStatus string

const (
	StatusReady      FileStatus = "ready"
	StatusProcessing FileStatus = "processing"
	StatusCompleted  FileStatus = "completed"
	StatusError      FileStatus = "error"
)

// FileRecord is one entry of the local file registry.
// Derived files (compressed, converted, extracted) point at their origin through ParentID.
type FileRecord struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	Type       string     `json:"type"` // lowercase extension, no dot
	Path       string     `json:"path"`
	Source     FileSource `json:"source"`
	CreateTime int64      `json:"createTime"` // epoch ms
	Status     FileStatus `json:"status"`
	ParentID   string     `json:"parentId,omitempty"`

	// provenance of processed artifacts
	OriginalArchive string `json:"originalArchive,omitempty"`
	OriginalPdf     string `json:"originalPdf,omitempty"`
	PageNumber      int    `json:"pageNumber,omitempty"`
	ExternalID      string `json:"externalId,omitempty"`
}

// FileInput is what a host hands over when it registers a file it picked.
type FileInput struct {
	Name   string     `json:"name,omitempty"` // optional, defaults to the base name of Path
	Path   string     `json:"path"`
	Source FileSource `json:"source,omitempty"`
}
