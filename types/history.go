package types

// Operation names a processing operation recorded in the history log.
type Operation string

const (
	OpCompress   Operation = "compress"
	OpExtract    Operation = "extract"
	OpConvert    Operation = "convert"
	OpPdf2Images Operation = "pdf2images"
	OpPdf2Single Operation = "pdf2single"
	OpDoc2Images Operation = "doc2images"
)

const (
	HistorySuccess = "success"
	HistoryError   = "error"
)

// ProcessHistoryRecord is an append-only log entry written at the end of every flow.
type ProcessHistoryRecord struct {
	ID        string    `json:"id"`
	FileID    string    `json:"fileId"`
	Operation Operation `json:"operation"`
	Success   bool      `json:"success"`
	Timestamp int64     `json:"timestamp"` // epoch ms
	Status    string    `json:"status"`

	OriginalSize   int64  `json:"originalSize,omitempty"`
	CompressedSize int64  `json:"compressedSize,omitempty"`
	ExtractedCount int    `json:"extractedCount"`
	TotalFiles     int    `json:"totalFiles"`
	PageCount      int    `json:"pageCount"`
	TotalPages     int    `json:"totalPages"`
	PageNumber     int    `json:"pageNumber,omitempty"`
	TargetFormat   string `json:"targetFormat,omitempty"`
	Error          string `json:"error,omitempty"`
}

// FileSystem is the persisted registry root document.
type FileSystem struct {
	Files          []FileRecord           `json:"files"`
	Folders        []any                  `json:"folders"` // unused placeholder kept for document compatibility
	ProcessHistory []ProcessHistoryRecord `json:"processHistory"`
}

// NewFileSystem returns an empty root document.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		Files:          []FileRecord{},
		Folders:        []any{},
		ProcessHistory: []ProcessHistoryRecord{},
	}
}

// RegistryStats summarizes the registry for the settings and index screens.
type RegistryStats struct {
	FileCount      int   `json:"fileCount"`
	TotalSize      int64 `json:"totalSize"`
	HistoryCount   int   `json:"historyCount"`
	ProcessedCount int   `json:"processedCount"`
	SavedSpace     int64 `json:"savedSpace"`
}
