package types

import "encoding/json"

// Envelope is the response wrapper every remote endpoint uses.
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UploadResult is the data of a successful POST /upload.
type UploadResult struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	UploadPath   string `json:"uploadPath"`
}

type ExtractedFile struct {
	Name         string `json:"name"`
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size"`
}

type ConvertedImage struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"pageNumber"`
	Size       int64  `json:"size"`
}

// OperationResult is the union of the data payloads returned by the operation endpoints.
// Which fields are set depends on Operation.
type OperationResult struct {
	Operation Operation `json:"-"`

	// extract
	Files        []ExtractedFile `json:"files,omitempty"`
	ExtractionID string          `json:"extractionId,omitempty"`

	// pdf2images, doc2images
	Images       []ConvertedImage `json:"images,omitempty"`
	ConversionID string           `json:"conversionId,omitempty"`
	TotalPages   int              `json:"totalPages,omitempty"`

	// pdf2single
	Filename    string `json:"filename,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Artifact is one downloadable output of a remote operation.
type Artifact struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Size       int64  `json:"size,omitempty"`
	PageNumber int    `json:"pageNumber,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// InfoResult is best-effort metadata returned by the /info endpoints.
type InfoResult map[string]any

// PageCount returns the page count advertised by the info endpoint, or 0.
func (r InfoResult) PageCount() int {
	for _, key := range []string{"pageCount", "totalPages", "pages"} {
		switch v := r[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		}
	}
	return 0
}

type SupportedFormats struct {
	Extract []string `json:"extract"`
	Convert []string `json:"convert"`
}

type Limits struct {
	MaxFileSize any `json:"maxFileSize,omitempty"` // servers send "50MB" or a byte count
}

// ServerStatus is the data of GET /status.
type ServerStatus struct {
	SupportedFormats SupportedFormats `json:"supportedFormats"`
	Limits           Limits           `json:"limits"`
}
