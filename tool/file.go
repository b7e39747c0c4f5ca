package tool

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/moyoez/filetool-go/types"
)

var (
	imageTypes   = []string{"jpg", "jpeg", "png", "gif", "webp"}
	archiveTypes = []string{"zip", "rar", "7z"}
	docTypes     = []string{"doc", "docx", "xls", "xlsx", "ppt", "pptx"}
	sizeUnits    = []string{"B", "KB", "MB", "GB", "TB"}
)

// GetExtension returns the text after the last dot of fileName, or "" when there is none.
func GetExtension(fileName string) string {
	base := filepath.Base(fileName)
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return base[idx+1:]
}

// GetFileType is the lowercase extension used as FileRecord.Type.
func GetFileType(fileName string) string {
	return strings.ToLower(GetExtension(fileName))
}

func IsImage(fileType string) bool {
	return slices.Contains(imageTypes, strings.ToLower(fileType))
}

func IsArchive(fileType string) bool {
	return slices.Contains(archiveTypes, strings.ToLower(fileType))
}

func IsPdf(fileType string) bool {
	return strings.ToLower(fileType) == "pdf"
}

func IsDocument(fileType string) bool {
	return slices.Contains(docTypes, strings.ToLower(fileType))
}

// ReplaceBaseName swaps the part of name before its last dot, keeping the extension.
func ReplaceBaseName(name, newBase string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return newBase
	}
	return newBase + name[idx:]
}

// TrimExtension returns name without its last extension.
func TrimExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name
	}
	return name[:idx]
}

// FormatFileSize renders a byte count with two decimals at most: 0 -> "0 B", 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	if bytes < 0 {
		return "-" + FormatFileSize(-bytes)
	}
	const k = 1024.0
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(k, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// NewFileRecordFromPath stats a local file and builds a ready FileRecord for it.
func NewFileRecordFromPath(input types.FileInput) (types.FileRecord, error) {
	if input.Path == "" {
		return types.FileRecord{}, fmt.Errorf("path is required")
	}
	info, err := os.Stat(input.Path)
	if err != nil {
		return types.FileRecord{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return types.FileRecord{}, fmt.Errorf("path is a directory, not a file")
	}

	name := input.Name
	if name == "" {
		name = filepath.Base(input.Path)
	}
	source := input.Source
	if source == "" {
		source = types.SourceLocal
	}
	return types.FileRecord{
		ID:         GenerateFileID(),
		Name:       name,
		Size:       info.Size(),
		Type:       GetFileType(name),
		Path:       input.Path,
		Source:     source,
		CreateTime: NowMillis(),
		Status:     types.StatusReady,
	}, nil
}
