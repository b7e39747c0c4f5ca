package registry

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// FileRegistry implements Store. Each mutation is a full read-modify-write of the
// root document, serialized by mu so overlapping flows cannot lose each other's updates.
type FileRegistry struct {
	mu  sync.Mutex
	doc document
}

var _ Store = (*FileRegistry)(nil)

// NewJSONStore opens (or initializes) the registry document at path.
func NewJSONStore(path string) (*FileRegistry, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	r := &FileRegistry{doc: &jsonDocument{path: path}}

	// write the initial empty document, and fail early on a corrupt one
	if err := r.update(func(*types.FileSystem) error { return nil }); err != nil {
		return nil, err
	}
	tool.DefaultLogger.Debugf("Registry opened at %s", path)
	return r, nil
}

// NewMemoryStore returns a registry that is never written to disk.
func NewMemoryStore() *FileRegistry {
	return &FileRegistry{doc: &memoryDocument{fs: types.NewFileSystem()}}
}

func (r *FileRegistry) view(fn func(fs *types.FileSystem) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs, err := r.doc.read()
	if err != nil {
		return err
	}
	return fn(fs)
}

func (r *FileRegistry) update(fn func(fs *types.FileSystem) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs, err := r.doc.read()
	if err != nil {
		return err
	}
	if err := fn(fs); err != nil {
		return err
	}
	return r.doc.write(fs)
}

func (r *FileRegistry) GetAll() ([]types.FileRecord, error) {
	var files []types.FileRecord
	err := r.view(func(fs *types.FileSystem) error {
		files = fs.Files
		return nil
	})
	return files, err
}

func (r *FileRegistry) Get(id string) (types.FileRecord, error) {
	var found types.FileRecord
	err := r.view(func(fs *types.FileSystem) error {
		idx := indexOf(fs.Files, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		found = fs.Files[idx]
		return nil
	})
	return found, err
}

// Save appends record as is. Ids are the caller's responsibility.
func (r *FileRegistry) Save(record types.FileRecord) (types.FileRecord, error) {
	err := r.update(func(fs *types.FileSystem) error {
		fs.Files = append(fs.Files, record)
		return nil
	})
	if err != nil {
		return types.FileRecord{}, err
	}
	return record, nil
}

// Delete removes the record with id. Children pointing at it through ParentID stay listed.
func (r *FileRegistry) Delete(id string) error {
	return r.update(func(fs *types.FileSystem) error {
		fs.Files = slices.DeleteFunc(fs.Files, func(f types.FileRecord) bool {
			return f.ID == id
		})
		return nil
	})
}

func (r *FileRegistry) DeleteMany(ids []string) (int, error) {
	removed := 0
	err := r.update(func(fs *types.FileSystem) error {
		before := len(fs.Files)
		fs.Files = slices.DeleteFunc(fs.Files, func(f types.FileRecord) bool {
			return slices.Contains(ids, f.ID)
		})
		removed = before - len(fs.Files)
		return nil
	})
	return removed, err
}

// Rename replaces the part of the name before the extension.
func (r *FileRegistry) Rename(id, newBaseName string) (types.FileRecord, error) {
	newBaseName = strings.TrimSpace(newBaseName)
	if newBaseName == "" {
		return types.FileRecord{}, ErrEmptyName
	}
	var renamed types.FileRecord
	err := r.update(func(fs *types.FileSystem) error {
		idx := indexOf(fs.Files, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		fs.Files[idx].Name = tool.ReplaceBaseName(fs.Files[idx].Name, newBaseName)
		renamed = fs.Files[idx]
		return nil
	})
	return renamed, err
}

func (r *FileRegistry) SetStatus(id string, status types.FileStatus) error {
	return r.update(func(fs *types.FileSystem) error {
		idx := indexOf(fs.Files, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		fs.Files[idx].Status = status
		return nil
	})
}

// Recent returns up to n records, newest first.
func (r *FileRegistry) Recent(n int) ([]types.FileRecord, error) {
	files, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(files, func(a, b types.FileRecord) int {
		return cmp.Compare(b.CreateTime, a.CreateTime)
	})
	if n >= 0 && len(files) > n {
		files = files[:n]
	}
	return files, nil
}

func (r *FileRegistry) AppendHistory(record types.ProcessHistoryRecord) error {
	return r.update(func(fs *types.FileSystem) error {
		fs.ProcessHistory = append(fs.ProcessHistory, record)
		return nil
	})
}

// History returns the records of one file, newest first.
func (r *FileRegistry) History(fileID string) ([]types.ProcessHistoryRecord, error) {
	var out []types.ProcessHistoryRecord
	err := r.view(func(fs *types.FileSystem) error {
		for i := len(fs.ProcessHistory) - 1; i >= 0; i-- {
			if h := fs.ProcessHistory[i]; h.FileID == fileID {
				out = append(out, h)
			}
		}
		return nil
	})
	// appended last wins ties
	slices.SortStableFunc(out, func(a, b types.ProcessHistoryRecord) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
	return out, err
}

func (r *FileRegistry) AllHistory() ([]types.ProcessHistoryRecord, error) {
	var out []types.ProcessHistoryRecord
	err := r.view(func(fs *types.FileSystem) error {
		out = fs.ProcessHistory
		return nil
	})
	return out, err
}

func (r *FileRegistry) ClearHistory() error {
	return r.update(func(fs *types.FileSystem) error {
		fs.ProcessHistory = []types.ProcessHistoryRecord{}
		return nil
	})
}

func (r *FileRegistry) ClearAll() error {
	return r.update(func(fs *types.FileSystem) error {
		*fs = *types.NewFileSystem()
		return nil
	})
}

func (r *FileRegistry) Stats() (types.RegistryStats, error) {
	var stats types.RegistryStats
	err := r.view(func(fs *types.FileSystem) error {
		stats.FileCount = len(fs.Files)
		for _, f := range fs.Files {
			stats.TotalSize += f.Size
		}
		stats.HistoryCount = len(fs.ProcessHistory)
		for _, h := range fs.ProcessHistory {
			if !h.Success {
				continue
			}
			stats.ProcessedCount++
			if h.Operation == types.OpCompress && h.OriginalSize > 0 && h.CompressedSize > 0 {
				stats.SavedSpace += h.OriginalSize - h.CompressedSize
			}
		}
		return nil
	})
	return stats, err
}

func indexOf(files []types.FileRecord, id string) int {
	return slices.IndexFunc(files, func(f types.FileRecord) bool {
		return f.ID == id
	})
}
