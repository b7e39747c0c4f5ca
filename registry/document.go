package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bytedance/sonic"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// document is where the root FileSystem lives between mutations.
type document interface {
	read() (*types.FileSystem, error)
	write(fs *types.FileSystem) error
}

// jsonDocument keeps the root document in a single JSON file.
type jsonDocument struct {
	path string
}

func (d *jsonDocument) read() (*types.FileSystem, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewFileSystem(), nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if len(data) == 0 {
		return types.NewFileSystem(), nil
	}
	fs := types.NewFileSystem()
	if err := sonic.Unmarshal(data, fs); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	normalize(fs)
	return fs, nil
}

func (d *jsonDocument) write(fs *types.FileSystem) error {
	data, err := sonic.Marshal(fs)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := tool.WriteFileAtomic(d.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

// memoryDocument keeps the root document in memory, handing out deep copies.
type memoryDocument struct {
	fs *types.FileSystem
}

func (d *memoryDocument) read() (*types.FileSystem, error) {
	return clone(d.fs), nil
}

func (d *memoryDocument) write(fs *types.FileSystem) error {
	d.fs = clone(fs)
	return nil
}

func clone(fs *types.FileSystem) *types.FileSystem {
	out := &types.FileSystem{
		Files:          slices.Clone(fs.Files),
		Folders:        slices.Clone(fs.Folders),
		ProcessHistory: slices.Clone(fs.ProcessHistory),
	}
	normalize(out)
	return out
}

// normalize replaces nil slices so the document always encodes as arrays.
func normalize(fs *types.FileSystem) {
	if fs.Files == nil {
		fs.Files = []types.FileRecord{}
	}
	if fs.Folders == nil {
		fs.Folders = []any{}
	}
	if fs.ProcessHistory == nil {
		fs.ProcessHistory = []types.ProcessHistoryRecord{}
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
