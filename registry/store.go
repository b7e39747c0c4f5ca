// Package registry owns the persisted list of file records and the process history log.
package registry

import (
	"errors"

	"github.com/moyoez/filetool-go/types"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrEmptyName    = errors.New("file name must not be empty")
)

// Store is the Local File Registry. Every other component reads and writes
// file records and history through it.
type Store interface {
	GetAll() ([]types.FileRecord, error)
	Get(id string) (types.FileRecord, error)
	Save(record types.FileRecord) (types.FileRecord, error)
	Delete(id string) error
	DeleteMany(ids []string) (int, error)
	Rename(id, newBaseName string) (types.FileRecord, error)
	SetStatus(id string, status types.FileStatus) error
	Recent(n int) ([]types.FileRecord, error)

	AppendHistory(record types.ProcessHistoryRecord) error
	History(fileID string) ([]types.ProcessHistoryRecord, error)
	AllHistory() ([]types.ProcessHistoryRecord, error)
	ClearHistory() error
	ClearAll() error
	Stats() (types.RegistryStats, error)
}
