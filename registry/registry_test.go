package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/filetool-go/types"
)

func newTestRecord(id, name string) types.FileRecord {
	return types.FileRecord{
		ID:         id,
		Name:       name,
		Size:       1024,
		Type:       "pdf",
		Path:       "/tmp/" + name,
		Source:     types.SourceChat,
		CreateTime: 1700000000000,
		Status:     types.StatusReady,
	}
}

// stores returns one registry per backend so every test runs against both.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	jsonStore, err := NewJSONStore(filepath.Join(t.TempDir(), "data", "filesystem.json"))
	require.NoError(t, err)
	return map[string]Store{
		"json":   jsonStore,
		"memory": NewMemoryStore(),
	}
}

func TestGetAllEmpty(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			files, err := store.GetAll()
			require.NoError(t, err)
			assert.Empty(t, files)
			assert.NotNil(t, files)
		})
	}
}

func TestSaveThenGetAll(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec := newTestRecord("file_1", "report.pdf")
			rec.ParentID = "file_0"
			rec.PageNumber = 3

			saved, err := store.Save(rec)
			require.NoError(t, err)
			assert.Equal(t, rec, saved)

			files, err := store.GetAll()
			require.NoError(t, err)
			require.Len(t, files, 1)
			assert.Equal(t, rec, files[0])

			got, err := store.Get("file_1")
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}
}

func TestSaveDoesNotDedup(t *testing.T) {
	store := NewMemoryStore()
	rec := newTestRecord("file_1", "a.pdf")
	_, err := store.Save(rec)
	require.NoError(t, err)
	_, err = store.Save(rec)
	require.NoError(t, err)

	files, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGetAllIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i := range 3 {
				_, err := store.Save(newTestRecord(fmt.Sprintf("file_%d", i), "x.pdf"))
				require.NoError(t, err)
			}
			first, err := store.GetAll()
			require.NoError(t, err)
			second, err := store.GetAll()
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)

	files, err := store.GetAll()
	require.NoError(t, err)
	files[0].Name = "mutated.pdf"

	again, err := store.GetAll()
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", again[0].Name)
}

func TestDeleteLeavesChildren(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			parent := newTestRecord("parent", "book.pdf")
			child := newTestRecord("child", "p1.png")
			child.ParentID = "parent"
			other := newTestRecord("other", "notes.txt")
			for _, rec := range []types.FileRecord{parent, child, other} {
				_, err := store.Save(rec)
				require.NoError(t, err)
			}

			require.NoError(t, store.Delete("parent"))

			files, err := store.GetAll()
			require.NoError(t, err)
			assert.Equal(t, []types.FileRecord{child, other}, files)

			_, err = store.Get("parent")
			assert.ErrorIs(t, err, ErrFileNotFound)
		})
	}
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, store.Delete("missing"))
	files, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDeleteMany(t *testing.T) {
	store := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Save(newTestRecord(id, id+".pdf"))
		require.NoError(t, err)
	}
	n, err := store.DeleteMany([]string{"a", "c", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b", files[0].ID)
}

func TestRenameKeepsExtension(t *testing.T) {
	cases := []struct {
		original string
		newBase  string
		want     string
	}{
		{"report.final.pdf", "summary", "summary.pdf"},
		{"README", "notes", "notes"},
		{"photo.JPG", " holiday ", "holiday.JPG"},
	}
	for _, tc := range cases {
		t.Run(tc.original, func(t *testing.T) {
			store := NewMemoryStore()
			_, err := store.Save(newTestRecord("file_1", tc.original))
			require.NoError(t, err)

			renamed, err := store.Rename("file_1", tc.newBase)
			require.NoError(t, err)
			assert.Equal(t, tc.want, renamed.Name)

			got, err := store.Get("file_1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Name)
		})
	}
}

func TestRenameErrors(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Rename("missing", "x")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)
	_, err = store.Rename("file_1", "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestSetStatus(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, store.SetStatus("file_1", types.StatusProcessing))
	got, err := store.Get("file_1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, got.Status)

	assert.ErrorIs(t, store.SetStatus("missing", types.StatusError), ErrFileNotFound)
}

func TestRecent(t *testing.T) {
	store := NewMemoryStore()
	for i := range 7 {
		rec := newTestRecord(fmt.Sprintf("file_%d", i), "x.pdf")
		rec.CreateTime = int64(1000 + i)
		_, err := store.Save(rec)
		require.NoError(t, err)
	}
	recent, err := store.Recent(5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "file_6", recent[0].ID)
	assert.Equal(t, "file_2", recent[4].ID)
}

func TestHistoryFilteredNewestFirst(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			records := []types.ProcessHistoryRecord{
				{ID: "h1", FileID: "a", Operation: types.OpExtract, Success: true, Timestamp: 10, Status: types.HistorySuccess},
				{ID: "h2", FileID: "b", Operation: types.OpCompress, Success: true, Timestamp: 20, Status: types.HistorySuccess},
				{ID: "h3", FileID: "a", Operation: types.OpPdf2Images, Success: false, Timestamp: 30, Status: types.HistoryError, Error: "boom"},
			}
			for _, h := range records {
				require.NoError(t, store.AppendHistory(h))
			}

			hist, err := store.History("a")
			require.NoError(t, err)
			require.Len(t, hist, 2)
			assert.Equal(t, "h3", hist[0].ID)
			assert.Equal(t, "h1", hist[1].ID)

			all, err := store.AllHistory()
			require.NoError(t, err)
			assert.Equal(t, records, all)
		})
	}
}

func TestClearHistoryAndAll(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)
	require.NoError(t, store.AppendHistory(types.ProcessHistoryRecord{ID: "h1", FileID: "file_1"}))

	require.NoError(t, store.ClearHistory())
	hist, err := store.AllHistory()
	require.NoError(t, err)
	assert.Empty(t, hist)
	files, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, store.ClearAll())
	files, err = store.GetAll()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStats(t *testing.T) {
	store := NewMemoryStore()
	a := newTestRecord("a", "a.jpg")
	a.Size = 1000
	b := newTestRecord("b", "b.jpg")
	b.Size = 700
	for _, rec := range []types.FileRecord{a, b} {
		_, err := store.Save(rec)
		require.NoError(t, err)
	}
	history := []types.ProcessHistoryRecord{
		{ID: "1", Operation: types.OpCompress, Success: true, OriginalSize: 1000, CompressedSize: 700},
		{ID: "2", Operation: types.OpCompress, Success: false, OriginalSize: 1000, CompressedSize: 100},
		{ID: "3", Operation: types.OpExtract, Success: true},
	}
	for _, h := range history {
		require.NoError(t, store.AppendHistory(h))
	}

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, types.RegistryStats{
		FileCount:      2,
		TotalSize:      1700,
		HistoryCount:   3,
		ProcessedCount: 2,
		SavedSpace:     300,
	}, stats)
}

func TestConcurrentSavesAreNotLost(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "filesystem.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Save(newTestRecord(fmt.Sprintf("file_%d", i), "x.png"))
			assert.NoError(t, err)
			assert.NoError(t, store.AppendHistory(types.ProcessHistoryRecord{ID: fmt.Sprintf("h_%d", i)}))
		}(i)
	}
	wg.Wait()

	files, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, files, 20)
	hist, err := store.AllHistory()
	require.NoError(t, err)
	assert.Len(t, hist, 20)
}

func TestJSONStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesystem.json")
	store, err := NewJSONStore(path)
	require.NoError(t, err)
	_, err = store.Save(newTestRecord("file_1", "a.pdf"))
	require.NoError(t, err)

	reopened, err := NewJSONStore(path)
	require.NoError(t, err)
	files, err := reopened.GetAll()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "file_1", files[0].ID)
}

func TestJSONStoreWritesDocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesystem.json")
	_, err := NewJSONStore(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":[],"folders":[],"processHistory":[]}`, string(data))
}

func TestJSONStoreKeepsZeroCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesystem.json")
	store, err := NewJSONStore(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendHistory(types.ProcessHistoryRecord{
		ID:         "h1",
		FileID:     "file_1",
		Operation:  types.OpExtract,
		Status:     types.HistoryError,
		TotalFiles: 3,
		Error:      "no artifacts downloaded",
	}))

	var doc struct {
		ProcessHistory []map[string]any `json:"processHistory"`
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(data, &doc))
	require.Len(t, doc.ProcessHistory, 1)
	assert.EqualValues(t, 0, doc.ProcessHistory[0]["extractedCount"])
	assert.EqualValues(t, 3, doc.ProcessHistory[0]["totalFiles"])
}

func TestJSONStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesystem.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONStore(path)
	assert.Error(t, err)
}
