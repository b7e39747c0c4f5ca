package tool

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/filetool-go/types"
)

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		0:                   "0 B",
		512:                 "512 B",
		1024:                "1 KB",
		1536:                "1.5 KB",
		5 * 1024 * 1024 / 3: "1.67 MB",
		-2048:               "-2 KB",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatFileSize(in), "size %d", in)
	}
}

func TestFileTypes(t *testing.T) {
	assert.Equal(t, "pdf", GetFileType("Report.PDF"))
	assert.Equal(t, "gz", GetFileType("a.tar.gz"))
	assert.Equal(t, "", GetFileType("README"))
	assert.Equal(t, "", GetFileType("trailing."))
	assert.True(t, IsImage("JPG"))
	assert.True(t, IsArchive("rar"))
	assert.True(t, IsDocument("pptx"))
	assert.False(t, IsDocument("pdf"))
	assert.True(t, IsPdf("Pdf"))
}

func TestReplaceBaseName(t *testing.T) {
	assert.Equal(t, "minutes.pdf", ReplaceBaseName("notes.pdf", "minutes"))
	assert.Equal(t, "b.gz", ReplaceBaseName("a.tar.gz", "b"))
	assert.Equal(t, "plain", ReplaceBaseName("README", "plain"))
	assert.Equal(t, "archive", TrimExtension("archive.zip"))
	assert.Equal(t, ".env", TrimExtension(".env"))
}

func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	first := NextAvailablePath(dir, "p1.png")
	assert.Equal(t, filepath.Join(dir, "p1.png"), first)

	require.NoError(t, os.WriteFile(first, nil, 0o644))
	second := NextAvailablePath(dir, "p1.png")
	assert.Equal(t, filepath.Join(dir, "p1-2.png"), second)

	require.NoError(t, os.WriteFile(second, nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "p1-3.png"), NextAvailablePath(dir, "p1.png"))

	assert.Equal(t, filepath.Join(dir, "evil.txt"), NextAvailablePath(dir, "../../evil.txt"))
	assert.Equal(t, filepath.Join(dir, "x.txt"), NextAvailablePath(dir, `nested\dir\x.txt`))
}

func TestNewFileRecordFromPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "Scan.JPG")
	require.NoError(t, os.WriteFile(p, []byte("12345"), 0o644))

	rec, err := NewFileRecordFromPath(types.FileInput{Path: p})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^file_\d+_[0-9a-z]{9}$`), rec.ID)
	assert.Equal(t, "Scan.JPG", rec.Name)
	assert.Equal(t, "jpg", rec.Type)
	assert.Equal(t, int64(5), rec.Size)
	assert.Equal(t, types.SourceLocal, rec.Source)
	assert.Equal(t, types.StatusReady, rec.Status)

	_, err = NewFileRecordFromPath(types.FileInput{Path: filepath.Dir(p)})
	assert.Error(t, err)
	_, err = NewFileRecordFromPath(types.FileInput{})
	assert.Error(t, err)
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "doc.json")
	require.NoError(t, WriteFileAtomic(p, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(p, []byte("two"), 0o644))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
