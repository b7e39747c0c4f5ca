package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/filetool-go/api/models"
	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

type testEnv struct {
	t       *testing.T
	handler http.Handler
	store   registry.Store
	service *httptest.Server
	client  *remote.Client
}

// fakeProcessingService answers the endpoints a pdf2images flow uses.
func fakeProcessingService(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok", "data": data})
	}
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"filename": "up.pdf", "originalName": "report.pdf", "size": 6})
	})
	mux.HandleFunc("POST /api/convert/pdf/info", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"pageCount": 2})
	})
	mux.HandleFunc("POST /api/convert/pdf", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{
			"conversionId": "cv1",
			"totalPages":   2,
			"images": []map[string]any{
				{"filename": "p1.png", "pageNumber": 1, "size": 1000},
				{"filename": "p2.png", "pageNumber": 2, "size": 1200},
			},
		})
	})
	mux.HandleFunc("GET /api/api/converted-images/cv1/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png:" + r.PathValue("name")))
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{
			"supportedFormats": map[string]any{"extract": []string{"zip"}, "convert": []string{"pdf"}},
			"limits":           map[string]any{"maxFileSize": "50MB"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, err := tool.LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	service := fakeProcessingService(t)
	client := remote.New(remote.Config{BaseURL: service.URL + "/api", DownloadDir: t.TempDir()})
	store := registry.NewMemoryStore()
	flows := flow.New(store, client, flow.Options{Reporter: models.JobReporter})

	srv := NewServer(0, Deps{Store: store, Flows: flows, Status: client})
	return &testEnv{t: t, handler: srv.Handler(), store: store, service: service, client: client}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "127.0.0.1:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data  T      `json:"data"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

func (e *testEnv) addFile(name string) types.FileRecord {
	e.t.Helper()
	p := filepath.Join(e.t.TempDir(), name)
	require.NoError(e.t, os.WriteFile(p, []byte("source"), 0o644))
	w := e.do(http.MethodPost, "/api/self/v1/files", types.FileInput{Path: p, Source: types.SourceChat})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[types.FileRecord](e.t, w)
}

func (e *testEnv) waitJob(id string) models.Job {
	e.t.Helper()
	var job models.Job
	require.Eventually(e.t, func() bool {
		w := e.do(http.MethodGet, "/api/self/v1/jobs/"+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		job = decode[models.Job](e.t, w)
		return job.Status != models.JobRunning
	}, 5*time.Second, 20*time.Millisecond)
	return job
}

func TestOnlyLocalClients(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/self/v1/files", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("notes.pdf")
	assert.Equal(t, "notes.pdf", rec.Name)
	assert.Equal(t, "pdf", rec.Type)
	assert.Equal(t, int64(6), rec.Size)
	assert.Equal(t, types.SourceChat, rec.Source)

	w := env.do(http.MethodGet, "/api/self/v1/files/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rec, decode[types.FileRecord](t, w))

	w = env.do(http.MethodPut, "/api/self/v1/files/"+rec.ID+"/name", map[string]string{"name": "minutes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "minutes.pdf", decode[types.FileRecord](t, w).Name)

	w = env.do(http.MethodPut, "/api/self/v1/files/"+rec.ID+"/name", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/self/v1/files/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.FileRecord](t, w), 1)

	w = env.do(http.MethodGet, "/api/self/v1/files/"+rec.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]types.ProcessHistoryRecord](t, w))

	w = env.do(http.MethodDelete, "/api/self/v1/files/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/self/v1/files/"+rec.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddFileValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/self/v1/files", types.FileInput{Path: filepath.Join(t.TempDir(), "missing.pdf")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	p := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	w = env.do(http.MethodPost, "/api/self/v1/files", types.FileInput{Path: p, Source: types.SourceProcessed})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBatch(t *testing.T) {
	env := newTestEnv(t)
	a := env.addFile("a.pdf")
	b := env.addFile("b.pdf")
	c := env.addFile("c.pdf")

	w := env.do(http.MethodPost, "/api/self/v1/files/delete-batch", map[string][]string{"ids": {a.ID, c.ID, "nope"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["deleted"])

	w = env.do(http.MethodGet, "/api/self/v1/files", nil)
	files := decode[[]types.FileRecord](t, w)
	require.Len(t, files, 1)
	assert.Equal(t, b.ID, files[0].ID)
}

func TestFileQRCode(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("a.pdf")
	w := env.do(http.MethodGet, "/api/self/v1/files/"+rec.ID+"/qrcode?size=128x128", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = env.do(http.MethodGet, "/api/self/v1/files/missing/qrcode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodGet, "/api/self/v1/create-qr-code?data=x", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPdfToImagesJob(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("report.pdf")

	w := env.do(http.MethodPost, "/api/self/v1/files/"+rec.ID+"/pdf2images", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	started := decode[models.Job](t, w)
	assert.Equal(t, models.JobRunning, started.Status)

	job := env.waitJob(started.ID)
	require.Equal(t, models.JobDone, job.Status, job.Error)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.Files, 2)
	assert.Equal(t, rec.ID, job.Files[0].ParentID)
	assert.Equal(t, types.SourceProcessed, job.Files[1].Source)

	w = env.do(http.MethodGet, "/api/self/v1/files/"+rec.ID+"/history", nil)
	history := decode[[]types.ProcessHistoryRecord](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, types.OpPdf2Images, history[0].Operation)
	assert.Equal(t, 2, history[0].PageCount)

	w = env.do(http.MethodGet, "/api/self/v1/stats", nil)
	stats := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, stats["fileCount"])
	assert.EqualValues(t, 1, stats["processedCount"])
}

func TestJobFailsOnWrongFileType(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("photo.png")

	w := env.do(http.MethodPost, "/api/self/v1/files/"+rec.ID+"/extract", map[string]string{"password": "x"})
	require.Equal(t, http.StatusAccepted, w.Code)
	job := env.waitJob(decode[models.Job](t, w).ID)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "This operation is not supported for this file", job.Message)
}

func TestFlowRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("report.pdf")

	w := env.do(http.MethodPost, "/api/self/v1/files/"+rec.ID+"/pdf2single", map[string]int{"pageNumber": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/api/self/v1/files/"+rec.ID+"/convert", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/api/self/v1/files/missing/compress", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(http.MethodGet, "/api/self/v1/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/self/v1/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.EqualValues(t, 80, got["compressionQuality"])
	assert.EqualValues(t, 1, got["usageDays"])

	w = env.do(http.MethodPut, "/api/self/v1/settings", map[string]any{"compressionQuality": 60, "showStats": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, tool.GetSettings().CompressionQuality)
	assert.False(t, tool.GetSettings().ShowStats)
	assert.True(t, tool.GetSettings().AutoSave)

	w = env.do(http.MethodPut, "/api/self/v1/settings", map[string]any{"compressionQuality": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/self/v1/settings/api-base-url", map[string]string{"apiBaseUrl": "ftp://nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/self/v1/settings/api-base-url", map[string]string{"apiBaseUrl": "https://files.example.com/api/"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://files.example.com/api", tool.GetSettings().APIBaseURL)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/self/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[map[string]any](t, w)
	assert.Equal(t, true, got["available"])
	assert.NotNil(t, got["service"])

	w = env.do(http.MethodGet, "/api/self/v1/status?cached=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["cached"])

	env.client.SetBaseURL("http://127.0.0.1:1/api")
	w = env.do(http.MethodGet, "/api/self/v1/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	got = decode[map[string]any](t, w)
	assert.Equal(t, false, got["available"])
	assert.Contains(t, got, "ping")
}

func TestClearHistoryAndData(t *testing.T) {
	env := newTestEnv(t)
	rec := env.addFile("a.pdf")
	require.NoError(t, env.store.AppendHistory(types.ProcessHistoryRecord{ID: "h1", FileID: rec.ID, Operation: types.OpExtract}))

	w := env.do(http.MethodDelete, "/api/self/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history, err := env.store.AllHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	w = env.do(http.MethodDelete, "/api/self/v1/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	files, err := env.store.GetAll()
	require.NoError(t, err)
	assert.Empty(t, files)
}
