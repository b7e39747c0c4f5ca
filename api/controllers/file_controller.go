package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/notify"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const defaultRecentCount = 5

// FileController serves the file registry.
type FileController struct {
	store    registry.Store
	notifier notify.Notifier
}

func NewFileController(store registry.Store, notifier notify.Notifier) *FileController {
	return &FileController{store: store, notifier: notifier}
}

// filesChanged tells the UI to refresh its file list.
func (fc *FileController) filesChanged(reason string, ids ...string) {
	if fc.notifier == nil {
		return
	}
	err := fc.notifier.Send(&types.Notification{
		Type:    types.NotifyTypeFilesChanged,
		Message: reason,
		Data:    map[string]any{"ids": ids},
	})
	if err != nil {
		tool.DefaultLogger.Debugf("[Notify] files_changed not delivered: %v", err)
	}
}

// List returns every registered file.
// GET /api/self/v1/files
func (fc *FileController) List(c *gin.Context) {
	files, err := fc.store.GetAll()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(files))
}

// Recent returns the newest files, ?limit=5 by default.
// GET /api/self/v1/files/recent
func (fc *FileController) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentCount)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("limit must be a positive integer"))
		return
	}
	files, err := fc.store.Recent(limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(files))
}

// Add registers a local file picked by the host.
// POST /api/self/v1/files
func (fc *FileController) Add(c *gin.Context) {
	var input types.FileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	switch input.Source {
	case "", types.SourceChat, types.SourceLocal:
	default:
		c.JSON(http.StatusBadRequest, tool.FastReturnError("source must be chat or local"))
		return
	}
	rec, err := tool.NewFileRecordFromPath(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	saved, err := fc.store.Save(rec)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tool.DefaultLogger.Infof("Registered %s (%s)", saved.Name, tool.FormatFileSize(saved.Size))
	fc.filesChanged("added", saved.ID)
	c.JSON(http.StatusCreated, tool.FastReturnSuccessWithData(saved))
}

// Get returns one file.
// GET /api/self/v1/files/:id
func (fc *FileController) Get(c *gin.Context) {
	rec, err := fc.store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(rec))
}

// Delete removes one record. Derived files stay listed.
// DELETE /api/self/v1/files/:id
func (fc *FileController) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := fc.store.Delete(id); err != nil {
		abortWithError(c, err)
		return
	}
	fc.filesChanged("deleted", id)
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

type deleteBatchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// DeleteBatch removes several records at once.
// POST /api/self/v1/files/delete-batch
func (fc *FileController) DeleteBatch(c *gin.Context) {
	var req deleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	n, err := fc.store.DeleteMany(req.IDs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	fc.filesChanged("deleted", req.IDs...)
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"deleted": n}))
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename replaces the base name, keeping the extension.
// PUT /api/self/v1/files/:id/name
func (fc *FileController) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	rec, err := fc.store.Rename(c.Param("id"), req.Name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	fc.filesChanged("renamed", rec.ID)
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(rec))
}

// History lists the processing history of one file, newest first.
// GET /api/self/v1/files/:id/history
func (fc *FileController) History(c *gin.Context) {
	id := c.Param("id")
	if _, err := fc.store.Get(id); err != nil {
		abortWithError(c, err)
		return
	}
	history, err := fc.store.History(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if history == nil {
		history = []types.ProcessHistoryRecord{}
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(history))
}
