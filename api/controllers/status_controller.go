package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// StatusChecker is the part of remote.Client the status endpoint needs.
type StatusChecker interface {
	BaseURL() string
	CheckStatus(ctx context.Context) (*types.ServerStatus, error)
	LastStatus() *types.ServerStatus
	Ping(ctx context.Context, count int) (remote.PingResult, error)
}

// StatusController reports service reachability and registry statistics.
type StatusController struct {
	store   registry.Store
	checker StatusChecker
	hub     interface{ Clients() int }
}

func NewStatusController(store registry.Store, checker StatusChecker, hub interface{ Clients() int }) *StatusController {
	return &StatusController{store: store, checker: checker, hub: hub}
}

// Status checks the processing service. When it is unreachable a short ping of its
// host is attached as a diagnostic. ?cached=true answers from the last fresh check.
// GET /api/self/v1/status
func (sc *StatusController) Status(c *gin.Context) {
	resp := gin.H{
		"running":    true,
		"apiBaseUrl": sc.checker.BaseURL(),
	}
	if sc.hub != nil {
		resp["notifyClients"] = sc.hub.Clients()
	}
	if c.Query("cached") == "true" {
		if status := sc.checker.LastStatus(); status != nil {
			resp["available"] = true
			resp["cached"] = true
			resp["service"] = status
			c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(resp))
			return
		}
	}

	status, err := sc.checker.CheckStatus(c.Request.Context())
	if err == nil {
		resp["available"] = true
		resp["service"] = status
		c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(resp))
		return
	}

	tool.DefaultLogger.Warnf("[API] processing service unavailable: %v", err)
	resp["available"] = false
	resp["error"] = err.Error()
	if ping, pingErr := sc.checker.Ping(c.Request.Context(), 3); pingErr != nil {
		resp["ping"] = gin.H{"error": pingErr.Error()}
	} else {
		resp["ping"] = ping
	}
	c.JSON(http.StatusServiceUnavailable, tool.FastReturnSuccessWithData(resp))
}

// Stats summarizes the registry.
// GET /api/self/v1/stats
func (sc *StatusController) Stats(c *gin.Context) {
	stats, err := sc.store.Stats()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"fileCount":      stats.FileCount,
		"totalSize":      stats.TotalSize,
		"totalSizeText":  tool.FormatFileSize(stats.TotalSize),
		"historyCount":   stats.HistoryCount,
		"processedCount": stats.ProcessedCount,
		"savedSpace":     stats.SavedSpace,
		"savedSpaceText": tool.FormatFileSize(stats.SavedSpace),
		"usageDays":      tool.UsageDays(tool.GetSettings()),
	}))
}

// ClearHistory DELETE /api/self/v1/history
func (sc *StatusController) ClearHistory(c *gin.Context) {
	if err := sc.store.ClearHistory(); err != nil {
		abortWithError(c, err)
		return
	}
	tool.DefaultLogger.Infof("Processing history cleared")
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// ClearData drops every file record and the history.
// DELETE /api/self/v1/data
func (sc *StatusController) ClearData(c *gin.Context) {
	if err := sc.store.ClearAll(); err != nil {
		abortWithError(c, err)
		return
	}
	tool.DefaultLogger.Infof("Registry cleared")
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}
