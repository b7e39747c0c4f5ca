package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/api/models"
	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// Flows is the part of flow.Orchestrator the API starts jobs on.
type Flows interface {
	Extract(ctx context.Context, fileID string, opts flow.ExtractOptions) (flow.Result, error)
	PdfToImages(ctx context.Context, fileID string, opts flow.ConvertOptions) (flow.Result, error)
	PdfSinglePage(ctx context.Context, fileID string, pageNumber int, opts flow.ConvertOptions) (flow.Result, error)
	DocToImages(ctx context.Context, fileID string, opts flow.ConvertOptions) (flow.Result, error)
	Convert(ctx context.Context, fileID, targetFormat string) (flow.Result, error)
	Compress(ctx context.Context, fileID string) (flow.Result, error)
}

// FlowController starts flows in the background and reports them as jobs.
type FlowController struct {
	store registry.Store
	flows Flows
}

func NewFlowController(store registry.Store, flows Flows) *FlowController {
	return &FlowController{store: store, flows: flows}
}

type extractRequest struct {
	Password     string `json:"password"`
	OutputSubDir string `json:"outputSubDir"`
}

type convertRequest struct {
	Format       string `json:"format"`
	Quality      int    `json:"quality"`
	Density      int    `json:"density"`
	OutputSubDir string `json:"outputSubDir"`
	PageRange    string `json:"pageRange"`
}

func (r convertRequest) options() flow.ConvertOptions {
	return flow.ConvertOptions{
		Format:       r.Format,
		Quality:      r.Quality,
		Density:      r.Density,
		OutputSubDir: r.OutputSubDir,
		PageRange:    r.PageRange,
	}
}

type singlePageRequest struct {
	convertRequest
	PageNumber int `json:"pageNumber" binding:"required,min=1"`
}

type formatRequest struct {
	TargetFormat string `json:"targetFormat" binding:"required"`
}

// bindOptional binds a JSON body when one is sent; an empty body keeps the defaults.
func bindOptional(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

// start checks the file exists, creates a job and runs fn on a background context.
// Flows are not cancelled when the client goes away.
func (fc *FlowController) start(c *gin.Context, op types.Operation, fn func(ctx context.Context, fileID string) error) {
	fileID := c.Param("id")
	if _, err := fc.store.Get(fileID); err != nil {
		abortWithError(c, err)
		return
	}
	job := models.CreateJob(fileID, op)
	ctx := flow.WithRunID(context.Background(), job.ID)
	go func() {
		if err := fn(ctx, fileID); err != nil {
			models.FailJob(job.ID, err)
		}
	}()
	tool.DefaultLogger.Infof("[API] started %s job %s for %s", op, job.ID, fileID)
	c.JSON(http.StatusAccepted, tool.FastReturnSuccessWithData(job))
}

// Extract POST /api/self/v1/files/:id/extract
func (fc *FlowController) Extract(c *gin.Context) {
	var req extractRequest
	if !bindOptional(c, &req) {
		return
	}
	fc.start(c, types.OpExtract, func(ctx context.Context, id string) error {
		_, err := fc.flows.Extract(ctx, id, flow.ExtractOptions{Password: req.Password, OutputSubDir: req.OutputSubDir})
		return err
	})
}

// PdfToImages POST /api/self/v1/files/:id/pdf2images
func (fc *FlowController) PdfToImages(c *gin.Context) {
	var req convertRequest
	if !bindOptional(c, &req) {
		return
	}
	fc.start(c, types.OpPdf2Images, func(ctx context.Context, id string) error {
		_, err := fc.flows.PdfToImages(ctx, id, req.options())
		return err
	})
}

// PdfSinglePage POST /api/self/v1/files/:id/pdf2single
func (fc *FlowController) PdfSinglePage(c *gin.Context) {
	var req singlePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	fc.start(c, types.OpPdf2Single, func(ctx context.Context, id string) error {
		_, err := fc.flows.PdfSinglePage(ctx, id, req.PageNumber, req.options())
		return err
	})
}

// DocToImages POST /api/self/v1/files/:id/doc2images
func (fc *FlowController) DocToImages(c *gin.Context) {
	var req convertRequest
	if !bindOptional(c, &req) {
		return
	}
	fc.start(c, types.OpDoc2Images, func(ctx context.Context, id string) error {
		_, err := fc.flows.DocToImages(ctx, id, req.options())
		return err
	})
}

// Convert POST /api/self/v1/files/:id/convert
func (fc *FlowController) Convert(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	fc.start(c, types.OpConvert, func(ctx context.Context, id string) error {
		_, err := fc.flows.Convert(ctx, id, req.TargetFormat)
		return err
	})
}

// Compress POST /api/self/v1/files/:id/compress
func (fc *FlowController) Compress(c *gin.Context) {
	fc.start(c, types.OpCompress, func(ctx context.Context, id string) error {
		_, err := fc.flows.Compress(ctx, id)
		return err
	})
}

// Job returns the progress of a job.
// GET /api/self/v1/jobs/:id
func (fc *FlowController) Job(c *gin.Context) {
	job, err := models.GetJob(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(job))
}
