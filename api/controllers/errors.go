package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/api/models"
	"github.com/moyoez/filetool-go/flow"
	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
	"github.com/moyoez/filetool-go/tool"
)

// statusOf maps domain errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, registry.ErrFileNotFound), errors.Is(err, models.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrEmptyName),
		errors.Is(err, tool.ErrInvalidSettings),
		errors.Is(err, flow.ErrWrongFileType),
		errors.Is(err, flow.ErrUnsupportedConversion),
		errors.Is(err, remote.ErrInvalidOptions),
		errors.Is(err, remote.ErrUnsupportedOperation):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrAPIUnavailable):
		return http.StatusServiceUnavailable
	case remote.CodeOf(err) != "":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		tool.DefaultLogger.Errorf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	if code := remote.CodeOf(err); code != "" {
		c.JSON(status, tool.FastReturnErrorWithCode(err.Error(), string(code)))
		return
	}
	c.JSON(status, tool.FastReturnError(err.Error()))
}
