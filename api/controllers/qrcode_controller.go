package controllers

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/filetool-go/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// QRCode returns a PNG QR code of the file's share URI (file:///abs/path).
// GET /api/self/v1/files/:id/qrcode?size=200x200
func (fc *FileController) QRCode(c *gin.Context) {
	rec, err := fc.store.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeQRCode(c, ShareURI(rec.Path))
}

// ShareURI is the URI the host uses to open or share a local file.
func ShareURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

func writeQRCode(c *gin.Context, content string) {
	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
