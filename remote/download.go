package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// Download fetches url into the download folder under fileName (or the next free
// variant of it) and returns a processed FileRecord for it. Partial files are removed
// on failure.
func (c *Client) Download(ctx context.Context, url, fileName string) (types.FileRecord, error) {
	const op = "download"

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return types.FileRecord{}, newError(CodeDownload, op, 0, "", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.FileRecord{}, newError(CodeDownload, op, 0, "invalid download url", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.FileRecord{}, newError(CodeDownload, op, 0, "", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return types.FileRecord{}, newError(CodeDownload, op, resp.StatusCode, "", nil)
	}

	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return types.FileRecord{}, newError(CodeDownload, op, 0, "cannot create download folder", err)
	}
	if fileName == "" {
		fileName = filepath.Base(req.URL.Path)
	}
	dst, target, err := c.createTarget(fileName)
	if err != nil {
		return types.FileRecord{}, newError(CodeDownload, op, 0, "cannot create target file", err)
	}

	written, copyErr := tool.CopyWithContext(ctx, dst, resp.Body)
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			tool.DefaultLogger.Warnf("Failed to remove partial download %s: %v", target, rmErr)
		}
		return types.FileRecord{}, newError(CodeDownload, op, resp.StatusCode, "", copyErr)
	}

	name := filepath.Base(target)
	tool.DefaultLogger.Debugf("Downloaded %s (%d bytes) to %s", url, written, target)
	return types.FileRecord{
		ID:         tool.GenerateFileID(),
		Name:       name,
		Size:       written,
		Type:       tool.GetFileType(name),
		Path:       target,
		Source:     types.SourceProcessed,
		CreateTime: tool.NowMillis(),
		Status:     types.StatusReady,
	}, nil
}

// createTarget picks a free path and creates it exclusively so concurrent
// downloads of equally named artifacts never share a file.
func (c *Client) createTarget(fileName string) (*os.File, string, error) {
	c.pathMu.Lock()
	defer c.pathMu.Unlock()
	for range 8 {
		target := tool.NextAvailablePath(c.downloadDir, fileName)
		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, target, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s", fileName)
}
