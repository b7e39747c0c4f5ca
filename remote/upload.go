package remote

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

// Upload sends the local file behind file.Path to POST /upload as multipart form data
// (field "file" plus "originalName"). Every failure is an ErrUpload.
func (c *Client) Upload(ctx context.Context, file types.FileRecord) (types.UploadResult, error) {
	const op = "upload"

	src, err := os.Open(file.Path)
	if err != nil {
		return types.UploadResult{}, newError(CodeUpload, op, 0, "cannot open local file", err)
	}
	defer src.Close()

	name := file.Name
	if name == "" {
		name = filepath.Base(file.Path)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(ctx, form, name, src))
	}()

	url := tool.BuildEndpointURL(c.BaseURL(), "/upload")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return types.UploadResult{}, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = pr.Close()
		return types.UploadResult{}, newError(CodeUpload, op, 0, "", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := readEnvelope(resp, op, CodeUpload)
	if err != nil {
		// transport problems while reading still count as upload failures
		if re, ok := err.(*Error); ok {
			re.Code = CodeUpload
		}
		return types.UploadResult{}, err
	}
	var result types.UploadResult
	if err := sonic.Unmarshal(data, &result); err != nil {
		return types.UploadResult{}, newError(CodeUpload, op, resp.StatusCode, "invalid upload response", err)
	}
	if result.Filename == "" {
		return types.UploadResult{}, newError(CodeUpload, op, resp.StatusCode, "upload response missing filename", nil)
	}
	tool.DefaultLogger.Infof("Uploaded %s as %s (%d bytes)", name, result.Filename, result.Size)
	return result, nil
}

func writeUploadForm(ctx context.Context, form *multipart.Writer, name string, src io.Reader) error {
	if err := form.WriteField("originalName", name); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := tool.CopyWithContext(ctx, part, src); err != nil {
		return err
	}
	return form.Close()
}
