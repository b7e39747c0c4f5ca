package remote

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

const (
	DefaultFormat  = "png"
	DefaultQuality = 85
	DefaultDensity = 150
)

// Options carries the per-operation knobs. Fields an operation does not use are ignored.
type Options struct {
	Password     string // extract
	OutputSubDir string // extract, pdf2images, doc2images
	Format       string
	Quality      int
	Density      int
	PageRange    string // pdf2images, e.g. "1-3"
	PageNumber   int    // pdf2single, 1-based
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.Density <= 0 {
		o.Density = DefaultDensity
	}
	return o
}

var endpoints = map[types.Operation]string{
	types.OpExtract:    "/extract",
	types.OpPdf2Images: "/convert/pdf",
	types.OpPdf2Single: "/convert/pdf/page",
	types.OpDoc2Images: "/convert/doc",
}

// Supports reports whether op can be dispatched to the service.
func Supports(op types.Operation) bool {
	_, ok := endpoints[op]
	return ok
}

type extractPayload struct {
	Filename     string `json:"filename"`
	Password     string `json:"password,omitempty"`
	OutputSubDir string `json:"outputSubDir,omitempty"`
}

type imageOptions struct {
	Format       string `json:"format"`
	Quality      int    `json:"quality"`
	Density      int    `json:"density"`
	OutputSubDir string `json:"outputSubDir"`
	PageRange    string `json:"pageRange,omitempty"`
}

type convertPayload struct {
	Filename string       `json:"filename"`
	Options  imageOptions `json:"options"`
}

type pageOptions struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

type pagePayload struct {
	Filename   string      `json:"filename"`
	PageNumber int         `json:"pageNumber"`
	Options    pageOptions `json:"options"`
}

// BuildPayload returns the JSON body for op. Unknown operations fail with ErrUnsupportedOperation.
func BuildPayload(filename string, op types.Operation, opts Options) (any, error) {
	opts = opts.withDefaults()
	switch op {
	case types.OpExtract:
		return extractPayload{
			Filename:     filename,
			Password:     opts.Password,
			OutputSubDir: opts.OutputSubDir,
		}, nil
	case types.OpPdf2Images:
		return convertPayload{
			Filename: filename,
			Options: imageOptions{
				Format:       opts.Format,
				Quality:      opts.Quality,
				Density:      opts.Density,
				OutputSubDir: opts.OutputSubDir,
				PageRange:    opts.PageRange,
			},
		}, nil
	case types.OpDoc2Images:
		return convertPayload{
			Filename: filename,
			Options: imageOptions{
				Format:       opts.Format,
				Quality:      opts.Quality,
				Density:      opts.Density,
				OutputSubDir: opts.OutputSubDir,
			},
		}, nil
	case types.OpPdf2Single:
		if opts.PageNumber < 1 {
			return nil, fmt.Errorf("%w: pageNumber must be >= 1, got %d", ErrInvalidOptions, opts.PageNumber)
		}
		return pagePayload{
			Filename:   filename,
			PageNumber: opts.PageNumber,
			Options: pageOptions{
				Format:  opts.Format,
				Quality: opts.Quality,
			},
		}, nil
	default:
		return nil, &Error{
			Code:    CodeUnsupportedOperation,
			Kind:    KindUnknown,
			Op:      string(op),
			Message: fmt.Sprintf("unsupported operation %q", op),
		}
	}
}

// Dispatch runs op on a previously uploaded file. Unsupported operations fail before
// any network I/O.
func (c *Client) Dispatch(ctx context.Context, uploadedFilename string, op types.Operation, opts Options) (types.OperationResult, error) {
	payload, err := BuildPayload(uploadedFilename, op, opts)
	if err != nil {
		return types.OperationResult{}, err
	}

	tool.DefaultLogger.Debugf("Dispatching %s for %s", op, uploadedFilename)
	data, err := c.postJSON(ctx, string(op), endpoints[op], CodeRemoteProcessing, payload)
	if err != nil {
		return types.OperationResult{}, err
	}

	result := types.OperationResult{Operation: op}
	if err := sonic.Unmarshal(data, &result); err != nil {
		return types.OperationResult{}, newError(CodeRemoteProcessing, string(op), 200, "invalid operation result", err)
	}
	result.Operation = op
	if op == types.OpPdf2Single && result.DownloadURL == "" {
		return types.OperationResult{}, newError(CodeRemoteProcessing, string(op), 200, "result missing downloadUrl", nil)
	}
	return result, nil
}

// Artifacts lists the downloadable outputs of result with their absolute URLs.
func Artifacts(baseURL string, result types.OperationResult) ([]types.Artifact, error) {
	switch result.Operation {
	case types.OpExtract:
		out := make([]types.Artifact, 0, len(result.Files))
		for _, f := range result.Files {
			rel := f.RelativePath
			if rel == "" {
				rel = f.Name
			}
			name := f.Name
			if name == "" {
				name = tool.SanitizeFileName(rel)
			}
			out = append(out, types.Artifact{
				Name:       name,
				URL:        tool.BuildExtractedFileURL(baseURL, result.ExtractionID, rel),
				Size:       f.Size,
				ExternalID: result.ExtractionID,
			})
		}
		return out, nil
	case types.OpPdf2Images, types.OpDoc2Images:
		out := make([]types.Artifact, 0, len(result.Images))
		for _, img := range result.Images {
			out = append(out, types.Artifact{
				Name:       img.Filename,
				URL:        tool.BuildConvertedImageURL(baseURL, result.ConversionID, img.Filename),
				Size:       img.Size,
				PageNumber: img.PageNumber,
				ExternalID: result.ConversionID,
			})
		}
		return out, nil
	case types.OpPdf2Single:
		if result.DownloadURL == "" {
			return nil, nil
		}
		url, err := tool.ResolveURL(baseURL, result.DownloadURL)
		if err != nil {
			return nil, err
		}
		name := result.Filename
		if name == "" {
			name = "page." + DefaultFormat
		}
		return []types.Artifact{{Name: name, URL: url}}, nil
	default:
		return nil, fmt.Errorf("no artifacts for operation %q", result.Operation)
	}
}
