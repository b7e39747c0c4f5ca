package remote

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/moyoez/filetool-go/types"
)

// InfoKind selects which metadata endpoint GetInfo queries.
type InfoKind string

const (
	InfoRar InfoKind = "rar"
	InfoPdf InfoKind = "pdf"
	InfoDoc InfoKind = "doc"
)

var infoEndpoints = map[InfoKind]string{
	InfoRar: "/extract/info",
	InfoPdf: "/convert/pdf/info",
	InfoDoc: "/convert/doc/info",
}

// GetInfo returns metadata about an uploaded file. Results are cached for DefaultInfoTTL
// per base URL, kind and file name.
func (c *Client) GetInfo(ctx context.Context, uploadedFilename string, kind InfoKind) (types.InfoResult, error) {
	endpoint, ok := infoEndpoints[kind]
	if !ok {
		return nil, &Error{
			Code:    CodeUnsupportedOperation,
			Kind:    KindUnknown,
			Op:      "info",
			Message: fmt.Sprintf("unsupported info kind %q", kind),
		}
	}

	key := c.BaseURL() + "|" + string(kind) + "|" + uploadedFilename
	if cached := c.infoCache.Get(key); cached != nil {
		return cached, nil
	}

	op := string(kind) + "-info"
	data, err := c.postJSON(ctx, op, endpoint, CodeRemoteProcessing, map[string]string{"filename": uploadedFilename})
	if err != nil {
		return nil, err
	}
	var info types.InfoResult
	if err := sonic.Unmarshal(data, &info); err != nil {
		return nil, newError(CodeRemoteProcessing, op, 200, "invalid info response", err)
	}
	if info == nil {
		info = types.InfoResult{}
	}
	c.infoCache.Set(key, info)
	return info, nil
}
