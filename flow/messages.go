package flow

import (
	"context"
	"errors"

	"github.com/moyoez/filetool-go/registry"
	"github.com/moyoez/filetool-go/remote"
)

// UserMessage maps a flow error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoArtifacts):
		return "No files could be downloaded from the processing service"
	case errors.Is(err, remote.ErrPasswordRequired):
		return "This archive is password protected, enter the password and try again"
	case errors.Is(err, remote.ErrAPIUnavailable):
		return "The processing service is unavailable, check the API address in settings"
	case errors.Is(err, remote.ErrUnsupportedOperation),
		errors.Is(err, ErrUnsupportedConversion),
		errors.Is(err, ErrWrongFileType):
		return "This operation is not supported for this file"
	case errors.Is(err, remote.ErrInvalidOptions):
		return "Invalid options for this operation"
	case errors.Is(err, registry.ErrFileNotFound):
		return "The file no longer exists"
	case errors.Is(err, context.DeadlineExceeded):
		return "The operation timed out, check your network or the API address"
	}

	switch remote.KindOf(err) {
	case remote.KindNetwork:
		return "Network error, check your connection or the API address"
	case remote.KindAuth:
		return "Access denied by the processing service"
	case remote.KindFormat:
		return "The file format is not supported or the file is damaged"
	case remote.KindSize:
		return "The file is too large for the processing service"
	}

	switch remote.CodeOf(err) {
	case remote.CodeUpload:
		return "Upload failed, please try again"
	case remote.CodeDownload:
		return "Download failed, please try again"
	}
	return "Processing failed, please try again"
}
