package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code is the failure category of a remote call.
type Code string

const (
	CodeUpload               Code = "upload"
	CodeNetwork              Code = "network"
	CodeRemoteProcessing     Code = "remote_processing"
	CodeUnsupportedOperation Code = "unsupported_operation"
	CodeDownload             Code = "download"
	CodeAPIUnavailable       Code = "api_unavailable"
	CodePasswordRequired     Code = "password_required"
)

// Kind is the tagged cause flows use to pick the message shown to the user.
type Kind string

const (
	KindNetwork Kind = "network"
	KindAuth    Kind = "auth"
	KindFormat  Kind = "format"
	KindSize    Kind = "size"
	KindUnknown Kind = "unknown"
)

// Error is returned by every Client call that fails.
type Error struct {
	Code    Code
	Kind    Kind
	Op      string // upload, extract, pdf2images, download, status, ...
	Status  int    // HTTP status, 0 when no response was received
	Message string // server supplied message, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s failed (%d %s): %s", e.Op, e.Status, http.StatusText(e.Status), msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Err* sentinels by Code. A password failure also counts as a
// remote processing failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Message != "" || t.Status != 0 || t.Err != nil {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return e.Code == CodePasswordRequired && t.Code == CodeRemoteProcessing
}

var (
	ErrUpload               = &Error{Code: CodeUpload}
	ErrNetwork              = &Error{Code: CodeNetwork}
	ErrRemoteProcessing     = &Error{Code: CodeRemoteProcessing}
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation}
	ErrDownload             = &Error{Code: CodeDownload}
	ErrAPIUnavailable       = &Error{Code: CodeAPIUnavailable}
	ErrPasswordRequired     = &Error{Code: CodePasswordRequired}

	ErrInvalidOptions = errors.New("invalid operation options")
)

// KindOf returns the Kind carried by err, KindUnknown when err is not a remote error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) && re.Kind != "" {
		return re.Kind
	}
	return KindUnknown
}

// CodeOf returns the Code carried by err, or "" when err is not a remote error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// newError builds an Error and fills Kind from status, message and cause.
// A password hint in the message turns code into CodePasswordRequired.
func newError(code Code, op string, status int, message string, cause error) *Error {
	kind := classify(status, message, cause)
	// a password hint wins over the status class
	if code != CodeUpload && hasPasswordHint(message) {
		code = CodePasswordRequired
		kind = KindAuth
	}
	return &Error{
		Code:    code,
		Kind:    kind,
		Op:      op,
		Status:  status,
		Message: message,
		Err:     cause,
	}
}

var (
	passwordHints = []string{"password", "passphrase", "encrypted", "密码"}
	sizeHints     = []string{"too large", "file size", "size limit", "exceeds", "大小", "过大"}
	formatHints   = []string{"unsupported", "format", "corrupt", "invalid file", "not a valid", "格式", "损坏"}
	networkHints  = []string{"timeout", "timed out", "network", "connection", "网络", "超时"}
)

func classify(status int, message string, cause error) Kind {
	if cause != nil && status == 0 {
		return KindNetwork
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusRequestEntityTooLarge:
		return KindSize
	case http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return KindFormat
	case http.StatusRequestTimeout, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindNetwork
	}
	switch {
	case hasPasswordHint(message):
		return KindAuth
	case containsAny(message, sizeHints):
		return KindSize
	case containsAny(message, formatHints):
		return KindFormat
	case containsAny(message, networkHints):
		return KindNetwork
	}
	return KindUnknown
}

func hasPasswordHint(message string) bool {
	return containsAny(message, passwordHints)
}

func containsAny(message string, hints []string) bool {
	lower := strings.ToLower(message)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}
