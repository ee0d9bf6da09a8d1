package httpclient

import (
	goerrors "errors"
	"fmt"

	ierr "github.com/streamshare/streamshare/internal/errors"
)

// Error is a non-2xx response from a remote service
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("http client error: status %d", e.StatusCode)
}

// NewError creates a new HTTP client error marked as ErrHTTPClient
func NewError(statusCode int, response []byte) error {
	return ierr.WithError(&Error{StatusCode: statusCode, Response: response}).
		WithHintf("Remote service responded with status %d", statusCode).
		Mark(ierr.ErrHTTPClient)
}

// IsHTTPError returns the response error wrapped in err, if any
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
