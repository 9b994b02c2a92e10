package api

import (
	"errors"
	"net/http"

	"github.com/ruteri/ork-registry/interfaces"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeUnknownUser      = "unknown_user"
	CodeVendorMismatch   = "vendor_mismatch"
	CodeAlreadyConfirmed = "already_confirmed"
	CodeInvalidTimeout   = "invalid_timeout"
	CodeInvalidArgument  = "invalid_argument"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
)

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{interfaces.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{interfaces.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{interfaces.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{interfaces.ErrUnknownUser, http.StatusNotFound, CodeUnknownUser},
	{interfaces.ErrVendorMismatch, http.StatusConflict, CodeVendorMismatch},
	{interfaces.ErrAlreadyConfirmed, http.StatusConflict, CodeAlreadyConfirmed},
	{interfaces.ErrInvalidTimeout, http.StatusBadRequest, CodeInvalidTimeout},
	{interfaces.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument},
}

// ErrorStatus maps a registry error to its HTTP status and error code.
// Unclassified errors map to 500.
func ErrorStatus(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorForCode returns the registry error a code stands for, or nil when the
// code has no sentinel.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
