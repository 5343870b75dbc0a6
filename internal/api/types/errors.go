package types

import (
	"errors"
	"net/http"

	appErr "github.com/logicflow/engine/pkg/errors"
)

// FromAppError converts err to the envelope error and its HTTP status.
// Internal and upstream failures get a generic message; the detail stays in the logs.
func FromAppError(err error) (*APIError, int) {
	if err == nil {
		return nil, http.StatusOK
	}
	var e *appErr.AppError
	if !errors.As(err, &e) {
		return &APIError{Code: string(appErr.CodeInternal), Message: "internal server error"}, http.StatusInternalServerError
	}

	status := appErr.HTTPStatus(e.Code)
	out := &APIError{Code: string(e.Code), Message: e.Message}
	switch {
	case status >= http.StatusInternalServerError && e.Code != appErr.CodeUpstream && e.Code != appErr.CodeUnavailable && e.Code != appErr.CodeDeadline:
		out.Message = "internal server error"
	case len(e.Meta) > 0:
		if fields, ok := e.Meta["fields"]; ok {
			out.Details = fields
		} else if errs, ok := e.Meta["errors"]; ok {
			out.Details = errs
		}
	}
	return out, status
}
