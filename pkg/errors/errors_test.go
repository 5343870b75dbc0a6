package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfUnwraps(t *testing.T) {
	base := New(CodeNotFound, "project not found")
	wrapped := fmt.Errorf("loading: %w", base)

	require.Equal(t, CodeNotFound, CodeOf(wrapped))
	require.True(t, IsCode(wrapped, CodeNotFound))
	require.False(t, IsCode(fmt.Errorf("plain"), CodeNotFound))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:      http.StatusUnprocessableEntity,
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeNotFound:     http.StatusNotFound,
		CodeInvalidState: http.StatusConflict,
		CodeConflict:     http.StatusConflict,
		CodeRateLimited:  http.StatusTooManyRequests,
		CodeUpstream:     http.StatusBadGateway,
		CodeInternal:     http.StatusInternalServerError,
		CodeUnknown:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, HTTPStatus(code), code)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(cause, CodeInternal, "failed to save").WithMeta("projectId", "p1")

	require.ErrorIs(t, err, cause)
	require.Equal(t, "p1", err.Meta["projectId"])
	require.Equal(t, "internal: failed to save: boom", err.Error())
}
