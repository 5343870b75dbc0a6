package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/logicflow/engine/internal/api/middleware"
	"github.com/logicflow/engine/internal/api/types"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies; a full project with 500 nodes and
// 1MB of code fits comfortably.
const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	types.WriteJSON(w, status, v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status := appErr.HTTPStatus(appErr.CodeOf(err)); status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	types.WriteError(w, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return appErr.New(appErr.CodeBadRequest, "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return appErr.New(appErr.CodeBadRequest, "empty request body")
		}
		return appErr.Wrap(err, appErr.CodeBadRequest, "invalid json")
	}
	return nil
}

// requireOwner checks that userID is present and belongs to the token holder.
func requireOwner(r *http.Request, userID string) error {
	if userID == "" {
		return appErr.New(appErr.CodeBadRequest, "missing userId")
	}
	if middleware.GetUserID(r.Context()) != userID {
		return appErr.New(appErr.CodeForbidden, "token does not belong to this user")
	}
	return nil
}

// ownerFromQuery reads ?userId and checks it against the token.
func ownerFromQuery(r *http.Request) (string, error) {
	userID := r.URL.Query().Get("userId")
	return userID, requireOwner(r, userID)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErr.Newf(appErr.CodeBadRequest, "%s must be an integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}
