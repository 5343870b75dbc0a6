package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/services"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/utils"
)

type BackupHandler struct {
	backups services.BackupService
	now     func() time.Time
}

func NewBackupHandler(backups services.BackupService) *BackupHandler {
	return &BackupHandler{backups: backups, now: time.Now}
}

// Export godoc
// @Summary  Download every project of a user with its history
// @Tags     backup
// @Security BearerAuth
// @Produce  json
// @Param    userId   query string true  "owner"
// @Param    format   query string false "json or blob"
// @Param    metadata query bool   false "only return project count and last update"
// @Success  200 {object} models.BackupDocument
// @Router   /backup [get]
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if queryBool(r, "metadata") {
		meta, err := h.backups.Metadata(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, meta)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json", "blob":
	default:
		writeError(w, r, appErr.Newf(appErr.CodeBadRequest, "unknown format %q: use json or blob", format))
		return
	}

	body, err := h.backups.ExportJSON(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	filename := fmt.Sprintf("backup-%s-%d.json", userID, h.now().UnixMilli())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Backup-Checksum", "sha256="+utils.SumSHA256Hex(body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Import godoc
// @Summary  Restore projects from a backup document
// @Tags     backup
// @Security BearerAuth
// @Accept   json
// @Param    userId     query string                true  "owner"
// @Param    onConflict query string                false "rename (default), skip or overwrite"
// @Param    body       body  models.BackupDocument true  "backup document"
// @Success  200 {object} types.APIResponse{data=models.ImportResult}
// @Router   /backup/import [post]
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	policy := models.ConflictPolicy(r.URL.Query().Get("onConflict"))
	if policy == "" {
		policy = models.ConflictRename
	}
	if !policy.Valid() {
		writeError(w, r, appErr.New(appErr.CodeBadRequest, "invalid onConflict value: use rename, skip or overwrite"))
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/json", mediaType == "application/octet-stream", strings.HasPrefix(mediaType, "text/"):
	default:
		writeError(w, r, appErr.New(appErr.CodeBadRequest, "unsupported content type: use application/json or application/octet-stream"))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes*8))
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeBadRequest, "could not read backup"))
		return
	}
	res, err := h.backups.ImportJSON(r.Context(), userID, raw, policy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}
