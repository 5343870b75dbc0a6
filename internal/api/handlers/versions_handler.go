package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/services"
)

type VersionsHandler struct {
	versions services.VersionService
}

func NewVersionsHandler(versions services.VersionService) *VersionsHandler {
	return &VersionsHandler{versions: versions}
}

func (h *VersionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.versions.List(r.Context(), userID, chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.ProjectVersion{}
	}
	writeData(w, r, http.StatusOK, list)
}

// Create godoc
// @Summary  Snapshot the current project content
// @Tags     versions
// @Security BearerAuth
// @Param    id     path  string              true  "project id"
// @Param    userId query string              true  "owner"
// @Param    body   body  models.VersionInput false "description"
// @Success  201 {object} types.APIResponse{data=models.ProjectVersion}
// @Router   /projects/{id}/versions [post]
func (h *VersionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.VersionInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	v, err := h.versions.Create(r.Context(), userID, chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, v)
}

func (h *VersionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.versions.Get(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "versionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, v)
}

// Restore copies the version back into the live project.
func (h *VersionsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.versions.Restore(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "versionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *VersionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	versionID := chi.URLParam(r, "versionId")
	if err := h.versions.Delete(r.Context(), userID, chi.URLParam(r, "id"), versionID); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]string{"id": versionID})
}

func (h *VersionsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.versions.History(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "versionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.VersionHistory{}
	}
	writeData(w, r, http.StatusOK, entries)
}
