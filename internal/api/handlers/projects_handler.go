package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/logicflow/engine/internal/api/types"
	"github.com/logicflow/engine/internal/models"
	"github.com/logicflow/engine/internal/services"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type ProjectsHandler struct {
	projects services.ProjectService
	validate services.StructValidator
}

func NewProjectsHandler(projects services.ProjectService, v services.StructValidator) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, validate: v}
}

// List godoc
// @Summary  List live projects, newest first
// @Tags     projects
// @Security BearerAuth
// @Param    userId query string true  "owner"
// @Param    limit  query int    false "page size (1..100, default 20)"
// @Param    cursor query string false "id of the last project of the previous page"
// @Success  200 {object} types.APIResponse{data=models.ProjectPage}
// @Router   /projects [get]
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.projects.List(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page.Projects == nil {
		page.Projects = []models.Project{}
	}
	writeData(w, r, http.StatusOK, page)
}

// Create godoc
// @Summary  Save a new project
// @Tags     projects
// @Security BearerAuth
// @Param    body body types.CreateProjectRequest true "owner and project"
// @Success  201 {object} types.APIResponse{data=models.Project}
// @Failure  422 {object} types.APIResponse
// @Router   /projects [post]
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireOwner(r, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Project == nil {
		writeError(w, r, appErr.New(appErr.CodeBadRequest, "missing project"))
		return
	}
	p, err := h.projects.Create(r.Context(), req.UserID, req.Project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Update godoc
// @Summary  Replace some fields of a project
// @Tags     projects
// @Security BearerAuth
// @Param    id     path  string               true "project id"
// @Param    userId query string               true "owner"
// @Param    body   body  models.ProjectUpdate  true "fields to replace"
// @Success  200 {object} types.APIResponse{data=models.Project}
// @Router   /projects/{id} [put]
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.ProjectUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.Update(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Delete soft-deletes a project, or removes it for good with ?hard=true.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	hard := queryBool(r, "hard")
	if hard {
		err = h.projects.HardDelete(r.Context(), userID, id)
	} else {
		err = h.projects.SoftDelete(r.Context(), userID, id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "hard": hard})
}

// Restore undoes a soft delete.
func (h *ProjectsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.projects.Restore(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Patch godoc
// @Summary  Share or unshare a project
// @Tags     projects
// @Security BearerAuth
// @Param    id     path  string                     true "project id"
// @Param    userId query string                     true "owner"
// @Param    body   body  types.PatchProjectRequest  true "action"
// @Success  200 {object} types.APIResponse{data=models.ShareResult}
// @Router   /projects/{id} [patch]
func (h *ProjectsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.PatchProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	switch req.Action {
	case types.ActionShare:
		res, err := h.projects.Share(r.Context(), userID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, res)
	case types.ActionUnshare:
		if err := h.projects.Unshare(r.Context(), userID, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, map[string]string{"id": id})
	}
}

func (h *ProjectsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.projects.History(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.ProjectHistory{}
	}
	writeData(w, r, http.StatusOK, entries)
}
