package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/logicflow/engine/internal/services"
)

type ShareHandler struct {
	projects services.ProjectService
}

func NewShareHandler(projects services.ProjectService) *ShareHandler {
	return &ShareHandler{projects: projects}
}

// Get godoc
// @Summary  Read a shared project without signing in
// @Tags     share
// @Param    shareToken path string true "share token"
// @Success  200 {object} types.APIResponse{data=models.SharedProject}
// @Failure  404 {object} types.APIResponse
// @Failure  429 {object} types.APIResponse
// @Router   /share/{shareToken} [get]
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetShared(r.Context(), chi.URLParam(r, "shareToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}
