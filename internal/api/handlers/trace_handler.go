package handlers

import (
	"net/http"

	"github.com/logicflow/engine/internal/api/types"
	"github.com/logicflow/engine/internal/services"
	"github.com/logicflow/engine/internal/trace"
)

const defaultTraceSteps = 1000

type TraceHandler struct {
	validate services.StructValidator
}

func NewTraceHandler(v services.StructValidator) *TraceHandler {
	return &TraceHandler{validate: v}
}

// Run godoc
// @Summary  Walk a flowchart from its first node and return every step
// @Tags     trace
// @Param    body body types.TraceRequest true "flowchart and step bound"
// @Success  200 {object} types.APIResponse{data=trace.Result}
// @Router   /trace [post]
func (h *TraceHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req types.TraceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.MaxSteps == 0 {
		req.MaxSteps = defaultTraceSteps
	}
	writeData(w, r, http.StatusOK, trace.Run(req.Nodes, req.Edges, req.MaxSteps))
}
