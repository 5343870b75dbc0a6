package handlers

import (
	"context"
	"net/http"

	"github.com/logicflow/engine/internal/ai"
)

// Gateway is the AI surface the handler needs; *ai.Gateway implements it.
type Gateway interface {
	Diagram(ctx context.Context, req *ai.DiagramRequest) (*ai.DiagramResult, error)
	Convert(ctx context.Context, req *ai.ConvertRequest) (*ai.ConvertResult, error)
	Analyze(ctx context.Context, req *ai.AnalyzeRequest) (*ai.AnalyzeResult, error)
	Explain(ctx context.Context, req *ai.ExplainRequest) (*ai.ExplainResult, error)
}

type AIHandler struct {
	gateway Gateway
}

func NewAIHandler(g Gateway) *AIHandler {
	return &AIHandler{gateway: g}
}

// aiCall decodes Req, runs fn and writes its result.
func aiCall[Req any, Res any](w http.ResponseWriter, r *http.Request, fn func(context.Context, *Req) (*Res, error)) {
	var req Req
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := fn(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// Diagram godoc
// @Summary  Generate a flowchart from source code
// @Tags     ai
// @Param    body body ai.DiagramRequest true "source code"
// @Success  200 {object} types.APIResponse{data=ai.DiagramResult}
// @Failure  502 {object} types.APIResponse
// @Router   /diagram [post]
func (h *AIHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	aiCall(w, r, h.gateway.Diagram)
}

// Convert godoc
// @Summary  Generate source code from a flowchart
// @Tags     ai
// @Param    body body ai.ConvertRequest true "flowchart and target language"
// @Success  200 {object} types.APIResponse{data=ai.ConvertResult}
// @Router   /convert [post]
func (h *AIHandler) Convert(w http.ResponseWriter, r *http.Request) {
	aiCall(w, r, h.gateway.Convert)
}

func (h *AIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	aiCall(w, r, h.gateway.Analyze)
}

func (h *AIHandler) Explain(w http.ResponseWriter, r *http.Request) {
	aiCall(w, r, h.gateway.Explain)
}
