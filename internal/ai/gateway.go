// Package ai adapts a generative model to the flowchart operations: code to
// diagram, diagram to code, analysis and node explanations.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
	"github.com/logicflow/engine/pkg/telemetry"
)

// Generator produces a text completion for prompt with the named model.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// StructValidator validates request structs.
type StructValidator interface {
	Struct(any) error
}

// Gateway runs the flowchart operations against a Generator.
type Gateway struct {
	gen      Generator
	models   []string
	validate StructValidator
	pick     func(n int) int
}

// NewGateway picks one of models at random for every call.
func NewGateway(gen Generator, models []string, v StructValidator) *Gateway {
	return &Gateway{gen: gen, models: models, validate: v, pick: rand.IntN}
}

func (g *Gateway) model() string {
	if len(g.models) == 0 {
		return ""
	}
	return g.models[g.pick(len(g.models))]
}

// complete runs one generation under a span and strips markdown fences.
func (g *Gateway) complete(ctx context.Context, op, prompt string) (string, string, error) {
	model := g.model()
	ctx, span := telemetry.StartSpan(ctx, "ai."+op,
		attribute.String(telemetry.OperationKey, op),
		attribute.String(telemetry.ModelKey, model))
	defer span.End()

	text, err := g.gen.Generate(ctx, model, prompt)
	if err != nil {
		telemetry.SetError(span, err)
		logger.L().Error("ai generation failed", zap.String("operation", op), zap.String("model", model), zap.Error(err))
		if appErr.IsCode(err, appErr.CodeUnavailable) {
			return "", model, err
		}
		if appErr.IsCode(err, appErr.CodeDeadline) || ctx.Err() != nil {
			return "", model, appErr.Wrap(err, appErr.CodeDeadline, "AI provider timed out")
		}
		return "", model, appErr.Wrap(err, appErr.CodeUpstream, "AI provider request failed")
	}
	return stripFences(text), model, nil
}

func (g *Gateway) decode(op, model, text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err != nil {
		logger.L().Warn("unparsable ai response", zap.String("operation", op), zap.String("model", model), zap.String("raw", text), zap.Error(err))
		return appErr.Wrap(err, appErr.CodeUpstream, "invalid AI response format")
	}
	return nil
}

func (g *Gateway) Diagram(ctx context.Context, req *DiagramRequest) (*DiagramResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, err
	}
	text, model, err := g.complete(ctx, "diagram", fmt.Sprintf(diagramPrompt, req.Code))
	if err != nil {
		return nil, err
	}

	var out DiagramResult
	if err := g.decode("diagram", model, text, &out); err != nil {
		return nil, err
	}
	if err := g.validate.Struct(&out); err != nil {
		logger.L().Warn("ai diagram failed validation", zap.String("model", model), zap.Error(err))
		return nil, appErr.Wrap(err, appErr.CodeUpstream, "invalid AI response format")
	}
	if out.Nodes == nil {
		return nil, appErr.New(appErr.CodeUpstream, "invalid AI response format")
	}
	if out.Edges == nil {
		out.Edges = []models.Edge{}
	}
	out.ModelUsed = model
	return &out, nil
}

func (g *Gateway) Convert(ctx context.Context, req *ConvertRequest) (*ConvertResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, err
	}
	text, model, err := g.complete(ctx, "convert", buildConvertPrompt(req))
	if err != nil {
		return nil, err
	}
	return &ConvertResult{Code: text, ModelUsed: model}, nil
}

func (g *Gateway) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, err
	}
	nodes, edges := graphJSON(req.Nodes, req.Edges)
	text, model, err := g.complete(ctx, "analyze", fmt.Sprintf(analyzePrompt, nodes, edges))
	if err != nil {
		return nil, err
	}

	var out AnalyzeResult
	if err := g.decode("analyze", model, text, &out); err != nil {
		return nil, err
	}
	if out.BugNodeIDs == nil {
		out.BugNodeIDs = []string{}
	}
	out.ModelUsed = model
	return &out, nil
}

func (g *Gateway) Explain(ctx context.Context, req *ExplainRequest) (*ExplainResult, error) {
	if err := g.validate.Struct(req); err != nil {
		return nil, err
	}
	nodeType := string(req.NodeType)
	if nodeType == "" {
		nodeType = "node"
	}
	text, model, err := g.complete(ctx, "explain", fmt.Sprintf(explainPrompt, req.NodeLabel, nodeType))
	if err != nil {
		return nil, err
	}
	return &ExplainResult{Explanation: text, ModelUsed: model}, nil
}
