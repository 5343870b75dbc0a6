package ai

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/logicflow/engine/internal/api/validators"
	"github.com/logicflow/engine/internal/models"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	args := m.Called(model, prompt)
	return args.String(0), args.Error(1)
}

func newGateway(gen Generator) *Gateway {
	g := NewGateway(gen, []string{"model-a", "model-b"}, validators.New())
	g.pick = func(int) int { return 1 }
	return g
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, "print(1)", stripFences("```python\nprint(1)\n```"))
	require.Equal(t, "plain", stripFences("  plain \n"))
	require.Equal(t, "x", stripFences("```x```"))
}

func TestDiagramParsesFencedJSON(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", "model-b", mock.MatchedBy(func(p string) bool { return strings.Contains(p, "x = 1") })).
		Return("```json\n{\"nodes\":[{\"id\":\"1\",\"type\":\"oval\",\"data\":{\"label\":\"Start\"},\"position\":{\"x\":500,\"y\":0}}]}\n```", nil).Once()

	res, err := newGateway(gen).Diagram(context.Background(), &DiagramRequest{Code: "x = 1"})
	require.NoError(t, err)
	require.Equal(t, "model-b", res.ModelUsed)
	require.Len(t, res.Nodes, 1)
	require.Equal(t, models.NodeEntryExit, res.Nodes[0].Type)
	require.NotNil(t, res.Edges)
	gen.AssertExpectations(t)
}

func TestDiagramRejectsBadOutput(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", "model-b", mock.Anything).Return("not json", nil).Once()
	gen.On("Generate", "model-b", mock.Anything).Return(`{"nodes":[{"id":"1","type":"hexagon"}],"edges":[]}`, nil).Once()
	g := newGateway(gen)

	_, err := g.Diagram(context.Background(), &DiagramRequest{Code: "x"})
	require.True(t, appErr.IsCode(err, appErr.CodeUpstream))

	_, err = g.Diagram(context.Background(), &DiagramRequest{Code: "x"})
	require.True(t, appErr.IsCode(err, appErr.CodeUpstream))
}

func TestDiagramValidatesRequest(t *testing.T) {
	gen := &mockGenerator{}
	g := newGateway(gen)

	_, err := g.Diagram(context.Background(), &DiagramRequest{})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = g.Diagram(context.Background(), &DiagramRequest{Code: strings.Repeat("a", 50001)})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestProviderFailureIsUpstream(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", "model-b", mock.Anything).Return("", errors.New("quota exceeded")).Once()

	_, err := newGateway(gen).Explain(context.Background(), &ExplainRequest{NodeLabel: "x > 0", NodeType: models.NodeDecision})
	require.True(t, appErr.IsCode(err, appErr.CodeUpstream))
	require.Equal(t, "AI provider request failed", err.(*appErr.AppError).Message)
}

func TestConvertIncludesStyleAndRefinement(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", "model-b", mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "idiomatic Go code") &&
			strings.Contains(p, "coding style: table driven") &&
			strings.Contains(p, "Additional instructions: add comments")
	})).Return("```go\nfunc main() {}\n```", nil).Once()

	res, err := newGateway(gen).Convert(context.Background(), &ConvertRequest{
		Nodes:            []models.Node{{ID: "1", Type: models.NodeEntryExit}},
		Edges:            []models.Edge{},
		Language:         "Go",
		CodingStyle:      "table driven",
		RefinementPrompt: "add comments",
	})
	require.NoError(t, err)
	require.Equal(t, "func main() {}", res.Code)
	gen.AssertExpectations(t)
}

func TestConvertBounds(t *testing.T) {
	nodes := make([]models.Node, 101)
	for i := range nodes {
		nodes[i] = models.Node{ID: "n", Type: models.NodeProcess}
	}
	_, err := newGateway(&mockGenerator{}).Convert(context.Background(), &ConvertRequest{Nodes: nodes, Language: "Go"})
	require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestAnalyze(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", "model-b", mock.Anything).
		Return(`{"bugNodeIds":["3"],"analysis":"node 3 is unreachable","complexity":{"time":"O(n)","space":"O(1)"}}`, nil).Once()

	res, err := newGateway(gen).Analyze(context.Background(), &AnalyzeRequest{
		Nodes: []models.Node{{ID: "1", Type: models.NodeEntryExit}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"3"}, res.BugNodeIDs)
	require.Equal(t, "O(n)", res.Complexity.Time)
	require.Equal(t, "model-b", res.ModelUsed)
}

func TestDisabledProviderIsUnavailable(t *testing.T) {
	_, err := newGateway(Disabled{}).Explain(context.Background(), &ExplainRequest{NodeLabel: "x = 1"})
	require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
}
