package ai

import "github.com/logicflow/engine/internal/models"

// DiagramRequest asks for a flowchart of Code.
type DiagramRequest struct {
	Code string `json:"code" validate:"required,max=50000"`
}

// DiagramResult is a generated flowchart.
type DiagramResult struct {
	Nodes     []models.Node `json:"nodes" validate:"dive"`
	Edges     []models.Edge `json:"edges" validate:"dive"`
	ModelUsed string        `json:"modelUsed"`
}

// ConvertRequest asks for source code implementing a flowchart.
type ConvertRequest struct {
	Nodes            []models.Node `json:"nodes" validate:"required,min=1,max=100,dive"`
	Edges            []models.Edge `json:"edges" validate:"max=200,dive"`
	Language         string        `json:"language" validate:"required,max=50"`
	CodingStyle      string        `json:"codingStyle,omitempty" validate:"max=100"`
	RefinementPrompt string        `json:"refinementPrompt,omitempty" validate:"max=500"`
}

// ConvertResult holds generated code.
type ConvertResult struct {
	Code      string `json:"code"`
	ModelUsed string `json:"modelUsed"`
}

// AnalyzeRequest asks for a bug and complexity review of a flowchart.
type AnalyzeRequest struct {
	Nodes []models.Node `json:"nodes" validate:"required,max=100,dive"`
	Edges []models.Edge `json:"edges" validate:"max=200,dive"`
}

// Complexity is a big-O estimate.
type Complexity struct {
	Time  string `json:"time"`
	Space string `json:"space"`
}

// AnalyzeResult lists suspicious nodes with a short explanation.
type AnalyzeResult struct {
	BugNodeIDs []string   `json:"bugNodeIds"`
	Analysis   string     `json:"analysis"`
	Complexity Complexity `json:"complexity"`
	ModelUsed  string     `json:"modelUsed"`
}

// ExplainRequest asks for a plain-language explanation of one node.
type ExplainRequest struct {
	NodeLabel string          `json:"nodeLabel" validate:"required,max=200"`
	NodeType  models.NodeType `json:"nodeType" validate:"omitempty,oneof=oval rectangle diamond parallelogram"`
}

// ExplainResult is the explanation text.
type ExplainResult struct {
	Explanation string `json:"explanation"`
	ModelUsed   string `json:"modelUsed"`
}
