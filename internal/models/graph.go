package models

// NodeType is the wire name of a flowchart node shape.
type NodeType string

const (
	NodeEntryExit NodeType = "oval"
	NodeProcess   NodeType = "rectangle"
	NodeDecision  NodeType = "diamond"
	NodeIO        NodeType = "parallelogram"
)

// NodeData is the user-visible payload of a node.
type NodeData struct {
	Label string `json:"label"`
	Code  string `json:"code,omitempty"`
}

// Position is the canvas location of a node. The engine never interprets it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one flowchart shape.
type Node struct {
	ID       string   `json:"id" validate:"required,max=255"`
	Type     NodeType `json:"type" validate:"required,oneof=oval rectangle diamond parallelogram"`
	Data     NodeData `json:"data"`
	Position Position `json:"position"`
}

// Edge is a directed connection between two nodes. Label is only a branch hint.
type Edge struct {
	ID     string `json:"id" validate:"required,max=255"`
	Source string `json:"source" validate:"required,max=255"`
	Target string `json:"target" validate:"required,max=255"`
	Label  string `json:"label,omitempty"`
}

// Graph is a node/edge pair as exchanged with the AI gateway and the tracer.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
