package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/logicflow/engine/internal/models"
)

const diagramPrompt = `Convert the source code below into a logic flowchart.

CODE:
"""
%s
"""

Node types: "oval" for exactly one Start and one End node, "rectangle" for processing,
"diamond" for decisions, "parallelogram" for input/output.
Label decision branches on edges, for example "Yes"/"No" or "True"/"False".
Place the Start node at x 500, y 0 and step y by 240; branches go to x 200 and x 800.

Return ONLY JSON of the form
{"nodes":[{"id":"1","type":"oval","data":{"label":"Start"},"position":{"x":500,"y":0}}],
 "edges":[{"id":"e1","source":"1","target":"2","label":""}]}`

const convertPrompt = `Convert the flowchart below into idiomatic %s code.

Nodes: %s
Edges: %s

Interpret "rectangle" as processing steps, "diamond" as conditions,
"parallelogram" as input/output and "oval" as entry/exit points.%s
Return ONLY the code, no explanations.`

const analyzePrompt = `Analyze this flowchart for logical bugs (dead ends, infinite loops, unreachable nodes).

Nodes: %s
Edges: %s

Return ONLY JSON of the form
{"bugNodeIds":["id"],"analysis":"short explanation","complexity":{"time":"O(n)","space":"O(1)"}}`

const explainPrompt = `Explain the following flowchart component in simple language for a high-school
computer science student. Keep it under 3 sentences; use an analogy if it helps.

Component: %s (%s)

Return ONLY the explanation text.`

func graphJSON(nodes []models.Node, edges []models.Edge) (string, string) {
	n, _ := json.Marshal(nodes)
	e, _ := json.Marshal(edges)
	return string(n), string(e)
}

func buildConvertPrompt(req *ConvertRequest) string {
	nodes, edges := graphJSON(req.Nodes, req.Edges)
	var extra strings.Builder
	if req.CodingStyle != "" {
		fmt.Fprintf(&extra, "\nFollow this coding style: %s.", req.CodingStyle)
	}
	if req.RefinementPrompt != "" {
		fmt.Fprintf(&extra, "\nAdditional instructions: %s", req.RefinementPrompt)
	}
	return fmt.Sprintf(convertPrompt, req.Language, nodes, edges, extra.String())
}

// stripFences removes a surrounding markdown code fence, with or without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
