// Package trace walks a flowchart one edge at a time.
//
// The walk has no cycle detection: a loop in the graph keeps stepping until
// the caller stops it or a step bound is hit.
package trace

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/logicflow/engine/internal/models"
)

// branchKeywords pick the preferred edge out of a decision node.
var branchKeywords = []string{"true", "yes", "success"}

// Cursor is the highlight state exposed to the editor.
type Cursor struct {
	ActiveNodeID *string `json:"activeNodeId"`
	ActiveEdgeID *string `json:"activeEdgeId"`
	Step         int     `json:"step"`
	Tracing      bool    `json:"tracing"`
}

// Outgoing returns the edges leaving nodeID in array order.
func Outgoing(edges []models.Edge, nodeID string) []models.Edge {
	var out []models.Edge
	for _, e := range edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// SelectEdge applies the branch rule: the first edge whose label contains
// true, yes or success (case-insensitive), otherwise the first edge.
// ok is false when there is no edge to follow.
func SelectEdge(outgoing []models.Edge) (edge models.Edge, ok bool) {
	if len(outgoing) == 0 {
		return models.Edge{}, false
	}
	if len(outgoing) == 1 {
		return outgoing[0], true
	}
	for _, e := range outgoing {
		label := strings.ToLower(e.Label)
		for _, kw := range branchKeywords {
			if strings.Contains(label, kw) {
				return e, true
			}
		}
	}
	return outgoing[0], true
}

// DefaultPlayInterval is the delay between automatic steps.
const DefaultPlayInterval = time.Second

// Engine is the stepping state machine. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	nodes  []models.Node
	edges  []models.Edge
	cursor Cursor
}

// New returns an idle engine over the given graph.
func New(nodes []models.Node, edges []models.Edge) *Engine {
	return &Engine{nodes: nodes, edges: edges}
}

// Start places the cursor on the first node. An empty graph stays idle.
func (e *Engine) Start() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.nodes) == 0 {
		e.cursor = Cursor{}
		return e.cursor
	}
	id := e.nodes[0].ID
	e.cursor = Cursor{ActiveNodeID: &id, Step: 0, Tracing: true}
	return e.cursor
}

// Stop returns to idle and clears the highlight.
func (e *Engine) Stop() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = Cursor{Step: e.cursor.Step}
	return e.cursor
}

// Step follows one edge. At a node without outgoing edges the trace ends.
// Stepping while idle is a no-op.
func (e *Engine) Step() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step()
}

func (e *Engine) step() Cursor {
	if !e.cursor.Tracing || e.cursor.ActiveNodeID == nil {
		return e.cursor
	}
	edge, ok := SelectEdge(Outgoing(e.edges, *e.cursor.ActiveNodeID))
	if !ok {
		e.cursor = Cursor{Step: e.cursor.Step}
		return e.cursor
	}
	target, edgeID := edge.Target, edge.ID
	e.cursor.ActiveNodeID = &target
	e.cursor.ActiveEdgeID = &edgeID
	e.cursor.Step++
	return e.cursor
}

// Cursor returns the current state.
func (e *Engine) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Play steps every interval until the trace ends, Stop is called or ctx is done.
// The tracing flag is checked before each step, so at most one pending delay
// completes after Stop. onStep may be nil. A non-positive interval means
// DefaultPlayInterval.
func (e *Engine) Play(ctx context.Context, interval time.Duration, onStep func(Cursor)) error {
	if interval <= 0 {
		interval = DefaultPlayInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		e.mu.Lock()
		if !e.cursor.Tracing {
			e.mu.Unlock()
			return nil
		}
		c := e.step()
		e.mu.Unlock()

		if onStep != nil {
			onStep(c)
		}
		if !c.Tracing {
			return nil
		}
	}
}

// Frame is one cursor position of a whole-run trace.
type Frame struct {
	Step         int     `json:"step"`
	ActiveNodeID string  `json:"activeNodeId"`
	ActiveEdgeID *string `json:"activeEdgeId"`
}

// Result is the outcome of Run.
type Result struct {
	Frames    []Frame `json:"frames"`
	Truncated bool    `json:"truncated"`
}

// Run traces from the first node until the walk ends or maxSteps edges were
// followed. Truncated is set when the bound stopped the walk.
func Run(nodes []models.Node, edges []models.Edge, maxSteps int) Result {
	e := New(nodes, edges)
	c := e.Start()
	res := Result{Frames: []Frame{}}
	for c.Tracing {
		res.Frames = append(res.Frames, Frame{Step: c.Step, ActiveNodeID: *c.ActiveNodeID, ActiveEdgeID: c.ActiveEdgeID})
		if c.Step >= maxSteps {
			res.Truncated = len(Outgoing(edges, *c.ActiveNodeID)) > 0
			break
		}
		c = e.Step()
	}
	return res
}
