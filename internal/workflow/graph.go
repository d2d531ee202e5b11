// Package workflow builds and validates the node graphs submitted to the
// image generation backend.
//
// A graph is the backend's wire format: a JSON object mapping node ids to
// node descriptors, where inputs either carry literal values or reference
// another node's output as a ["node-id", output-index] pair.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Ref addresses one output of another node in the same graph.
type Ref struct {
	Node  string
	Index int
}

// MarshalJSON encodes the reference in the backend's wire form, a
// two-element array such as ["4", 0].
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Node, r.Index})
}

// Node is a single operator in the graph.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// Graph maps node ids to nodes. encoding/json sorts map keys, so a graph
// always marshals to the same bytes.
type Graph map[string]Node

// ValidationError reports a structural defect in a graph. Node is empty
// for graph-level defects.
type ValidationError struct {
	Node    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("workflow graph: %s", e.Message)
	}
	return fmt.Sprintf("workflow node %s: %s", e.Node, e.Message)
}

// IsValidationError checks if an error is a graph ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the graph invariants before submission: every reference
// resolves to an existing node, the reference edges form no cycle, and
// exactly one SaveImage terminal exists. Node ids are visited in sorted
// order so repeated validation reports the same defect.
func (g Graph) Validate() error {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	saves := 0
	for _, id := range ids {
		n := g[id]
		if n.ClassType == "SaveImage" {
			saves++
		}
		for _, name := range sortedInputNames(n) {
			ref, ok := n.Inputs[name].(Ref)
			if !ok {
				continue
			}
			if _, exists := g[ref.Node]; !exists {
				return &ValidationError{
					Node:    id,
					Message: fmt.Sprintf("input %q references unknown node %q", name, ref.Node),
				}
			}
		}
	}

	if saves == 0 {
		return &ValidationError{Message: "no SaveImage terminal node"}
	}
	if saves > 1 {
		return &ValidationError{Message: fmt.Sprintf("%d SaveImage nodes, want exactly one", saves)}
	}

	if path := findCycle(g); path != nil {
		return &ValidationError{
			Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " → ")),
		}
	}
	return nil
}

func sortedInputNames(n Node) []string {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// findCycle returns one dependency cycle as a node path ending where it
// started, or nil when the graph is acyclic. Uses Tarjan's strongly
// connected components; a cycle is an SCC with more than one node, or a
// single node referencing itself.
func findCycle(g Graph) []string {
	edges := make(map[string][]string, len(g))
	ids := make([]string, 0, len(g))
	for id, n := range g {
		ids = append(ids, id)
		edges[id] = []string{}
		for _, name := range sortedInputNames(n) {
			if ref, ok := n.Inputs[name].(Ref); ok {
				edges[id] = append(edges[id], ref.Node)
			}
		}
	}
	sort.Strings(ids)

	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		cycle   []string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if cycle == nil && (len(scc) > 1 || hasSelfLoop(v, edges)) {
				cycle = cyclePath(scc, edges)
			}
		}
	}

	for _, id := range ids {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}
	return cycle
}

func hasSelfLoop(node string, edges map[string][]string) bool {
	for _, w := range edges[node] {
		if w == node {
			return true
		}
	}
	return false
}

// cyclePath walks edges inside the SCC from its first member until the
// walk returns to the start, yielding a closed path like ["4", "6", "4"].
func cyclePath(scc []string, edges map[string][]string) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	sort.Strings(scc)

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range edges[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
