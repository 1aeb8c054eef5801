package dag

import (
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/config"
)

// Graph is the complete, validated execution plan as a collection of nodes
// and their dependency links.
type Graph struct {
	// Nodes provides a fast, ID-based lookup for any node in the graph.
	Nodes map[string]*Node
}

// Node is a single vertex in the execution graph, representing one unit of
// work (executing a step) or a stateful entity (a resource).
type Node struct {
	// ID is the unique, machine-readable identifier for the node.
	// Example: "step.http_fetch.oxford[0]"
	ID string
	// Name is the human-readable instance name from the configuration.
	Name string
	// Type distinguishes between nodes that represent steps and resources.
	Type NodeType

	// StepConfig holds the configuration for a step node. It is nil for resources.
	StepConfig *config.Step
	// ResourceConfig holds the configuration for a resource node. It is nil for steps.
	ResourceConfig *config.Resource

	// Deps holds the set of nodes this node depends on (predecessors).
	Deps map[string]*Node
	// Dependents holds the set of nodes that depend on this node (successors).
	Dependents map[string]*Node

	// Error stores any error that occurred during the node's execution.
	Error error
	// Output stores the result of the node's execution for use by downstream
	// expressions. It is cty.NilVal until the node completes.
	Output cty.Value

	// SkipOnce ensures a node is marked as skipped and processed exactly once.
	SkipOnce sync.Once
	// DestroyOnce ensures a resource's destruction logic runs exactly once.
	DestroyOnce sync.Once

	// depCount is an atomic counter for unmet dependencies.
	depCount atomic.Int32
	// descendantCount counts a resource's step dependents, used for eager cleanup.
	descendantCount atomic.Int32
	// state is the node's current execution state, managed atomically.
	state atomic.Int32
}

// NodeType distinguishes between different kinds of nodes in the graph.
type NodeType int

const (
	// StepNode represents a node that executes a task.
	StepNode NodeType = iota
	// ResourceNode represents a node that manages a stateful resource.
	ResourceNode
)

// State represents the execution state of a node in the graph.
type State int32

const (
	// Pending indicates the node is waiting for its dependencies to complete.
	Pending State = iota
	// Running indicates the node is currently being executed by a worker.
	Running
	// Done indicates the node has completed execution successfully.
	Done
	// Failed indicates the node has failed execution or was skipped.
	Failed
)

// SetInitialCounters prepares a node for execution by deriving its atomic
// counters from the established links.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
	if n.Type == ResourceNode {
		descendants := 0
		for _, dep := range n.Dependents {
			if dep.Type == StepNode {
				descendants++
			}
		}
		n.descendantCount.Store(int32(descendants))
	}
}

// State returns the node's current execution state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState atomically updates the node's execution state.
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// DepCount returns the number of unmet dependencies.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount marks one dependency as satisfied and returns the
// remaining count.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DecrementDescendantCount marks one consuming step as finished and returns
// the remaining count. Only meaningful for resource nodes.
func (n *Node) DecrementDescendantCount() int32 {
	return n.descendantCount.Add(-1)
}
