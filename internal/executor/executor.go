package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/epigrid/epigridgo/internal/config"
	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/dag"
	"github.com/epigrid/epigridgo/internal/registry"
)

// Executor orchestrates the concurrent execution of a dependency graph.
type Executor struct {
	Graph      *dag.Graph
	numWorkers int
	registry   *registry.Registry
	converter  config.Converter

	wg sync.WaitGroup

	// resourceInstances maps a resource node ID to its live created object.
	resourceInstances sync.Map
	// destroyFns maps a resource node ID to its destruction closure.
	destroyFns sync.Map

	cleanupMu    sync.Mutex
	cleanupStack []*dag.Node
}

// New creates an executor for the given graph.
func New(graph *dag.Graph, workers int, r *registry.Registry, converter config.Converter) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		Graph:      graph,
		numWorkers: workers,
		registry:   r,
		converter:  converter,
	}
}

// Run executes the entire graph concurrently and returns an error if any node
// fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer e.executeCleanupStack(ctx)

	readyChan := make(chan *dag.Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.DepCount() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes completed.")

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if node.State() == dag.Failed {
			logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
			// A "skipped" error is a symptom, not a cause.
			if node.Error != nil && !strings.HasPrefix(node.Error.Error(), "skipped") && !errors.Is(node.Error, context.Canceled) {
				failedNodes = append(failedNodes, node.ID)
				if rootCauseError == nil {
					rootCauseError = node.Error
				}
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}

	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			n := node
			n.SkipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				n.SetState(dag.Failed)
				n.Error = ctx.Err()
				e.wg.Done()
			})
			// Dependents are still pending and will never be queued.
			e.skipDependents(ctx, n)
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.")
		node.SetState(dag.Running)
		var err error
		switch node.Type {
		case dag.ResourceNode:
			err = e.runResourceNode(ctx, node)
		case dag.StepNode:
			err = e.runStepNode(ctx, node)
		}

		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.SetState(dag.Failed)
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		node.SetState(dag.Done)

		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		if node.Type == dag.StepNode {
			for _, dep := range node.Deps {
				if dep.Type == dag.ResourceNode {
					if dep.DecrementDescendantCount() == 0 {
						workerLogger.Debug("Scheduling eager destruction for resource.", "resourceID", dep.ID)
						go e.destroyResource(ctx, dep)
					}
				}
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		d := dependent
		d.SkipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", d.ID, "dependency", node.ID)
			d.SetState(dag.Failed)
			d.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, d)
		})
	}
}

// pushCleanup records a resource's destruction closure for execution either
// eagerly (last consumer finished) or at the end of the run.
func (e *Executor) pushCleanup(node *dag.Node, fn func()) {
	e.destroyFns.Store(node.ID, fn)
	e.cleanupMu.Lock()
	e.cleanupStack = append(e.cleanupStack, node)
	e.cleanupMu.Unlock()
}

// destroyResource runs a resource's destruction closure exactly once.
func (e *Executor) destroyResource(ctx context.Context, node *dag.Node) {
	fnAny, ok := e.destroyFns.Load(node.ID)
	if !ok {
		return
	}
	fn := fnAny.(func())
	node.DestroyOnce.Do(fn)
}

// executeCleanupStack destroys any remaining live resources in reverse
// creation order.
func (e *Executor) executeCleanupStack(ctx context.Context) {
	e.cleanupMu.Lock()
	stack := make([]*dag.Node, len(e.cleanupStack))
	copy(stack, e.cleanupStack)
	e.cleanupMu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		e.destroyResource(ctx, stack[i])
	}
}
