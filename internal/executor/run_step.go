package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/dag"
)

// runStepNode executes a single step node: it decodes the step's arguments,
// injects its resource dependencies, calls the registered handler and stores
// the output on the node for downstream expressions.
func (e *Executor) runStepNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("nodeID", node.ID)

	runnerDef, ok := e.registry.DefinitionRegistry[node.StepConfig.RunnerType]
	if !ok {
		return fmt.Errorf("unknown runner type '%s' for step '%s'", node.StepConfig.RunnerType, node.ID)
	}
	if runnerDef.Lifecycle == nil || runnerDef.Lifecycle.OnRun == "" {
		logger.Debug("Runner has no on_run handler, treating as no-op.")
		return nil
	}

	handler, ok := e.registry.HandlerRegistry[runnerDef.Lifecycle.OnRun]
	if !ok {
		return fmt.Errorf("handler '%s' for runner '%s' is not registered", runnerDef.Lifecycle.OnRun, node.StepConfig.RunnerType)
	}

	evalCtx, err := e.buildEvalContext(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to build evaluation context for '%s': %w", node.ID, err)
	}

	input := handler.NewInput()
	if err := e.converter.DecodeBody(ctx, input, node.StepConfig.Arguments, runnerDef.Inputs, evalCtx); err != nil {
		return fmt.Errorf("failed to decode arguments for '%s': %w", node.ID, err)
	}

	deps, err := e.buildDepsStruct(ctx, node, handler.NewDeps())
	if err != nil {
		return fmt.Errorf("failed to inject dependencies for '%s': %w", node.ID, err)
	}

	logger.Debug("Calling runner handler.", "handler", runnerDef.Lifecycle.OnRun)
	fnVal := reflect.ValueOf(handler.Fn)
	results := fnVal.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(deps),
		reflect.ValueOf(input),
	})

	errResult := results[len(results)-1]
	if !errResult.IsNil() {
		return errResult.Interface().(error)
	}

	if len(results) == 2 {
		output := results[0].Interface()
		ctyOutput, err := e.converter.ToCtyValue(output)
		if err != nil {
			return fmt.Errorf("failed to convert output of '%s': %w", node.ID, err)
		}
		node.Output = ctyOutput
		logger.Debug("Stored step output.", "output", formatValueForLogs(ctyOutput))
	}

	return nil
}
