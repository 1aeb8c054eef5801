package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/dag"
)

// runResourceNode creates a resource instance via its asset's create handler
// and registers its destroy handler on the cleanup stack.
func (e *Executor) runResourceNode(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("nodeID", node.ID)

	assetDef, ok := e.registry.AssetDefinitionRegistry[node.ResourceConfig.AssetType]
	if !ok {
		return fmt.Errorf("unknown asset type '%s' for resource '%s'", node.ResourceConfig.AssetType, node.ID)
	}
	if assetDef.Lifecycle == nil {
		return fmt.Errorf("asset '%s' has no lifecycle block", node.ResourceConfig.AssetType)
	}

	handler, ok := e.registry.AssetHandlerRegistry[assetDef.Lifecycle.Create]
	if !ok {
		return fmt.Errorf("create handler '%s' for asset '%s' is not registered", assetDef.Lifecycle.Create, node.ResourceConfig.AssetType)
	}

	evalCtx, err := e.buildEvalContext(ctx, node)
	if err != nil {
		return fmt.Errorf("failed to build evaluation context for '%s': %w", node.ID, err)
	}

	input := handler.NewInput()
	if err := e.converter.DecodeBody(ctx, input, node.ResourceConfig.Arguments, assetDef.Inputs, evalCtx); err != nil {
		return fmt.Errorf("failed to decode arguments for '%s': %w", node.ID, err)
	}

	logger.Debug("Calling asset create handler.", "handler", assetDef.Lifecycle.Create)
	createVal := reflect.ValueOf(handler.CreateFn)
	results := createVal.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(input),
	})

	errResult := results[1]
	if !errResult.IsNil() {
		return errResult.Interface().(error)
	}

	instance := results[0].Interface()
	e.resourceInstances.Store(node.ID, instance)
	logger.Debug("Resource instance created.")

	destroyHandler, ok := e.registry.AssetHandlerRegistry[assetDef.Lifecycle.Destroy]
	if !ok {
		return fmt.Errorf("destroy handler '%s' for asset '%s' is not registered", assetDef.Lifecycle.Destroy, node.ResourceConfig.AssetType)
	}

	nodeID := node.ID
	e.pushCleanup(node, func() {
		logger.Debug("Destroying resource instance.", "nodeID", nodeID)
		destroyVal := reflect.ValueOf(destroyHandler.DestroyFn)
		destroyResults := destroyVal.Call([]reflect.Value{reflect.ValueOf(instance)})
		if errRes := destroyResults[0]; !errRes.IsNil() {
			logger.Error("Resource destruction failed.", "nodeID", nodeID, "error", errRes.Interface().(error))
		}
		e.resourceInstances.Delete(nodeID)
	})

	return nil
}
