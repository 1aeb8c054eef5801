package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/config"
	"github.com/epigrid/epigridgo/internal/ctxlog"
	"github.com/epigrid/epigridgo/internal/registry"
)

// createNodes performs the first pass of graph creation.
func createNodes(ctx context.Context, pipeline *config.Pipeline, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, s := range pipeline.Steps {
		expandedSteps, err := expandStep(s)
		if err != nil {
			return err
		}
		for i, expandedS := range expandedSteps {
			id := fmt.Sprintf("step.%s.%s[%d]", expandedS.RunnerType, expandedS.Name, i)
			if _, exists := graph.Nodes[id]; exists {
				logger.Warn("Duplicate step definition found, it will be overwritten.", "id", id)
			}
			graph.Nodes[id] = &Node{
				ID:         id,
				Name:       expandedS.Name,
				Type:       StepNode,
				StepConfig: expandedS,
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
		}
	}
	for _, r := range pipeline.Resources {
		id := fmt.Sprintf("resource.%s.%s", r.AssetType, r.Name)
		if _, exists := graph.Nodes[id]; exists {
			logger.Warn("Duplicate resource definition found, it will be overwritten.", "id", id)
		}
		graph.Nodes[id] = &Node{
			ID:             id,
			Name:           r.Name,
			Type:           ResourceNode,
			ResourceConfig: r,
			Deps:           make(map[string]*Node),
			Dependents:     make(map[string]*Node),
		}
	}
	return nil
}

// expandStep evaluates a step's `count` meta-argument and returns one step
// config per instance. The count expression must be statically known.
func expandStep(s *config.Step) ([]*config.Step, error) {
	if s.Count == nil {
		return []*config.Step{s}, nil
	}

	val, diags := s.Count.Value(nil)
	if diags.HasErrors() || !val.IsKnown() {
		return nil, fmt.Errorf("count for step '%s.%s' must be statically known", s.RunnerType, s.Name)
	}
	// An absent count decodes to a null expression, not a nil one.
	if val.IsNull() {
		return []*config.Step{s}, nil
	}
	if val.Type() != cty.Number {
		return nil, fmt.Errorf("count for step '%s.%s' must be a number, got %s", s.RunnerType, s.Name, val.Type().FriendlyName())
	}

	countBf, _ := val.AsBigFloat().Int64()
	count := int(countBf)
	if count < 0 {
		return nil, fmt.Errorf("count for step '%s.%s' cannot be negative, got %d", s.RunnerType, s.Name, count)
	}

	instances := make([]*config.Step, count)
	for i := 0; i < count; i++ {
		instanceConf := *s
		instances[i] = &instanceConf
	}
	return instances, nil
}

// linkNodes performs the second pass, establishing dependency links.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph, r *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for _, node := range graph.Nodes {
		var dependsOn []string
		var expressions []hcl.Expression

		if node.Type == StepNode {
			dependsOn = node.StepConfig.DependsOn
			for _, expr := range node.StepConfig.Arguments {
				expressions = append(expressions, expr)
			}
			for _, expr := range node.StepConfig.Uses {
				expressions = append(expressions, expr)
			}
		} else { // ResourceNode
			dependsOn = node.ResourceConfig.DependsOn
			for _, expr := range node.ResourceConfig.Arguments {
				expressions = append(expressions, expr)
			}
		}

		if err := linkExplicitDeps(ctx, node, dependsOn, graph); err != nil {
			return err
		}
		for _, expr := range expressions {
			if err := linkImplicitDeps(ctx, node, expr, model, graph, r); err != nil {
				return err
			}
		}
	}
	logger.Debug("Finished node linking pass.")
	return nil
}
