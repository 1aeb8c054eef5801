package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/epigrid/epigridgo/internal/dag"
)

// buildDepsStruct populates a step's Deps struct by resolving each `uses`
// expression to a live resource instance and assigning it to the matching
// struct field.
func (e *Executor) buildDepsStruct(ctx context.Context, node *dag.Node, deps any) (any, error) {
	if node.StepConfig == nil || len(node.StepConfig.Uses) == 0 {
		return deps, nil
	}

	depsVal := reflect.ValueOf(deps)
	if depsVal.Kind() != reflect.Ptr || depsVal.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("deps for step '%s' must be a pointer to a struct", node.ID)
	}
	depsStruct := depsVal.Elem()
	depsType := depsStruct.Type()

	for localName, expr := range node.StepConfig.Uses {
		resourceID, err := traversableToID(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid uses expression for '%s' in step '%s': %w", localName, node.ID, err)
		}

		instanceAny, ok := e.resourceInstances.Load(resourceID)
		if !ok {
			return nil, fmt.Errorf("resource instance '%s' not found for step '%s'", resourceID, node.ID)
		}
		instanceVal := reflect.ValueOf(instanceAny)

		field, ok := findFieldByTag(depsType, localName)
		if !ok {
			return nil, fmt.Errorf("deps struct for step '%s' has no field tagged '%s'", node.ID, localName)
		}

		fieldVal := depsStruct.FieldByIndex(field.Index)
		switch {
		case field.Type.Kind() == reflect.Interface && instanceVal.Type().Implements(field.Type):
			fieldVal.Set(instanceVal)
		case instanceVal.Type().AssignableTo(field.Type):
			fieldVal.Set(instanceVal)
		default:
			return nil, fmt.Errorf("resource '%s' of type %s is not assignable to field '%s' (%s) in step '%s'",
				resourceID, instanceVal.Type(), field.Name, field.Type, node.ID)
		}
	}

	return deps, nil
}

// findFieldByTag locates the struct field carrying the given `epi` tag.
func findFieldByTag(t reflect.Type, tag string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("epi") == tag {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

// traversableToID converts a `uses` expression like `resource.s3_client.main`
// into the canonical resource node ID.
func traversableToID(expr hcl.Expression) (string, error) {
	traversalExpr, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok {
		vars := expr.Variables()
		if len(vars) != 1 {
			return "", fmt.Errorf("expression must be a direct resource reference")
		}
		return formatUsesTraversal(vars[0])
	}
	return formatUsesTraversal(traversalExpr.Traversal)
}

func formatUsesTraversal(traversal hcl.Traversal) (string, error) {
	if len(traversal) < 3 {
		return "", fmt.Errorf("reference must have the form resource.<asset_type>.<name>")
	}
	root, ok := traversal[0].(hcl.TraverseRoot)
	if !ok || root.Name != "resource" {
		return "", fmt.Errorf("reference must start with 'resource'")
	}
	assetType, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", fmt.Errorf("reference must have the form resource.<asset_type>.<name>")
	}
	name, ok := traversal[2].(hcl.TraverseAttr)
	if !ok {
		return "", fmt.Errorf("reference must have the form resource.<asset_type>.<name>")
	}
	return fmt.Sprintf("resource.%s.%s", assetType.Name, name.Name), nil
}
