package executor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/dag"
)

var nodeIndexRegex = regexp.MustCompile(`\[(\d+)\]$`)

// buildEvalContext constructs an HCL evaluation context for a node. Outputs
// of every completed step in the graph are exposed under the `step` variable
// so downstream expressions see a consistent global view, and the node's own
// instance index is exposed under `count.index`.
func (e *Executor) buildEvalContext(ctx context.Context, node *dag.Node) (*hcl.EvalContext, error) {
	// runner type -> instance name -> instance index -> wrapped output
	stepOutputs := make(map[string]map[string]map[int]cty.Value)

	for _, graphNode := range e.Graph.Nodes {
		if graphNode.Type != dag.StepNode || graphNode.State() != dag.Done {
			continue
		}
		runnerType := graphNode.StepConfig.RunnerType
		name := graphNode.Name

		output := graphNode.Output
		if output == cty.NilVal {
			output = cty.NullVal(cty.DynamicPseudoType)
		}
		wrapped := cty.ObjectVal(map[string]cty.Value{
			"output": output,
		})

		index := 0
		if m := nodeIndexRegex.FindStringSubmatch(graphNode.ID); m != nil {
			parsed, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid instance index in node ID '%s'", graphNode.ID)
			}
			index = parsed
		}

		if stepOutputs[runnerType] == nil {
			stepOutputs[runnerType] = make(map[string]map[int]cty.Value)
		}
		if stepOutputs[runnerType][name] == nil {
			stepOutputs[runnerType][name] = make(map[int]cty.Value)
		}
		stepOutputs[runnerType][name][index] = wrapped
	}

	runnerVals := make(map[string]cty.Value, len(stepOutputs))
	for runnerType, byName := range stepOutputs {
		nameVals := make(map[string]cty.Value, len(byName))
		for name, byIndex := range byName {
			maxIndex := 0
			for index := range byIndex {
				if index > maxIndex {
					maxIndex = index
				}
			}
			if maxIndex == 0 {
				nameVals[name] = byIndex[0]
				continue
			}
			// Tuple positions must line up with instance indices even when
			// only a subset of instances has completed.
			vals := make([]cty.Value, maxIndex+1)
			for i := range vals {
				wrapped, ok := byIndex[i]
				if !ok {
					wrapped = cty.ObjectVal(map[string]cty.Value{
						"output": cty.NullVal(cty.DynamicPseudoType),
					})
				}
				vals[i] = wrapped
			}
			nameVals[name] = cty.TupleVal(vals)
		}
		runnerVals[runnerType] = cty.ObjectVal(nameVals)
	}

	vars := make(map[string]cty.Value)
	if len(runnerVals) > 0 {
		vars["step"] = cty.ObjectVal(runnerVals)
	}

	selfIndex := 0
	if m := nodeIndexRegex.FindStringSubmatch(node.ID); m != nil {
		parsed, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid instance index in node ID '%s'", node.ID)
		}
		selfIndex = parsed
	}
	vars["count"] = cty.ObjectVal(map[string]cty.Value{
		"index": cty.NumberIntVal(int64(selfIndex)),
	})

	return &hcl.EvalContext{Variables: vars}, nil
}
