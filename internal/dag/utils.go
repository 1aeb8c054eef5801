package dag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/registry"
)

// formatTraversal converts an hcl.Traversal to a human-readable string for logging.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for i, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			sb.WriteRune('.')
			sb.WriteString(p.Name)
		case hcl.TraverseIndex:
			sb.WriteRune('[')
			if p.Key.Type() == cty.String {
				sb.WriteString(fmt.Sprintf("%q", p.Key.AsString()))
			} else if p.Key.Type() == cty.Number {
				bf := p.Key.AsBigFloat()
				sb.WriteString(bf.Text('f', -1))
			} else {
				sb.WriteString("...")
			}
			sb.WriteRune(']')
		default:
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// depAddress represents a parsed dependency reference.
// Index is -1 if not specified (shorthand).
type depAddress struct {
	Name  string
	Index int
}

// depAddrRegex is used to parse addresses like "name" or "name[index]".
var depAddrRegex = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(?:\[(\d+)\])?$`)

// parseDepAddress parses a raw dependency string into its name and optional index.
func parseDepAddress(addr string) (*depAddress, error) {
	matches := depAddrRegex.FindStringSubmatch(addr)
	if matches == nil {
		return nil, fmt.Errorf("invalid dependency address format: %q", addr)
	}

	name := matches[1]
	index := -1
	if matches[2] != "" {
		var err error
		index, err = strconv.Atoi(matches[2])
		if err != nil {
			// Unreachable because of the regex \d+.
			return nil, fmt.Errorf("internal error: failed to parse index from %q", addr)
		}
	}
	return &depAddress{Name: name, Index: index}, nil
}

// validateOutputReference checks if a reference to a step's output is valid.
func validateOutputReference(traversal hcl.Traversal, depNode *Node, r *registry.Registry) error {
	if depNode.Type != StepNode || len(traversal) < 5 {
		return nil // Not a step output reference we need to validate.
	}

	// The reference is step.<runner>.<name>.output.<field>, optionally with
	// an index between the name and "output". Find the attribute that
	// follows the "output" attribute.
	outputPos := -1
	for i := 3; i < len(traversal); i++ {
		if attr, ok := traversal[i].(hcl.TraverseAttr); ok && attr.Name == "output" {
			outputPos = i
			break
		}
	}
	if outputPos == -1 || outputPos+1 >= len(traversal) {
		return nil
	}
	outputNameAttr, ok := traversal[outputPos+1].(hcl.TraverseAttr)
	if !ok {
		return nil // Malformed traversal.
	}
	outputName := outputNameAttr.Name

	runnerDef, ok := r.DefinitionRegistry[depNode.StepConfig.RunnerType]
	if !ok {
		return fmt.Errorf("internal error: could not find definition for runner type %s", depNode.StepConfig.RunnerType)
	}

	if _, ok := runnerDef.Outputs[outputName]; ok {
		return nil
	}

	return fmt.Errorf("reference to undeclared output %q on step %q", outputName, depNode.ID)
}
