package dag

import (
	"context"
	"fmt"

	"github.com/epigrid/epigridgo/internal/ctxlog"
)

// linkExplicitDeps resolves dependencies from a `depends_on` list.
func linkExplicitDeps(ctx context.Context, node *Node, dependsOn []string, graph *Graph) error {
	baseLogger := ctxlog.FromContext(ctx)

	for _, depAddrRaw := range dependsOn {
		logger := baseLogger.With("node_id", node.ID, "depends_on", depAddrRaw)
		logger.Debug("Resolving explicit dependency.")

		parsedAddr, err := parseDepAddress(depAddrRaw)
		if err != nil {
			return err
		}

		// First, check if it's a resource dependency. Resources are not instanced.
		resourceID := "resource." + parsedAddr.Name
		if depNode, found := graph.Nodes[resourceID]; found {
			logger.Debug("Resolved as dependency on resource.", "to_node_id", depNode.ID)
			node.Deps[depNode.ID] = depNode
			depNode.Dependents[node.ID] = node
			continue
		}

		var depNode *Node
		var found bool

		if parsedAddr.Index == -1 { // Shorthand reference (e.g., "http_fetch.oxford")
			// Ambiguous if the step was expanded to more than one instance.
			secondID := fmt.Sprintf("step.%s[1]", parsedAddr.Name)
			if _, multi := graph.Nodes[secondID]; multi {
				return fmt.Errorf("ambiguous dependency in '%s': '%s' refers to an instanced step. Use index syntax (e.g., '%s[0]') to specify which instance", node.ID, depAddrRaw, depAddrRaw)
			}
			depNodeID := fmt.Sprintf("step.%s[0]", parsedAddr.Name)
			depNode, found = graph.Nodes[depNodeID]
		} else { // Indexed reference (e.g., "http_fetch.oxford[2]")
			depNodeID := fmt.Sprintf("step.%s[%d]", parsedAddr.Name, parsedAddr.Index)
			depNode, found = graph.Nodes[depNodeID]
		}

		if !found || depNode == nil {
			return fmt.Errorf("node '%s' depends on non-existent identifier '%s'", node.ID, depAddrRaw)
		}

		logger.Debug("Linking explicit dependency.", "to_node_id", depNode.ID)
		node.Deps[depNode.ID] = depNode
		depNode.Dependents[node.ID] = node
	}
	return nil
}
