// Package dag builds the validated execution graph for a pipeline. Nodes are
// created from step and resource blocks (steps with a static `count` are
// expanded at build time), then linked from explicit `depends_on` entries and
// implicit expression references, and finally checked for cycles.
package dag
