// Package executor runs a built dependency graph on a pool of workers.
// Steps and resources become ready when their dependency counters reach
// zero; a failing node cancels the run and skips its dependents. Resources
// are destroyed eagerly once their last consuming step finishes, and any
// survivors are destroyed in reverse creation order when the run ends.
package executor
