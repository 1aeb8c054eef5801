// Package config defines the format-agnostic configuration model for
// epigridgo, along with the Loader and Converter interfaces that
// format-specific front ends (currently HCL) must implement.
//
// The model separates two concerns:
//
//   - Module manifests: RunnerDefinition and AssetDefinition describe the
//     typed contract of a runner or asset (inputs, outputs, lifecycle
//     handler names, asset dependencies).
//   - The pipeline: Step and Resource blocks are user-authored instances
//     of those contracts, wired together with expressions.
//
// Everything downstream of the loader (registry, dag, executor) operates
// exclusively on this model, never on raw HCL.
package config
