// Package registry holds the mapping between manifest-declared lifecycle
// handler names and the compiled Go functions that implement them, together
// with a startup parity check between manifests and Go input structs.
package registry
