// Package hcl implements the config.Loader and config.Converter interfaces
// on top of hashicorp/hcl. It discovers .hcl files recursively, decodes
// pipeline and manifest blocks into the schema package's structs, and
// translates them into the format-agnostic config model.
package hcl
