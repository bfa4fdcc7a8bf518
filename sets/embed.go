// Package sets embeds the built-in pattern sets shipped with the binary.
// This is a standalone package with no imports to avoid circular dependencies.
//
// Usage:
//
//	patternset.LoadFS(sets.FS, ".")
package sets

import "embed"

//go:embed *.yaml
var FS embed.FS
