package dynlib

import (
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/snapshot"
)

// Exported entry points of the decompiler module
const (
	SymbolDecompile = "decompile_to_string"
	SymbolFree      = "free_cs_string"
)

// Externs are the resolved entry points of a loaded decompiler module.
// The returned string of Decompile is owned by the module and is released
// through the Heap side of the same Externs.
type Externs interface {
	ffi.Heap
	Decompile(ctx *snapshot.GameContext, code *snapshot.Code) (ffi.ReturnValue, error)
}

// ContextReleaser is implemented by Externs that keep per-context state
// between Decompile calls.
type ContextReleaser interface {
	ReleaseContext(ctx *snapshot.GameContext)
}
