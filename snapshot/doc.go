// Package snapshot flattens a gamedata source graph into fixed-layout
// records the decompiler module reads directly.
//
// Field order and types of GameContext, Code, Instruction, Function and
// Variable are the boundary layout and must not be reordered. Every string
// in a snapshot is a borrowed view into the source data, so a snapshot must
// not outlive the *gamedata.Data it was built from.
//
// Snapshots handed to C must be pinned for the duration of the call:
//
//	var p runtime.Pinner
//	ctx.Pin(&p)
//	code.Pin(&p)
//	defer p.Unpin()
package snapshot
