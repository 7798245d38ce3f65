// Package decompiler decompiles GameMaker code entries through the
// Underanalyzer module loaded by dynlib.
//
// Build one GameContext per data set, then decompile entries by reference:
//
//	ctx, err := decompiler.NewGameContext(data)
//	if err != nil {
//		return err
//	}
//	src, err := ctx.Decompile(ref, data)
//	var derr *errors.DecompileError
//	if stderrors.As(err, &derr) {
//		// reported by the decompiler; other entries may still succeed
//	}
//
// Each Decompile builds a private snapshot of the entry and its children,
// hands it to the module together with the shared context, and copies the
// result out before releasing it.
package decompiler
