// Package errors provides structured error types for the gmdecomp module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a location path, the offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindInvalidInput).
//		Path("codes", "gml_Script_test", "#3").
//		Detail("unknown mnemonic %q", "psh.d").
//		Build()
//
// Or use convenience constructors for the error taxonomy:
//
//	err := errors.InvalidReference("variable", 12, 3)
//	err := errors.Symbol("decompile_to_string", cause)
//
// Breadcrumbs are layered with Context and rendered with Pretty:
//
//	err = errors.Context(err, "converting code entry #%d", 4)
//	fmt.Fprintln(os.Stderr, errors.Pretty(err))
//
// Failures reported by the decompiler are DecompileError values. All errors
// implement the standard error interface and support errors.Is/As.
package errors
