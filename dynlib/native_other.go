//go:build !cgo || !unix

package dynlib

import "github.com/wippyai/gmdecomp/errors"

func openNative(path string) (Externs, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "native decompiler modules require cgo on a unix platform; embed a WebAssembly build instead")
}
