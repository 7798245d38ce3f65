// Package ffi provides the primitive types that cross the decompiler module
// boundary.
//
// Array and Str have a fixed C layout ({ptr, len, cap} and {ptr, len}) and
// may be embedded in snapshot records. Array owns its backing storage until
// Release hands it back as a slice; Str is a borrowed view and must not
// outlive the string it was made from.
//
// ForeignString wraps a string allocated by the foreign module. It is
// released exactly once through the Heap it came from:
//
//	s := ffi.NewForeignString(heap, ptr, n)
//	defer s.Release()
//	text, err := s.String()
package ffi
