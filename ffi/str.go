package ffi

import (
	"runtime"
	"unsafe"
)

// Str is a borrowed UTF-8 view with C layout {ptr, len}. It is not
// NUL-terminated and must not outlive the string it views.
type Str struct {
	ptr unsafe.Pointer
	len uintptr
}

// EmptyStr is the shared empty view.
var EmptyStr = Str{}

// StrOf returns a view of s.
func StrOf(s string) Str {
	if len(s) == 0 {
		return EmptyStr
	}
	return Str{ptr: unsafe.Pointer(unsafe.StringData(s)), len: uintptr(len(s))}
}

// String returns the viewed string without copying.
func (s Str) String() string {
	if s.len == 0 {
		return ""
	}
	return unsafe.String((*byte)(s.ptr), s.len)
}

// Len returns the length in bytes
func (s Str) Len() int {
	return int(s.len)
}

// Pin pins the viewed bytes.
func (s *Str) Pin(p *runtime.Pinner) {
	if s.ptr != nil {
		p.Pin(s.ptr)
	}
}
