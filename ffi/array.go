package ffi

import (
	"runtime"
	"unsafe"
)

// Array is an owning dynamic array with C layout {ptr, len, cap}.
// The zero value is an empty array.
type Array[T any] struct {
	ptr unsafe.Pointer
	len uintptr
	cap uintptr
}

// FromSlice takes ownership of s. The caller must not use s afterwards
// except through Release. Panics if T has zero size.
func FromSlice[T any](s []T) Array[T] {
	var zero T
	if unsafe.Sizeof(zero) == 0 {
		panic("ffi: Array of zero-size element type")
	}
	return Array[T]{
		ptr: unsafe.Pointer(unsafe.SliceData(s)),
		len: uintptr(len(s)),
		cap: uintptr(cap(s)),
	}
}

// Len returns the number of elements
func (a *Array[T]) Len() int {
	return int(a.len)
}

// Cap returns the capacity of the backing storage
func (a *Array[T]) Cap() int {
	return int(a.cap)
}

// Slice returns a view of the elements. The view is valid until Release.
func (a *Array[T]) Slice() []T {
	if a.ptr == nil {
		return nil
	}
	return unsafe.Slice((*T)(a.ptr), a.len)
}

// At returns a pointer to element i. Panics if i is out of range.
func (a *Array[T]) At(i int) *T {
	return &a.Slice()[i]
}

// Release reconstructs the original slice from (ptr, len, cap) and clears
// the array. Calling Release again returns nil.
func (a *Array[T]) Release() []T {
	if a.ptr == nil {
		a.len, a.cap = 0, 0
		return nil
	}
	s := unsafe.Slice((*T)(a.ptr), a.cap)[:a.len]
	a.ptr, a.len, a.cap = nil, 0, 0
	return s
}

// Pin pins the backing storage.
func (a *Array[T]) Pin(p *runtime.Pinner) {
	if a.ptr != nil {
		p.Pin(a.ptr)
	}
}
