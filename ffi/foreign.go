package ffi

import (
	"sync/atomic"
	"unicode/utf8"

	"github.com/wippyai/gmdecomp/errors"
)

// Heap is the foreign allocator that owns returned strings.
type Heap interface {
	// Read returns n bytes at ptr. The slice may alias foreign memory and is
	// valid until ptr is released.
	Read(ptr, n uintptr) ([]byte, bool)
	// Release returns ptr to the foreign allocator.
	Release(ptr uintptr)
}

// ForeignString is a string owned by the foreign module.
type ForeignString struct {
	heap     Heap
	ptr      uintptr
	len      uintptr
	released atomic.Bool
}

// NewForeignString wraps the foreign string (ptr, n) owned by heap.
func NewForeignString(heap Heap, ptr, n uintptr) *ForeignString {
	return &ForeignString{heap: heap, ptr: ptr, len: n}
}

// Len returns the length in bytes
func (s *ForeignString) Len() int {
	return int(s.len)
}

// Bytes returns the raw bytes. The slice is valid until Release.
// An empty string is never read through its pointer.
func (s *ForeignString) Bytes() ([]byte, error) {
	if s.released.Load() {
		return nil, errors.Released("foreign string")
	}
	if s.len == 0 {
		return []byte{}, nil
	}
	b, ok := s.heap.Read(s.ptr, s.len)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, []string{"foreign string"}, uint32(s.ptr), uint32(s.len))
	}
	return b, nil
}

// String validates the bytes as UTF-8 and returns a Go-owned copy.
func (s *ForeignString) String() (string, error) {
	b, err := s.Bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, []string{"foreign string"}, b)
	}
	return string(b), nil
}

// Release hands the string back to its heap. Only the first call has
// effect; zero-length strings are released too.
func (s *ForeignString) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.heap.Release(s.ptr)
}

// Released reports whether Release has been called
func (s *ForeignString) Released() bool {
	return s.released.Load()
}

// ReturnValue is the result of a decompile call: a foreign string and an
// error byte. Error 0 means String holds the decompiled text.
type ReturnValue struct {
	String *ForeignString
	Error  uint8
}
