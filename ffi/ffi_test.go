package ffi

import (
	"errors"
	"runtime"
	"testing"

	gmerrors "github.com/wippyai/gmdecomp/errors"
)

type fakeHeap struct {
	mem      map[uintptr][]byte
	reads    int
	released []uintptr
}

func (h *fakeHeap) Read(ptr, n uintptr) ([]byte, bool) {
	h.reads++
	b, ok := h.mem[ptr]
	if !ok || uintptr(len(b)) < n {
		return nil, false
	}
	return b[:n], true
}

func (h *fakeHeap) Release(ptr uintptr) {
	h.released = append(h.released, ptr)
}

func TestArray_RoundTrip(t *testing.T) {
	src := make([]int32, 3, 8)
	src[0], src[1], src[2] = 1, 2, 3

	a := FromSlice(src)
	if a.Len() != 3 || a.Cap() != 8 {
		t.Fatalf("Len/Cap = %d/%d, want 3/8", a.Len(), a.Cap())
	}
	if *a.At(1) != 2 {
		t.Errorf("At(1) = %d, want 2", *a.At(1))
	}

	back := a.Release()
	if len(back) != 3 || cap(back) != 8 || &back[0] != &src[0] {
		t.Errorf("Release did not reconstruct the original slice")
	}
	if a.Len() != 0 || a.Slice() != nil {
		t.Errorf("array not cleared after Release")
	}
	if again := a.Release(); again != nil {
		t.Errorf("second Release = %v, want nil", again)
	}
}

func TestArray_NoAllocation(t *testing.T) {
	buf := make([]uint64, 16)
	allocs := testing.AllocsPerRun(100, func() {
		a := FromSlice(buf)
		buf = a.Release()
	})
	if allocs != 0 {
		t.Errorf("wrap+release allocated %v times, want 0", allocs)
	}
}

func TestArray_Empty(t *testing.T) {
	var a Array[Str]
	if a.Len() != 0 || a.Slice() != nil || a.Release() != nil {
		t.Error("zero Array should be empty")
	}

	b := FromSlice([]Str{})
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestArray_ZeroSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FromSlice of zero-size elements should panic")
		}
	}()
	FromSlice(make([]struct{}, 4))
}

func TestArray_Pin(t *testing.T) {
	var p runtime.Pinner
	defer p.Unpin()

	a := FromSlice([]int{1, 2})
	a.Pin(&p)
	a.Release()
}

func TestStr(t *testing.T) {
	tests := []string{"", "obj_player", "héllo"}
	for _, s := range tests {
		v := StrOf(s)
		if v.String() != s {
			t.Errorf("StrOf(%q).String() = %q", s, v.String())
		}
		if v.Len() != len(s) {
			t.Errorf("StrOf(%q).Len() = %d, want %d", s, v.Len(), len(s))
		}
	}

	if StrOf("") != EmptyStr {
		t.Error("empty string should map to EmptyStr")
	}
}

func TestForeignString_String(t *testing.T) {
	h := &fakeHeap{mem: map[uintptr][]byte{0x100: []byte("return 1;")}}
	s := NewForeignString(h, 0x100, 9)

	got, err := s.String()
	if err != nil {
		t.Fatalf("String() error: %v", err)
	}
	if got != "return 1;" {
		t.Errorf("String() = %q", got)
	}

	s.Release()
	s.Release()
	if len(h.released) != 1 || h.released[0] != 0x100 {
		t.Errorf("released = %v, want exactly [0x100]", h.released)
	}

	if _, err := s.Bytes(); !errors.Is(err, &gmerrors.Error{Phase: gmerrors.PhaseDecode, Kind: gmerrors.KindReleased}) {
		t.Errorf("Bytes after release error = %v, want released", err)
	}
}

func TestForeignString_ZeroLength(t *testing.T) {
	h := &fakeHeap{}
	s := NewForeignString(h, 0xdead, 0)

	got, err := s.String()
	if err != nil || got != "" {
		t.Fatalf("String() = %q, %v", got, err)
	}
	if h.reads != 0 {
		t.Errorf("zero-length string was read %d times", h.reads)
	}

	s.Release()
	if len(h.released) != 1 {
		t.Errorf("zero-length string released %d times, want 1", len(h.released))
	}
}

func TestForeignString_InvalidUTF8(t *testing.T) {
	h := &fakeHeap{mem: map[uintptr][]byte{8: {0xff, 0xfe, 'a'}}}
	s := NewForeignString(h, 8, 3)
	defer s.Release()

	_, err := s.String()
	if !errors.Is(err, &gmerrors.Error{Phase: gmerrors.PhaseDecode, Kind: gmerrors.KindInvalidUTF8}) {
		t.Errorf("error = %v, want invalid_utf8", err)
	}
}

func TestForeignString_OutOfBounds(t *testing.T) {
	h := &fakeHeap{mem: map[uintptr][]byte{}}
	s := NewForeignString(h, 8, 3)
	defer s.Release()

	if _, err := s.Bytes(); err == nil {
		t.Error("expected out of bounds error")
	}
}
