//go:build cgo && unix

package dynlib

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

typedef struct {
	const uint8_t* ptr;
	size_t len;
} gm_cs_string;

typedef struct {
	gm_cs_string str;
	uint8_t err_code;
} gm_return_value;

typedef gm_return_value (*gm_decompile_fn)(const void*, const void*);
typedef void (*gm_free_fn)(const uint8_t*);

static void* gm_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}
static const char* gm_dlerror(void) {
	return dlerror();
}
static int gm_dlclose(void* h) {
	return dlclose(h);
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the symbol.
static void* gm_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

static gm_return_value gm_call_decompile(void* fn, const void* ctx, const void* code) {
	return ((gm_decompile_fn)fn)(ctx, code);
}
static void gm_call_free(void* fn, uintptr_t ptr) {
	((gm_free_fn)fn)((const uint8_t*)ptr);
}
static const uint8_t* gm_foreign_ptr(uintptr_t ptr) {
	return (const uint8_t*)ptr;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/snapshot"
)

// nativeModule is a shared library loaded with dlopen. It is never
// unloaded.
type nativeModule struct {
	handle    unsafe.Pointer
	decompile unsafe.Pointer
	free      unsafe.Pointer
}

func dlerr() string {
	if e := C.gm_dlerror(); e != nil {
		return C.GoString(e)
	}
	return "unknown error"
}

func openNative(path string) (Externs, error) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	h := C.gm_dlopen(cs)
	if h == nil {
		return nil, errors.Load("failed to load Underanalyzer dynamic library", fmt.Errorf("dlopen(%q): %s", path, dlerr()))
	}

	m := &nativeModule{handle: h}
	symbols := []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{SymbolDecompile, &m.decompile},
		{SymbolFree, &m.free},
	}
	for _, s := range symbols {
		p, err := dlsym(h, s.name)
		if err != nil {
			C.gm_dlclose(h)
			return nil, errors.Symbol(s.name, err)
		}
		*s.dst = p
	}
	return m, nil
}

func dlsym(h unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	var cerr *C.char
	p := C.gm_dlsym(h, cs, &cerr)
	if cerr != nil {
		return nil, fmt.Errorf("dlsym(%q): %s", name, C.GoString(cerr))
	}
	if p == nil {
		return nil, fmt.Errorf("dlsym(%q): symbol is null", name)
	}
	return p, nil
}

// Decompile passes the snapshots by address. They stay pinned until the
// module returns.
func (m *nativeModule) Decompile(ctx *snapshot.GameContext, code *snapshot.Code) (ffi.ReturnValue, error) {
	var pin runtime.Pinner
	ctx.Pin(&pin)
	code.Pin(&pin)
	defer pin.Unpin()

	rv := C.gm_call_decompile(m.decompile, unsafe.Pointer(ctx), unsafe.Pointer(code))
	s := ffi.NewForeignString(m, uintptr(unsafe.Pointer(rv.str.ptr)), uintptr(rv.str.len))
	return ffi.ReturnValue{String: s, Error: uint8(rv.err_code)}, nil
}

// Read views n bytes of foreign memory at ptr. The address is converted on
// the C side since it never points into the Go heap.
func (m *nativeModule) Read(ptr, n uintptr) ([]byte, bool) {
	p := C.gm_foreign_ptr(C.uintptr_t(ptr))
	if p == nil {
		return nil, false
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n), true
}

func (m *nativeModule) Release(ptr uintptr) {
	C.gm_call_free(m.free, C.uintptr_t(ptr))
}
