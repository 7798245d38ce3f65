package dynlib

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/snapshot"
)

// wasmModule is a WebAssembly build of the decompiler running under wazero.
// Guest instances are not reentrant, so every guest call holds mu.
type wasmModule struct {
	mu        sync.Mutex
	ctx       context.Context
	runtime   wazero.Runtime
	mod       api.Module
	mem       *guestMemory
	alloc     *guestAllocator
	decompile api.Function
	free      api.Function
	layout    *guestLayouts

	// contexts holds the guest copy of each game context seen by
	// Decompile, until ReleaseContext.
	contexts map[*snapshot.GameContext]*loweredContext
}

// loweredContext is a game context resident in guest memory
type loweredContext struct {
	addr uint32
	w    *lowering
}

var _ ContextReleaser = (*wasmModule)(nil)

func openWasm(path string, cfg Config) (Externs, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("failed to read WebAssembly module", err)
	}

	ctx := context.Background()
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, errors.Load("failed to open compilation cache", err)
		}
		runtimeCfg = runtimeCfg.WithCompilationCache(cache)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	m, err := instantiate(ctx, rt, code)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return m, nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, code []byte) (*wasmModule, error) {
	compiled, err := rt.CompileModule(ctx, code)
	if err != nil {
		return nil, errors.Load("failed to compile WebAssembly module", err)
	}

	if importsWASI(compiled) {
		Logger().Debug("instantiating WASI preview1 for decompiler module")
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			return nil, errors.Load("failed to instantiate WASI", err)
		}
	}

	modCfg := wazero.NewModuleConfig().
		WithName("underanalyzer").
		WithStartFunctions("_initialize").
		WithStderr(os.Stderr)
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Load("failed to instantiate WebAssembly module", err)
	}

	m := &wasmModule{
		ctx:     ctx,
		runtime: rt,
		mod:     mod,
		layout:  computeLayouts(),

		contexts: make(map[*snapshot.GameContext]*loweredContext),
	}

	mem := mod.Memory()
	if mem == nil {
		return nil, errors.Symbol("memory", fmt.Errorf("module exports no memory"))
	}
	m.mem = &guestMemory{mem: mem}

	if m.decompile, err = exportedFunc(mod, SymbolDecompile, 3); err != nil {
		return nil, err
	}
	if m.free, err = exportedFunc(mod, SymbolFree, 1); err != nil {
		return nil, err
	}
	if m.alloc = newGuestAllocator(ctx, mod); m.alloc == nil {
		return nil, errors.Symbol("allocator", fmt.Errorf("module exports neither cabi_realloc nor malloc and free"))
	}
	return m, nil
}

func importsWASI(compiled wazero.CompiledModule) bool {
	for _, def := range compiled.ImportedFunctions() {
		if module, _, ok := def.Import(); ok && module == wasi_snapshot_preview1.ModuleName {
			return true
		}
	}
	return false
}

// exportedFunc resolves name and checks it takes params i32 parameters and
// returns nothing.
func exportedFunc(mod api.Module, name string, params int) (api.Function, error) {
	fn := mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.Symbol(name, fmt.Errorf("export not found"))
	}
	def := fn.Definition()
	ok := len(def.ParamTypes()) == params && len(def.ResultTypes()) == 0
	for _, t := range def.ParamTypes() {
		ok = ok && t == api.ValueTypeI32
	}
	if !ok {
		return nil, errors.Symbol(name, fmt.Errorf("unexpected signature %v -> %v", def.ParamTypes(), def.ResultTypes()))
	}
	return fn, nil
}

// Decompile lowers code into guest memory next to the resident copy of gc,
// calls the module with a return slot, and frees the code and the slot
// before returning.
func (m *wasmModule) Decompile(gc *snapshot.GameContext, code *snapshot.Code) (ffi.ReturnValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctxPtr, err := m.lowerContext(gc)
	if err != nil {
		return ffi.ReturnValue{}, err
	}

	w := newLowering(m.mem, m.alloc, m.layout)
	defer w.free()

	codePtr, err := w.code(code)
	if err != nil {
		return ffi.ReturnValue{}, err
	}
	ret := m.layout.ret
	retPtr := w.allocate(ret.Size, ret.Align)
	if w.err != nil {
		return ffi.ReturnValue{}, w.err
	}

	if _, err := m.decompile.Call(m.ctx, uint64(retPtr), uint64(ctxPtr), uint64(codePtr)); err != nil {
		return ffi.ReturnValue{}, errors.Trap(SymbolDecompile, err)
	}

	unreadable := errors.OutOfBounds(errors.PhaseDecode, []string{"return value"}, retPtr, ret.Size)
	strAt := retPtr + ret.Offset("string")
	ptr, err1 := m.mem.ReadU32(strAt)
	n, err2 := m.mem.ReadU32(strAt + 4)
	if err1 != nil || err2 != nil {
		Logger().Warn("decompile result unreadable, guest string leaked", zap.Uint32("ret", retPtr))
		return ffi.ReturnValue{}, unreadable
	}
	code8, err := m.mem.ReadU8(retPtr + ret.Offset("error"))
	if err != nil {
		m.release(uintptr(ptr))
		return ffi.ReturnValue{}, unreadable
	}

	return ffi.ReturnValue{String: ffi.NewForeignString(m, uintptr(ptr), uintptr(n)), Error: code8}, nil
}

// lowerContext returns the guest address of gc, lowering it on first use.
// Callers hold mu.
func (m *wasmModule) lowerContext(gc *snapshot.GameContext) (uint32, error) {
	if lc, ok := m.contexts[gc]; ok {
		return lc.addr, nil
	}
	w := newLowering(m.mem, m.alloc, m.layout)
	addr, err := w.gameContext(gc)
	if err != nil {
		w.free()
		return 0, err
	}
	m.contexts[gc] = &loweredContext{addr: addr, w: w}
	return addr, nil
}

// ReleaseContext frees the guest copy of gc, if there is one.
func (m *wasmModule) ReleaseContext(gc *snapshot.GameContext) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lc, ok := m.contexts[gc]; ok {
		lc.w.free()
		delete(m.contexts, gc)
	}
}

// Read copies n bytes out of guest memory.
func (m *wasmModule) Read(ptr, n uintptr) ([]byte, bool) {
	if uint64(ptr) > 0xFFFFFFFF || uint64(n) > 0xFFFFFFFF {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.mem.mem.Read(uint32(ptr), uint32(n))
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

func (m *wasmModule) Release(ptr uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(ptr)
}

func (m *wasmModule) release(ptr uintptr) {
	if _, err := m.free.Call(m.ctx, uint64(ptr)); err != nil {
		Logger().Warn("free_cs_string failed", zap.Uint64("ptr", uint64(ptr)), zap.Error(err))
	}
}
