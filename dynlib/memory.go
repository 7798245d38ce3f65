package dynlib

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/gmdecomp"
)

// guestMemory adapts wazero api.Memory to gmdecomp.Memory.
type guestMemory struct {
	mem api.Memory
}

func (m *guestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *guestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *guestMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *guestMemory) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *guestMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *guestMemory) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *guestMemory) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *guestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *guestMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

var (
	reallocNames = []string{"cabi_realloc", "canonical_abi_realloc"}
	allocNames   = []string{"malloc", "alloc"}
	freeNames    = []string{"cabi_free", "free"}
)

// guestAllocator allocates in guest memory through the module's exported
// allocator: cabi_realloc if present, otherwise malloc-style alloc/free.
type guestAllocator struct {
	ctx     context.Context
	realloc api.Function
	alloc   api.Function
	free    api.Function
}

var _ gmdecomp.Allocator = (*guestAllocator)(nil)

func findExport(mod api.Module, names []string) api.Function {
	for _, name := range names {
		if fn := mod.ExportedFunction(name); fn != nil {
			return fn
		}
	}
	return nil
}

// newGuestAllocator returns nil if the module exports no usable allocator.
func newGuestAllocator(ctx context.Context, mod api.Module) *guestAllocator {
	if fn := findExport(mod, reallocNames); fn != nil {
		return &guestAllocator{ctx: ctx, realloc: fn}
	}
	alloc := findExport(mod, allocNames)
	free := findExport(mod, freeNames)
	if alloc == nil || free == nil {
		return nil
	}
	return &guestAllocator{ctx: ctx, alloc: alloc, free: free}
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	var (
		results []uint64
		err     error
	)
	if a.realloc != nil {
		results, err = a.realloc.Call(a.ctx, 0, 0, uint64(align), uint64(size))
	} else {
		results, err = a.alloc.Call(a.ctx, uint64(size))
	}
	if err != nil {
		return 0, fmt.Errorf("allocation failed: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocation returned no result")
	}
	ptr := uint32(results[0])
	if ptr == 0 && size != 0 {
		return 0, fmt.Errorf("allocation of %d bytes returned null", size)
	}
	return ptr, nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	var err error
	if a.realloc != nil {
		_, err = a.realloc.Call(a.ctx, uint64(ptr), uint64(size), uint64(align), 0)
	} else {
		_, err = a.free.Call(a.ctx, uint64(ptr))
	}
	if err != nil {
		Logger().Warn("guest free failed", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}
