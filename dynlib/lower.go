package dynlib

import (
	"math"

	"github.com/wippyai/gmdecomp"
	"github.com/wippyai/gmdecomp/dynlib/internal/layout"
	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/snapshot"
)

type allocation struct {
	ptr, size, align uint32
}

// lowering copies snapshots into guest memory. Writes are sticky: the first
// failure is kept in err and later writes are skipped. Every allocation is
// recorded so free can return all of them after the call.
type lowering struct {
	mem    gmdecomp.Memory
	alloc  gmdecomp.Allocator
	layout *guestLayouts
	allocs []allocation
	strs   map[string]uint32
	err    error
}

func newLowering(mem gmdecomp.Memory, alloc gmdecomp.Allocator, l *guestLayouts) *lowering {
	return &lowering{
		mem:    mem,
		alloc:  alloc,
		layout: l,
		strs:   make(map[string]uint32),
	}
}

func (w *lowering) allocate(size, align uint32) uint32 {
	if w.err != nil || size == 0 {
		return 0
	}
	ptr, err := w.alloc.Alloc(size, align)
	if err != nil {
		w.err = errors.Wrap(errors.PhaseCall, errors.KindAllocation, err, "lower snapshot")
		return 0
	}
	w.allocs = append(w.allocs, allocation{ptr: ptr, size: size, align: align})
	return ptr
}

// free releases every allocation in reverse order
func (w *lowering) free() {
	for i := len(w.allocs) - 1; i >= 0; i-- {
		a := w.allocs[i]
		w.alloc.Free(a.ptr, a.size, a.align)
	}
	w.allocs = nil
}

func (w *lowering) fail(err error) {
	if err != nil && w.err == nil {
		w.err = errors.Wrap(errors.PhaseCall, errors.KindOutOfBounds, err, "lower snapshot")
	}
}

func (w *lowering) u8(addr uint32, v uint8) {
	if w.err == nil {
		w.fail(w.mem.WriteU8(addr, v))
	}
}

func (w *lowering) u16(addr uint32, v uint16) {
	if w.err == nil {
		w.fail(w.mem.WriteU16(addr, v))
	}
}

func (w *lowering) u32(addr uint32, v uint32) {
	if w.err == nil {
		w.fail(w.mem.WriteU32(addr, v))
	}
}

func (w *lowering) u64(addr uint32, v uint64) {
	if w.err == nil {
		w.fail(w.mem.WriteU64(addr, v))
	}
}

func (w *lowering) flag(addr uint32, v bool) {
	var b uint8
	if v {
		b = 1
	}
	w.u8(addr, b)
}

// str writes a {ptr, len} view. Equal strings share one guest copy; empty
// strings are written as (0, 0).
func (w *lowering) str(addr uint32, s ffi.Str) {
	n := uint32(s.Len())
	var ptr uint32
	if n > 0 {
		text := s.String()
		if p, ok := w.strs[text]; ok {
			ptr = p
		} else {
			ptr = w.allocate(n, 1)
			if w.err == nil {
				w.fail(w.mem.Write(ptr, []byte(text)))
			}
			w.strs[text] = ptr
		}
	}
	w.u32(addr, ptr)
	w.u32(addr+4, n)
}

// array writes a {ptr, len, cap} header for n elements of elem and calls
// each to fill element i at its guest address.
func (w *lowering) array(addr uint32, n int, elem layout.Info, each func(at uint32, i int)) {
	ptr := w.allocate(uint32(n)*elem.Size, elem.Align)
	for i := 0; i < n && w.err == nil; i++ {
		each(ptr+uint32(i)*elem.Size, i)
	}
	a := w.layout.array
	w.u32(addr+a.Offset("ptr"), ptr)
	w.u32(addr+a.Offset("len"), uint32(n))
	w.u32(addr+a.Offset("cap"), uint32(n))
}

// gameContext lowers c and returns its guest address
func (w *lowering) gameContext(c *snapshot.GameContext) (uint32, error) {
	l := w.layout.gameContext
	addr := w.allocate(l.Size, l.Align)

	w.u32(addr+l.Offset("ver_major"), c.VerMajor)
	w.u32(addr+l.Offset("ver_minor"), c.VerMinor)
	w.u32(addr+l.Offset("ver_release"), c.VerRelease)
	w.u32(addr+l.Offset("ver_build"), c.VerBuild)
	w.u8(addr+l.Offset("wad_version"), c.WADVersion)
	w.u8(addr+l.Offset("lts_branch"), uint8(c.Branch))
	w.flag(addr+l.Offset("short_circuit"), c.ShortCircuit)
	w.flag(addr+l.Offset("array_cow"), c.ArrayCOW)

	for i, names := range c.AssetNames() {
		w.array(addr+l.Offset(assetTableFields[i]), len(names), w.layout.str, func(at uint32, j int) {
			w.str(at, names[j])
		})
	}
	return addr, w.err
}

// code lowers c and its children and returns its guest address
func (w *lowering) code(c *snapshot.Code) (uint32, error) {
	l := w.layout.code
	addr := w.allocate(l.Size, l.Align)
	w.writeCode(addr, c)
	return addr, w.err
}

func (w *lowering) writeCode(addr uint32, c *snapshot.Code) {
	l := w.layout.code

	w.str(addr+l.Offset("name"), c.Name)
	instrs := c.Instructions.Slice()
	w.array(addr+l.Offset("instructions"), len(instrs), w.layout.instruction, func(at uint32, i int) {
		w.writeInstruction(at, &instrs[i])
	})
	children := c.Children.Slice()
	w.array(addr+l.Offset("children"), len(children), l, func(at uint32, i int) {
		w.writeCode(at, &children[i])
	})
	w.u32(addr+l.Offset("length"), c.Length)
	w.u32(addr+l.Offset("start_offset"), c.StartOffset)
	w.u16(addr+l.Offset("argument_count"), c.ArgumentCount)
	w.u16(addr+l.Offset("local_count"), c.LocalCount)
}

func (w *lowering) writeInstruction(addr uint32, in *snapshot.Instruction) {
	l := w.layout.instruction

	v := addr + l.Offset("variable")
	vl := w.layout.variable
	w.str(v+vl.Offset("name"), in.Variable.Name)
	w.u32(v+vl.Offset("variable_id"), uint32(in.Variable.VariableID))
	w.u16(v+vl.Offset("instance_type"), uint16(in.Variable.InstanceType))

	w.str(addr+l.Offset("function")+w.layout.function.Offset("name"), in.Function.Name)
	w.str(addr+l.Offset("value_string"), in.ValueString)
	w.u64(addr+l.Offset("value_double"), math.Float64bits(in.ValueDouble))
	w.u64(addr+l.Offset("value_long"), uint64(in.ValueLong))
	w.u32(addr+l.Offset("value_int"), uint32(in.ValueInt))
	w.u32(addr+l.Offset("branch_offset"), uint32(in.BranchOffset))
	w.u32(addr+l.Offset("argument_count"), uint32(in.ArgumentCount))
	w.u32(addr+l.Offset("asset_reference"), uint32(in.AssetReference))
	w.u16(addr+l.Offset("value_short"), uint16(in.ValueShort))
	w.u16(addr+l.Offset("extended_kind"), uint16(in.ExtendedKind))
	w.u16(addr+l.Offset("instance_type"), uint16(in.InstanceType))
	w.u8(addr+l.Offset("opcode"), in.Opcode)
	w.u8(addr+l.Offset("type1"), in.Type1)
	w.u8(addr+l.Offset("type2"), in.Type2)
	w.u8(addr+l.Offset("comparison_kind"), in.ComparisonKind)
	w.u8(addr+l.Offset("duplication_size"), in.DuplicationSize)
	w.u8(addr+l.Offset("duplication_size2"), in.DuplicationSize2)
	w.u8(addr+l.Offset("variable_type"), in.VariableType)
	w.u8(addr+l.Offset("pop_swap_size"), in.PopSwapSize)
	w.u8(addr+l.Offset("pop_with_context_exit"), in.PopWithContextExit)
}
