package snapshot

import (
	"runtime"

	"github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/gamedata"
)

// Code is a bytecode entry with its instructions and nested child entries
type Code struct {
	Name          ffi.Str
	Instructions  ffi.Array[Instruction]
	Children      ffi.Array[Code]
	Length        uint32
	StartOffset   uint32
	ArgumentCount uint16
	LocalCount    uint16
}

// BuildCode builds the snapshot of the code entry ref, including every
// child entry, recursively.
func BuildCode(ref gamedata.CodeRef, data *gamedata.Data) (*Code, error) {
	c, err := buildCode(ref, data, 0)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func buildCode(ref gamedata.CodeRef, data *gamedata.Data, depth int) (Code, error) {
	src, err := data.Code(ref)
	if err != nil {
		return Code{}, err
	}
	if depth > len(data.Codes) {
		return Code{}, errors.New(errors.PhaseConvert, errors.KindInvalidInput).
			Path("code", src.Name).
			Detail("parent links form a cycle").
			Build()
	}

	instrs := make([]Instruction, 0, len(src.Instructions))
	var length uint32
	for _, instr := range src.Instructions {
		out, err := BuildInstruction(instr, data)
		if err != nil {
			return Code{}, err
		}
		instrs = append(instrs, out)
		length += gamedata.Size(instr)
	}

	refs := FindChildren(ref, data)
	children := make([]Code, 0, len(refs))
	for _, child := range refs {
		c, err := buildCode(child, data, depth+1)
		if err != nil {
			for i := range children {
				children[i].Release()
			}
			return Code{}, err
		}
		children = append(children, c)
	}

	code := Code{
		Name:         ffi.StrOf(src.Name),
		Instructions: ffi.FromSlice(instrs),
		Children:     ffi.FromSlice(children),
		Length:       length,
	}
	if m := src.Modern; m != nil {
		code.StartOffset = m.Offset
		code.ArgumentCount = m.ArgumentCount
		code.LocalCount = m.LocalCount
	}
	return code, nil
}

// FindChildren returns the entries whose parent is ref, in code table
// order. Entries have no children before WAD 15.
func FindChildren(ref gamedata.CodeRef, data *gamedata.Data) []gamedata.CodeRef {
	if data.General.WADVersion < 15 {
		return nil
	}
	var out []gamedata.CodeRef
	for i := range data.Codes {
		if parent, ok := data.Codes[i].Parent(); ok && parent == ref {
			out = append(out, gamedata.CodeRef(i))
		}
	}
	return out
}

// Pin pins c and everything reachable from it.
func (c *Code) Pin(p *runtime.Pinner) {
	p.Pin(c)
	c.pin(p)
}

func (c *Code) pin(p *runtime.Pinner) {
	c.Name.Pin(p)
	c.Instructions.Pin(p)
	for i := range c.Instructions.Len() {
		c.Instructions.At(i).pin(p)
	}
	c.Children.Pin(p)
	for i := range c.Children.Len() {
		c.Children.At(i).pin(p)
	}
}

// Release returns the instruction and child arrays, recursively.
func (c *Code) Release() {
	for _, child := range c.Children.Release() {
		child.Release()
	}
	c.Instructions.Release()
}
