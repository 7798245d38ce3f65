package snapshot

import (
	"runtime"

	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/gamedata"
)

// Instruction is the flat form of a bytecode instruction. Fields that do
// not apply to the opcode are zero.
type Instruction struct {
	Variable       Variable
	Function       Function
	ValueString    ffi.Str
	ValueDouble    float64
	ValueLong      int64
	ValueInt       int32
	BranchOffset   int32
	ArgumentCount  int32
	AssetReference int32
	ValueShort     int16
	ExtendedKind   int16
	InstanceType   int16

	Opcode             uint8
	Type1              uint8
	Type2              uint8
	ComparisonKind     uint8
	DuplicationSize    uint8
	DuplicationSize2   uint8
	VariableType       uint8
	PopSwapSize        uint8
	PopWithContextExit uint8
}

// BuildInstruction flattens instr, resolving function and variable operands
// against data.
func BuildInstruction(instr gamedata.Instruction, data *gamedata.Data) (Instruction, error) {
	out := Instruction{
		Variable:    NullVariable,
		Function:    NullFunction,
		ValueString: ffi.EmptyStr,
		Opcode:      uint8(gamedata.OpcodeOf(instr)),
	}

	if cv, ok := gamedata.CodeVariableOf(instr); ok {
		v, err := data.Variable(cv.Variable)
		if err != nil {
			return Instruction{}, err
		}
		out.Variable = newVariable(v)
		out.InstanceType = cv.InstanceType.Build()
		out.VariableType = uint8(cv.Type)
	}
	if ref, ok := gamedata.FunctionOf(instr); ok {
		f, err := data.Function(ref)
		if err != nil {
			return Instruction{}, err
		}
		out.Function = newFunction(f)
	}
	if off, ok := gamedata.JumpOffset(instr); ok {
		out.BranchOffset = 4 * off
	}
	if kind, ok := gamedata.ExtendedKindOf(instr); ok {
		out.ExtendedKind = int16(kind)
	}
	if t1, ok1, t2, ok2 := gamedata.TypesOf(instr); ok1 || ok2 {
		out.Type1 = uint8(t1)
		out.Type2 = uint8(t2)
	}

	switch i := instr.(type) {
	case gamedata.Push:
		switch v := i.Value.(type) {
		case gamedata.PushString:
			out.ValueString = ffi.StrOf(string(v))
		case gamedata.PushDouble:
			out.ValueDouble = float64(v)
		case gamedata.PushInt64:
			out.ValueLong = int64(v)
		case gamedata.PushInt32:
			out.ValueInt = int32(v)
		case gamedata.PushInt16:
			out.ValueShort = int16(v)
		}
	case gamedata.PushImmediate:
		out.ValueShort = i.Integer
	case gamedata.Call:
		out.ArgumentCount = int32(i.ArgumentCount)
	case gamedata.CallVariable:
		out.ArgumentCount = int32(i.ArgumentCount)
	case gamedata.PushReference:
		out.AssetReference = int32(i.Asset.Build())
	case gamedata.Compare:
		out.ComparisonKind = uint8(i.Comparison)
	case gamedata.Duplicate:
		out.DuplicationSize = i.Size
	case gamedata.DuplicateSwap:
		out.DuplicationSize = i.Size1
		out.DuplicationSize2 = i.Size2
	case gamedata.PopSwap:
		out.PopSwapSize = 5
		if i.IsArray {
			out.PopSwapSize = 6
		}
	case gamedata.PopWithContextExit:
		out.PopWithContextExit = 1
	}

	return out, nil
}

func (i *Instruction) pin(p *runtime.Pinner) {
	i.Variable.pin(p)
	i.Function.Name.Pin(p)
	i.ValueString.Pin(p)
}
