package snapshot

import (
	"runtime"

	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/gamedata"
)

// Function is a resolved function operand
type Function struct {
	Name ffi.Str
}

// NullFunction marks an instruction without a function operand
var NullFunction = Function{Name: ffi.EmptyStr}

// Exists reports whether f names a function
func (f Function) Exists() bool {
	return f.Name.Len() != 0
}

func newFunction(f *gamedata.Function) Function {
	return Function{Name: ffi.StrOf(f.Name)}
}

// Variable is a resolved variable operand
type Variable struct {
	Name         ffi.Str
	VariableID   int32
	InstanceType int16
}

// NullVariable marks an instruction without a variable operand
var NullVariable = Variable{Name: ffi.EmptyStr}

// Exists reports whether v names a variable
func (v Variable) Exists() bool {
	return v.Name.Len() != 0
}

// newVariable uses id 0 and instance type 0 when modern data is absent.
func newVariable(v *gamedata.Variable) Variable {
	out := Variable{Name: ffi.StrOf(v.Name)}
	if v.Modern != nil {
		out.VariableID = v.Modern.ID
		out.InstanceType = v.Modern.InstanceType.Build()
	}
	return out
}

func (v *Variable) pin(p *runtime.Pinner) {
	v.Name.Pin(p)
}
