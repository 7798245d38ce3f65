package gamedata

// Instruction is one bytecode instruction. The set of implementations is
// closed; switch on the concrete type to inspect operands.
type Instruction interface {
	instruction()
}

// CodeVariable is a variable operand of push and pop instructions
type CodeVariable struct {
	Variable     VariableRef
	Type         VariableType
	InstanceType InstanceType
}

// Convert converts the top of the stack from one type to another
type Convert struct {
	From DataType
	To   DataType
}

// Binary is an arithmetic, bitwise or logical operation on two operands
type Binary struct {
	Op  Opcode
	Lhs DataType
	Rhs DataType
}

// Unary is neg or not
type Unary struct {
	Op   Opcode
	Type DataType
}

// Compare compares two operands
type Compare struct {
	Lhs        DataType
	Rhs        DataType
	Comparison ComparisonType
}

// Pop stores the top of the stack into a variable
type Pop struct {
	Variable CodeVariable
	Type1    DataType
	Type2    DataType
}

// PopSwap swaps stack entries for array assignment
type PopSwap struct {
	IsArray bool
}

// Duplicate duplicates stack entries
type Duplicate struct {
	Type DataType
	Size uint8
}

// DuplicateSwap swaps two groups of stack entries
type DuplicateSwap struct {
	Type  DataType
	Size1 uint8
	Size2 uint8
}

// Return returns the top of the stack
type Return struct{}

// Exit returns without a value
type Exit struct{}

// PopDiscard discards the top of the stack
type PopDiscard struct {
	Type DataType
}

// Branch is a jump or an environment change. Offset is measured in
// instruction slots from this instruction.
type Branch struct {
	Op     Opcode
	Offset int32
}

// PopWithContextExit leaves a with-block early
type PopWithContextExit struct{}

// Push pushes a constant, variable or function reference
type Push struct {
	Value PushValue
}

// PushVariable pushes a local, global or builtin variable
type PushVariable struct {
	Op       Opcode
	Variable CodeVariable
}

// PushImmediate pushes a 16-bit integer encoded in the instruction
type PushImmediate struct {
	Integer int16
}

// Call calls a function
type Call struct {
	Function      FunctionRef
	ArgumentCount uint16
}

// CallVariable calls the function on the top of the stack
type CallVariable struct {
	ArgumentCount uint16
}

// Extended is an operand-less extended instruction
type Extended struct {
	Kind ExtendedKind
}

// PushReference pushes an asset reference
type PushReference struct {
	Asset AssetReference
}

func (Convert) instruction()            {}
func (Binary) instruction()             {}
func (Unary) instruction()              {}
func (Compare) instruction()            {}
func (Pop) instruction()                {}
func (PopSwap) instruction()            {}
func (Duplicate) instruction()          {}
func (DuplicateSwap) instruction()      {}
func (Return) instruction()             {}
func (Exit) instruction()               {}
func (PopDiscard) instruction()         {}
func (Branch) instruction()             {}
func (PopWithContextExit) instruction() {}
func (Push) instruction()               {}
func (PushVariable) instruction()       {}
func (PushImmediate) instruction()      {}
func (Call) instruction()               {}
func (CallVariable) instruction()       {}
func (Extended) instruction()           {}
func (PushReference) instruction()      {}

// PushValue is the operand of a Push instruction
type PushValue interface {
	DataType() DataType
}

type (
	PushString   string
	PushDouble   float64
	PushInt64    int64
	PushInt32    int32
	PushInt16    int16
	PushVar      CodeVariable
	PushFunction FunctionRef
)

func (PushString) DataType() DataType   { return TypeString }
func (PushDouble) DataType() DataType   { return TypeDouble }
func (PushInt64) DataType() DataType    { return TypeInt64 }
func (PushInt32) DataType() DataType    { return TypeInt32 }
func (PushInt16) DataType() DataType    { return TypeInt16 }
func (PushVar) DataType() DataType      { return TypeVariable }
func (PushFunction) DataType() DataType { return TypeInt32 }

// JumpOffset returns the branch offset in instruction slots
func JumpOffset(instr Instruction) (int32, bool) {
	if b, ok := instr.(Branch); ok {
		return b.Offset, true
	}
	return 0, false
}

// CodeVariableOf returns the variable operand
func CodeVariableOf(instr Instruction) (CodeVariable, bool) {
	switch i := instr.(type) {
	case Pop:
		return i.Variable, true
	case PushVariable:
		return i.Variable, true
	case Push:
		if v, ok := i.Value.(PushVar); ok {
			return CodeVariable(v), true
		}
	}
	return CodeVariable{}, false
}

// FunctionOf returns the function operand
func FunctionOf(instr Instruction) (FunctionRef, bool) {
	switch i := instr.(type) {
	case Call:
		return i.Function, true
	case Push:
		if f, ok := i.Value.(PushFunction); ok {
			return FunctionRef(f), true
		}
	}
	return 0, false
}

// ExtendedKindOf returns the extended opcode kind
func ExtendedKindOf(instr Instruction) (ExtendedKind, bool) {
	switch i := instr.(type) {
	case Extended:
		return i.Kind, true
	case PushReference:
		return ExtPushReference, true
	}
	return 0, false
}

// TypesOf returns the operand type tags. ok1 and ok2 report whether the
// instruction encodes each tag.
func TypesOf(instr Instruction) (t1 DataType, ok1 bool, t2 DataType, ok2 bool) {
	switch i := instr.(type) {
	case Convert:
		return i.From, true, i.To, true
	case Binary:
		return i.Lhs, true, i.Rhs, true
	case Compare:
		return i.Lhs, true, i.Rhs, true
	case Pop:
		return i.Type1, true, i.Type2, true
	case PopSwap:
		return TypeInt16, true, TypeVariable, true
	case Unary:
		return i.Type, true, 0, false
	case Duplicate:
		return i.Type, true, 0, false
	case DuplicateSwap:
		return i.Type, true, 0, false
	case PopDiscard:
		return i.Type, true, 0, false
	case Return:
		return TypeVariable, true, 0, false
	case Exit:
		return TypeInt32, true, 0, false
	case Push:
		return i.Value.DataType(), true, 0, false
	case PushVariable:
		return TypeVariable, true, 0, false
	case PushImmediate:
		return TypeInt16, true, 0, false
	case Call:
		return TypeInt32, true, 0, false
	case CallVariable:
		return TypeVariable, true, 0, false
	case Extended:
		return TypeInt16, true, 0, false
	case PushReference:
		return TypeInt32, true, 0, false
	}
	return 0, false, 0, false
}

// OpcodeOf returns the primary opcode byte
func OpcodeOf(instr Instruction) Opcode {
	switch i := instr.(type) {
	case Convert:
		return OpConvert
	case Binary:
		return i.Op
	case Unary:
		return i.Op
	case Compare:
		return OpCompare
	case Pop, PopSwap:
		return OpPop
	case Duplicate, DuplicateSwap:
		return OpDuplicate
	case Return:
		return OpReturn
	case Exit:
		return OpExit
	case PopDiscard:
		return OpPopDiscard
	case Branch:
		return i.Op
	case PopWithContextExit:
		return OpPopEnv
	case Push:
		return OpPush
	case PushVariable:
		return i.Op
	case PushImmediate:
		return OpPushImmed
	case Call:
		return OpCall
	case CallVariable:
		return OpCallVariable
	case Extended, PushReference:
		return OpExtended
	}
	return 0
}

// Size returns the encoded size in bytes
func Size(instr Instruction) uint32 {
	switch i := instr.(type) {
	case Push:
		switch i.Value.(type) {
		case PushDouble, PushInt64:
			return 12
		case PushInt16:
			return 4
		default:
			return 8
		}
	case Pop, PushVariable, Call, PushReference:
		return 8
	}
	return 4
}
