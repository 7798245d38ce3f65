package gamedata

import (
	"strconv"
	"strings"

	"github.com/wippyai/gmdecomp/errors"
)

// symbols resolves operand names against the function and variable tables
type symbols struct {
	functions map[string]FunctionRef
	variables map[string][]VariableRef
	data      *Data
}

func newSymbols(d *Data) *symbols {
	s := &symbols{
		functions: make(map[string]FunctionRef, len(d.Functions)),
		variables: make(map[string][]VariableRef, len(d.Variables)),
		data:      d,
	}
	for i, f := range d.Functions {
		if _, dup := s.functions[f.Name]; !dup {
			s.functions[f.Name] = FunctionRef(i)
		}
	}
	for i, v := range d.Variables {
		s.variables[v.Name] = append(s.variables[v.Name], VariableRef(i))
	}
	return s
}

func (s *symbols) function(name string) (FunctionRef, error) {
	if idx, ok, err := tableIndex(name); ok {
		return FunctionRef(idx), err
	}
	ref, ok := s.functions[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseParse, "function", name)
	}
	return ref, nil
}

// variable prefers an entry whose instance type matches inst.
func (s *symbols) variable(name string, inst InstanceType) (VariableRef, error) {
	if idx, ok, err := tableIndex(name); ok {
		return VariableRef(idx), err
	}
	refs := s.variables[name]
	if len(refs) == 0 {
		return 0, errors.NotFound(errors.PhaseParse, "variable", name)
	}
	for _, ref := range refs {
		v := &s.data.Variables[ref]
		if v.Modern != nil && v.Modern.InstanceType == inst {
			return ref, nil
		}
	}
	return refs[0], nil
}

// tableIndex parses a "#n" table index operand.
func tableIndex(s string) (uint32, bool, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, true, invalid("bad table index %q", s)
	}
	return uint32(n), true, nil
}

func invalid(format string, args ...any) *errors.Error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).Detail(format, args...).Build()
}

var binaryOps = map[string]Opcode{
	"mul": OpMultiply, "div": OpDivide, "rem": OpRemainder, "mod": OpModulus,
	"add": OpAdd, "sub": OpSubtract, "and": OpAnd, "or": OpOr, "xor": OpXor,
	"shl": OpShiftLeft, "shr": OpShiftRight,
}

var branchOps = map[string]Opcode{
	"b": OpBranch, "bt": OpBranchTrue, "bf": OpBranchFalse,
	"pushenv": OpPushEnv, "popenv": OpPopEnv,
}

var pushVariableOps = map[string]Opcode{
	"pushloc": OpPushLocal, "pushglb": OpPushGlobal, "pushbltn": OpPushBuiltin,
}

// assemble parses one instruction mnemonic such as "push.d 3.14" or
// "pop.v.v [array]self.items".
func (s *symbols) assemble(line string) (Instruction, error) {
	line = strings.TrimSpace(line)
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	parts := strings.Split(head, ".")
	name := parts[0]

	types := make([]DataType, 0, 2)
	for _, p := range parts[1:] {
		if len(p) != 1 {
			return nil, invalid("bad type suffix %q in %q", p, head)
		}
		t, ok := typeLetters[p[0]]
		if !ok {
			return nil, invalid("unknown type %q in %q", p, head)
		}
		types = append(types, t)
	}
	args := strings.Fields(rest)

	need := func(nt, na int) error {
		if len(types) != nt {
			return invalid("%s takes %d type(s), got %d", name, nt, len(types))
		}
		if na >= 0 && len(args) != na {
			return invalid("%s takes %d operand(s), got %d", name, na, len(args))
		}
		return nil
	}

	if op, ok := binaryOps[name]; ok {
		if err := need(2, 0); err != nil {
			return nil, err
		}
		return Binary{Op: op, Lhs: types[0], Rhs: types[1]}, nil
	}
	if op, ok := branchOps[name]; ok {
		if err := need(0, 1); err != nil {
			return nil, err
		}
		if op == OpPopEnv && args[0] == "exit" {
			return PopWithContextExit{}, nil
		}
		off, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return nil, invalid("bad branch offset %q", args[0])
		}
		return Branch{Op: op, Offset: int32(off)}, nil
	}
	if op, ok := pushVariableOps[name]; ok {
		if err := need(1, 1); err != nil {
			return nil, err
		}
		v, err := s.codeVariable(args[0])
		if err != nil {
			return nil, err
		}
		return PushVariable{Op: op, Variable: v}, nil
	}
	if kind, ok := extendedMnemonics[name]; ok {
		if len(types) > 1 || len(args) != 0 {
			return nil, invalid("%s takes no operands", name)
		}
		return Extended{Kind: kind}, nil
	}

	switch name {
	case "conv":
		if err := need(2, 0); err != nil {
			return nil, err
		}
		return Convert{From: types[0], To: types[1]}, nil

	case "neg", "not":
		if err := need(1, 0); err != nil {
			return nil, err
		}
		op := OpNegate
		if name == "not" {
			op = OpNot
		}
		return Unary{Op: op, Type: types[0]}, nil

	case "cmp":
		if err := need(2, 1); err != nil {
			return nil, err
		}
		c, ok := comparisonNames[strings.ToUpper(args[0])]
		if !ok {
			return nil, invalid("unknown comparison %q", args[0])
		}
		return Compare{Lhs: types[0], Rhs: types[1], Comparison: c}, nil

	case "pop":
		if err := need(2, 1); err != nil {
			return nil, err
		}
		if types[0] == TypeInt16 && types[1] == TypeVariable {
			switch args[0] {
			case "5":
				return PopSwap{IsArray: false}, nil
			case "6":
				return PopSwap{IsArray: true}, nil
			}
			return nil, invalid("pop swap size must be 5 or 6, got %q", args[0])
		}
		v, err := s.codeVariable(args[0])
		if err != nil {
			return nil, err
		}
		return Pop{Variable: v, Type1: types[0], Type2: types[1]}, nil

	case "dup":
		if err := need(1, -1); err != nil {
			return nil, err
		}
		if len(args) < 1 || len(args) > 2 {
			return nil, invalid("dup takes 1 or 2 operands, got %d", len(args))
		}
		n, err := parseUint8(args[0])
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return Duplicate{Type: types[0], Size: n}, nil
		}
		m, err := parseUint8(args[1])
		if err != nil {
			return nil, err
		}
		return DuplicateSwap{Type: types[0], Size1: n, Size2: m}, nil

	case "ret":
		if err := need(1, 0); err != nil {
			return nil, err
		}
		return Return{}, nil

	case "exit":
		if err := need(1, 0); err != nil {
			return nil, err
		}
		return Exit{}, nil

	case "popz":
		if err := need(1, 0); err != nil {
			return nil, err
		}
		return PopDiscard{Type: types[0]}, nil

	case "push":
		if err := need(1, -1); err != nil {
			return nil, err
		}
		if rest == "" {
			return nil, invalid("push needs a value")
		}
		v, err := s.pushValue(types[0], rest)
		if err != nil {
			return nil, err
		}
		return Push{Value: v}, nil

	case "pushi":
		if err := need(1, 1); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(args[0], 10, 16)
		if err != nil {
			return nil, invalid("bad immediate %q", args[0])
		}
		return PushImmediate{Integer: int16(n)}, nil

	case "call":
		if err := need(1, 2); err != nil {
			return nil, err
		}
		fn, err := s.function(args[0])
		if err != nil {
			return nil, err
		}
		argc, err := parseUint16(args[1])
		if err != nil {
			return nil, err
		}
		return Call{Function: fn, ArgumentCount: argc}, nil

	case "callv":
		if err := need(1, 1); err != nil {
			return nil, err
		}
		argc, err := parseUint16(args[0])
		if err != nil {
			return nil, err
		}
		return CallVariable{ArgumentCount: argc}, nil

	case "pushref":
		if len(args) != 2 {
			return nil, invalid("pushref takes a type and an index")
		}
		at, ok := assetTypeNames[args[0]]
		if !ok {
			n, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return nil, invalid("unknown asset type %q", args[0])
			}
			at = AssetType(n)
		}
		idx, err := strconv.ParseUint(args[1], 10, 24)
		if err != nil {
			return nil, invalid("bad asset index %q", args[1])
		}
		return PushReference{Asset: AssetReference{Type: at, Index: uint32(idx)}}, nil
	}

	return nil, invalid("unknown mnemonic %q", head)
}

func (s *symbols) pushValue(t DataType, operand string) (PushValue, error) {
	switch t {
	case TypeString:
		str, err := strconv.Unquote(operand)
		if err != nil {
			return nil, invalid("bad string literal %s", operand)
		}
		return PushString(str), nil
	case TypeDouble:
		f, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return nil, invalid("bad double %q", operand)
		}
		return PushDouble(f), nil
	case TypeInt64:
		n, err := strconv.ParseInt(operand, 10, 64)
		if err != nil {
			return nil, invalid("bad int64 %q", operand)
		}
		return PushInt64(n), nil
	case TypeInt32:
		if fn, ok := strings.CutPrefix(operand, "@"); ok {
			ref, err := s.function(fn)
			if err != nil {
				return nil, err
			}
			return PushFunction(ref), nil
		}
		n, err := strconv.ParseInt(operand, 10, 32)
		if err != nil {
			return nil, invalid("bad int32 %q", operand)
		}
		return PushInt32(n), nil
	case TypeInt16:
		n, err := strconv.ParseInt(operand, 10, 16)
		if err != nil {
			return nil, invalid("bad int16 %q", operand)
		}
		return PushInt16(n), nil
	case TypeVariable:
		v, err := s.codeVariable(operand)
		if err != nil {
			return nil, err
		}
		return PushVar(v), nil
	}
	return nil, invalid("cannot push type %s", t)
}

// codeVariable parses "[vartype]instance.name". The variable type defaults
// to normal; the instance is a name or a signed integer.
func (s *symbols) codeVariable(operand string) (CodeVariable, error) {
	cv := CodeVariable{Type: VarNormal}
	if strings.HasPrefix(operand, "[") {
		end := strings.IndexByte(operand, ']')
		if end < 0 {
			return cv, invalid("unterminated variable type in %q", operand)
		}
		vt, ok := variableTypeNames[operand[1:end]]
		if !ok {
			return cv, invalid("unknown variable type %q", operand[1:end])
		}
		cv.Type = vt
		operand = operand[end+1:]
	}

	inst, name, ok := strings.Cut(operand, ".")
	if !ok || name == "" {
		return cv, invalid("variable operand %q must be instance.name", operand)
	}
	if it, ok := instanceNames[inst]; ok {
		cv.InstanceType = it
	} else {
		n, err := strconv.ParseInt(inst, 10, 16)
		if err != nil {
			return cv, invalid("unknown instance %q", inst)
		}
		cv.InstanceType = InstanceType(n)
	}

	ref, err := s.variable(name, cv.InstanceType)
	if err != nil {
		return cv, err
	}
	cv.Variable = ref
	return cv, nil
}

func parseUint8(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, invalid("bad size %q", s)
	}
	return uint8(n), nil
}

func parseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, invalid("bad argument count %q", s)
	}
	return uint16(n), nil
}
