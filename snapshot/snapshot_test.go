package snapshot

import (
	"errors"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	gmerrors "github.com/wippyai/gmdecomp/errors"
	"github.com/wippyai/gmdecomp/gamedata"
)

func parent(ref gamedata.CodeRef) *gamedata.CodeRef {
	return &ref
}

func testData() *gamedata.Data {
	return &gamedata.Data{
		General: gamedata.GeneralInfo{
			Name:       "test",
			Version:    gamedata.Version{Major: 2023, Minor: 4, Release: 1, Build: 7, Branch: gamedata.BranchPostLTS},
			WADVersion: 17,
		},
		Objects:   []gamedata.Asset{{Name: "obj_a"}, {Name: "obj_b"}},
		Scripts:   []gamedata.Asset{{Name: "scr_main"}},
		Functions: []gamedata.Function{{Name: "show_message"}},
		Variables: []gamedata.Variable{
			{Name: "hp", Modern: &gamedata.VariableModern{ID: 9, InstanceType: gamedata.InstanceSelf}},
		},
		Codes: []gamedata.Code{
			{
				Name: "gml_Script_main",
				Instructions: []gamedata.Instruction{
					gamedata.Push{Value: gamedata.PushDouble(1)},
					gamedata.Call{Function: 0, ArgumentCount: 1},
					gamedata.Return{},
				},
				Modern: &gamedata.CodeModern{ArgumentCount: 1, LocalCount: 2},
			},
			{
				Name:         "gml_Script_inner_a",
				Instructions: []gamedata.Instruction{gamedata.Exit{}},
				Modern:       &gamedata.CodeModern{Offset: 16, Parent: parent(0)},
			},
			{
				Name:         "gml_Script_other",
				Instructions: []gamedata.Instruction{gamedata.Exit{}},
				Modern:       &gamedata.CodeModern{},
			},
			{
				Name:         "gml_Script_inner_b",
				Instructions: []gamedata.Instruction{gamedata.Branch{Op: gamedata.OpBranch, Offset: -3}},
				Modern:       &gamedata.CodeModern{Offset: 20, Parent: parent(0)},
			},
		},
	}
}

func TestBuildInstruction_PushDouble(t *testing.T) {
	data := &gamedata.Data{
		Codes: []gamedata.Code{{
			Name:         "gml_Script_test",
			Instructions: []gamedata.Instruction{gamedata.Push{Value: gamedata.PushDouble(3.14)}},
		}},
	}

	code, err := BuildCode(0, data)
	if err != nil {
		t.Fatalf("BuildCode: %v", err)
	}
	defer code.Release()

	if code.Name.String() != "gml_Script_test" {
		t.Errorf("Name = %q", code.Name.String())
	}
	if code.Instructions.Len() != 1 {
		t.Fatalf("len(Instructions) = %d, want 1", code.Instructions.Len())
	}
	in := code.Instructions.At(0)
	if in.ValueDouble != 3.14 {
		t.Errorf("ValueDouble = %v, want 3.14", in.ValueDouble)
	}
	if in.ValueString.Len() != 0 || in.ValueInt != 0 || in.ValueLong != 0 || in.ValueShort != 0 {
		t.Errorf("non-double fields not zero: %+v", in)
	}
	if in.Opcode != uint8(gamedata.OpPush) || in.Type1 != uint8(gamedata.TypeDouble) {
		t.Errorf("Opcode/Type1 = %#x/%d", in.Opcode, in.Type1)
	}
	if in.Function.Exists() || in.Variable.Exists() {
		t.Error("push.d should carry null function and variable")
	}
	if code.Length != 12 {
		t.Errorf("Length = %d, want 12", code.Length)
	}
	if code.Children.Len() != 0 {
		t.Errorf("Children = %d, want 0", code.Children.Len())
	}
}

func TestBuildInstruction_Fields(t *testing.T) {
	data := testData()
	hp := gamedata.CodeVariable{Variable: 0, Type: gamedata.VarArray, InstanceType: gamedata.InstanceOther}

	tests := []struct {
		name  string
		instr gamedata.Instruction
		check func(t *testing.T, in Instruction)
	}{
		{"branch offset in bytes", gamedata.Branch{Op: gamedata.OpBranchTrue, Offset: -3}, func(t *testing.T, in Instruction) {
			if in.BranchOffset != -12 {
				t.Errorf("BranchOffset = %d, want -12", in.BranchOffset)
			}
		}},
		{"pop variable", gamedata.Pop{Variable: hp, Type1: gamedata.TypeVariable, Type2: gamedata.TypeInt32}, func(t *testing.T, in Instruction) {
			if in.Variable.Name.String() != "hp" || in.Variable.VariableID != 9 || in.Variable.InstanceType != -1 {
				t.Errorf("Variable = %q %d %d", in.Variable.Name.String(), in.Variable.VariableID, in.Variable.InstanceType)
			}
			if in.InstanceType != -2 || in.VariableType != 0x00 {
				t.Errorf("InstanceType/VariableType = %d/%#x", in.InstanceType, in.VariableType)
			}
			if in.Type2 != uint8(gamedata.TypeInt32) {
				t.Errorf("Type2 = %d", in.Type2)
			}
		}},
		{"call", gamedata.Call{Function: 0, ArgumentCount: 3}, func(t *testing.T, in Instruction) {
			if in.Function.Name.String() != "show_message" || in.ArgumentCount != 3 {
				t.Errorf("Function/ArgumentCount = %q/%d", in.Function.Name.String(), in.ArgumentCount)
			}
		}},
		{"pop swap array", gamedata.PopSwap{IsArray: true}, func(t *testing.T, in Instruction) {
			if in.PopSwapSize != 6 {
				t.Errorf("PopSwapSize = %d, want 6", in.PopSwapSize)
			}
		}},
		{"pop swap", gamedata.PopSwap{}, func(t *testing.T, in Instruction) {
			if in.PopSwapSize != 5 {
				t.Errorf("PopSwapSize = %d, want 5", in.PopSwapSize)
			}
		}},
		{"popenv exit", gamedata.PopWithContextExit{}, func(t *testing.T, in Instruction) {
			if in.PopWithContextExit != 1 || in.Opcode != uint8(gamedata.OpPopEnv) {
				t.Errorf("PopWithContextExit/Opcode = %d/%#x", in.PopWithContextExit, in.Opcode)
			}
		}},
		{"pushi", gamedata.PushImmediate{Integer: -7}, func(t *testing.T, in Instruction) {
			if in.ValueShort != -7 {
				t.Errorf("ValueShort = %d", in.ValueShort)
			}
		}},
		{"push int16", gamedata.Push{Value: gamedata.PushInt16(12)}, func(t *testing.T, in Instruction) {
			if in.ValueShort != 12 {
				t.Errorf("ValueShort = %d", in.ValueShort)
			}
		}},
		{"push string", gamedata.Push{Value: gamedata.PushString("hi")}, func(t *testing.T, in Instruction) {
			if in.ValueString.String() != "hi" {
				t.Errorf("ValueString = %q", in.ValueString.String())
			}
		}},
		{"dup swap", gamedata.DuplicateSwap{Type: gamedata.TypeVariable, Size1: 2, Size2: 3}, func(t *testing.T, in Instruction) {
			if in.DuplicationSize != 2 || in.DuplicationSize2 != 3 {
				t.Errorf("dup sizes = %d/%d", in.DuplicationSize, in.DuplicationSize2)
			}
		}},
		{"compare", gamedata.Compare{Lhs: gamedata.TypeInt32, Rhs: gamedata.TypeDouble, Comparison: gamedata.CompareNE}, func(t *testing.T, in Instruction) {
			if in.ComparisonKind != 4 {
				t.Errorf("ComparisonKind = %d", in.ComparisonKind)
			}
		}},
		{"pushref", gamedata.PushReference{Asset: gamedata.AssetReference{Type: gamedata.AssetRoom, Index: 5}}, func(t *testing.T, in Instruction) {
			if in.AssetReference != 3<<24|5 || in.ExtendedKind != -11 {
				t.Errorf("AssetReference/ExtendedKind = %#x/%d", in.AssetReference, in.ExtendedKind)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := BuildInstruction(tt.instr, data)
			if err != nil {
				t.Fatalf("BuildInstruction: %v", err)
			}
			tt.check(t, in)
		})
	}
}

func TestBuildInstruction_InvalidReference(t *testing.T) {
	data := testData()

	_, err := BuildInstruction(gamedata.Call{Function: 4}, data)
	if !errors.Is(err, &gmerrors.Error{Phase: gmerrors.PhaseConvert, Kind: gmerrors.KindInvalidReference}) {
		t.Fatalf("error = %v, want invalid reference", err)
	}
	if !strings.Contains(err.Error(), "function #4") {
		t.Errorf("error %q should name the function index", err)
	}

	_, err = BuildInstruction(gamedata.PushVariable{Op: gamedata.OpPushLocal, Variable: gamedata.CodeVariable{Variable: 2}}, data)
	if err == nil || !strings.Contains(err.Error(), "variable #2") {
		t.Errorf("error = %v, want variable #2", err)
	}
}

func TestBuildCode_Children(t *testing.T) {
	data := testData()

	code, err := BuildCode(0, data)
	if err != nil {
		t.Fatalf("BuildCode: %v", err)
	}
	defer code.Release()

	refs := FindChildren(0, data)
	if len(refs) != 2 || refs[0] != 1 || refs[1] != 3 {
		t.Fatalf("FindChildren = %v, want [1 3]", refs)
	}
	if code.Children.Len() != len(refs) {
		t.Fatalf("Children = %d, want %d", code.Children.Len(), len(refs))
	}
	for i, ref := range refs {
		if got, want := code.Children.At(i).Name.String(), data.Codes[ref].Name; got != want {
			t.Errorf("child %d = %q, want %q", i, got, want)
		}
	}

	if code.ArgumentCount != 1 || code.LocalCount != 2 {
		t.Errorf("ArgumentCount/LocalCount = %d/%d", code.ArgumentCount, code.LocalCount)
	}
	if code.Length != 12+8+4 {
		t.Errorf("Length = %d, want 24", code.Length)
	}
	if b := code.Children.At(1); b.StartOffset != 20 || b.Instructions.At(0).BranchOffset != -12 {
		t.Errorf("child b offset/branch = %d/%d", b.StartOffset, b.Instructions.At(0).BranchOffset)
	}
}

func TestBuildCode_NoChildrenBeforeWAD15(t *testing.T) {
	data := testData()
	data.General.WADVersion = 14

	if refs := FindChildren(0, data); len(refs) != 0 {
		t.Errorf("FindChildren = %v, want none", refs)
	}
	code, err := BuildCode(0, data)
	if err != nil {
		t.Fatalf("BuildCode: %v", err)
	}
	defer code.Release()
	if code.Children.Len() != 0 {
		t.Errorf("Children = %d, want 0", code.Children.Len())
	}
}

func TestBuildCode_Errors(t *testing.T) {
	data := testData()

	if _, err := BuildCode(10, data); err == nil || !strings.Contains(err.Error(), "code #10") {
		t.Errorf("BuildCode(10) error = %v", err)
	}

	data.Codes[3].Instructions = append(data.Codes[3].Instructions, gamedata.Call{Function: 8})
	if _, err := BuildCode(0, data); err == nil || !strings.Contains(err.Error(), "function #8") {
		t.Errorf("child reference error = %v", err)
	}

	cyclic := testData()
	cyclic.Codes[0].Modern.Parent = parent(1)
	if _, err := BuildCode(0, cyclic); !errors.Is(err, &gmerrors.Error{Phase: gmerrors.PhaseConvert, Kind: gmerrors.KindInvalidInput}) {
		t.Errorf("cycle error = %v", err)
	}
}

func TestNewGameContext(t *testing.T) {
	data := testData()

	ctx, err := NewGameContext(data)
	if err != nil {
		t.Fatalf("NewGameContext: %v", err)
	}
	defer ctx.Release()

	if ctx.VerMajor != 2023 || ctx.VerMinor != 4 || ctx.VerRelease != 1 || ctx.VerBuild != 7 {
		t.Errorf("version = %d.%d.%d.%d", ctx.VerMajor, ctx.VerMinor, ctx.VerRelease, ctx.VerBuild)
	}
	if ctx.WADVersion != 17 || ctx.Branch != RawBranchPost2022 {
		t.Errorf("WAD/Branch = %d/%d", ctx.WADVersion, ctx.Branch)
	}

	names := ctx.AssetNames()
	lists := data.AssetLists()
	for i := range lists {
		if len(names[i]) != len(lists[i]) {
			t.Fatalf("table %d: %d names, want %d", i, len(names[i]), len(lists[i]))
		}
		for j := range lists[i] {
			if names[i][j].String() != lists[i][j].Name {
				t.Errorf("table %d[%d] = %q, want %q", i, j, names[i][j].String(), lists[i][j].Name)
			}
		}
	}
	if !ctx.ShortCircuit || ctx.ArrayCOW {
		t.Errorf("ShortCircuit/ArrayCOW = %v/%v, want true/false", ctx.ShortCircuit, ctx.ArrayCOW)
	}
}

func TestScanShortCircuit(t *testing.T) {
	data := testData()
	if !ScanShortCircuit(data) {
		t.Error("corpus without and.b.b should report short-circuit")
	}

	data.Codes[2].Instructions = append(data.Codes[2].Instructions,
		gamedata.Binary{Op: gamedata.OpAnd, Lhs: gamedata.TypeBoolean, Rhs: gamedata.TypeBoolean})
	if ScanShortCircuit(data) {
		t.Error("and.b.b should disable short-circuit")
	}

	mixed := testData()
	mixed.Codes[2].Instructions = append(mixed.Codes[2].Instructions,
		gamedata.Binary{Op: gamedata.OpOr, Lhs: gamedata.TypeBoolean, Rhs: gamedata.TypeInt32})
	if !ScanShortCircuit(mixed) {
		t.Error("or.b.i should not disable short-circuit")
	}
}

func TestScanArrayCopyOnWrite(t *testing.T) {
	data := testData()
	if ScanArrayCopyOnWrite(data) {
		t.Error("no setowner, want false")
	}
	data.Codes[1].Instructions = append(data.Codes[1].Instructions, gamedata.Extended{Kind: gamedata.ExtSetArrayOwner})
	if !ScanArrayCopyOnWrite(data) {
		t.Error("setowner present, want true")
	}
}

func TestRelease(t *testing.T) {
	data := testData()
	code, err := BuildCode(0, data)
	if err != nil {
		t.Fatalf("BuildCode: %v", err)
	}
	code.Release()
	if code.Instructions.Len() != 0 || code.Children.Len() != 0 {
		t.Error("Release should clear arrays")
	}
	code.Release()
}

func TestPin(t *testing.T) {
	data := testData()
	ctx, _ := NewGameContext(data)
	code, err := BuildCode(0, data)
	if err != nil {
		t.Fatalf("BuildCode: %v", err)
	}

	var p runtime.Pinner
	ctx.Pin(&p)
	code.Pin(&p)
	p.Unpin()
}

func TestLayout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout offsets are for 64-bit targets")
	}

	var in Instruction
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Function", unsafe.Offsetof(in.Function), 24},
		{"ValueString", unsafe.Offsetof(in.ValueString), 40},
		{"ValueDouble", unsafe.Offsetof(in.ValueDouble), 56},
		{"ValueInt", unsafe.Offsetof(in.ValueInt), 72},
		{"ValueShort", unsafe.Offsetof(in.ValueShort), 88},
		{"Opcode", unsafe.Offsetof(in.Opcode), 94},
		{"PopWithContextExit", unsafe.Offsetof(in.PopWithContextExit), 102},
		{"sizeof(Instruction)", unsafe.Sizeof(in), 104},
		{"sizeof(Code)", unsafe.Sizeof(Code{}), 80},
		{"GameContext.ObjectNames", unsafe.Offsetof(GameContext{}.ObjectNames), 24},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("%s = %d, want %d", o.name, o.got, o.want)
		}
	}
}
