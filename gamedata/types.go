package gamedata

import "fmt"

// Opcode is the primary opcode byte of a bytecode instruction
type Opcode uint8

const (
	OpConvert      Opcode = 0x07
	OpMultiply     Opcode = 0x08
	OpDivide       Opcode = 0x09
	OpRemainder    Opcode = 0x0A
	OpModulus      Opcode = 0x0B
	OpAdd          Opcode = 0x0C
	OpSubtract     Opcode = 0x0D
	OpAnd          Opcode = 0x0E
	OpOr           Opcode = 0x0F
	OpXor          Opcode = 0x10
	OpNegate       Opcode = 0x11
	OpNot          Opcode = 0x12
	OpShiftLeft    Opcode = 0x13
	OpShiftRight   Opcode = 0x14
	OpCompare      Opcode = 0x15
	OpPop          Opcode = 0x45
	OpPushImmed    Opcode = 0x84
	OpDuplicate    Opcode = 0x86
	OpCallVariable Opcode = 0x99
	OpReturn       Opcode = 0x9C
	OpExit         Opcode = 0x9D
	OpPopDiscard   Opcode = 0x9E
	OpBranch       Opcode = 0xB6
	OpBranchTrue   Opcode = 0xB7
	OpBranchFalse  Opcode = 0xB8
	OpPushEnv      Opcode = 0xBA
	OpPopEnv       Opcode = 0xBB
	OpPush         Opcode = 0xC0
	OpPushLocal    Opcode = 0xC1
	OpPushGlobal   Opcode = 0xC2
	OpPushBuiltin  Opcode = 0xC3
	OpCall         Opcode = 0xD9
	OpExtended     Opcode = 0xFF
)

var opcodeNames = map[Opcode]string{
	OpConvert: "conv", OpMultiply: "mul", OpDivide: "div", OpRemainder: "rem",
	OpModulus: "mod", OpAdd: "add", OpSubtract: "sub", OpAnd: "and", OpOr: "or",
	OpXor: "xor", OpNegate: "neg", OpNot: "not", OpShiftLeft: "shl",
	OpShiftRight: "shr", OpCompare: "cmp", OpPop: "pop", OpPushImmed: "pushi",
	OpDuplicate: "dup", OpCallVariable: "callv", OpReturn: "ret", OpExit: "exit",
	OpPopDiscard: "popz", OpBranch: "b", OpBranchTrue: "bt", OpBranchFalse: "bf",
	OpPushEnv: "pushenv", OpPopEnv: "popenv", OpPush: "push", OpPushLocal: "pushloc",
	OpPushGlobal: "pushglb", OpPushBuiltin: "pushbltn", OpCall: "call", OpExtended: "break",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("opcode(0x%02x)", uint8(o))
}

// ExtendedKind identifies an operand-less extended instruction
type ExtendedKind int16

const (
	ExtCheckArrayIndex       ExtendedKind = -1
	ExtPushArrayFinal        ExtendedKind = -2
	ExtPopArrayFinal         ExtendedKind = -3
	ExtPushArrayContainer    ExtendedKind = -4
	ExtSetArrayOwner         ExtendedKind = -5
	ExtHasStaticInitialized  ExtendedKind = -6
	ExtSetStaticInitialized  ExtendedKind = -7
	ExtSaveArrayReference    ExtendedKind = -8
	ExtRestoreArrayReference ExtendedKind = -9
	ExtIsNullishValue        ExtendedKind = -10
	ExtPushReference         ExtendedKind = -11
)

var extendedMnemonics = map[string]ExtendedKind{
	"chkindex":    ExtCheckArrayIndex,
	"pushaf":      ExtPushArrayFinal,
	"popaf":       ExtPopArrayFinal,
	"pushac":      ExtPushArrayContainer,
	"setowner":    ExtSetArrayOwner,
	"isstaticok":  ExtHasStaticInitialized,
	"setstatic":   ExtSetStaticInitialized,
	"savearef":    ExtSaveArrayReference,
	"restorearef": ExtRestoreArrayReference,
	"isnullish":   ExtIsNullishValue,
}

func (k ExtendedKind) String() string {
	for name, v := range extendedMnemonics {
		if v == k {
			return name
		}
	}
	if k == ExtPushReference {
		return "pushref"
	}
	return fmt.Sprintf("extended(%d)", int16(k))
}

// DataType is an operand type tag
type DataType uint8

const (
	TypeDouble   DataType = 0x0
	TypeFloat    DataType = 0x1
	TypeInt32    DataType = 0x2
	TypeInt64    DataType = 0x3
	TypeBoolean  DataType = 0x4
	TypeVariable DataType = 0x5
	TypeString   DataType = 0x6
	TypeInt16    DataType = 0xF
)

var typeLetters = map[byte]DataType{
	'd': TypeDouble,
	'f': TypeFloat,
	'i': TypeInt32,
	'l': TypeInt64,
	'b': TypeBoolean,
	'v': TypeVariable,
	's': TypeString,
	'e': TypeInt16,
}

func (t DataType) String() string {
	for letter, v := range typeLetters {
		if v == t {
			return string(letter)
		}
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ComparisonType is the relation tested by a compare instruction
type ComparisonType uint8

const (
	CompareLT ComparisonType = 1
	CompareLE ComparisonType = 2
	CompareEQ ComparisonType = 3
	CompareNE ComparisonType = 4
	CompareGE ComparisonType = 5
	CompareGT ComparisonType = 6
)

var comparisonNames = map[string]ComparisonType{
	"LT": CompareLT, "LTE": CompareLE, "EQ": CompareEQ,
	"NEQ": CompareNE, "GTE": CompareGE, "GT": CompareGT,
}

// InstanceType selects the instance a variable is resolved against
type InstanceType int16

const (
	InstanceUndefined InstanceType = 0
	InstanceSelf      InstanceType = -1
	InstanceOther     InstanceType = -2
	InstanceAll       InstanceType = -3
	InstanceNoone     InstanceType = -4
	InstanceGlobal    InstanceType = -5
	InstanceBuiltin   InstanceType = -6
	InstanceLocal     InstanceType = -7
	InstanceStackTop  InstanceType = -9
	InstanceArgument  InstanceType = -15
	InstanceStatic    InstanceType = -16
)

var instanceNames = map[string]InstanceType{
	"self": InstanceSelf, "other": InstanceOther, "all": InstanceAll,
	"noone": InstanceNoone, "global": InstanceGlobal, "builtin": InstanceBuiltin,
	"local": InstanceLocal, "stacktop": InstanceStackTop, "arg": InstanceArgument,
	"static": InstanceStatic,
}

// Build returns the wire value.
func (t InstanceType) Build() int16 {
	return int16(t)
}

// VariableType is the addressing mode of a variable reference
type VariableType uint8

const (
	VarArray        VariableType = 0x00
	VarStackTop     VariableType = 0x80
	VarNormal       VariableType = 0xA0
	VarInstance     VariableType = 0xE0
	VarMultiPush    VariableType = 0x10
	VarMultiPushPop VariableType = 0x90
)

var variableTypeNames = map[string]VariableType{
	"array": VarArray, "stacktop": VarStackTop, "instance": VarInstance,
	"multipush": VarMultiPush, "multipushpop": VarMultiPushPop,
}

// AssetType is the kind of asset named by an asset reference
type AssetType uint8

const (
	AssetObject         AssetType = 0
	AssetSprite         AssetType = 1
	AssetSound          AssetType = 2
	AssetRoom           AssetType = 3
	AssetPath           AssetType = 4
	AssetScript         AssetType = 5
	AssetFont           AssetType = 6
	AssetTimeline       AssetType = 7
	AssetShader         AssetType = 8
	AssetSequence       AssetType = 9
	AssetAnimationCurve AssetType = 10
	AssetParticleSystem AssetType = 11
	AssetBackground     AssetType = 13
	AssetRoomInstance   AssetType = 14
)

var assetTypeNames = map[string]AssetType{
	"object": AssetObject, "sprite": AssetSprite, "sound": AssetSound,
	"room": AssetRoom, "path": AssetPath, "script": AssetScript, "font": AssetFont,
	"timeline": AssetTimeline, "shader": AssetShader, "sequence": AssetSequence,
	"animcurve": AssetAnimationCurve, "particlesystem": AssetParticleSystem,
	"background": AssetBackground, "roominstance": AssetRoomInstance,
}

// AssetReference names an asset by type and index
type AssetReference struct {
	Index uint32
	Type  AssetType
}

// Build returns the packed wire value: type in the top byte, index below.
func (r AssetReference) Build() uint32 {
	return uint32(r.Type)<<24 | r.Index&0xFFFFFF
}

// ReleaseBranch is the release line of the runner the data file targets
type ReleaseBranch uint8

const (
	BranchPreLTS ReleaseBranch = iota
	BranchLTS
	BranchPostLTS
)

var branchNames = map[string]ReleaseBranch{
	"pre2022": BranchPreLTS, "lts2022": BranchLTS, "post2022": BranchPostLTS,
}

func (b ReleaseBranch) String() string {
	for name, v := range branchNames {
		if v == b {
			return name
		}
	}
	return fmt.Sprintf("branch(%d)", uint8(b))
}
