package gamedata

import "github.com/wippyai/gmdecomp/errors"

// CodeRef indexes Data.Codes
type CodeRef uint32

// FunctionRef indexes Data.Functions
type FunctionRef uint32

// VariableRef indexes Data.Variables
type VariableRef uint32

// Data is a parsed GameMaker data file.
type Data struct {
	General         GeneralInfo
	Objects         []Asset
	Sprites         []Asset
	Sounds          []Asset
	Rooms           []Asset
	Backgrounds     []Asset
	Paths           []Asset
	Scripts         []Asset
	Fonts           []Asset
	Timelines       []Asset
	Shaders         []Asset
	Sequences       []Asset
	AnimationCurves []Asset
	ParticleSystems []Asset
	Codes           []Code
	Functions       []Function
	Variables       []Variable
}

// GeneralInfo describes the game and the runner it targets
type GeneralInfo struct {
	Name       string
	Version    Version
	WADVersion uint8
}

// Version is the runner version the data file was built for
type Version struct {
	Major   uint32
	Minor   uint32
	Release uint32
	Build   uint32
	Branch  ReleaseBranch
}

// Asset is a named resource
type Asset struct {
	Name string
}

// Code is a bytecode entry
type Code struct {
	Name         string
	Instructions []Instruction
	Modern       *CodeModern
}

// CodeModern holds metadata present from WAD 15 onwards
type CodeModern struct {
	Parent        *CodeRef
	Offset        uint32
	ArgumentCount uint16
	LocalCount    uint16
}

// Parent returns the entry this one is nested in.
func (c *Code) Parent() (CodeRef, bool) {
	if c.Modern == nil || c.Modern.Parent == nil {
		return 0, false
	}
	return *c.Modern.Parent, true
}

// IsRoot reports whether the entry has no parent.
func (c *Code) IsRoot() bool {
	_, ok := c.Parent()
	return !ok
}

// Function is a callable referenced by call instructions
type Function struct {
	Name string
}

// Variable is a variable referenced by push and pop instructions
type Variable struct {
	Name   string
	Modern *VariableModern
}

// VariableModern holds metadata present from WAD 15 onwards
type VariableModern struct {
	ID           int32
	InstanceType InstanceType
}

// Code resolves ref against the code table
func (d *Data) Code(ref CodeRef) (*Code, error) {
	if int(ref) >= len(d.Codes) {
		return nil, errors.InvalidReference("code", uint32(ref), len(d.Codes))
	}
	return &d.Codes[ref], nil
}

// Function resolves ref against the function table
func (d *Data) Function(ref FunctionRef) (*Function, error) {
	if int(ref) >= len(d.Functions) {
		return nil, errors.InvalidReference("function", uint32(ref), len(d.Functions))
	}
	return &d.Functions[ref], nil
}

// Variable resolves ref against the variable table
func (d *Data) Variable(ref VariableRef) (*Variable, error) {
	if int(ref) >= len(d.Variables) {
		return nil, errors.InvalidReference("variable", uint32(ref), len(d.Variables))
	}
	return &d.Variables[ref], nil
}

// AssetLists returns the named asset tables in decompiler order.
func (d *Data) AssetLists() [13][]Asset {
	return [13][]Asset{
		d.Objects, d.Sprites, d.Sounds, d.Rooms, d.Backgrounds, d.Paths,
		d.Scripts, d.Fonts, d.Timelines, d.Shaders, d.Sequences,
		d.AnimationCurves, d.ParticleSystems,
	}
}

// CodeByName finds a code entry by name
func (d *Data) CodeByName(name string) (CodeRef, bool) {
	for i := range d.Codes {
		if d.Codes[i].Name == name {
			return CodeRef(i), true
		}
	}
	return 0, false
}
