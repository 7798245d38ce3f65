package snapshot

import (
	"runtime"

	"github.com/wippyai/gmdecomp/ffi"
	"github.com/wippyai/gmdecomp/gamedata"
)

// RawBranch is the wire encoding of the runner release line
type RawBranch uint8

const (
	RawBranchPre2022  RawBranch = 1
	RawBranchLTS2022  RawBranch = 2
	RawBranchPost2022 RawBranch = 3
)

func rawBranch(b gamedata.ReleaseBranch) RawBranch {
	switch b {
	case gamedata.BranchLTS:
		return RawBranchLTS2022
	case gamedata.BranchPostLTS:
		return RawBranchPost2022
	}
	return RawBranchPre2022
}

// GameContext describes the game as a whole: runner version, feature flags
// and the name tables for each asset type.
type GameContext struct {
	VerMajor   uint32
	VerMinor   uint32
	VerRelease uint32
	VerBuild   uint32
	WADVersion uint8
	Branch     RawBranch

	ShortCircuit bool
	ArrayCOW     bool

	ObjectNames         ffi.Array[ffi.Str]
	SpriteNames         ffi.Array[ffi.Str]
	SoundNames          ffi.Array[ffi.Str]
	RoomNames           ffi.Array[ffi.Str]
	BackgroundNames     ffi.Array[ffi.Str]
	PathNames           ffi.Array[ffi.Str]
	ScriptNames         ffi.Array[ffi.Str]
	FontNames           ffi.Array[ffi.Str]
	TimelineNames       ffi.Array[ffi.Str]
	ShaderNames         ffi.Array[ffi.Str]
	SequenceNames       ffi.Array[ffi.Str]
	AnimationCurveNames ffi.Array[ffi.Str]
	ParticleSystemNames ffi.Array[ffi.Str]
}

// NewGameContext builds the context snapshot for data. It cannot fail for a
// well-formed source graph; the error return is kept for symmetry with
// BuildCode.
func NewGameContext(data *gamedata.Data) (*GameContext, error) {
	v := data.General.Version
	ctx := &GameContext{
		VerMajor:     v.Major,
		VerMinor:     v.Minor,
		VerRelease:   v.Release,
		VerBuild:     v.Build,
		WADVersion:   data.General.WADVersion,
		Branch:       rawBranch(v.Branch),
		ShortCircuit: ScanShortCircuit(data),
		ArrayCOW:     ScanArrayCopyOnWrite(data),
	}

	lists := data.AssetLists()
	for i, names := range ctx.assetTables() {
		*names = assetNames(lists[i])
	}
	return ctx, nil
}

// assetTables returns the name tables in boundary order
func (c *GameContext) assetTables() [13]*ffi.Array[ffi.Str] {
	return [13]*ffi.Array[ffi.Str]{
		&c.ObjectNames, &c.SpriteNames, &c.SoundNames, &c.RoomNames,
		&c.BackgroundNames, &c.PathNames, &c.ScriptNames, &c.FontNames,
		&c.TimelineNames, &c.ShaderNames, &c.SequenceNames,
		&c.AnimationCurveNames, &c.ParticleSystemNames,
	}
}

// AssetNames returns the name table for each asset type in boundary order.
func (c *GameContext) AssetNames() [13][]ffi.Str {
	var out [13][]ffi.Str
	for i, t := range c.assetTables() {
		out[i] = t.Slice()
	}
	return out
}

func assetNames(assets []gamedata.Asset) ffi.Array[ffi.Str] {
	names := make([]ffi.Str, len(assets))
	for i := range assets {
		names[i] = ffi.StrOf(assets[i].Name)
	}
	return ffi.FromSlice(names)
}

// ScanShortCircuit reports whether the game was compiled with short-circuit
// evaluation. An and/or on two boolean operands anywhere means it was not.
func ScanShortCircuit(data *gamedata.Data) bool {
	for i := range data.Codes {
		for _, instr := range data.Codes[i].Instructions {
			b, ok := instr.(gamedata.Binary)
			if !ok || (b.Op != gamedata.OpAnd && b.Op != gamedata.OpOr) {
				continue
			}
			if b.Lhs == gamedata.TypeBoolean && b.Rhs == gamedata.TypeBoolean {
				return false
			}
		}
	}
	return true
}

// ScanArrayCopyOnWrite reports whether the game uses array copy-on-write,
// which is the case whenever a setowner instruction appears.
func ScanArrayCopyOnWrite(data *gamedata.Data) bool {
	for i := range data.Codes {
		for _, instr := range data.Codes[i].Instructions {
			if e, ok := instr.(gamedata.Extended); ok && e.Kind == gamedata.ExtSetArrayOwner {
				return true
			}
		}
	}
	return false
}

// Pin pins every table and name reachable from c.
func (c *GameContext) Pin(p *runtime.Pinner) {
	p.Pin(c)
	for _, t := range c.assetTables() {
		t.Pin(p)
		for i := range t.Slice() {
			t.At(i).Pin(p)
		}
	}
}

// Release returns the name tables. The context is empty afterwards.
func (c *GameContext) Release() {
	for _, t := range c.assetTables() {
		t.Release()
	}
}
