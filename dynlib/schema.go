package dynlib

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/gmdecomp/dynlib/internal/layout"
)

// Guest-side record descriptions of the snapshot types. On wasm32 pointers
// and size_t are u32; strings are {ptr, len} and arrays {ptr, len, cap}.

func field(name string, t wit.Type) wit.Field {
	return wit.Field{Name: name, Type: t}
}

func record(fields ...wit.Field) *wit.TypeDef {
	return &wit.TypeDef{Kind: &wit.Record{Fields: fields}}
}

var (
	arrayRecord = record(
		field("ptr", wit.U32{}),
		field("len", wit.U32{}),
		field("cap", wit.U32{}),
	)

	functionRecord = record(
		field("name", wit.String{}),
	)

	variableRecord = record(
		field("name", wit.String{}),
		field("variable_id", wit.S32{}),
		field("instance_type", wit.S16{}),
	)

	instructionRecord = record(
		field("variable", variableRecord),
		field("function", functionRecord),
		field("value_string", wit.String{}),
		field("value_double", wit.F64{}),
		field("value_long", wit.S64{}),
		field("value_int", wit.S32{}),
		field("branch_offset", wit.S32{}),
		field("argument_count", wit.S32{}),
		field("asset_reference", wit.S32{}),
		field("value_short", wit.S16{}),
		field("extended_kind", wit.S16{}),
		field("instance_type", wit.S16{}),
		field("opcode", wit.U8{}),
		field("type1", wit.U8{}),
		field("type2", wit.U8{}),
		field("comparison_kind", wit.U8{}),
		field("duplication_size", wit.U8{}),
		field("duplication_size2", wit.U8{}),
		field("variable_type", wit.U8{}),
		field("pop_swap_size", wit.U8{}),
		field("pop_with_context_exit", wit.U8{}),
	)

	codeRecord = record(
		field("name", wit.String{}),
		field("instructions", arrayRecord),
		field("children", arrayRecord),
		field("length", wit.U32{}),
		field("start_offset", wit.U32{}),
		field("argument_count", wit.U16{}),
		field("local_count", wit.U16{}),
	)

	gameContextRecord = record(
		field("ver_major", wit.U32{}),
		field("ver_minor", wit.U32{}),
		field("ver_release", wit.U32{}),
		field("ver_build", wit.U32{}),
		field("wad_version", wit.U8{}),
		field("lts_branch", wit.U8{}),
		field("short_circuit", wit.Bool{}),
		field("array_cow", wit.Bool{}),
		field("asset_object_names", arrayRecord),
		field("asset_sprite_names", arrayRecord),
		field("asset_sound_names", arrayRecord),
		field("asset_room_names", arrayRecord),
		field("asset_background_names", arrayRecord),
		field("asset_path_names", arrayRecord),
		field("asset_script_names", arrayRecord),
		field("asset_font_names", arrayRecord),
		field("asset_timeline_names", arrayRecord),
		field("asset_shader_names", arrayRecord),
		field("asset_sequence_names", arrayRecord),
		field("asset_animcurve_names", arrayRecord),
		field("asset_particlesystem_names", arrayRecord),
	)

	returnRecord = record(
		field("string", wit.String{}),
		field("error", wit.U8{}),
	)
)

// assetTableFields lists the game context name tables in boundary order
var assetTableFields = [13]string{
	"asset_object_names", "asset_sprite_names", "asset_sound_names",
	"asset_room_names", "asset_background_names", "asset_path_names",
	"asset_script_names", "asset_font_names", "asset_timeline_names",
	"asset_shader_names", "asset_sequence_names", "asset_animcurve_names",
	"asset_particlesystem_names",
}

// guestLayouts holds the computed wasm32 layouts
type guestLayouts struct {
	str         layout.Info
	array       layout.Info
	function    layout.Info
	variable    layout.Info
	instruction layout.Info
	code        layout.Info
	gameContext layout.Info
	ret         layout.Info
}

func computeLayouts() *guestLayouts {
	c := layout.NewCalculator()
	return &guestLayouts{
		str:         c.Calculate(wit.String{}),
		array:       c.Calculate(arrayRecord),
		function:    c.Calculate(functionRecord),
		variable:    c.Calculate(variableRecord),
		instruction: c.Calculate(instructionRecord),
		code:        c.Calculate(codeRecord),
		gameContext: c.Calculate(gameContextRecord),
		ret:         c.Calculate(returnRecord),
	}
}
