// Package gamedata models a parsed GameMaker data file: general info, the
// named asset tables, functions, variables and bytecode entries.
//
// Instructions form a closed sum type; see Instruction and the accessor
// functions JumpOffset, CodeVariableOf, FunctionOf, ExtendedKindOf, TypesOf,
// OpcodeOf and Size.
//
// Load and Decode read a YAML dump of a data file. Instructions are written
// as mnemonics with single-letter type suffixes (d f i l b v s e):
//
//	general:
//	  name: My Game
//	  version: 2023.4.0.113
//	  wad: 17
//	functions: [show_message]
//	variables:
//	  - {name: hp, instance: self}
//	codes:
//	  - name: gml_Script_heal
//	    instructions:
//	      - push.v self.hp
//	      - push.d 10
//	      - add.d.v
//	      - pop.v.v self.hp
//	      - exit.i
package gamedata
