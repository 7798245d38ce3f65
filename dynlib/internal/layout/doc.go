// Package layout computes wasm32 C layouts for WIT record descriptions.
//
// Records are laid out field by field with natural alignment; the record
// size is rounded up to its widest field. On wasm32 this matches the C
// compiler's layout for the equivalent struct, with pointers and size_t
// described as u32.
//
// # Usage
//
//	c := layout.NewCalculator()
//	info := c.Calculate(record)
//	// info.Size, info.Align, info.FieldOffs available
//
// This package is internal to dynlib.
package layout
