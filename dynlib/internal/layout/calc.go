package layout

import "go.bytecodealliance.org/wit"

// Info is the size, alignment and field offsets of a type
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

// Offset returns the offset of the named field. Panics if the field does
// not exist, which means the record description is wrong.
func (i Info) Offset(name string) uint32 {
	off, ok := i.FieldOffs[name]
	if !ok {
		panic("layout: no field " + name)
	}
	return off
}

type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		info = c.calculateRecord(kind)
	case *wit.Tuple:
		info = c.calculateTuple(kind)
	case *wit.Enum:
		info = c.calculateEnum(kind)
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

func (c *Calculator) calculateRecord(r *wit.Record) Info {
	if len(r.Fields) == 0 {
		return Info{Size: 0, Align: 1}
	}

	fieldOffs := make(map[string]uint32, len(r.Fields))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, field := range r.Fields {
		fieldLayout := c.Calculate(field.Type)

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[field.Name] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}
}

func (c *Calculator) calculateTuple(t *wit.Tuple) Info {
	if len(t.Types) == 0 {
		return Info{Size: 0, Align: 1}
	}

	maxAlign := uint32(1)
	offset := uint32(0)

	for _, typ := range t.Types {
		elemLayout := c.Calculate(typ)
		offset = AlignTo(offset, elemLayout.Align)

		if elemLayout.Align > maxAlign {
			maxAlign = elemLayout.Align
		}

		offset += elemLayout.Size
	}

	return Info{
		Size:  AlignTo(offset, maxAlign),
		Align: maxAlign,
	}
}

// calculateEnum sizes C enums backed by a single byte
func (c *Calculator) calculateEnum(e *wit.Enum) Info {
	if len(e.Cases) <= 256 {
		return Info{Size: 1, Align: 1}
	}
	return Info{Size: 2, Align: 2}
}

// AlignTo rounds offset up to a multiple of align
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
