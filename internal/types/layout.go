package types

// basicSize maps a concrete basic kind to its size in bytes. Untyped
// kinds default to the size of their eventual materialized type (spec
// §3.1): untyped_int -> size of i64, untyped_float -> size of f64.
var basicSize = map[BasicKind]int64{
	Bool:         1,
	I8:           1,
	I16:          2,
	I32:          4,
	I64:          8,
	U8:           1,
	U16:          2,
	U32:          4,
	U64:          8,
	F32:          4,
	F64:          8,
	Void:         0,
	UntypedInt:   8,
	UntypedFloat: 8,
	UntypedBool:  1,
	UntypedNull:  8,
}

// SizeOf returns the size in bytes of the type at idx.
func (r *Registry) SizeOf(idx Index) int64 {
	t := r.Get(idx)
	switch t.Kind {
	case KindBasic:
		return basicSize[t.Basic]
	case KindPointer, KindOptional:
		// optional{T} is represented as a nullable pointer-or-value; for
		// pointer-like elements it is the same width as the pointer, for
		// non-pointer elements it is elem size plus a present/absent tag
		// rounded to 8 bytes. Lumen only needs pointer-width optionals at
		// this layer (non-pointer optionals lower through the same path
		// as a struct{present bool, value T} and are sized as such).
		if t.Kind == KindPointer {
			return 8
		}
		if r.isPointerLike(t.Elem) {
			return 8
		}
		return alignUp(r.SizeOf(t.Elem)+1, 8)
	case KindSlice:
		return 16 // {ptr *u8, len i64}
	case KindArray:
		return r.SizeOf(t.Elem) * t.Len
	case KindMap, KindList:
		return 8 // handle to externally-managed storage
	case KindStruct:
		return t.Size
	case KindEnum:
		backing := t.Backing
		if backing == INVALID {
			backing = I32IDX
		}
		return r.SizeOf(backing)
	case KindUnion:
		tagSize := int64(1)
		if len(t.UVariants) > 256 {
			tagSize = 2
		}
		maxPayload := int64(0)
		for _, v := range t.UVariants {
			if v.Payload == INVALID {
				continue
			}
			if s := r.SizeOf(v.Payload); s > maxPayload {
				maxPayload = s
			}
		}
		return alignUp(tagSize+maxPayload, 8)
	case KindFunc:
		return 8 // function pointer
	}
	return 0
}

// AlignmentOf returns the alignment in bytes of the type at idx.
func (r *Registry) AlignmentOf(idx Index) int64 {
	t := r.Get(idx)
	switch t.Kind {
	case KindBasic:
		if a := basicSize[t.Basic]; a > 0 {
			return a
		}
		return 1
	case KindPointer, KindOptional, KindSlice, KindMap, KindList, KindFunc:
		return 8
	case KindArray:
		return r.AlignmentOf(t.Elem)
	case KindStruct:
		return 8 // spec §3.1: struct alignment is fixed at 8
	case KindEnum:
		backing := t.Backing
		if backing == INVALID {
			backing = I32IDX
		}
		return r.SizeOf(backing)
	case KindUnion:
		return 8
	}
	return 1
}

func (r *Registry) isPointerLike(idx Index) bool {
	switch r.Get(idx).Kind {
	case KindPointer, KindFunc:
		return true
	}
	return false
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

// LayoutStruct computes field offsets, size, and alignment for a struct
// whose fields are given in declared order, per spec §3.1: natural
// alignment per field, total size rounded up to 8 bytes, struct alignment
// fixed at 8.
func (r *Registry) LayoutStruct(name string, fields []StructField) Type {
	var offset int64
	laidOut := make([]StructField, len(fields))
	for i, f := range fields {
		fa := r.AlignmentOf(f.Type)
		offset = alignUp(offset, fa)
		laidOut[i] = StructField{Name: f.Name, Type: f.Type, Offset: offset}
		offset += r.SizeOf(f.Type)
	}
	size := alignUp(offset, 8)
	return Type{Kind: KindStruct, Name: name, Fields: laidOut, Size: size, Align: 8}
}

// FieldOffset looks up a struct field's byte offset and type by name.
func (r *Registry) FieldOffset(structIdx Index, field string) (offset int64, fieldType Index, ok bool) {
	t := r.Get(structIdx)
	if t.Kind != KindStruct {
		return 0, INVALID, false
	}
	for _, f := range t.Fields {
		if f.Name == field {
			return f.Offset, f.Type, true
		}
	}
	return 0, INVALID, false
}

// LayoutUnion computes the tag type for a union's variant set per spec
// §3.1: U8 tag if <=256 variants, else U16.
func LayoutUnion(name string, variants []UnionVariant) Type {
	tag := U8IDX
	if len(variants) > 256 {
		tag = U16IDX
	}
	return Type{Kind: KindUnion, Name: name, UVariants: variants, Backing: tag}
}

// LayoutEnum applies the default I32 backing type when unspecified.
func LayoutEnum(name string, variants []EnumVariant, backing Index) Type {
	if backing == INVALID {
		backing = I32IDX
	}
	return Type{Kind: KindEnum, Name: name, Variants: variants, Backing: backing}
}
