package types

// Equal reports whether a and b denote the same type. Composite types
// (pointer/optional/slice/array/map/list/func) compare structurally;
// struct/enum/union compare nominally (by name), per spec §3.1. STRING
// and a freshly constructed slice{u8} are always interchangeable.
func (r *Registry) Equal(a, b Index) bool {
	if a == b {
		return true
	}
	ta, tb := r.normalize(a), r.normalize(b)
	if ta.Kind != tb.Kind {
		return false
	}
	switch ta.Kind {
	case KindBasic:
		return ta.Basic == tb.Basic
	case KindPointer, KindOptional, KindSlice, KindList:
		return r.Equal(ta.Elem, tb.Elem)
	case KindArray:
		return ta.Len == tb.Len && r.Equal(ta.Elem, tb.Elem)
	case KindMap:
		return r.Equal(ta.Key, tb.Key) && r.Equal(ta.Value, tb.Value)
	case KindStruct, KindEnum, KindUnion:
		return ta.Name == tb.Name
	case KindFunc:
		if len(ta.Params) != len(tb.Params) {
			return false
		}
		for i := range ta.Params {
			if !r.Equal(ta.Params[i].Type, tb.Params[i].Type) {
				return false
			}
		}
		return r.Equal(ta.Results, tb.Results)
	case KindInvalid:
		return true
	}
	return false
}

// normalize treats STRING and slice{u8} as the same shape for comparison.
func (r *Registry) normalize(idx Index) Type {
	t := r.Get(idx)
	if idx == STRING {
		return Type{Kind: KindSlice, Elem: U8IDX}
	}
	if t.Kind == KindSlice && t.Elem == U8IDX {
		return Type{Kind: KindSlice, Elem: U8IDX}
	}
	return t
}

// IsAssignable reports whether a value of type `from` may be used where
// `to` is expected. Per spec §4.1, either side being invalid trivially
// succeeds so a single earlier error never cascades.
func (r *Registry) IsAssignable(from, to Index) bool {
	if from == INVALID || to == INVALID {
		return true
	}
	if r.Equal(from, to) {
		return true
	}
	ft, tt := r.Get(from), r.Get(to)

	if ft.Kind == KindBasic && ft.Basic.IsUntyped() {
		switch ft.Basic {
		case UntypedInt:
			if tt.Kind == KindBasic && (tt.Basic.IsInteger() || tt.Basic.IsFloat()) {
				return true
			}
		case UntypedFloat:
			if tt.Kind == KindBasic && tt.Basic.IsFloat() {
				return true
			}
		case UntypedBool:
			if tt.Kind == KindBasic && tt.Basic == Bool {
				return true
			}
		case UntypedNull:
			if tt.Kind == KindOptional || tt.Kind == KindPointer {
				return true
			}
		}
	}

	// T -> ?T wrapping.
	if tt.Kind == KindOptional && r.IsAssignable(from, tt.Elem) {
		return true
	}

	// array -> slice of the same element.
	if ft.Kind == KindArray && tt.Kind == KindSlice && r.Equal(ft.Elem, tt.Elem) {
		return true
	}

	// full function-signature equivalence is already covered by Equal
	// above via structural comparison of KindFunc.
	return false
}

// Materialize converts an untyped type to its default concrete type,
// recursing through arrays/slices. Typed inputs are returned unchanged.
func (r *Registry) Materialize(idx Index) Index {
	t := r.Get(idx)
	switch t.Kind {
	case KindBasic:
		switch t.Basic {
		case UntypedInt:
			return I64IDX
		case UntypedFloat:
			return F64IDX
		case UntypedBool:
			return BOOL
		case UntypedNull:
			return idx // stays untyped_null until a context supplies ?T or *T
		}
		return idx
	case KindArray:
		elem := r.Materialize(t.Elem)
		if elem == t.Elem {
			return idx
		}
		return r.MakeArray(elem, t.Len)
	case KindSlice:
		elem := r.Materialize(t.Elem)
		if elem == t.Elem {
			return idx
		}
		return r.MakeSlice(elem)
	default:
		return idx
	}
}

func (r *Registry) IsPointer(idx Index) bool  { return r.Get(idx).Kind == KindPointer }
func (r *Registry) IsOptional(idx Index) bool { return r.Get(idx).Kind == KindOptional }
func (r *Registry) IsArray(idx Index) bool    { return r.Get(idx).Kind == KindArray }
func (r *Registry) IsSlice(idx Index) bool {
	t := r.Get(idx)
	return t.Kind == KindSlice || idx == STRING
}
func (r *Registry) IsStruct(idx Index) bool { return r.Get(idx).Kind == KindStruct }
func (r *Registry) IsEnum(idx Index) bool   { return r.Get(idx).Kind == KindEnum }
func (r *Registry) IsUnion(idx Index) bool  { return r.Get(idx).Kind == KindUnion }
func (r *Registry) IsFunc(idx Index) bool   { return r.Get(idx).Kind == KindFunc }

func (r *Registry) IsNumeric(idx Index) bool {
	t := r.Get(idx)
	return t.Kind == KindBasic && t.Basic.IsNumeric()
}

func (r *Registry) IsInteger(idx Index) bool {
	t := r.Get(idx)
	return t.Kind == KindBasic && t.Basic.IsInteger()
}

func (r *Registry) PointerElem(idx Index) Index {
	t := r.Get(idx)
	if t.Kind != KindPointer {
		return INVALID
	}
	return t.Elem
}

func (r *Registry) ArrayLen(idx Index) int64 {
	t := r.Get(idx)
	if t.Kind != KindArray {
		return 0
	}
	return t.Len
}

func (r *Registry) ElemType(idx Index) Index {
	t := r.Get(idx)
	switch t.Kind {
	case KindPointer, KindOptional, KindList:
		return t.Elem
	case KindArray:
		return t.Elem
	case KindSlice:
		return t.Elem
	}
	if idx == STRING {
		return U8IDX
	}
	return INVALID
}
