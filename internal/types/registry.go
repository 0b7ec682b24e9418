package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// MethodInfo is the side table populated by the checker during impl-block
// collection: (receiver type name, method name) -> signature.
type MethodInfo struct {
	Name       string
	SigType    Index // KindFunc, includes the implicit self parameter
	Receiver   Index
	DefiningID int64 // opaque AST node handle, set by the checker
}

// Registry is the append-only pool of interned Types described in spec
// §3.1/§4.1. Indices returned by Add are stable for the registry's
// lifetime; nothing already added ever mutates.
type Registry struct {
	types []Type
	names map[string]Index

	// methods is the method registry: receiver type name -> method name -> info.
	methods map[string]map[string]MethodInfo

	// interned composite types, keyed by a structural signature, to avoid
	// re-adding equivalent pointer/slice/array/map/list/func types. Interning
	// is an optimization, not a correctness requirement (spec §4.1); equal()
	// does full structural comparison regardless of whether two occurrences
	// share an index.
	interned map[string]Index
}

// NewRegistry returns a Registry with the 22 reserved slots already
// populated and the predefined name aliases registered.
func NewRegistry() *Registry {
	r := &Registry{
		names:    make(map[string]Index),
		methods:  make(map[string]map[string]MethodInfo),
		interned: make(map[string]Index),
	}
	basic := func(k BasicKind) Index {
		idx := Index(len(r.types))
		r.types = append(r.types, Type{Kind: KindBasic, Basic: k})
		return idx
	}
	mustEq := func(got, want Index, name string) {
		if got != want {
			panic(fmt.Sprintf("types: reserved slot %s got %d want %d", name, got, want))
		}
	}
	mustEq(basic(Invalid), INVALID, "INVALID")
	mustEq(basic(Bool), BOOL, "BOOL")
	mustEq(basic(I8), I8IDX, "I8")
	mustEq(basic(I16), I16IDX, "I16")
	mustEq(basic(I32), I32IDX, "I32")
	mustEq(basic(I64), I64IDX, "I64")
	mustEq(basic(U8), U8IDX, "U8")
	mustEq(basic(U16), U16IDX, "U16")
	mustEq(basic(U32), U32IDX, "U32")
	mustEq(basic(U64), U64IDX, "U64")
	mustEq(basic(F32), F32IDX, "F32")
	mustEq(basic(F64), F64IDX, "F64")
	mustEq(basic(Void), VOID, "VOID")
	mustEq(basic(UntypedInt), UNTYPED_INT, "UNTYPED_INT")
	mustEq(basic(UntypedFloat), UNTYPED_FLOAT, "UNTYPED_FLOAT")
	mustEq(basic(UntypedBool), UNTYPED_BOOL, "UNTYPED_BOOL")
	mustEq(basic(UntypedNull), UNTYPED_NULL, "UNTYPED_NULL")

	// STRING is a pre-constructed alias for slice{u8}; add it directly
	// rather than through makeSlice so it lands at the reserved index.
	strIdx := Index(len(r.types))
	r.types = append(r.types, Type{Kind: KindSlice, Elem: U8IDX})
	mustEq(strIdx, STRING, "STRING")

	pseudo := func() Index {
		idx := Index(len(r.types))
		r.types = append(r.types, Type{Kind: KindInvalid})
		return idx
	}
	mustEq(pseudo(), MEM, "MEM")
	mustEq(pseudo(), FLAGS, "FLAGS")
	mustEq(pseudo(), TUPLE, "TUPLE")
	mustEq(pseudo(), RESULTS, "RESULTS")

	r.names["int"] = I64IDX
	r.names["i8"] = I8IDX
	r.names["i16"] = I16IDX
	r.names["i32"] = I32IDX
	r.names["i64"] = I64IDX
	r.names["u8"] = U8IDX
	r.names["u16"] = U16IDX
	r.names["u32"] = U32IDX
	r.names["u64"] = U64IDX
	r.names["byte"] = U8IDX
	r.names["float"] = F64IDX
	r.names["f32"] = F32IDX
	r.names["f64"] = F64IDX
	r.names["bool"] = BOOL
	r.names["string"] = STRING
	r.names["void"] = VOID

	return r
}

// Add appends t and returns its stable index; it never deduplicates.
// Callers that construct composite types should prefer the make*
// helpers, which intern by structural signature.
func (r *Registry) Add(t Type) Index {
	idx := Index(len(r.types))
	r.types = append(r.types, t)
	return idx
}

// Get returns the Type stored at idx. It panics on an out-of-range index,
// which indicates an internal bug (a stale index from before the registry
// existed, never a user-input error).
func (r *Registry) Get(idx Index) Type {
	if idx < 0 || int(idx) >= len(r.types) {
		panic(errors.Errorf("types: index %d out of range [0,%d)", idx, len(r.types)))
	}
	return r.types[idx]
}

// Len reports the number of interned types, including the reserved slots.
func (r *Registry) Len() int { return len(r.types) }

func (r *Registry) internOrAdd(key string, build func() Type) Index {
	if idx, ok := r.interned[key]; ok {
		return idx
	}
	idx := r.Add(build())
	r.interned[key] = idx
	return idx
}

func (r *Registry) MakePointer(elem Index) Index {
	return r.internOrAdd(fmt.Sprintf("ptr:%d", elem), func() Type {
		return Type{Kind: KindPointer, Elem: elem}
	})
}

func (r *Registry) MakeOptional(elem Index) Index {
	return r.internOrAdd(fmt.Sprintf("opt:%d", elem), func() Type {
		return Type{Kind: KindOptional, Elem: elem}
	})
}

func (r *Registry) MakeSlice(elem Index) Index {
	if elem == U8IDX {
		return STRING
	}
	return r.internOrAdd(fmt.Sprintf("slice:%d", elem), func() Type {
		return Type{Kind: KindSlice, Elem: elem}
	})
}

func (r *Registry) MakeArray(elem Index, length int64) Index {
	return r.internOrAdd(fmt.Sprintf("arr:%d:%d", elem, length), func() Type {
		return Type{Kind: KindArray, Elem: elem, Len: length}
	})
}

func (r *Registry) MakeMap(key, value Index) Index {
	return r.internOrAdd(fmt.Sprintf("map:%d:%d", key, value), func() Type {
		return Type{Kind: KindMap, Key: key, Value: value}
	})
}

func (r *Registry) MakeList(elem Index) Index {
	return r.internOrAdd(fmt.Sprintf("list:%d", elem), func() Type {
		return Type{Kind: KindList, Elem: elem}
	})
}

func (r *Registry) MakeFunc(params []FuncParam, result Index) Index {
	key := fmt.Sprintf("func:%d", result)
	for _, p := range params {
		key += fmt.Sprintf(":%d", p.Type)
	}
	return r.internOrAdd(key, func() Type {
		return Type{Kind: KindFunc, Params: params, Results: result}
	})
}

// RegisterNamed adds a named composite (struct/enum/union) and maps its
// name for lookup. Named types are never interned by structure: equal()
// is nominal for them (spec §3.1), and two structurally identical structs
// with different names are different types.
func (r *Registry) RegisterNamed(name string, t Type) Index {
	idx := r.Add(t)
	r.names[name] = idx
	return idx
}

func (r *Registry) LookupByName(name string) (Index, bool) {
	idx, ok := r.names[name]
	return idx, ok
}

// RegisterMethod adds (receiverName, method) to the method registry.
func (r *Registry) RegisterMethod(receiverName string, m MethodInfo) {
	bucket, ok := r.methods[receiverName]
	if !ok {
		bucket = make(map[string]MethodInfo)
		r.methods[receiverName] = bucket
	}
	bucket[m.Name] = m
}

// LookupMethod finds a method by receiver type name and method name.
func (r *Registry) LookupMethod(receiverName, method string) (MethodInfo, bool) {
	bucket, ok := r.methods[receiverName]
	if !ok {
		return MethodInfo{}, false
	}
	m, ok := bucket[method]
	return m, ok
}
