// Package scope implements lexical name resolution: a tree of Scopes with
// parent pointers, each owning a name->Symbol map.
package scope

import "github.com/lumen-lang/lumen/internal/types"

// Kind tags what a Symbol denotes.
type Kind uint8

const (
	Variable Kind = iota
	Constant
	Function
	TypeName
	Parameter
)

// Symbol records everything the checker and lowerer need about a bound
// name: its type, mutability, and (for folded constants) its compile-time
// value.
type Symbol struct {
	Name         string
	Kind         Kind
	Type         types.Index
	DefiningNode int64 // ast.NodeIndex, kept untyped here to avoid an import cycle
	Mutable      bool
	IsExtern     bool
	ConstValue   *int64 // non-nil iff the initializer folded (spec §3.2)
}
