package ast

// Param is one function parameter in a signature.
type Param struct {
	Name         string
	TypeExpr     NodeIndex // KindTypeExpr
	DefaultValue NodeIndex // NullNode if absent
}

type FuncDecl struct {
	Name       string
	Params     []Param
	ReturnType NodeIndex // NullNode means untyped/void
	Body       NodeIndex // KindBlockStmt, NullNode for extern
	IsExtern   bool
	Span       Pos
}

type VarDecl struct {
	Name     string
	TypeExpr NodeIndex // NullNode if inferred
	Value    NodeIndex // NullNode if uninitialized
	IsConst  bool
	Span     Pos
}

type StructField struct {
	Name     string
	TypeExpr NodeIndex
}

type StructDecl struct {
	Name   string
	Fields []StructField
	Span   Pos
}

type EnumVariantDecl struct {
	Name  string
	Value NodeIndex // NullNode if implicit
}

type EnumDecl struct {
	Name        string
	BackingType NodeIndex // NullNode if unspecified
	Variants    []EnumVariantDecl
	Span        Pos
}

type UnionVariantDecl struct {
	Name    string
	Payload NodeIndex // NullNode for a unit variant
}

type UnionDecl struct {
	Name     string
	Variants []UnionVariantDecl
	Span     Pos
}

type TypeAlias struct {
	Name   string
	Target NodeIndex
	Span   Pos
}

type ImportDecl struct {
	Path string
	Span Pos
}

type ImplBlock struct {
	TypeName string
	Methods  []NodeIndex // each a KindFuncDecl
	Span     Pos
}

type TestDecl struct {
	Name string
	Body NodeIndex
	Span Pos
}

type BadDecl struct{ Span Pos }
