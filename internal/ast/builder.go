package ast

// Builder constructs a File programmatically, standing in for the
// out-of-scope parser in tests — the same role the teacher's
// gc/testdata/gen/arithConstGen.go generator plays for Go's own compiler
// test corpus (building test inputs directly rather than through a
// scanner).
type Builder struct {
	File *File
}

func NewBuilder(name string) *Builder {
	return &Builder{File: NewFile(name)}
}

func (b *Builder) add(cat Category, kind Kind, span Pos, variant any) NodeIndex {
	return b.File.Add(Node{Category: cat, Kind: kind, Span: span, Variant: variant})
}

// --- Type expressions ---

func (b *Builder) Named(name string) NodeIndex {
	return b.add(CategoryExpr, KindTypeExpr, Pos{}, TypeExprData{Kind: TypeNamed, Name: name})
}

func (b *Builder) PointerTo(elem NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindTypeExpr, Pos{}, TypeExprData{Kind: TypePointer, Elem: elem})
}

func (b *Builder) SliceOf(elem NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindTypeExpr, Pos{}, TypeExprData{Kind: TypeSlice, Elem: elem})
}

func (b *Builder) ArrayOf(elem NodeIndex, size NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindTypeExpr, Pos{}, TypeExprData{Kind: TypeArray, Elem: elem, Size: size})
}

// --- Expressions ---

func (b *Builder) Int(v int64) NodeIndex {
	return b.add(CategoryExpr, KindLiteral, Pos{}, Literal{Kind: LitInt, Int: v})
}

func (b *Builder) Float(v float64) NodeIndex {
	return b.add(CategoryExpr, KindLiteral, Pos{}, Literal{Kind: LitFloat, Float: v})
}

func (b *Builder) Str(s string) NodeIndex {
	return b.add(CategoryExpr, KindLiteral, Pos{}, Literal{Kind: LitString, Str: s})
}

func (b *Builder) Bool(v bool) NodeIndex {
	k := LitFalse
	if v {
		k = LitTrue
	}
	return b.add(CategoryExpr, KindLiteral, Pos{}, Literal{Kind: k})
}

func (b *Builder) Null() NodeIndex {
	return b.add(CategoryExpr, KindLiteral, Pos{}, Literal{Kind: LitNull})
}

func (b *Builder) Ident(name string) NodeIndex {
	return b.add(CategoryExpr, KindIdent, Pos{}, Ident{Name: name})
}

func (b *Builder) Bin(op BinaryOp, l, r NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindBinary, Pos{}, Binary{Op: op, Left: l, Right: r})
}

func (b *Builder) Un(op UnaryOp, operand NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindUnary, Pos{}, Unary{Op: op, Operand: operand})
}

func (b *Builder) CallExpr(callee NodeIndex, args ...NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindCall, Pos{}, Call{Callee: callee, Args: args})
}

func (b *Builder) IndexExpr(base, idx NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindIndex, Pos{}, Index{Base: base, Idx: idx})
}

func (b *Builder) SliceExprNode(base, start, end NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindSliceExpr, Pos{}, SliceExpr{Base: base, Start: start, End: end})
}

func (b *Builder) Field(base NodeIndex, name string) NodeIndex {
	return b.add(CategoryExpr, KindFieldAccess, Pos{}, FieldAccess{Base: base, Field: name})
}

func (b *Builder) ArrayLit(elems ...NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindArrayLiteral, Pos{}, ArrayLiteral{Elements: elems})
}

func (b *Builder) AddrOfExpr(operand NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindAddrOf, Pos{}, AddrOf{Operand: operand})
}

func (b *Builder) DerefExpr(operand NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindDeref, Pos{}, Deref{Operand: operand})
}

func (b *Builder) Builtin(name BuiltinName, typeArg NodeIndex, args ...NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindBuiltinCall, Pos{}, BuiltinCall{Name: name, TypeArg: typeArg, Args: args})
}

// BlockExprNode builds a `{ stmts; expr }` block-expression. expr may be
// NullNode for a void-typed block.
func (b *Builder) BlockExprNode(expr NodeIndex, stmts ...NodeIndex) NodeIndex {
	return b.add(CategoryExpr, KindBlockExpr, Pos{}, BlockExpr{Stmts: stmts, Expr: expr})
}

// --- Statements ---

func (b *Builder) Block(stmts ...NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindBlockStmt, Pos{}, BlockStmt{Stmts: stmts})
}

func (b *Builder) Return(value NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindReturnStmt, Pos{}, ReturnStmt{Value: value})
}

func (b *Builder) VarStmtNode(name string, typeExpr, value NodeIndex, isConst, mutable bool) NodeIndex {
	return b.add(CategoryStmt, KindVarStmt, Pos{}, VarStmt{
		Name: name, TypeExpr: typeExpr, Value: value, IsConst: isConst, Mutable: mutable,
	})
}

func (b *Builder) Assign(op AssignOp, target, value NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindAssignStmt, Pos{}, AssignStmt{Target: target, Op: op, Value: value})
}

func (b *Builder) If(cond, then, els NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindIfStmt, Pos{}, IfStmt{Cond: cond, Then: then, Else: els})
}

func (b *Builder) While(cond, body NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindWhileStmt, Pos{}, WhileStmt{Cond: cond, Body: body})
}

func (b *Builder) For(binding string, iterable, body NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindForStmt, Pos{}, ForStmt{Binding: binding, Iterable: iterable, Body: body})
}

func (b *Builder) Break() NodeIndex    { return b.add(CategoryStmt, KindBreakStmt, Pos{}, BreakStmt{}) }
func (b *Builder) Continue() NodeIndex { return b.add(CategoryStmt, KindContinueStmt, Pos{}, ContinueStmt{}) }

func (b *Builder) ExprStmtNode(e NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindExprStmt, Pos{}, ExprStmt{Expr: e})
}

func (b *Builder) DeferExpr(e NodeIndex) NodeIndex {
	return b.add(CategoryStmt, KindDeferStmt, Pos{}, DeferStmt{Expr: e})
}

// --- Declarations ---

func (b *Builder) Func(name string, params []Param, ret NodeIndex, body NodeIndex, extern bool) NodeIndex {
	idx := b.add(CategoryDecl, KindFuncDecl, Pos{}, FuncDecl{
		Name: name, Params: params, ReturnType: ret, Body: body, IsExtern: extern,
	})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) GlobalVar(name string, typeExpr, value NodeIndex, isConst bool) NodeIndex {
	idx := b.add(CategoryDecl, KindVarDecl, Pos{}, VarDecl{
		Name: name, TypeExpr: typeExpr, Value: value, IsConst: isConst,
	})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) Struct(name string, fields ...StructField) NodeIndex {
	idx := b.add(CategoryDecl, KindStructDecl, Pos{}, StructDecl{Name: name, Fields: fields})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) Enum(name string, backing NodeIndex, variants ...EnumVariantDecl) NodeIndex {
	idx := b.add(CategoryDecl, KindEnumDecl, Pos{}, EnumDecl{Name: name, BackingType: backing, Variants: variants})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) Union(name string, variants ...UnionVariantDecl) NodeIndex {
	idx := b.add(CategoryDecl, KindUnionDecl, Pos{}, UnionDecl{Name: name, Variants: variants})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) Impl(typeName string, methods ...NodeIndex) NodeIndex {
	idx := b.add(CategoryDecl, KindImplBlock, Pos{}, ImplBlock{TypeName: typeName, Methods: methods})
	b.File.Decls = append(b.File.Decls, idx)
	return idx
}

func (b *Builder) P(name string, typeExpr NodeIndex) Param {
	return Param{Name: name, TypeExpr: typeExpr, DefaultValue: NullNode}
}
