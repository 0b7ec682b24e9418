package check_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/check"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

func newChecker(b *ast.Builder) *check.Checker {
	reg := types.NewRegistry()
	rep := diag.New(nil)
	global := scope.New(nil)
	return check.New(reg, rep, global, b.File)
}

func TestAddFunctionReturnsI64(t *testing.T) {
	b := ast.NewBuilder("add.lumen")
	i64 := b.Named("i64")
	body := b.Block(b.Return(b.Bin(ast.OpAdd, b.Ident("a"), b.Ident("b"))))
	b.Func("add", []ast.Param{b.P("a", b.Named("i64")), b.P("b", b.Named("i64"))}, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	require.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestUndefinedIdentifierReported(t *testing.T) {
	b := ast.NewBuilder("bad.lumen")
	body := b.Block(b.ExprStmtNode(b.Ident("nope")))
	b.Func("f", nil, ast.NullNode, body, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, diag.EUndefinedIdent, entries[0].Code)
}

func TestMissingReturnReported(t *testing.T) {
	b := ast.NewBuilder("missing.lumen")
	i64 := b.Named("i64")
	body := b.Block(b.ExprStmtNode(b.Int(1)))
	b.Func("f", nil, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, diag.EMissingReturn, entries[0].Code)
}

func TestIfElseBothReturningSatisfiesMissingReturn(t *testing.T) {
	b := ast.NewBuilder("ifelse.lumen")
	i64 := b.Named("i64")
	thenBlock := b.Block(b.Return(b.Int(1)))
	elseBlock := b.Block(b.Return(b.Int(2)))
	body := b.Block(b.If(b.Bool(true), thenBlock, elseBlock))
	b.Func("f", nil, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestBreakOutsideLoopReported(t *testing.T) {
	b := ast.NewBuilder("break.lumen")
	body := b.Block(b.Break())
	b.Func("f", nil, ast.NullNode, body, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, diag.EBreakOutsideLoop, entries[0].Code)
}

func TestBreakInsideWhileOK(t *testing.T) {
	b := ast.NewBuilder("while.lumen")
	loopBody := b.Block(b.Break())
	body := b.Block(b.While(b.Bool(true), loopBody))
	b.Func("f", nil, ast.NullNode, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestStructFieldAccessAndAssignment(t *testing.T) {
	b := ast.NewBuilder("struct.lumen")
	b.Struct("Point",
		ast.StructField{Name: "x", TypeExpr: b.Named("i64")},
		ast.StructField{Name: "y", TypeExpr: b.Named("i64")},
	)
	i64 := b.Named("i64")
	body := b.Block(
		b.VarStmtNode("p", ast.NullNode, b.Ident("origin"), false, true),
		b.Assign(ast.AssignSet, b.Field(b.Ident("p"), "x"), b.Int(5)),
		b.Return(b.Field(b.Ident("p"), "x")),
	)
	b.GlobalVar("origin", b.Named("Point"), ast.NullNode, false)
	b.Func("useOrigin", nil, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestEnumVariantStaticAccess(t *testing.T) {
	b := ast.NewBuilder("enum.lumen")
	b.Enum("Color", ast.NullNode,
		ast.EnumVariantDecl{Name: "Red", Value: ast.NullNode},
		ast.EnumVariantDecl{Name: "Blue", Value: ast.NullNode},
	)
	colorT := b.Named("Color")
	body := b.Block(b.Return(b.Field(b.Ident("Color"), "Red")))
	b.Func("pick", nil, colorT, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestConstFoldedArraySize(t *testing.T) {
	b := ast.NewBuilder("constarr.lumen")
	b.GlobalVar("N", ast.NullNode, b.Int(4), true)
	arrType := b.ArrayOf(b.Named("i64"), b.Ident("N"))
	body := b.Block(b.Return(b.Field(b.Ident("arr"), "len")))
	b.GlobalVar("arr", arrType, ast.NullNode, false)
	b.Func("arrLen", nil, b.Named("i64"), body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

func TestAssignToImmutableReported(t *testing.T) {
	b := ast.NewBuilder("immut.lumen")
	body := b.Block(
		b.VarStmtNode("x", ast.NullNode, b.Int(1), true, false),
		b.Assign(ast.AssignSet, b.Ident("x"), b.Int(2)),
	)
	b.Func("f", nil, ast.NullNode, body, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.NotEmpty(t, entries)
	found := false
	for _, e := range entries {
		if e.Code == diag.ETypeMismatch {
			found = true
		}
	}
	assert.True(t, found, "expected an immutable-assignment diagnostic")
}

// TestReturnInsideBlockExprUsesEnclosingFuncCtx guards against a panic: a
// block-expression is not a function boundary, so a `return` nested
// inside one must still resolve against the enclosing function's
// declared return type instead of a nil context.
func TestReturnInsideBlockExprUsesEnclosingFuncCtx(t *testing.T) {
	b := ast.NewBuilder("retblock.lumen")
	i64 := b.Named("i64")
	blockExpr := b.BlockExprNode(b.Int(1), b.Return(b.Int(2)))
	body := b.Block(b.Return(blockExpr))
	b.Func("f", nil, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

// TestWhileInsideBlockExprUsesEnclosingFuncCtx guards against a panic: a
// `while` nested inside a block-expression must still thread the
// enclosing loop depth instead of dereferencing a nil context.
func TestWhileInsideBlockExprUsesEnclosingFuncCtx(t *testing.T) {
	b := ast.NewBuilder("whileblock.lumen")
	loopBody := b.Block(b.Break())
	blockExpr := b.BlockExprNode(b.Int(1), b.While(b.Bool(true), loopBody))
	body := b.Block(b.ExprStmtNode(blockExpr))
	b.Func("f", nil, ast.NullNode, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

// TestReturnOutsideFunctionReportedNotPanicked covers the defensive nil
// guard in checkReturnStmt: a return reached with no enclosing function
// context (e.g. inside a global initializer's block-expression) reports
// a diagnostic instead of dereferencing nil.
func TestReturnOutsideFunctionReportedNotPanicked(t *testing.T) {
	b := ast.NewBuilder("retglobal.lumen")
	blockExpr := b.BlockExprNode(b.Int(1), b.Return(b.Int(2)))
	b.GlobalVar("g", ast.NullNode, blockExpr, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, diag.EReturnMismatch, entries[0].Code)
}

// TestPtrToIntReturnsI64 pins @ptrToInt's result type to I64 (spec.md:
// "Pointer -> I64"), not U64.
func TestPtrToIntReturnsI64(t *testing.T) {
	b := ast.NewBuilder("ptrtoint.lumen")
	i64 := b.Named("i64")
	p := b.PointerTo(i64)
	body := b.Block(b.Return(b.Builtin(ast.BuiltinPtrToInt, ast.NullNode, b.Ident("p"))))
	b.Func("f", []ast.Param{b.P("p", p)}, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

// TestPtrCastProducesSingleIndirection guards against @ptrCast(T, v)
// wrapping T in an extra pointer layer: its result type must be T
// itself, which must already resolve to a pointer.
func TestPtrCastProducesSingleIndirection(t *testing.T) {
	b := ast.NewBuilder("ptrcast.lumen")
	i64 := b.Named("i64")
	u8 := b.Named("u8")
	pI64 := b.PointerTo(i64)
	pU8 := b.PointerTo(u8)
	body := b.Block(b.Return(b.Builtin(ast.BuiltinPtrCast, pU8, b.Ident("p"))))
	b.Func("f", []ast.Param{b.P("p", pI64)}, pU8, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}

// TestPtrCastNonPointerTargetReported checks the spec's "T must be a
// pointer" validation for @ptrCast is actually performed.
func TestPtrCastNonPointerTargetReported(t *testing.T) {
	b := ast.NewBuilder("ptrcastbad.lumen")
	i64 := b.Named("i64")
	pI64 := b.PointerTo(i64)
	body := b.Block(b.Return(b.Builtin(ast.BuiltinPtrCast, i64, b.Ident("p"))))
	b.Func("f", []ast.Param{b.P("p", pI64)}, i64, body, false)

	c := newChecker(b)
	c.CheckFile()

	entries := c.Rep.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, diag.ETypeMismatch, entries[0].Code)
}

// TestIntToPtrWrapsTargetInPointer checks @intToPtr(T, v) (unlike
// @ptrCast) wraps T itself in a pointer.
func TestIntToPtrWrapsTargetInPointer(t *testing.T) {
	b := ast.NewBuilder("inttoptr.lumen")
	i64 := b.Named("i64")
	pI64 := b.PointerTo(i64)
	body := b.Block(b.Return(b.Builtin(ast.BuiltinIntToPtr, i64, b.Ident("n"))))
	b.Func("f", []ast.Param{b.P("n", i64)}, pI64, body, false)

	c := newChecker(b)
	c.CheckFile()

	assert.False(t, c.Rep.HasErrors(), "unexpected diagnostics: %v", c.Rep.Entries())
}
