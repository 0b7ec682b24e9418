// Package check implements the middle end's type checker (spec §4.3):
// three-phase declaration collection followed by body checking, an
// expression type cache memoized per AST node, assignability, and
// compile-time constant folding.
package check

import (
	"fmt"
	"sync"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/diag"
	"github.com/lumen-lang/lumen/internal/scope"
	"github.com/lumen-lang/lumen/internal/types"
)

// Checker holds everything Phase 1/2 of a single file need. The
// Registry, method registry (carried on Registry), and Global scope
// are shared and grow monotonically; nothing here is safe to use from
// two goroutines checking the *same* file concurrently, but two
// Checkers sharing one Registry may check different files' function
// bodies concurrently (spec §5) as long as Phase 1 has already
// completed for all of them.
type Checker struct {
	Reg    *types.Registry
	Rep    *diag.Reporter
	Global *scope.Scope
	File   *ast.File

	// mu guards cache and consts: Phase 2 may check more than one
	// function of the same file concurrently (spec §5), and both maps
	// are written during Phase 2.
	mu     sync.Mutex
	cache  map[ast.NodeIndex]types.Index
	consts map[string]int64 // folded constant's name -> value, for inlining by the lowerer
}

// New creates a Checker over file, sharing reg/rep/global with any
// sibling Checkers processing other files of the same compilation.
func New(reg *types.Registry, rep *diag.Reporter, global *scope.Scope, file *ast.File) *Checker {
	return &Checker{
		Reg: reg, Rep: rep, Global: global, File: file,
		cache:  make(map[ast.NodeIndex]types.Index),
		consts: make(map[string]int64),
	}
}

// ExprType returns the cached type of node, if Phase 2 has already
// visited it.
func (c *Checker) ExprType(n ast.NodeIndex) (types.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.cache[n]
	return t, ok
}

// ResolveTypeExpr exposes the type-expression resolver to other
// middle-end stages (the lowerer re-resolves declared types rather than
// threading a second annotation map through the AST).
func (c *Checker) ResolveTypeExpr(n ast.NodeIndex) types.Index {
	return c.resolveTypeExpr(n)
}

// ConstValue returns the folded compile-time value of a named constant.
func (c *Checker) ConstValue(name string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.consts[name]
	return v, ok
}

// CheckFile runs all three phases over c.File in the order spec §4.3
// mandates: Phase 1a (types), Phase 1b (signatures), Phase 2 (bodies).
// Phase 1a and 1b must have already run for *every* file of the
// compilation sharing this Registry before any file's Phase 2 begins,
// since a function signature may forward-reference a type or function
// declared later in another file; CheckFile exposes the phases
// separately (Phase1a/Phase1b/Phase2) so a multi-file orchestrator
// (internal/compile) can interleave them correctly.
func (c *Checker) CheckFile() {
	c.Phase1a()
	c.Phase1b()
	c.Phase2()
}

// Phase1a computes and registers the type of every struct/enum/union/
// type-alias declaration, in source order, enabling forward references
// from function signatures to user types.
func (c *Checker) Phase1a() {
	for _, d := range c.File.Decls {
		node := c.File.GetNode(d)
		switch v := node.Variant.(type) {
		case ast.StructDecl:
			c.declareStruct(v)
		case ast.EnumDecl:
			c.declareEnum(v)
		case ast.UnionDecl:
			c.declareUnion(v)
		case ast.TypeAlias:
			c.declareAlias(v)
		}
	}
}

// Phase1b computes and registers the signature/symbol of every function,
// global variable, and impl-block method, in source order.
func (c *Checker) Phase1b() {
	for _, d := range c.File.Decls {
		node := c.File.GetNode(d)
		switch v := node.Variant.(type) {
		case ast.FuncDecl:
			c.declareFunc(v, "", d)
		case ast.VarDecl:
			c.declareGlobal(v, d)
		case ast.ImplBlock:
			for _, mIdx := range v.Methods {
				mNode := c.File.GetNode(mIdx)
				fd := mNode.Variant.(ast.FuncDecl)
				c.declareFunc(fd, v.TypeName, mIdx)
			}
		}
	}
}

// Phase2 type-checks the body of every function, including impl-block
// methods, using the signatures Phase1b computed.
func (c *Checker) Phase2() {
	for _, t := range c.FuncTargets() {
		c.CheckFunc(t)
	}
}

// FuncTarget names one checkable function body: either a free function
// (Receiver == "") or an impl-block method.
type FuncTarget struct {
	Decl     ast.FuncDecl
	Receiver string
	Node     ast.NodeIndex
}

// FuncTargets enumerates every checkable function body in c.File, in
// source order, flattening impl-block methods alongside free functions.
// internal/compile fans Phase 2 out over this list (spec §5): Phase1a and
// Phase1b must already have completed for every file of the compilation.
func (c *Checker) FuncTargets() []FuncTarget {
	var out []FuncTarget
	for _, d := range c.File.Decls {
		node := c.File.GetNode(d)
		switch v := node.Variant.(type) {
		case ast.FuncDecl:
			out = append(out, FuncTarget{Decl: v, Node: d})
		case ast.ImplBlock:
			for _, mIdx := range v.Methods {
				mNode := c.File.GetNode(mIdx)
				fd := mNode.Variant.(ast.FuncDecl)
				out = append(out, FuncTarget{Decl: fd, Receiver: v.TypeName, Node: mIdx})
			}
		}
	}
	return out
}

// CheckFunc type-checks a single function body (spec §4.3 Phase 2). It is
// safe to call concurrently for distinct targets of the same or different
// files sharing this Checker's Registry, once every file's Phase1a/Phase1b
// has already run.
func (c *Checker) CheckFunc(t FuncTarget) {
	c.checkFuncBody(t.Decl, t.Receiver, t.Node)
}

// MethodLookupName synthesizes the name a method is registered and
// looked up under: `TypeName_methodName` (spec §4.3 phase 1b).
func MethodLookupName(typeName, methodName string) string {
	return typeName + "_" + methodName
}

// define places sym into sc, reporting E302 on a same-scope redefinition
// unless it is an idempotent extern-function redeclaration (spec §4.3).
func (c *Checker) define(sc *scope.Scope, sym *scope.Symbol, pos ast.Pos) {
	if existing, ok := sc.LookupLocal(sym.Name); ok {
		if existing.Kind == scope.Function && existing.IsExtern && sym.Kind == scope.Function && sym.IsExtern {
			return // idempotent
		}
		c.Rep.ErrorWithCode(pos, diag.ERedefinedIdent, fmt.Sprintf("redefined identifier %q", sym.Name))
		return
	}
	sc.Define(sym)
}
