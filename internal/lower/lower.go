// Package lower implements the AST-to-IR lowerer (spec §4.4): one
// FuncBuilder-equivalent per non-extern function, desugaring control flow
// into explicit basic blocks and expressions into the flat ir.Node pool.
package lower

import (
	"fmt"
	"strconv"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/check"
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

// Lowerer drives AST-to-IR translation for one source file, sharing the
// Checker's completed type annotations (ExprType) and folded constants
// (ConstValue) — Phase 1/2 must already have run over File.
type Lowerer struct {
	Reg  *types.Registry
	Chk  *check.Checker
	File *ast.File
}

func New(reg *types.Registry, chk *check.Checker, file *ast.File) *Lowerer {
	return &Lowerer{Reg: reg, Chk: chk, File: file}
}

// LowerFile lowers every non-extern function and impl-block method in
// source order (spec §4.4's scheduling rule); struct/enum/union/alias
// declarations carry no runtime code and are skipped here, since the
// type registry already holds their layout.
func (l *Lowerer) LowerFile() []*ir.Func {
	var funcs []*ir.Func
	for _, t := range l.Chk.FuncTargets() {
		if f := l.LowerFunc(t); f != nil {
			funcs = append(funcs, f)
		}
	}
	return funcs
}

// LowerFunc lowers a single function body to IR. Safe to call
// concurrently for distinct targets (spec §5): each call owns a fresh
// funcLowerer and touches only the shared, read-only Registry/Checker.
func (l *Lowerer) LowerFunc(t check.FuncTarget) *ir.Func {
	return l.lowerFunc(t.Decl, t.Receiver)
}

// funcLowerer holds the mutable state FuncBuilder owns while lowering one
// function body: the block currently being populated, the name->local
// table, and the loop-context stack of (continue, break) targets.
type funcLowerer struct {
	l      *Lowerer
	f      *ir.Func
	cur    ir.BlockIndex
	locals map[string]int
	loops  []loopCtx
	temps  int
}

type loopCtx struct {
	continueTarget ir.BlockIndex
	breakTarget    ir.BlockIndex
}

func (l *Lowerer) lowerFunc(d ast.FuncDecl, receiver string) *ir.Func {
	if d.Body == ast.NullNode {
		return nil // extern: the linker resolves it
	}
	name := d.Name
	if receiver != "" {
		name = check.MethodLookupName(receiver, d.Name)
	}
	sym, ok := l.Chk.Global.LookupLocal(name)
	if !ok {
		return nil
	}
	sig := l.Reg.Get(sym.Type)

	fl := &funcLowerer{l: l, f: ir.NewFunc(name), locals: make(map[string]int)}
	fl.f.ReturnType = sig.Results
	fl.cur = fl.f.NewBlock("entry")

	for _, p := range sig.Params {
		fl.f.Params = append(fl.f.Params, p.Type)
		idx := fl.f.AddLocal(ir.Local{Name: p.Name, Type: p.Type, Size: l.Reg.SizeOf(p.Type), IsParam: true, IsMutable: true})
		fl.locals[p.Name] = idx
	}

	bodyNode := l.File.GetNode(d.Body)
	fl.lowerBlockStmtIn(bodyNode.Variant.(ast.BlockStmt))

	if !fl.terminated() {
		fl.emit(ir.Node{Op: ir.OpRet})
	}
	return fl.f
}

func (fl *funcLowerer) terminated() bool {
	return fl.f.Block(fl.cur).IsTerminated(fl.f)
}

// ensureOpen switches to a fresh, unlinked block if the current one has
// already been terminated, so code that follows an always-returning
// branch (dead code) still has somewhere to land without violating the
// one-terminator-per-block invariant.
func (fl *funcLowerer) ensureOpen() {
	if fl.terminated() {
		fl.cur = fl.f.NewBlock("unreachable")
	}
}

func (fl *funcLowerer) emit(n ir.Node) ir.NodeIndex {
	return fl.f.Emit(fl.cur, n)
}

func (fl *funcLowerer) jumpTo(target ir.BlockIndex) {
	if fl.terminated() {
		return
	}
	fl.emit(ir.Node{Op: ir.OpJump, Targets: []ir.BlockIndex{target}})
	fl.f.Link(fl.cur, target)
}

func (fl *funcLowerer) newTemp(t types.Index) int {
	fl.temps++
	name := "__t" + strconv.Itoa(fl.temps)
	idx := fl.f.AddLocal(ir.Local{Name: name, Type: t, Size: fl.l.Reg.SizeOf(t), IsMutable: true})
	fl.locals[name] = idx
	return idx
}

func (fl *funcLowerer) localIndex(name string) (int, bool) {
	idx, ok := fl.locals[name]
	return idx, ok
}

// escapeString implements spec §4.4.3's string literal escape processing:
// \n \t \r \\ \" \' \0 \xNN.
func escapeString(raw string) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			out = append(out, c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case '\'':
			out = append(out, '\'')
		case '0':
			out = append(out, 0)
		case 'x':
			if i+2 < len(raw) {
				var b byte
				fmt.Sscanf(raw[i+1:i+3], "%02x", &b)
				out = append(out, b)
				i += 2
			}
		default:
			out = append(out, '\\', raw[i])
		}
	}
	return out
}
