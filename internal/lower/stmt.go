package lower

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

func (fl *funcLowerer) lowerBlockStmtIn(b ast.BlockStmt) {
	for _, s := range b.Stmts {
		fl.lowerStmt(s)
	}
}

func (fl *funcLowerer) lowerBlockAt(n ast.NodeIndex) {
	node := fl.l.File.GetNode(n)
	fl.lowerBlockStmtIn(node.Variant.(ast.BlockStmt))
}

func (fl *funcLowerer) lowerStmt(n ast.NodeIndex) {
	fl.ensureOpen()
	node := fl.l.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.VarStmt:
		fl.lowerVarStmt(v)
	case ast.AssignStmt:
		fl.lowerAssignStmt(v)
	case ast.IfStmt:
		fl.lowerIfStmt(v)
	case ast.WhileStmt:
		fl.lowerWhileStmt(v)
	case ast.ForStmt:
		fl.lowerForStmt(v)
	case ast.BlockStmt:
		fl.lowerBlockStmtIn(v)
	case ast.BreakStmt:
		fl.lowerBreak()
	case ast.ContinueStmt:
		fl.lowerContinue()
	case ast.ReturnStmt:
		fl.lowerReturn(v)
	case ast.DeferStmt:
		// Shallow defer lowering: evaluate at the defer point rather than
		// queueing for scope exit. Acknowledged limitation (spec §9).
		fl.lowerExpr(v.Expr)
	case ast.ExprStmt:
		fl.lowerExpr(v.Expr)
	case ast.BadStmt:
	}
}

// declType mirrors the checker's declared/materialized-type resolution
// for a var statement, without re-threading a second annotation map.
func (fl *funcLowerer) declType(v ast.VarStmt) types.Index {
	if v.TypeExpr != ast.NullNode {
		return fl.l.Chk.ResolveTypeExpr(v.TypeExpr)
	}
	if v.Value != ast.NullNode {
		if t, ok := fl.l.Chk.ExprType(v.Value); ok {
			return fl.l.Reg.Materialize(t)
		}
	}
	return types.VOID
}

func (fl *funcLowerer) lowerVarStmt(v ast.VarStmt) {
	t := fl.declType(v)
	var val ir.NodeIndex = ir.NullNode
	if v.Value != ast.NullNode {
		val = fl.lowerExpr(v.Value)
	}
	idx := fl.f.AddLocal(ir.Local{Name: v.Name, Type: t, Size: fl.l.Reg.SizeOf(t), IsMutable: v.Mutable && !v.IsConst})
	fl.locals[v.Name] = idx
	if val != ir.NullNode {
		fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: t, AuxInt: int64(idx), Args: []ir.NodeIndex{val}})
	}
}

func (fl *funcLowerer) lowerAssignStmt(v ast.AssignStmt) {
	value := fl.lowerExpr(v.Value)
	if v.Op != ast.AssignSet {
		current := fl.lowerExpr(v.Target)
		binOp := compoundBinOp(v.Op)
		targetType, _ := fl.l.Chk.ExprType(v.Target)
		value = fl.emit(ir.Node{Op: ir.OpBinary, Type: targetType, AuxInt: int64(binOp), Args: []ir.NodeIndex{current, value}})
	}
	fl.lowerStoreTo(v.Target, value)
}

func compoundBinOp(op ast.AssignOp) ir.BinOp {
	switch op {
	case ast.AssignAdd:
		return ir.BinAdd
	case ast.AssignSub:
		return ir.BinSub
	case ast.AssignMul:
		return ir.BinMul
	case ast.AssignDiv:
		return ir.BinDiv
	case ast.AssignMod:
		return ir.BinMod
	}
	return ir.BinAdd
}

func (fl *funcLowerer) lowerIfStmt(v ast.IfStmt) {
	cond := fl.lowerExpr(v.Cond)
	thenBlk := fl.f.NewBlock("if.then")
	// The merge block is created only once some path reaches it, so an
	// if/else whose arms both terminate leaves no unreachable block behind.
	mergeBlk := ir.BlockIndex(-1)

	var elseTarget, elseBlk ir.BlockIndex
	hasElse := v.Else != ast.NullNode
	if hasElse {
		elseBlk = fl.f.NewBlock("if.else")
		elseTarget = elseBlk
	} else {
		mergeBlk = fl.f.NewBlock("if.merge")
		elseTarget = mergeBlk
	}

	fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{cond}, Targets: []ir.BlockIndex{thenBlk, elseTarget}})
	fl.f.Link(fl.cur, thenBlk)
	fl.f.Link(fl.cur, elseTarget)

	fl.cur = thenBlk
	fl.lowerBlockAt(v.Then)
	thenEnd := fl.cur

	if hasElse {
		fl.cur = elseBlk
		elseNode := fl.l.File.GetNode(v.Else)
		if _, ok := elseNode.Variant.(ast.IfStmt); ok {
			fl.lowerStmt(v.Else)
		} else {
			fl.lowerBlockAt(v.Else)
		}
		if fl.terminated() && fl.f.Block(thenEnd).IsTerminated(fl.f) {
			return // both arms terminated: no merge block is needed
		}
		mergeBlk = fl.f.NewBlock("if.merge")
		fl.jumpTo(mergeBlk)
		fl.cur = thenEnd
	}
	fl.jumpTo(mergeBlk)
	fl.cur = mergeBlk
}

func (fl *funcLowerer) lowerWhileStmt(v ast.WhileStmt) {
	condBlk := fl.f.NewBlock("while.cond")
	bodyBlk := fl.f.NewBlock("while.body")
	exitBlk := fl.f.NewBlock("while.exit")

	fl.jumpTo(condBlk)

	fl.cur = condBlk
	cond := fl.lowerExpr(v.Cond)
	fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{cond}, Targets: []ir.BlockIndex{bodyBlk, exitBlk}})
	fl.f.Link(fl.cur, bodyBlk)
	fl.f.Link(fl.cur, exitBlk)

	fl.loops = append(fl.loops, loopCtx{continueTarget: condBlk, breakTarget: exitBlk})
	fl.cur = bodyBlk
	fl.lowerBlockAt(v.Body)
	fl.jumpTo(condBlk)
	fl.loops = fl.loops[:len(fl.loops)-1]

	fl.cur = exitBlk
}

// lowerForStmt desugars `for x in iter { body }` to an indexed while loop
// over fresh temporaries, per spec §4.4.2.
func (fl *funcLowerer) lowerForStmt(v ast.ForStmt) {
	iterType, _ := fl.l.Chk.ExprType(v.Iterable)
	iterType = fl.l.Reg.Materialize(iterType)
	elemType := fl.l.Reg.ElemType(iterType)
	isArray := fl.l.Reg.IsArray(iterType)

	iterVal := fl.lowerExpr(v.Iterable)
	iterLocal := fl.newTemp(iterType)
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: iterType, AuxInt: int64(iterLocal), Args: []ir.NodeIndex{iterVal}})

	idxLocal := fl.newTemp(types.I64IDX)
	zero := fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 0})
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.I64IDX, AuxInt: int64(idxLocal), Args: []ir.NodeIndex{zero}})

	var lenVal ir.NodeIndex
	if isArray {
		lenVal = fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.ArrayLen(iterType)})
	} else {
		loaded := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: iterType, AuxInt: int64(iterLocal)})
		lenVal = fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{loaded}})
	}
	lenLocal := fl.newTemp(types.I64IDX)
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.I64IDX, AuxInt: int64(lenLocal), Args: []ir.NodeIndex{lenVal}})

	condBlk := fl.f.NewBlock("for.cond")
	bodyBlk := fl.f.NewBlock("for.body")
	incrBlk := fl.f.NewBlock("for.incr")
	exitBlk := fl.f.NewBlock("for.exit")

	fl.jumpTo(condBlk)

	fl.cur = condBlk
	idx := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.I64IDX, AuxInt: int64(idxLocal)})
	length := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.I64IDX, AuxInt: int64(lenLocal)})
	cmp := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinLt), Args: []ir.NodeIndex{idx, length}})
	fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{cmp}, Targets: []ir.BlockIndex{bodyBlk, exitBlk}})
	fl.f.Link(fl.cur, bodyBlk)
	fl.f.Link(fl.cur, exitBlk)

	fl.loops = append(fl.loops, loopCtx{continueTarget: incrBlk, breakTarget: exitBlk})
	fl.cur = bodyBlk

	elemSize := fl.l.Reg.SizeOf(elemType)
	idxForBody := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.I64IDX, AuxInt: int64(idxLocal)})
	var elemVal ir.NodeIndex
	if isArray {
		elemVal = fl.emit(ir.Node{Op: ir.OpIndexLocalRead, Type: elemType, AuxInt: int64(iterLocal), Args: []ir.NodeIndex{idxForBody}})
	} else {
		sliceVal := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: iterType, AuxInt: int64(iterLocal)})
		ptrVal := fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{sliceVal}})
		elemVal = fl.emit(ir.Node{Op: ir.OpIndexValueRead, Type: elemType, AuxInt: elemSize, Args: []ir.NodeIndex{ptrVal, idxForBody}})
	}
	bindLocal := fl.f.AddLocal(ir.Local{Name: v.Binding, Type: elemType, Size: elemSize})
	fl.locals[v.Binding] = bindLocal
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: elemType, AuxInt: int64(bindLocal), Args: []ir.NodeIndex{elemVal}})

	fl.lowerBlockAt(v.Body)
	fl.jumpTo(incrBlk)

	fl.cur = incrBlk
	cur := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.I64IDX, AuxInt: int64(idxLocal)})
	one := fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 1})
	next := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.I64IDX, AuxInt: int64(ir.BinAdd), Args: []ir.NodeIndex{cur, one}})
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.I64IDX, AuxInt: int64(idxLocal), Args: []ir.NodeIndex{next}})
	fl.jumpTo(condBlk)
	fl.loops = fl.loops[:len(fl.loops)-1]

	fl.cur = exitBlk
}

func (fl *funcLowerer) lowerBreak() {
	if len(fl.loops) == 0 {
		return // checker already reported E400
	}
	fl.jumpTo(fl.loops[len(fl.loops)-1].breakTarget)
}

func (fl *funcLowerer) lowerContinue() {
	if len(fl.loops) == 0 {
		return // checker already reported E401
	}
	fl.jumpTo(fl.loops[len(fl.loops)-1].continueTarget)
}

func (fl *funcLowerer) lowerReturn(v ast.ReturnStmt) {
	if v.Value == ast.NullNode {
		fl.emit(ir.Node{Op: ir.OpRet})
		return
	}
	val := fl.lowerExpr(v.Value)
	fl.emit(ir.Node{Op: ir.OpRet, Args: []ir.NodeIndex{val}})
}
