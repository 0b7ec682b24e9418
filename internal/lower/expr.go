package lower

import (
	"math"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/ir"
	"github.com/lumen-lang/lumen/internal/types"
)

func (fl *funcLowerer) exprType(n ast.NodeIndex) types.Index {
	t, ok := fl.l.Chk.ExprType(n)
	if !ok {
		return types.INVALID
	}
	return fl.l.Reg.Materialize(t)
}

func (fl *funcLowerer) lowerExpr(n ast.NodeIndex) ir.NodeIndex {
	node := fl.l.File.GetNode(n)
	switch v := node.Variant.(type) {
	case ast.Literal:
		return fl.lowerLiteral(v)
	case ast.Ident:
		return fl.lowerIdent(v)
	case ast.Binary:
		return fl.lowerBinary(n, v)
	case ast.Unary:
		return fl.lowerUnary(n, v)
	case ast.Call:
		return fl.lowerCall(n, v)
	case ast.Index:
		return fl.lowerIndex(n, v)
	case ast.SliceExpr:
		return fl.lowerSliceExpr(n, v)
	case ast.FieldAccess:
		return fl.lowerFieldAccess(n, v)
	case ast.ArrayLiteral:
		return fl.lowerArrayLiteral(n, v)
	case ast.Paren:
		return fl.lowerExpr(v.Inner)
	case ast.IfExpr:
		return fl.lowerIfExpr(n, v)
	case ast.SwitchExpr:
		return fl.lowerSwitchExpr(n, v)
	case ast.BlockExpr:
		return fl.lowerBlockExpr(n, v)
	case ast.StructInit:
		return fl.lowerStructInit(n, v)
	case ast.NewExpr:
		t := fl.l.Chk.ResolveTypeExpr(v.TypeNode)
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: t, AuxInt: fl.l.Reg.SizeOf(t)})
	case ast.BuiltinCall:
		return fl.lowerBuiltin(n, v)
	case ast.StringInterp:
		return fl.lowerStringInterp(n, v)
	case ast.AddrOf:
		return fl.lowerAddrOf(v)
	case ast.Deref:
		ptr := fl.lowerExpr(v.Operand)
		t := fl.exprType(n)
		return fl.emit(ir.Node{Op: ir.OpPtrLoad, Type: t, Args: []ir.NodeIndex{ptr}})
	case ast.BadExpr:
		return fl.emit(ir.Node{Op: ir.OpNop})
	}
	return fl.emit(ir.Node{Op: ir.OpNop})
}

func (fl *funcLowerer) lowerLiteral(v ast.Literal) ir.NodeIndex {
	switch v.Kind {
	case ast.LitInt:
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: v.Int})
	case ast.LitFloat:
		return fl.emit(ir.Node{Op: ir.OpConstFloat, Type: types.F64IDX, AuxInt: int64(math.Float64bits(v.Float))})
	case ast.LitString:
		raw := escapeString(v.Str)
		idx := fl.f.AddString(raw)
		return fl.emit(ir.Node{Op: ir.OpConstString, Type: types.STRING, AuxInt: idx})
	case ast.LitChar:
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.U8IDX, AuxInt: int64(v.Char)})
	case ast.LitTrue:
		return fl.emit(ir.Node{Op: ir.OpConstBool, Type: types.BOOL, AuxInt: 1})
	case ast.LitFalse:
		return fl.emit(ir.Node{Op: ir.OpConstBool, Type: types.BOOL, AuxInt: 0})
	case ast.LitNull, ast.LitUndefined:
		return fl.emit(ir.Node{Op: ir.OpConstNull})
	}
	return fl.emit(ir.Node{Op: ir.OpNop})
}

func (fl *funcLowerer) lowerIdent(v ast.Ident) ir.NodeIndex {
	if val, ok := fl.l.Chk.ConstValue(v.Name); ok {
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: val})
	}
	if idx, ok := fl.localIndex(v.Name); ok {
		t := fl.f.Locals[idx].Type
		return fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: t, AuxInt: int64(idx)})
	}
	if sym, ok := fl.l.Chk.Global.LookupLocal(v.Name); ok {
		if fl.l.Reg.IsFunc(sym.Type) {
			return fl.emit(ir.Node{Op: ir.OpFuncAddr, Type: sym.Type, Aux: v.Name})
		}
		return fl.emit(ir.Node{Op: ir.OpLoadGlobal, Type: sym.Type, Aux: v.Name})
	}
	return fl.emit(ir.Node{Op: ir.OpNop})
}

// lowerBinary lowers `and`/`or` and string equality to explicit branch
// diamonds over a synthetic temp local (spec §4.4.3/§4.5.6/§4.5.7): the
// temp gets one store per predecessor, and the SSA builder's ordinary
// deferred-phi algorithm discovers and resolves the merge with no
// special-casing. Every other operator lowers to OpBinary (pointer +/-
// with the integer operand scaled by the element size), except string +,
// which lowers to OpStrConcat.
func (fl *funcLowerer) lowerBinary(n ast.NodeIndex, v ast.Binary) ir.NodeIndex {
	if v.Op == ast.OpAnd || v.Op == ast.OpOr {
		return fl.lowerShortCircuit(v)
	}
	lt, _ := fl.l.Chk.ExprType(v.Left)
	if v.Op == ast.OpEq || v.Op == ast.OpNe {
		if fl.l.Reg.Materialize(lt) == types.STRING {
			return fl.lowerStringCompare(v)
		}
	}

	rt, _ := fl.l.Chk.ExprType(v.Right)
	resultType := fl.exprType(n)
	left := fl.lowerExpr(v.Left)
	right := fl.lowerExpr(v.Right)

	if op, ok := pointerScaledOp(fl.l, v.Op, lt); ok {
		elem := fl.l.Reg.PointerElem(fl.l.Reg.Materialize(lt))
		size := fl.l.Reg.SizeOf(elem)
		one := fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: size})
		scaled := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.I64IDX, AuxInt: int64(ir.BinMul), Args: []ir.NodeIndex{right, one}})
		return fl.emit(ir.Node{Op: ir.OpBinary, Type: resultType, AuxInt: int64(op), Args: []ir.NodeIndex{left, scaled}})
	}
	if v.Op == ast.OpAdd {
		if op, ok := pointerScaledOp(fl.l, v.Op, rt); ok {
			elem := fl.l.Reg.PointerElem(fl.l.Reg.Materialize(rt))
			size := fl.l.Reg.SizeOf(elem)
			one := fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: size})
			scaled := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.I64IDX, AuxInt: int64(ir.BinMul), Args: []ir.NodeIndex{left, one}})
			return fl.emit(ir.Node{Op: ir.OpBinary, Type: resultType, AuxInt: int64(op), Args: []ir.NodeIndex{right, scaled}})
		}
	}

	if v.Op == ast.OpAdd && resultType == types.STRING {
		return fl.emit(ir.Node{Op: ir.OpStrConcat, Type: types.STRING, Args: []ir.NodeIndex{left, right}})
	}

	return fl.emit(ir.Node{Op: ir.OpBinary, Type: resultType, AuxInt: int64(toBinOp(v.Op)), Args: []ir.NodeIndex{left, right}})
}

func pointerScaledOp(l *Lowerer, op ast.BinaryOp, leftType types.Index) (ir.BinOp, bool) {
	lt := l.Reg.Materialize(leftType)
	if !l.Reg.IsPointer(lt) {
		return 0, false
	}
	switch op {
	case ast.OpAdd:
		return ir.BinAddPtr, true
	case ast.OpSub:
		return ir.BinSubPtr, true
	}
	return 0, false
}

func toBinOp(op ast.BinaryOp) ir.BinOp {
	switch op {
	case ast.OpAdd:
		return ir.BinAdd
	case ast.OpSub:
		return ir.BinSub
	case ast.OpMul:
		return ir.BinMul
	case ast.OpDiv:
		return ir.BinDiv
	case ast.OpMod:
		return ir.BinMod
	case ast.OpEq:
		return ir.BinEq
	case ast.OpNe:
		return ir.BinNe
	case ast.OpLt:
		return ir.BinLt
	case ast.OpLe:
		return ir.BinLe
	case ast.OpGt:
		return ir.BinGt
	case ast.OpGe:
		return ir.BinGe
	case ast.OpBitAnd:
		return ir.BinBitAnd
	case ast.OpBitOr:
		return ir.BinBitOr
	case ast.OpBitXor:
		return ir.BinBitXor
	case ast.OpShl:
		return ir.BinShl
	case ast.OpShr:
		return ir.BinShr
	}
	return ir.BinAdd
}

// lowerShortCircuit expands `l and r` to:
//   t = false; if l { t = r } ; use t
// and `l or r` to:
//   t = true; if l { ... } else { t = r } ; use t
func (fl *funcLowerer) lowerShortCircuit(v ast.Binary) ir.NodeIndex {
	tmp := fl.newTemp(types.BOOL)
	left := fl.lowerExpr(v.Left)

	rhsBlk := fl.f.NewBlock("shortcircuit.rhs")
	mergeBlk := fl.f.NewBlock("shortcircuit.merge")

	if v.Op == ast.OpAnd {
		fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(tmp), Args: []ir.NodeIndex{left}})
		fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{left}, Targets: []ir.BlockIndex{rhsBlk, mergeBlk}})
	} else {
		trueConst := fl.emit(ir.Node{Op: ir.OpConstBool, Type: types.BOOL, AuxInt: 1})
		fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(tmp), Args: []ir.NodeIndex{trueConst}})
		fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{left}, Targets: []ir.BlockIndex{mergeBlk, rhsBlk}})
	}
	fl.f.Link(fl.cur, rhsBlk)
	fl.f.Link(fl.cur, mergeBlk)

	fl.cur = rhsBlk
	right := fl.lowerExpr(v.Right)
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(tmp), Args: []ir.NodeIndex{right}})
	fl.jumpTo(mergeBlk)

	fl.cur = mergeBlk
	return fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.BOOL, AuxInt: int64(tmp)})
}

// lowerStringCompare expands string `==`/`!=` into the length-then-pointer
// shortcut of spec §4.5.7 over a synthetic temp: same-length strings are
// compared by address only, never by contents. This is the spec's own
// explicit simplification ("full byte-comparison is not emitted"), kept at
// the IR-lowering stage alongside and/or for the same reason: the SSA
// builder's general phi machinery resolves the merge unaided.
func (fl *funcLowerer) lowerStringCompare(v ast.Binary) ir.NodeIndex {
	tmp := fl.newTemp(types.BOOL)
	left := fl.lowerExpr(v.Left)
	right := fl.lowerExpr(v.Right)

	leftLen := fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{left}})
	rightLen := fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{right}})
	lenEq := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinEq), Args: []ir.NodeIndex{leftLen, rightLen}})

	ptrBlk := fl.f.NewBlock("streq.ptr")
	mergeBlk := fl.f.NewBlock("streq.merge")

	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(tmp), Args: []ir.NodeIndex{lenEq}})
	fl.emit(ir.Node{Op: ir.OpBranch, Args: []ir.NodeIndex{lenEq}, Targets: []ir.BlockIndex{ptrBlk, mergeBlk}})
	fl.f.Link(fl.cur, ptrBlk)
	fl.f.Link(fl.cur, mergeBlk)

	fl.cur = ptrBlk
	leftPtr := fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{left}})
	rightPtr := fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{right}})
	ptrEq := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinEq), Args: []ir.NodeIndex{leftPtr, rightPtr}})
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(tmp), Args: []ir.NodeIndex{ptrEq}})
	fl.jumpTo(mergeBlk)

	fl.cur = mergeBlk
	result := fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: types.BOOL, AuxInt: int64(tmp)})
	if v.Op == ast.OpNe {
		return fl.emit(ir.Node{Op: ir.OpUnary, Type: types.BOOL, AuxInt: int64(ir.UnNot), Args: []ir.NodeIndex{result}})
	}
	return result
}

func (fl *funcLowerer) lowerUnary(n ast.NodeIndex, v ast.Unary) ir.NodeIndex {
	operand := fl.lowerExpr(v.Operand)
	resultType := fl.exprType(n)
	switch v.Op {
	case ast.UnaryNeg:
		return fl.emit(ir.Node{Op: ir.OpUnary, Type: resultType, AuxInt: int64(ir.UnNeg), Args: []ir.NodeIndex{operand}})
	case ast.UnaryNot:
		return fl.emit(ir.Node{Op: ir.OpUnary, Type: types.BOOL, AuxInt: int64(ir.UnNot), Args: []ir.NodeIndex{operand}})
	case ast.UnaryBitNot:
		return fl.emit(ir.Node{Op: ir.OpUnary, Type: resultType, AuxInt: int64(ir.UnBitNot), Args: []ir.NodeIndex{operand}})
	case ast.UnaryOptUnwrap:
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: resultType, Args: []ir.NodeIndex{operand}})
	}
	return operand
}

func (fl *funcLowerer) lowerCall(n ast.NodeIndex, v ast.Call) ir.NodeIndex {
	calleeNode := fl.l.File.GetNode(v.Callee)
	resultType := fl.exprType(n)

	switch cv := calleeNode.Variant.(type) {
	case ast.FieldAccess:
		recvType, _ := fl.l.Chk.ExprType(cv.Base)
		recv := fl.lowerExpr(cv.Base)
		deref := fl.l.Reg.Materialize(recvType)
		if fl.l.Reg.IsPointer(deref) {
			deref = fl.l.Reg.PointerElem(deref)
		}
		typeName := fl.l.Reg.Get(deref).Name
		calleeName := MethodLowerName(typeName, cv.Field)
		args := make([]ir.NodeIndex, 0, len(v.Args)+1)
		args = append(args, recv)
		for _, a := range v.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Node{Op: ir.OpCallDirect, Type: resultType, Aux: calleeName, Args: args})
	case ast.Ident:
		args := make([]ir.NodeIndex, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Node{Op: ir.OpCallDirect, Type: resultType, Aux: cv.Name, Args: args})
	}

	callee := fl.lowerExpr(v.Callee)
	args := make([]ir.NodeIndex, 0, len(v.Args)+1)
	args = append(args, callee)
	for _, a := range v.Args {
		args = append(args, fl.lowerExpr(a))
	}
	return fl.emit(ir.Node{Op: ir.OpCallIndirect, Type: resultType, Args: args})
}

// MethodLowerName synthesizes the symbol name a method is emitted under,
// matching the checker's MethodLookupName convention.
func MethodLowerName(typeName, methodName string) string {
	return typeName + "_" + methodName
}

func (fl *funcLowerer) lowerIndex(n ast.NodeIndex, v ast.Index) ir.NodeIndex {
	baseType, _ := fl.l.Chk.ExprType(v.Base)
	baseType = fl.l.Reg.Materialize(baseType)
	resultType := fl.exprType(n)
	idx := fl.lowerExpr(v.Idx)

	if baseNode := fl.l.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent {
		ident := baseNode.Variant.(ast.Ident)
		if localIdx, ok := fl.localIndex(ident.Name); ok && fl.l.Reg.IsArray(baseType) {
			return fl.emit(ir.Node{Op: ir.OpIndexLocalRead, Type: resultType, AuxInt: int64(localIdx), Args: []ir.NodeIndex{idx}})
		}
	}

	base := fl.lowerExpr(v.Base)
	elemSize := fl.l.Reg.SizeOf(resultType)
	if fl.l.Reg.IsSlice(baseType) || baseType == types.STRING {
		ptr := fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{base}})
		return fl.emit(ir.Node{Op: ir.OpIndexValueRead, Type: resultType, AuxInt: elemSize, Args: []ir.NodeIndex{ptr, idx}})
	}
	return fl.emit(ir.Node{Op: ir.OpIndexValueRead, Type: resultType, AuxInt: elemSize, Args: []ir.NodeIndex{base, idx}})
}

// arrayBaseAddr returns a pointer to the first element of an array-typed
// expression, taking the address of the underlying local directly when
// possible and otherwise spilling the array value to a fresh temp first.
func (fl *funcLowerer) arrayBaseAddr(n ast.NodeIndex, arrType types.Index) ir.NodeIndex {
	if node := fl.l.File.GetNode(n); node.Kind == ast.KindIdent {
		ident := node.Variant.(ast.Ident)
		if localIdx, ok := fl.localIndex(ident.Name); ok {
			return fl.emit(ir.Node{Op: ir.OpAddrLocal, Type: fl.l.Reg.MakePointer(arrType), AuxInt: int64(localIdx)})
		}
	}
	val := fl.lowerExpr(n)
	tmp := fl.newTemp(arrType)
	fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: arrType, AuxInt: int64(tmp), Args: []ir.NodeIndex{val}})
	return fl.emit(ir.Node{Op: ir.OpAddrLocal, Type: fl.l.Reg.MakePointer(arrType), AuxInt: int64(tmp)})
}

func (fl *funcLowerer) lowerSliceExpr(n ast.NodeIndex, v ast.SliceExpr) ir.NodeIndex {
	baseType, _ := fl.l.Chk.ExprType(v.Base)
	baseType = fl.l.Reg.Materialize(baseType)
	elemType := fl.l.Reg.ElemType(baseType)
	elemSize := fl.l.Reg.SizeOf(elemType)

	var basePtr, base ir.NodeIndex
	if fl.l.Reg.IsArray(baseType) {
		basePtr = fl.arrayBaseAddr(v.Base, baseType)
	} else {
		base = fl.lowerExpr(v.Base)
		if fl.l.Reg.IsSlice(baseType) {
			basePtr = fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{base}})
		} else {
			basePtr = base
		}
	}

	var lo ir.NodeIndex
	if v.Start != ast.NullNode {
		lo = fl.lowerExpr(v.Start)
	} else {
		lo = fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: 0})
	}
	var hi ir.NodeIndex
	if v.End != ast.NullNode {
		hi = fl.lowerExpr(v.End)
	} else if fl.l.Reg.IsArray(baseType) {
		hi = fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.ArrayLen(baseType)})
	} else {
		hi = fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{base}})
	}

	ptr := fl.emit(ir.Node{Op: ir.OpAddrIndexValue, Args: []ir.NodeIndex{basePtr, lo}, AuxInt: elemSize})
	length := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.I64IDX, AuxInt: int64(ir.BinSub), Args: []ir.NodeIndex{hi, lo}})
	resultType := fl.exprType(n)
	return fl.emit(ir.Node{Op: ir.OpSliceValue, Type: resultType, Args: []ir.NodeIndex{ptr, length}})
}

func (fl *funcLowerer) lowerFieldAccess(n ast.NodeIndex, v ast.FieldAccess) ir.NodeIndex {
	resultType := fl.exprType(n)

	if v.Base != ast.NullNode {
		if baseNode := fl.l.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent {
			ident := baseNode.Variant.(ast.Ident)
			if _, isLocal := fl.localIndex(ident.Name); !isLocal {
				if typeIdx, ok := fl.l.Reg.LookupByName(ident.Name); ok {
					return fl.lowerStaticFieldAccess(typeIdx, v.Field, resultType)
				}
			}
		}
	}

	baseType, _ := fl.l.Chk.ExprType(v.Base)
	baseType = fl.l.Reg.Materialize(baseType)
	structType := baseType
	if fl.l.Reg.IsPointer(structType) {
		structType = fl.l.Reg.PointerElem(structType)
	}

	if fl.l.Reg.IsSlice(baseType) {
		base := fl.lowerExpr(v.Base)
		switch v.Field {
		case "ptr":
			return fl.emit(ir.Node{Op: ir.OpSlicePtr, Type: resultType, Args: []ir.NodeIndex{base}})
		case "len":
			return fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{base}})
		}
	}
	if fl.l.Reg.IsArray(baseType) && v.Field == "len" {
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.ArrayLen(baseType)})
	}

	offset, _, _ := fl.l.Reg.FieldOffset(structType, v.Field)

	if baseNode := fl.l.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent && !fl.l.Reg.IsPointer(baseType) {
		ident := baseNode.Variant.(ast.Ident)
		if localIdx, ok := fl.localIndex(ident.Name); ok {
			return fl.emit(ir.Node{Op: ir.OpFieldLocalRead, Type: resultType, AuxInt: int64(localIdx), AuxInt2: offset})
		}
	}

	base := fl.lowerExpr(v.Base)
	if fl.l.Reg.IsPointer(baseType) {
		return fl.emit(ir.Node{Op: ir.OpFieldValueRead, Type: resultType, AuxInt: offset, Args: []ir.NodeIndex{base}})
	}
	addr := fl.emit(ir.Node{Op: ir.OpAddrOffset, AuxInt: offset, Args: []ir.NodeIndex{base}})
	return fl.emit(ir.Node{Op: ir.OpFieldValueRead, Type: resultType, AuxInt: 0, Args: []ir.NodeIndex{addr}})
}

// lowerStaticFieldAccess resolves an enum/union variant name to its
// constant tag value.
func (fl *funcLowerer) lowerStaticFieldAccess(typeIdx types.Index, field string, resultType types.Index) ir.NodeIndex {
	t := fl.l.Reg.Get(typeIdx)
	switch t.Kind {
	case types.KindEnum:
		for _, variant := range t.Variants {
			if variant.Name == field {
				return fl.emit(ir.Node{Op: ir.OpConstInt, Type: resultType, AuxInt: variant.Value})
			}
		}
	case types.KindUnion:
		for i, variant := range t.UVariants {
			if variant.Name == field {
				return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: int64(i)})
			}
		}
	}
	return fl.emit(ir.Node{Op: ir.OpNop})
}

func (fl *funcLowerer) lowerArrayLiteral(n ast.NodeIndex, v ast.ArrayLiteral) ir.NodeIndex {
	resultType := fl.exprType(n)
	elemType := fl.l.Reg.ElemType(resultType)
	tmp := fl.newTemp(resultType)
	for i, e := range v.Elements {
		val := fl.lowerExpr(e)
		idxConst := fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: int64(i)})
		fl.emit(ir.Node{Op: ir.OpIndexLocalWrite, Type: elemType, AuxInt: int64(tmp), Args: []ir.NodeIndex{idxConst, val}})
	}
	return fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: resultType, AuxInt: int64(tmp)})
}

func (fl *funcLowerer) lowerAddrOf(v ast.AddrOf) ir.NodeIndex {
	operandNode := fl.l.File.GetNode(v.Operand)
	if operandNode.Kind == ast.KindIdent {
		ident := operandNode.Variant.(ast.Ident)
		if localIdx, ok := fl.localIndex(ident.Name); ok {
			elemType := fl.f.Locals[localIdx].Type
			return fl.emit(ir.Node{Op: ir.OpAddrLocal, Type: fl.l.Reg.MakePointer(elemType), AuxInt: int64(localIdx)})
		}
		if sym, ok := fl.l.Chk.Global.LookupLocal(ident.Name); ok {
			return fl.emit(ir.Node{Op: ir.OpAddrGlobal, Type: fl.l.Reg.MakePointer(sym.Type), Aux: ident.Name})
		}
	}
	if fieldNode, ok := operandNode.Variant.(ast.FieldAccess); ok {
		baseType, _ := fl.l.Chk.ExprType(fieldNode.Base)
		baseType = fl.l.Reg.Materialize(baseType)
		structType := baseType
		if fl.l.Reg.IsPointer(structType) {
			structType = fl.l.Reg.PointerElem(structType)
		}
		offset, fieldType, _ := fl.l.Reg.FieldOffset(structType, fieldNode.Field)
		base := fl.lowerExpr(fieldNode.Base)
		if fl.l.Reg.IsPointer(baseType) {
			return fl.emit(ir.Node{Op: ir.OpAddrOffset, Type: fl.l.Reg.MakePointer(fieldType), AuxInt: offset, Args: []ir.NodeIndex{base}})
		}
	}
	return fl.lowerExpr(v.Operand)
}

func (fl *funcLowerer) lowerIfExpr(n ast.NodeIndex, v ast.IfExpr) ir.NodeIndex {
	resultType := fl.exprType(n)
	cond := fl.lowerExpr(v.Cond)
	thenVal := fl.lowerExpr(v.Then)
	if v.Else == ast.NullNode {
		return thenVal
	}
	elseVal := fl.lowerExpr(v.Else)
	return fl.emit(ir.Node{Op: ir.OpSelect, Type: resultType, Args: []ir.NodeIndex{cond, thenVal, elseVal}})
}

// lowerSwitchExpr builds a right-associated OpSelect chain (spec
// §4.4.3's literal, eagerly-evaluated simplification): every case body
// and the else body are evaluated unconditionally.
func (fl *funcLowerer) lowerSwitchExpr(n ast.NodeIndex, v ast.SwitchExpr) ir.NodeIndex {
	resultType := fl.exprType(n)
	subject := fl.lowerExpr(v.Subject)

	var tail ir.NodeIndex
	if v.ElseBody != ast.NullNode {
		tail = fl.lowerExpr(v.ElseBody)
	} else {
		tail = fl.emit(ir.Node{Op: ir.OpConstNull, Type: resultType})
	}

	for i := len(v.Cases) - 1; i >= 0; i-- {
		cs := v.Cases[i]
		body := fl.lowerExpr(cs.Body)
		match := ir.NullNode
		for _, p := range cs.Patterns {
			patVal := fl.lowerExpr(p)
			eq := fl.emit(ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinEq), Args: []ir.NodeIndex{subject, patVal}})
			if match == ir.NullNode {
				match = eq
			} else {
				orTmp := fl.newTemp(types.BOOL)
				fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: types.BOOL, AuxInt: int64(orTmp), Args: []ir.NodeIndex{match}})
				match = fl.emit(ir.Node{Op: ir.OpBinary, Type: types.BOOL, AuxInt: int64(ir.BinBitOr), Args: []ir.NodeIndex{match, eq}})
			}
		}
		tail = fl.emit(ir.Node{Op: ir.OpSelect, Type: resultType, Args: []ir.NodeIndex{match, body, tail}})
	}
	return tail
}

func (fl *funcLowerer) lowerBlockExpr(n ast.NodeIndex, v ast.BlockExpr) ir.NodeIndex {
	for _, s := range v.Stmts {
		fl.lowerStmt(s)
	}
	if v.Expr == ast.NullNode {
		return fl.emit(ir.Node{Op: ir.OpNop})
	}
	return fl.lowerExpr(v.Expr)
}

func (fl *funcLowerer) lowerStructInit(n ast.NodeIndex, v ast.StructInit) ir.NodeIndex {
	resultType := fl.exprType(n)
	tmp := fl.newTemp(resultType)
	for _, f := range v.Fields {
		offset, fieldType, _ := fl.l.Reg.FieldOffset(resultType, f.Name)
		val := fl.lowerExpr(f.Value)
		fl.emit(ir.Node{Op: ir.OpFieldLocalWrite, Type: fieldType, AuxInt: int64(tmp), AuxInt2: offset, Args: []ir.NodeIndex{val}})
	}
	return fl.emit(ir.Node{Op: ir.OpLoadLocal, Type: resultType, AuxInt: int64(tmp)})
}

func (fl *funcLowerer) lowerBuiltin(n ast.NodeIndex, v ast.BuiltinCall) ir.NodeIndex {
	resultType := fl.exprType(n)
	switch v.Name {
	case ast.BuiltinSizeOf:
		t := fl.l.Chk.ResolveTypeExpr(v.TypeArg)
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.SizeOf(t)})
	case ast.BuiltinAlignOf:
		t := fl.l.Chk.ResolveTypeExpr(v.TypeArg)
		return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.AlignmentOf(t)})
	case ast.BuiltinLen:
		base := fl.lowerExpr(v.Args[0])
		baseType, _ := fl.l.Chk.ExprType(v.Args[0])
		baseType = fl.l.Reg.Materialize(baseType)
		if fl.l.Reg.IsArray(baseType) {
			return fl.emit(ir.Node{Op: ir.OpConstInt, Type: types.I64IDX, AuxInt: fl.l.Reg.ArrayLen(baseType)})
		}
		return fl.emit(ir.Node{Op: ir.OpSliceLen, Type: types.I64IDX, Args: []ir.NodeIndex{base}})
	case ast.BuiltinIntCast:
		arg := fl.lowerExpr(v.Args[0])
		t := resultType
		if v.TypeArg != ast.NullNode {
			t = fl.l.Chk.ResolveTypeExpr(v.TypeArg)
		}
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: t, Args: []ir.NodeIndex{arg}})
	case ast.BuiltinPtrCast:
		// T already denotes the target pointer type (spec: "T must be a
		// pointer -> T"), unlike @intToPtr below, which wraps T itself.
		arg := fl.lowerExpr(v.Args[0])
		t := resultType
		if v.TypeArg != ast.NullNode {
			t = fl.l.Chk.ResolveTypeExpr(v.TypeArg)
		}
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: t, Args: []ir.NodeIndex{arg}})
	case ast.BuiltinIntToPtr:
		arg := fl.lowerExpr(v.Args[0])
		t := resultType
		if v.TypeArg != ast.NullNode {
			t = fl.l.Reg.MakePointer(fl.l.Chk.ResolveTypeExpr(v.TypeArg))
		}
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: t, Args: []ir.NodeIndex{arg}})
	case ast.BuiltinPtrToInt:
		arg := fl.lowerExpr(v.Args[0])
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: types.I64IDX, Args: []ir.NodeIndex{arg}})
	case ast.BuiltinString:
		arg := fl.lowerExpr(v.Args[0])
		return fl.emit(ir.Node{Op: ir.OpConvert, Type: types.STRING, Args: []ir.NodeIndex{arg}})
	case ast.BuiltinAssert:
		cond := fl.lowerExpr(v.Args[0])
		return fl.emit(ir.Node{Op: ir.OpCallDirect, Type: types.VOID, Aux: "__lumen_assert", Args: []ir.NodeIndex{cond}})
	case ast.BuiltinPrint, ast.BuiltinPrintln, ast.BuiltinEprint, ast.BuiltinEprintln:
		args := make([]ir.NodeIndex, 0, len(v.Args))
		for _, a := range v.Args {
			args = append(args, fl.lowerExpr(a))
		}
		return fl.emit(ir.Node{Op: ir.OpCallDirect, Type: types.VOID, Aux: builtinPrintName(v.Name), Args: args})
	}
	return fl.emit(ir.Node{Op: ir.OpNop})
}

func builtinPrintName(n ast.BuiltinName) string {
	switch n {
	case ast.BuiltinPrint:
		return "__lumen_print"
	case ast.BuiltinPrintln:
		return "__lumen_println"
	case ast.BuiltinEprint:
		return "__lumen_eprint"
	case ast.BuiltinEprintln:
		return "__lumen_eprintln"
	}
	return "__lumen_print"
}

func (fl *funcLowerer) lowerStringInterp(n ast.NodeIndex, v ast.StringInterp) ir.NodeIndex {
	var acc ir.NodeIndex = ir.NullNode
	for _, seg := range v.Segments {
		var part ir.NodeIndex
		if seg.Expr != ast.NullNode {
			t, _ := fl.l.Chk.ExprType(seg.Expr)
			val := fl.lowerExpr(seg.Expr)
			if fl.l.Reg.Materialize(t) == types.STRING {
				part = val
			} else {
				part = fl.emit(ir.Node{Op: ir.OpConvert, Type: types.STRING, Args: []ir.NodeIndex{val}})
			}
		} else {
			raw := escapeString(seg.Text)
			idx := fl.f.AddString(raw)
			part = fl.emit(ir.Node{Op: ir.OpConstString, Type: types.STRING, AuxInt: idx})
		}
		if acc == ir.NullNode {
			acc = part
		} else {
			acc = fl.emit(ir.Node{Op: ir.OpStrConcat, Type: types.STRING, Args: []ir.NodeIndex{acc, part}})
		}
	}
	if acc == ir.NullNode {
		idx := fl.f.AddString(nil)
		acc = fl.emit(ir.Node{Op: ir.OpConstString, Type: types.STRING, AuxInt: idx})
	}
	return acc
}

// lowerStoreTo lowers an assignment to an arbitrary storage-location
// expression (identifier, field, index, or deref), mirroring the
// checker's checkAssignTarget dispatch.
func (fl *funcLowerer) lowerStoreTo(target ast.NodeIndex, value ir.NodeIndex) {
	node := fl.l.File.GetNode(target)
	switch v := node.Variant.(type) {
	case ast.Ident:
		if idx, ok := fl.localIndex(v.Name); ok {
			t := fl.f.Locals[idx].Type
			fl.emit(ir.Node{Op: ir.OpStoreLocal, Type: t, AuxInt: int64(idx), Args: []ir.NodeIndex{value}})
			return
		}
		if sym, ok := fl.l.Chk.Global.LookupLocal(v.Name); ok {
			fl.emit(ir.Node{Op: ir.OpStoreGlobal, Type: sym.Type, Aux: v.Name, Args: []ir.NodeIndex{value}})
		}
	case ast.FieldAccess:
		baseType, _ := fl.l.Chk.ExprType(v.Base)
		baseType = fl.l.Reg.Materialize(baseType)
		structType := baseType
		if fl.l.Reg.IsPointer(structType) {
			structType = fl.l.Reg.PointerElem(structType)
		}
		offset, fieldType, _ := fl.l.Reg.FieldOffset(structType, v.Field)

		if baseNode := fl.l.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent && !fl.l.Reg.IsPointer(baseType) {
			ident := baseNode.Variant.(ast.Ident)
			if localIdx, ok := fl.localIndex(ident.Name); ok {
				fl.emit(ir.Node{Op: ir.OpFieldLocalWrite, Type: fieldType, AuxInt: int64(localIdx), AuxInt2: offset, Args: []ir.NodeIndex{value}})
				return
			}
		}
		base := fl.lowerExpr(v.Base)
		fl.emit(ir.Node{Op: ir.OpFieldValueWrite, Type: fieldType, AuxInt: offset, Args: []ir.NodeIndex{base, value}})
	case ast.Index:
		baseType, _ := fl.l.Chk.ExprType(v.Base)
		baseType = fl.l.Reg.Materialize(baseType)
		elemType := fl.l.Reg.ElemType(baseType)
		elemSize := fl.l.Reg.SizeOf(elemType)
		idx := fl.lowerExpr(v.Idx)

		if baseNode := fl.l.File.GetNode(v.Base); baseNode.Kind == ast.KindIdent {
			ident := baseNode.Variant.(ast.Ident)
			if localIdx, ok := fl.localIndex(ident.Name); ok && fl.l.Reg.IsArray(baseType) {
				fl.emit(ir.Node{Op: ir.OpIndexLocalWrite, Type: elemType, AuxInt: int64(localIdx), Args: []ir.NodeIndex{idx, value}})
				return
			}
		}
		base := fl.lowerExpr(v.Base)
		ptr := base
		if fl.l.Reg.IsSlice(baseType) {
			ptr = fl.emit(ir.Node{Op: ir.OpSlicePtr, Args: []ir.NodeIndex{base}})
		}
		fl.emit(ir.Node{Op: ir.OpIndexValueWrite, Type: elemType, AuxInt: elemSize, Args: []ir.NodeIndex{ptr, idx, value}})
	case ast.Deref:
		ptr := fl.lowerExpr(v.Operand)
		fl.emit(ir.Node{Op: ir.OpPtrStore, Args: []ir.NodeIndex{ptr, value}})
	}
}
