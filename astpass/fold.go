package astpass

import (
	"math"
	"strings"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/token"
)

func foldStmt(stmt ast.Stmt) ast.Stmt {
	switch n := stmt.(type) {
	case ast.ExpressionStmt:
		n.Expression = foldExpr(n.Expression)
		return n
	case ast.LetStmt:
		n.Value = foldExpr(n.Value)
		return n
	case ast.FuncDeclStmt:
		n.Fn = foldFuncLit(n.Fn)
		return n
	case ast.BlockStmt:
		stmts := make([]ast.Stmt, len(n.Statements))
		for i, s := range n.Statements {
			stmts[i] = foldStmt(s)
		}
		n.Statements = stmts
		return n
	default:
		return stmt
	}
}

func foldFuncLit(fn ast.FuncLit) ast.FuncLit {
	fn.Body = foldExpr(fn.Body)
	return fn
}

// foldExpr folds expr bottom-up: every child is folded first, then this
// node is folded if doing so is now possible. A Binary/Unary whose operand
// is a plain Literal after folding its children becomes a new Literal; any
// runtime-only failure mode (division by zero, a type mismatch) is left
// unfolded so the VM reports the exact same error at the exact same
// runtime moment --optimize would otherwise have skipped straight past.
func foldExpr(expr ast.Expr) ast.Expr {
	switch n := expr.(type) {
	case ast.Grouping:
		n.Expression = foldExpr(n.Expression)
		if lit, ok := n.Expression.(ast.Literal); ok {
			return lit
		}
		return n
	case ast.Unary:
		n.Right = foldExpr(n.Right)
		return foldUnary(n)
	case ast.Binary:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return foldBinary(n)
	case ast.Logical:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return n
	case ast.ConsExpr:
		n.Head = foldExpr(n.Head)
		n.Tail = foldExpr(n.Tail)
		return n
	case ast.Tuple:
		n.Elements = foldExprs(n.Elements)
		return n
	case ast.ArrayLit:
		n.Elements = foldExprs(n.Elements)
		return n
	case ast.HashLit:
		pairs := make([]ast.HashPair, len(n.Pairs))
		for i, p := range n.Pairs {
			pairs[i] = ast.HashPair{Key: foldExpr(p.Key), Value: foldExpr(p.Value)}
		}
		n.Pairs = pairs
		return n
	case ast.IndexExpr:
		n.Target = foldExpr(n.Target)
		n.Index = foldExpr(n.Index)
		return n
	case ast.FieldExpr:
		n.Target = foldExpr(n.Target)
		return n
	case ast.Call:
		n.Callee = foldExpr(n.Callee)
		n.Args = foldExprs(n.Args)
		return n
	case ast.If:
		n.Cond = foldExpr(n.Cond)
		n.Then = foldExpr(n.Then)
		n.Else = foldExpr(n.Else)
		return n
	case ast.Match:
		n.Scrutinee = foldExpr(n.Scrutinee)
		arms := make([]ast.MatchArm, len(n.Arms))
		for i, a := range n.Arms {
			arms[i] = ast.MatchArm{Pattern: a.Pattern, Body: foldExpr(a.Body)}
			if a.Guard != nil {
				arms[i].Guard = foldExpr(a.Guard)
			}
		}
		n.Arms = arms
		return n
	case ast.DoBlock:
		stmts := make([]ast.Stmt, len(n.Statements))
		for i, s := range n.Statements {
			stmts[i] = foldStmt(s)
		}
		n.Statements = stmts
		n.Result = foldExpr(n.Result)
		return n
	case ast.FuncLit:
		return foldFuncLit(n)
	case ast.StringInterp:
		holes := make([]ast.Expr, len(n.Holes))
		for i, h := range n.Holes {
			holes[i] = foldExpr(h)
		}
		n.Holes = holes
		return n
	default:
		return expr
	}
}

func foldExprs(exprs []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = foldExpr(e)
	}
	return out
}

func foldUnary(n ast.Unary) ast.Expr {
	lit, ok := n.Right.(ast.Literal)
	if !ok {
		return n
	}
	switch n.Operator.TokenType {
	case token.SUB:
		switch lit.Kind {
		case ast.LitInt:
			return ast.Literal{Kind: ast.LitInt, Value: -lit.Value.(int64)}
		case ast.LitFloat:
			return ast.Literal{Kind: ast.LitFloat, Value: -lit.Value.(float64)}
		}
	case token.BANG:
		if lit.Kind == ast.LitBool {
			return ast.Literal{Kind: ast.LitBool, Value: !lit.Value.(bool)}
		}
	}
	return n
}

func foldBinary(n ast.Binary) ast.Expr {
	left, lok := n.Left.(ast.Literal)
	right, rok := n.Right.(ast.Literal)
	if !lok || !rok {
		return n
	}

	if n.Operator.TokenType == token.ADD && left.Kind == ast.LitString && right.Kind == ast.LitString {
		return ast.Literal{Kind: ast.LitString, Value: left.Value.(string) + right.Value.(string)}
	}

	if isArith(n.Operator.TokenType) {
		if folded, ok := foldArith(n.Operator.TokenType, left, right); ok {
			return folded
		}
		return n
	}
	if isCompare(n.Operator.TokenType) {
		if folded, ok := foldCompare(n.Operator.TokenType, left, right); ok {
			return folded
		}
	}
	return n
}

func isArith(t token.TokenType) bool {
	switch t {
	case token.ADD, token.SUB, token.MULT, token.DIV, token.MOD:
		return true
	}
	return false
}

func isCompare(t token.TokenType) bool {
	switch t {
	case token.EQUAL_EQUAL, token.NOT_EQUAL, token.LARGER, token.LARGER_EQUAL, token.LESS, token.LESS_EQUAL:
		return true
	}
	return false
}

// numeric reads a LitInt/LitFloat literal as a float64 plus whether it was
// an integer, mirroring vm/arith.go's asFloat widening.
func numeric(lit ast.Literal) (value float64, isInt bool, ok bool) {
	switch lit.Kind {
	case ast.LitInt:
		return float64(lit.Value.(int64)), true, true
	case ast.LitFloat:
		return lit.Value.(float64), false, true
	default:
		return 0, false, false
	}
}

// foldArith mirrors vm.execBinaryArith's promotion rule: Integer op Integer
// stays Integer, any Float operand promotes both sides to Float. Division
// and modulo by a literal zero are left unfolded so the VM still raises
// E_DIVISION_BY_ZERO at the statement that would have executed it.
func foldArith(op token.TokenType, left, right ast.Literal) (ast.Expr, bool) {
	lv, lIsInt, lok := numeric(left)
	rv, rIsInt, rok := numeric(right)
	if !lok || !rok {
		return nil, false
	}
	if (op == token.DIV || op == token.MOD) && rv == 0 {
		return nil, false
	}

	if lIsInt && rIsInt {
		li, ri := int64(lv), int64(rv)
		var result int64
		switch op {
		case token.ADD:
			result = li + ri
		case token.SUB:
			result = li - ri
		case token.MULT:
			result = li * ri
		case token.DIV:
			result = li / ri
		case token.MOD:
			result = li % ri
		}
		return ast.Literal{Kind: ast.LitInt, Value: result}, true
	}

	var result float64
	switch op {
	case token.ADD:
		result = lv + rv
	case token.SUB:
		result = lv - rv
	case token.MULT:
		result = lv * rv
	case token.DIV:
		result = lv / rv
	case token.MOD:
		result = math.Mod(lv, rv)
	}
	return ast.Literal{Kind: ast.LitFloat, Value: result}, true
}

func foldCompare(op token.TokenType, left, right ast.Literal) (ast.Expr, bool) {
	if left.Kind == ast.LitString || right.Kind == ast.LitString {
		if left.Kind != ast.LitString || right.Kind != ast.LitString {
			return nil, false
		}
		cmp := strings.Compare(left.Value.(string), right.Value.(string))
		return boolLit(compareOrdered(op, cmp)), true
	}
	if left.Kind == ast.LitBool || right.Kind == ast.LitBool {
		if op != token.EQUAL_EQUAL && op != token.NOT_EQUAL {
			return nil, false
		}
		if left.Kind != ast.LitBool || right.Kind != ast.LitBool {
			return boolLit(op == token.NOT_EQUAL), true
		}
		eq := left.Value.(bool) == right.Value.(bool)
		return boolLit(eq == (op == token.EQUAL_EQUAL)), true
	}

	lv, _, lok := numeric(left)
	rv, _, rok := numeric(right)
	if !lok || !rok {
		return nil, false
	}
	cmp := 0
	switch {
	case lv < rv:
		cmp = -1
	case lv > rv:
		cmp = 1
	}
	return boolLit(compareOrdered(op, cmp)), true
}

func compareOrdered(op token.TokenType, cmp int) bool {
	switch op {
	case token.EQUAL_EQUAL:
		return cmp == 0
	case token.NOT_EQUAL:
		return cmp != 0
	case token.LARGER:
		return cmp > 0
	case token.LARGER_EQUAL:
		return cmp >= 0
	case token.LESS:
		return cmp < 0
	case token.LESS_EQUAL:
		return cmp <= 0
	default:
		return false
	}
}

func boolLit(b bool) ast.Expr {
	return ast.Literal{Kind: ast.LitBool, Value: b}
}
