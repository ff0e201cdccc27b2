package ast

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// toJSON renders any node into a JSON-marshalable map, walking the tree
// with a type switch instead of the teacher's visitor-based astPrinter
// (parser/printer.go) since Node now has far more concrete types than
// nilan's four.
func toJSON(n Node) any {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *File:
		stmts := make([]any, len(v.Statements))
		for i, s := range v.Statements {
			stmts[i] = toJSON(s)
		}
		return map[string]any{"type": "File", "statements": stmts}
	case Binary:
		return map[string]any{"type": "Binary", "left": toJSON(v.Left), "op": v.Operator.Lexeme, "right": toJSON(v.Right)}
	case Unary:
		return map[string]any{"type": "Unary", "op": v.Operator.Lexeme, "right": toJSON(v.Right)}
	case Literal:
		return map[string]any{"type": "Literal", "value": v.Value}
	case StringInterp:
		holes := make([]any, len(v.Holes))
		for i, h := range v.Holes {
			holes[i] = toJSON(h)
		}
		return map[string]any{"type": "StringInterp", "segments": v.Segments, "holes": holes}
	case Grouping:
		return map[string]any{"type": "Grouping", "expression": toJSON(v.Expression)}
	case Identifier:
		return map[string]any{"type": "Identifier", "name": v.Name.Lexeme}
	case Logical:
		return map[string]any{"type": "Logical", "left": toJSON(v.Left), "op": v.Operator.Lexeme, "right": toJSON(v.Right)}
	case Call:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = toJSON(a)
		}
		return map[string]any{"type": "Call", "callee": toJSON(v.Callee), "args": args}
	case FuncLit:
		return map[string]any{"type": "FuncLit", "name": v.Name.Lexeme, "body": toJSON(v.Body)}
	case If:
		return map[string]any{"type": "If", "cond": toJSON(v.Cond), "then": toJSON(v.Then), "else": toJSON(v.Else)}
	case Match:
		arms := make([]any, len(v.Arms))
		for i, a := range v.Arms {
			arms[i] = map[string]any{"guard": toJSON(a.Guard), "body": toJSON(a.Body)}
		}
		return map[string]any{"type": "Match", "scrutinee": toJSON(v.Scrutinee), "arms": arms}
	case Tuple:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = toJSON(e)
		}
		return map[string]any{"type": "Tuple", "elements": elems}
	case ArrayLit:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = toJSON(e)
		}
		return map[string]any{"type": "ArrayLit", "elements": elems}
	case HashLit:
		pairs := make([]any, len(v.Pairs))
		for i, pr := range v.Pairs {
			pairs[i] = map[string]any{"key": toJSON(pr.Key), "value": toJSON(pr.Value)}
		}
		return map[string]any{"type": "HashLit", "pairs": pairs}
	case ConsExpr:
		return map[string]any{"type": "ConsExpr", "head": toJSON(v.Head), "tail": toJSON(v.Tail)}
	case IndexExpr:
		return map[string]any{"type": "IndexExpr", "target": toJSON(v.Target), "index": toJSON(v.Index)}
	case FieldExpr:
		return map[string]any{"type": "FieldExpr", "target": toJSON(v.Target), "field": v.Field.Lexeme}
	case DoBlock:
		stmts := make([]any, len(v.Statements))
		for i, s := range v.Statements {
			stmts[i] = toJSON(s)
		}
		return map[string]any{"type": "DoBlock", "statements": stmts, "result": toJSON(v.Result)}
	case ExpressionStmt:
		return map[string]any{"type": "ExpressionStmt", "expression": toJSON(v.Expression)}
	case LetStmt:
		return map[string]any{"type": "LetStmt", "value": toJSON(v.Value)}
	case FuncDeclStmt:
		return map[string]any{"type": "FuncDeclStmt", "name": v.Fn.Name.Lexeme, "body": toJSON(v.Fn.Body)}
	case ImportStmt:
		return map[string]any{"type": "ImportStmt"}
	case ModuleDeclStmt:
		return map[string]any{"type": "ModuleDeclStmt"}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", v)}
	}
}

// DumpJSON pretty-prints a File's AST as JSON to stdout, colored yellow
// when color is enabled — the same presentation the teacher's
// parser/printer.go used, re-targeted at the new node set.
func DumpJSON(file *File) error {
	data, err := json.MarshalIndent(toJSON(file), "", "  ")
	if err != nil {
		return err
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(os.Stdout, string(data))
	return nil
}

// WriteJSONToFile writes a File's AST as JSON to the given path.
func WriteJSONToFile(file *File, path string) error {
	data, err := json.MarshalIndent(toJSON(file), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
