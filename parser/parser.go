// Recursive descent parser with precedence climbing for expressions.
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser: it starts from the top
// grammar rule and works its way down into nested sub-expressions before
// reaching the leaves of the syntax tree (terminal rules).
package parser

import (
	"github.com/hashicorp/go-multierror"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/diagnostics"
	"github.com/informatter/flux/token"
)

const maxErrors = 50

var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorTokenTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.MOD,
}

// Parser turns a token stream into an ast.File, collecting diagnostics
// rather than stopping at the first error so a single run can report
// several problems at once.
//
// NOTE: the parser's position is always one unit ahead of the current
// token, matching the teacher's convention: advance() returns the token it
// just stepped past via previous().
type Parser struct {
	file   string
	tokens []token.Token
	position int
	errs   *multierror.Error
	warnings []diagnostics.Diagnostic
}

// Make initializes and returns a new Parser instance for the given token
// stream, attributing diagnostics to file.
func Make(file string, tokens []token.Token) *Parser {
	return &Parser{file: file, tokens: tokens, position: 0}
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.position]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.position-1]
}

func (p *Parser) advance() token.Token {
	if !p.isFinished() {
		p.position++
	}
	return p.previous()
}

func (p *Parser) isFinished() bool {
	return p.peek().TokenType == token.EOF
}

func (p *Parser) checkType(t token.TokenType) bool {
	if p.isFinished() {
		return t == token.EOF
	}
	return p.peek().TokenType == t
}

// checkNextType reports whether the token after the current one is t,
// without consuming anything. Used to disambiguate a comprehension
// generator (`x <- xs`) from a guard expression that also starts with an
// identifier.
func (p *Parser) checkNextType(t token.TokenType) bool {
	next := p.position + 1
	if next >= len(p.tokens) {
		return t == token.EOF
	}
	return p.tokens[next].TokenType == t
}

func (p *Parser) isMatch(types ...token.TokenType) bool {
	for _, t := range types {
		if p.checkType(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) span() diagnostics.Span {
	tok := p.peek()
	return diagnostics.Span{File: p.file, Line: tok.Line, Column: tok.Column, Length: len(tok.Lexeme)}
}

func (p *Parser) errf(code, format string, args ...any) {
	p.errs = multierror.Append(p.errs, diagnostics.Errorf(code, p.span(), format, args...))
}

// warnf records a non-fatal diagnostic: unlike errf, this never affects
// Parse's returned error, so a caller can finish parsing and still surface
// the warning (e.g. a redundant catch-all match arm) via Warnings().
func (p *Parser) warnf(code, format string, args ...any) {
	p.warnings = append(p.warnings, diagnostics.Warnf(code, p.span(), format, args...))
}

// Warnings returns the non-fatal diagnostics collected while parsing.
func (p *Parser) Warnings() []diagnostics.Diagnostic {
	return p.warnings
}

// consume advances past the current token if it matches t, otherwise
// records a diagnostic with the given code/message and returns the current
// token without advancing past it.
func (p *Parser) consume(t token.TokenType, code, message string) token.Token {
	if p.checkType(t) {
		return p.advance()
	}
	// missing-comma detection: a very common slip is to omit `,` between
	// list/tuple/call elements — if that's what's missing, say so
	// specifically instead of a generic "expected X".
	if t == token.COMMA {
		p.errf("E073", "%s", message)
	} else {
		p.errf("E074", "%s", message)
	}
	bad := p.peek()
	return bad
}

// synchronize discards tokens until it reaches a plausible statement
// boundary, so one malformed statement doesn't cascade into dozens of
// spurious follow-on diagnostics. This generalizes the teacher's
// `position++`-only resync (parser.go's old Parse loop) into three modes:
// statement-keyword boundaries, a closing brace, or EOF.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isFinished() {
		switch p.peek().TokenType {
		case token.LET, token.FUNC, token.IF, token.MATCH, token.IMPORT, token.MODULE, token.RCUR:
			return
		}
		p.advance()
	}
}

// Parse parses the full token stream into an ast.File. It always returns a
// best-effort File even when diagnostics were recorded, so a caller like
// the REPL can still inspect what did parse.
func (p *Parser) Parse() (*ast.File, error) {
	file := &ast.File{}

	if p.checkType(token.MODULE) {
		file.Module = p.moduleDecl()
	}
	for p.checkType(token.IMPORT) {
		file.Imports = append(file.Imports, p.importStmt())
	}

	for !p.isFinished() {
		if len(multierrorLen(p.errs)) >= maxErrors {
			p.errf("E075", "too many errors, stopping")
			break
		}
		stmt := p.declaration()
		if stmt != nil {
			file.Statements = append(file.Statements, stmt)
		}
	}

	if p.errs != nil {
		return file, p.errs.ErrorOrNil()
	}
	return file, nil
}

func multierrorLen(e *multierror.Error) []error {
	if e == nil {
		return nil
	}
	return e.Errors
}

func (p *Parser) moduleDecl() *ast.ModuleDeclStmt {
	p.advance() // `module`
	path := p.dottedPath()
	return &ast.ModuleDeclStmt{Path: path}
}

func (p *Parser) importStmt() ast.ImportStmt {
	p.advance() // `import`
	path := p.dottedPath()
	stmt := ast.ImportStmt{Path: path}
	if p.checkType(token.AS) {
		p.advance()
		stmt.Alias = p.consume(token.IDENTIFIER, "E074", "expected alias identifier after 'as'")
	}
	return stmt
}

func (p *Parser) dottedPath() []token.Token {
	var path []token.Token
	path = append(path, p.consume(token.IDENTIFIER, "E074", "expected module path segment"))
	for p.checkType(token.DOT) {
		p.advance()
		path = append(path, p.consume(token.IDENTIFIER, "E074", "expected module path segment"))
	}
	return path
}

// declaration parses one top-level or block-level statement, recovering to
// the next statement boundary if it fails.
func (p *Parser) declaration() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			p.synchronize()
			stmt = nil
		}
	}()

	switch {
	case p.checkType(token.LET):
		return p.letStatement()
	case p.checkType(token.FUNC):
		return p.funcDeclStatement()
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) letStatement() ast.Stmt {
	p.advance() // `let`
	pattern := p.pattern()
	p.consume(token.ASSIGN, "E074", "expected '=' after let pattern")
	value := p.expression()
	return ast.LetStmt{Pattern: pattern, Value: value}
}

// funcDeclStatement parses `fn name(params) -> expr` and `fn name(params) {
// stmt; stmt; expr }` alike: a `{` right after the parameter list means a
// brace body (reusing thenBody's block parsing), otherwise `->` is
// required before a single expression body.
func (p *Parser) funcDeclStatement() ast.Stmt {
	p.advance() // `fn`
	name := p.consume(token.IDENTIFIER, "E074", "expected function name")
	params := p.paramList()
	body := p.funcBody()
	return ast.FuncDeclStmt{Fn: ast.FuncLit{Name: name, Params: params, Body: body}}
}

// funcBody parses a function/lambda body: a brace block if one follows
// immediately, otherwise the `-> expr` arrow form.
func (p *Parser) funcBody() ast.Expr {
	if p.checkType(token.LCUR) {
		return p.doBlockBody()
	}
	p.consume(token.ARROW, "E074", "expected '->' or '{' before function body")
	return p.expression()
}

func (p *Parser) paramList() []ast.Param {
	p.consume(token.LPA, "E074", "expected '(' to start parameter list")
	var params []ast.Param
	if !p.checkType(token.RPA) {
		for {
			params = append(params, ast.Param{Pattern: p.pattern()})
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	p.consume(token.RPA, "E074", "expected ')' to close parameter list")
	return params
}

func (p *Parser) expressionStatement() ast.Stmt {
	expr := p.expression()
	return ast.ExpressionStmt{Expression: expr}
}
