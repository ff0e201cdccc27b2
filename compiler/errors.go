package compiler

import "github.com/informatter/flux/diagnostics"

// Error codes the compiler itself raises (as opposed to the lexer's E07x or
// the parser's E0xx syntax codes). E002 is called out by name in the spec:
// rebinding an already-bound name in the same scope is a compile-time error,
// not a shadow, replacing the teacher's ad hoc SemanticError/DeveloperError
// pair with the same structured diagnostics.Diagnostic every other stage
// uses.
const (
	codeRebind        = "E002"
	codeUnresolved    = "E003"
	codeTooManyArgs   = "E004"
	codeTooFewArgs    = "E005"
	codeBadModuleDecl = "E006"
)

// errf records a non-fatal diagnostic and keeps compiling, mirroring the
// parser's error-recovery discipline: a single bad statement shouldn't hide
// every other mistake in the file.
func (c *Compiler) errf(code string, span diagnostics.Span, format string, args ...any) {
	c.errs = append(c.errs, diagnostics.Errorf(code, span, format, args...))
}

// Errors returns every diagnostic collected during compilation.
func (c *Compiler) Errors() []diagnostics.Diagnostic {
	return c.errs
}
