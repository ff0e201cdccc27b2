package modgraph

import "github.com/informatter/flux/diagnostics"

// Error codes modgraph raises, continuing the numbering compiler/errors.go
// and spec.md §4.3 already assign to this stage.
const (
	codeModuleNotFound     = "E018"
	codeReadFailure        = "E019"
	codeImportCycle        = "E021"
	codeModuleNameMismatch = "E024"
	codeDuplicateModule    = "E027"
)

func errf(code string, file string, format string, args ...any) diagnostics.Diagnostic {
	return diagnostics.Errorf(code, diagnostics.Span{File: file}, format, args...)
}
