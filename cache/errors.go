package cache

import "github.com/informatter/flux/diagnostics"

// codeCacheWrite is the only error this package ever surfaces to a caller:
// a failed disk write. A read miss, a corrupt .fxc, or a version mismatch
// are all treated as an ordinary cache miss (see Cache.Get) rather than an
// error, since falling back to a fresh compile is always a safe recovery.
const codeCacheWrite = "E030"

func errf(code string, file string, format string, args ...any) diagnostics.Diagnostic {
	return diagnostics.Errorf(code, diagnostics.Span{File: file}, format, args...)
}
