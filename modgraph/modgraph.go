// Package modgraph resolves a Flux entry file's transitive `import X.Y.Z`
// edges into a dependency graph, detects import cycles, and orders modules
// so each one compiles only after every module it imports from.
//
// No teacher equivalent exists — nilan's REPL/run commands compile a single
// file in isolation. This package is grounded directly on spec.md §4.3's
// module-graph algorithm: per-file parse + canonicalize + declared-name
// check + import-edge recording, DFS white/gray/black cycle detection, and
// a Tarjan/postorder topological compile order.
package modgraph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/token"
	"github.com/hashicorp/go-multierror"
)

// Module is one parsed source file in the graph: either a named,
// importable module (`module A.B` declared as its first statement) or a
// non-importable script (the common case for the entry file).
type Module struct {
	// Name is the dotted module name ("Math.Utils"), or "" for a script.
	Name string
	// Path is the canonical (absolute, cleaned) source path.
	Path    string
	File    *ast.File
	Imports []Import
}

// Import is one resolved `import X.Y.Z [as A]` edge.
type Import struct {
	// Local is the name a FieldExpr qualifies against: the alias if `as A`
	// was given, otherwise the last segment of the dotted path.
	Local  string
	Target *Module
}

// Graph is a fully resolved, cycle-free module graph.
type Graph struct {
	Entry *Module
	// Order lists every module, dependencies before dependents, the entry
	// module last.
	Order []*Module
}

// resolver carries the state threaded through a single Build call: the
// search roots, and every module parsed so far keyed by canonical path, so
// a module imported from two different places is only parsed once.
type resolver struct {
	roots   []string
	byPath  map[string]*Module
	errs    *multierror.Error
}

// Build parses entryPath and every module it transitively imports, using
// searchRoots (in declaration order) to resolve dotted import paths. Unless
// suppressDefaults is set, the entry file's own directory and "./src" are
// appended as additional (lowest-priority) roots, matching spec.md §4.3.
func Build(entryPath string, searchRoots []string, suppressDefaults bool) (*Graph, error) {
	entryCanon, err := canonicalize(entryPath)
	if err != nil {
		return nil, errf(codeReadFailure, entryPath, "cannot resolve entry path: %v", err)
	}

	roots := append([]string{}, searchRoots...)
	if !suppressDefaults {
		roots = append(roots, filepath.Dir(entryCanon), "src")
	}
	canonRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		cr, err := canonicalize(r)
		if err != nil {
			continue // a missing default root (no ./src directory) is not an error
		}
		canonRoots = append(canonRoots, cr)
	}

	r := &resolver{roots: canonRoots, byPath: make(map[string]*Module)}
	entry, err := r.load(entryCanon, "")
	if err != nil {
		r.errs = multierror.Append(r.errs, err)
	}
	if r.errs != nil {
		return nil, r.errs.ErrorOrNil()
	}

	order, err := topoOrder(entry)
	if err != nil {
		return nil, err
	}
	return &Graph{Entry: entry, Order: order}, nil
}

// load parses the file at canonPath (reusing an already-parsed Module for a
// diamond import) and recursively resolves its imports. expectedName is the
// dotted path the caller resolved this file under (empty for the entry
// file, which is loaded by path rather than by import), used to check
// E024.
func (r *resolver) load(canonPath string, expectedName string) (*Module, error) {
	if m, ok := r.byPath[canonPath]; ok {
		return m, nil
	}

	src, err := os.ReadFile(canonPath)
	if err != nil {
		return nil, errf(codeReadFailure, canonPath, "cannot read module: %v", err)
	}

	toks, err := lexer.New(canonPath, string(src)).Scan()
	if err != nil {
		return nil, errf(codeReadFailure, canonPath, "lexing failed: %v", err)
	}
	file, err := parser.Make(canonPath, toks).Parse()
	if err != nil {
		return nil, errf(codeReadFailure, canonPath, "parsing failed: %v", err)
	}

	name := ""
	if file.Module != nil {
		name = dottedName(file.Module.Path)
	}
	if expectedName != "" && name != expectedName {
		return nil, errf(codeModuleNameMismatch, canonPath,
			"module declares '%s' but was imported as '%s'", name, expectedName)
	}

	m := &Module{Name: name, Path: canonPath, File: file}
	r.byPath[canonPath] = m

	for _, imp := range file.Imports {
		target, localName, err := r.resolveImport(imp)
		if err != nil {
			r.errs = multierror.Append(r.errs, err)
			continue
		}
		m.Imports = append(m.Imports, Import{Local: localName, Target: target})
	}
	return m, nil
}

// resolveImport searches every root in order for <root>/X/Y/Z.flx, then
// recursively loads whichever module it names.
func (r *resolver) resolveImport(imp ast.ImportStmt) (*Module, string, error) {
	segs := make([]string, len(imp.Path))
	for i, tok := range imp.Path {
		segs[i] = tok.Lexeme
	}
	dotted := strings.Join(segs, ".")
	rel := filepath.Join(segs...) + ".flx"

	var hits []string
	for _, root := range r.roots {
		candidate := filepath.Join(root, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			hits = append(hits, candidate)
		}
	}
	switch len(hits) {
	case 0:
		return nil, "", errf(codeModuleNotFound, dotted, "module '%s' not found in any search root", dotted)
	case 1:
		// fall through
	default:
		return nil, "", errf(codeDuplicateModule, dotted,
			"module '%s' found in multiple search roots: %s", dotted, strings.Join(hits, ", "))
	}

	canonPath, err := canonicalize(hits[0])
	if err != nil {
		return nil, "", errf(codeReadFailure, hits[0], "cannot resolve module path: %v", err)
	}
	target, err := r.load(canonPath, dotted)
	if err != nil {
		return nil, "", err
	}

	local := segs[len(segs)-1]
	if imp.Alias.Lexeme != "" {
		local = imp.Alias.Lexeme
	}
	return target, local, nil
}

func dottedName(path []token.Token) string {
	segs := make([]string, len(path))
	for i, tok := range path {
		segs[i] = tok.Lexeme
	}
	return strings.Join(segs, ".")
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
