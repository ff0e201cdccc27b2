package compiler

import (
	"testing"

	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
)

func compileAndCollectErrors(t *testing.T, source string) []string {
	t.Helper()
	toks, err := lexer.New("test.flux", source).Scan()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	file, err := parser.Make("test.flux", toks).Parse()
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	c := New("test.flux")
	if err := c.Compile(file); err != nil && len(c.Errors()) == 0 {
		t.Fatalf("compilation failed without a diagnostic: %v", err)
	}
	var codes []string
	for _, d := range c.Errors() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestCompilerBindingBehavior(t *testing.T) {
	tests := []struct {
		name         string
		source       string
		expectedCode string // "" means no error expected
	}{
		{
			name:         "let binding then use -> success",
			source:       "let a = 0\na + 1",
			expectedCode: "",
		},
		{
			name:         "use before any binding -> E003",
			source:       "c + 1",
			expectedCode: codeUnresolved,
		},
		{
			name:         "rebinding the same name in the same scope -> E002",
			source:       "let a = 0\nlet a = 9",
			expectedCode: codeRebind,
		},
		{
			name:         "shadowing in a nested function scope is not a rebind",
			source:       "let a = 0\nfn f(a) -> a + 1",
			expectedCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := compileAndCollectErrors(t, tt.source)
			if tt.expectedCode == "" {
				if len(codes) > 0 {
					t.Errorf("expected no diagnostics, got: %v", codes)
				}
				return
			}
			found := false
			for _, c := range codes {
				if c == tt.expectedCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected diagnostic %s, got: %v", tt.expectedCode, codes)
			}
		})
	}
}
