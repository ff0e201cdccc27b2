package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/peterh/liner"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/config"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/token"
	"github.com/informatter/flux/value"
)

// replCmd is the teacher's replCompiledCmd, re-pointed at the new
// lexer/parser/compiler/vm and driven through github.com/peterh/liner
// instead of a bare bufio.Scanner, so the session gets line editing and
// history. The multi-line continuation heuristic (brace/paren/bracket
// balance plus a "does the last token expect more input" check) is kept
// from cmd_repl_compiled.go's isInputReady, generalized to Flux's token
// set.
type replCmd struct {
	cfg config.Config
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Flux session" }
func (*replCmd) Usage() string {
	return `repl [flags]`
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	cmd.cfg = config.Default()
	cmd.cfg.RegisterFlags(f)
}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Println("Flux interactive session. Type 'exit' to quit.")

	lr := liner.NewLiner()
	defer lr.Close()
	lr.SetCtrlCAborts(true)

	machine := newVM("<repl>", cmd.cfg)
	unit := compiler.New("<repl>")
	var buffer strings.Builder

	for {
		prompt := ">>> "
		if buffer.Len() > 0 {
			prompt = "... "
		}
		input, err := lr.Prompt(prompt)
		if err != nil {
			fmt.Println()
			return subcommands.ExitSuccess
		}
		if strings.TrimSpace(input) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}
		lr.AppendHistory(input)

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(input)
		source := buffer.String()

		toks, err := lexer.New("<repl>", source).Scan()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			buffer.Reset()
			continue
		}
		if !inputReady(toks) {
			continue
		}

		file, err := parser.Make("<repl>", toks).Parse()
		if err != nil {
			renderErr(err, source, cmd.cfg.NoColor)
			buffer.Reset()
			continue
		}

		next := compiler.NewWithState("<repl>", unit.SymbolTable(), unit.Constants())
		if err := next.Compile(file); err != nil {
			renderErr(err, source, cmd.cfg.NoColor)
			buffer.Reset()
			continue
		}

		result, err := machine.Run(next.Bytecode())
		if err != nil {
			renderErr(err, source, cmd.cfg.NoColor)
			buffer.Reset()
			continue
		}
		if result != nil && result.Kind() != value.KindNone {
			fmt.Println(result.String())
		}
		unit = next
		buffer.Reset()
	}
}

// inputReady reports whether toks forms a complete-enough statement to
// compile, mirroring cmd_repl_compiled.go's isInputReady: unbalanced
// grouping tokens or a trailing token that can only ever be followed by
// more input both mean "keep reading".
func inputReady(toks []token.Token) bool {
	balance := 0
	for _, tok := range toks {
		switch tok.TokenType {
		case token.LCUR, token.LPA, token.LBRK:
			balance++
		case token.RCUR, token.RPA, token.RBRK:
			balance--
		}
	}
	if balance > 0 {
		return false
	}

	last := lastNonEOF(toks)
	if last == nil {
		return true
	}
	switch last.TokenType {
	case token.ASSIGN, token.ADD, token.SUB, token.MULT, token.DIV, token.MOD,
		token.BANG, token.EQUAL_EQUAL, token.NOT_EQUAL,
		token.LESS, token.LESS_EQUAL, token.LARGER, token.LARGER_EQUAL,
		token.COMMA, token.LPA, token.LCUR, token.LBRK,
		token.ARROW, token.PIPE, token.CONS, token.COLON, token.PIPE_BAR,
		token.AND, token.OR,
		token.IF, token.ELSE, token.ELIF, token.LAMBDA, token.LET,
		token.RETURN, token.MATCH, token.WITH, token.WHERE, token.DO,
		token.IMPORT, token.MODULE, token.AS, token.IN:
		return false
	}
	return true
}

func lastNonEOF(toks []token.Token) *token.Token {
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].TokenType != token.EOF {
			return &toks[i]
		}
	}
	return nil
}
