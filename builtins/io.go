package builtins

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/informatter/flux/value"
)

// print_/println_ write through vm.Stdout(), the same writer OP_PRINT uses
// (SetStdout redirects both together — the REPL and tests swap it for a
// buffer, production swaps nothing and both keep writing to os.Stdout).
func (r *registry) print_(args []value.Value) (value.Value, error) {
	if err := wantArgs("print", args, 1); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(r.vm.Stdout(), args[0].String()); err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}
	return value.None, nil
}

func (r *registry) println_(args []value.Value) (value.Value, error) {
	if err := wantArgs("println", args, 1); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(r.vm.Stdout(), args[0].String()+"\n"); err != nil {
		return nil, fmt.Errorf("println: %w", err)
	}
	return value.None, nil
}

// readLine returns Some(line) per line of stdin, None once stdin is
// exhausted — no Flux source can distinguish "no input yet" from "EOF"
// other than by this Option, since there's no exception mechanism to raise
// instead.
func (r *registry) readLine(args []value.Value) (value.Value, error) {
	if err := wantArgs("readLine", args, 0); err != nil {
		return nil, err
	}
	if r.stdin == nil {
		r.stdin = bufio.NewReader(os.Stdin)
	}
	line, err := r.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("readLine: %w", err)
	}
	if line == "" && errors.Is(err, io.EOF) {
		return value.None, nil
	}
	line = trimNewline(line)
	return value.Some{Inner: value.Str(line)}, nil
}

// readFile returns Some(contents) on success, None if the file can't be
// read — the same absence-over-exception convention readLine uses for EOF,
// since Flux has no exception mechanism to raise a distinct I/O error.
func (r *registry) readFile(args []value.Value) (value.Value, error) {
	if err := wantArgs("read_file", args, 1); err != nil {
		return nil, err
	}
	path, err := asStr(args[0], "read_file")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.None, nil
	}
	return value.Some{Inner: value.Str(string(data))}, nil
}

// readLines splits a file's contents on newlines into a cons list of Str,
// Some(list) on success or None if the file can't be read.
func (r *registry) readLines(args []value.Value) (value.Value, error) {
	if err := wantArgs("read_lines", args, 1); err != nil {
		return nil, err
	}
	path, err := asStr(args[0], "read_lines")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.None, nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return value.Some{Inner: value.None}, nil
	}
	lines := strings.Split(text, "\n")
	out := make([]value.Value, len(lines))
	for i, l := range lines {
		out[i] = value.Str(strings.TrimSuffix(l, "\r"))
	}
	return value.Some{Inner: r.fromSlice(out)}, nil
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}
