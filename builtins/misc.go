package builtins

import (
	"fmt"

	"github.com/informatter/flux/value"
)

func (r *registry) assert(args []value.Value) (value.Value, error) {
	if err := wantArgs("assert", args, 1); err != nil {
		return nil, err
	}
	if !value.Truthy(args[0]) {
		return nil, fmt.Errorf("assertion failed")
	}
	return value.None, nil
}

// assertEqual goes through value.DeepEqual rather than value.Equal so
// comparing two Closures (or Tuples/Arrays nesting one) reports a mismatch
// instead of panicking on Equal's incomparable-Free default branch.
func (r *registry) assertEqual(args []value.Value) (value.Value, error) {
	if err := wantArgs("assertEqual", args, 2); err != nil {
		return nil, err
	}
	if !value.DeepEqual(args[0], args[1]) {
		return nil, fmt.Errorf("assertion failed: %s != %s", args[0].String(), args[1].String())
	}
	return value.None, nil
}

func (r *registry) typeOf(args []value.Value) (value.Value, error) {
	if err := wantArgs("typeOf", args, 1); err != nil {
		return nil, err
	}
	return value.Str(args[0].Kind().String()), nil
}
