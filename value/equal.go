package value

// DeepEqual implements Flux's `==`: structural for primitives and the
// Tuple/Array/Some/Left/Right containers, identity for Function/Closure/
// Builtin/Gc. It recurses into itself rather than into Equal, so a Tuple or
// Array holding a Closure element never reaches Equal's `return a == b`
// default branch, which panics on Closure's incomparable Free []Value
// field. Equal stays useful standalone for callers that know their values
// can't be Closures; both the VM (vm/eq.go) and package builtins'
// assertEqual go through DeepEqual instead.
func DeepEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Integer:
		return av == b.(Integer)
	case Float:
		return av == b.(Float)
	case Boolean:
		return av == b.(Boolean)
	case Str:
		return av == b.(Str)
	case NoneValue:
		return true
	case Some:
		return DeepEqual(av.Inner, b.(Some).Inner)
	case Left:
		return DeepEqual(av.Inner, b.(Left).Inner)
	case Right:
		return DeepEqual(av.Inner, b.(Right).Inner)
	case Tuple:
		bv := b.(Tuple)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !DeepEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case Array:
		bv := b.(Array)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !DeepEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case Gc:
		return av.Handle == b.(Gc).Handle
	case Function:
		return av.Proto == b.(Function).Proto
	case Closure:
		bv := b.(Closure)
		if av.Fn.Proto != bv.Fn.Proto {
			return false
		}
		if len(av.Free) != len(bv.Free) {
			return false
		}
		for i := range av.Free {
			if !DeepEqual(av.Free[i], bv.Free[i]) {
				return false
			}
		}
		return true
	case Builtin:
		return av.Name == b.(Builtin).Name
	default:
		return false
	}
}
