package modgraph

import "strings"

type color int

const (
	white color = iota // unvisited
	gray                // on the current DFS stack
	black               // finished
)

// topoOrder runs DFS white/gray/black over the graph reachable from entry
// and returns it in postorder: a module's dependencies always precede it,
// and the entry module — which depends, transitively, on everything else
// reachable from it — comes last. A back-edge to a gray node is an import
// cycle (E021), reported with the full cycle path.
func topoOrder(entry *Module) ([]*Module, error) {
	colors := make(map[*Module]color)
	var order []*Module
	var stack []*Module

	var visit func(m *Module) error
	visit = func(m *Module) error {
		colors[m] = gray
		stack = append(stack, m)
		for _, imp := range m.Imports {
			switch colors[imp.Target] {
			case white:
				if err := visit(imp.Target); err != nil {
					return err
				}
			case gray:
				return cycleError(stack, imp.Target)
			case black:
				// already fully ordered, nothing to do
			}
		}
		stack = stack[:len(stack)-1]
		colors[m] = black
		order = append(order, m)
		return nil
	}

	if err := visit(entry); err != nil {
		return nil, err
	}
	return order, nil
}

// cycleError renders the DFS stack from where back reappears back down to
// the top, plus back itself, as "A -> B -> C -> A".
func cycleError(stack []*Module, back *Module) error {
	start := 0
	for i, m := range stack {
		if m == back {
			start = i
			break
		}
	}
	names := make([]string, 0, len(stack)-start+1)
	for _, m := range stack[start:] {
		names = append(names, displayName(m))
	}
	names = append(names, displayName(back))
	return errf(codeImportCycle, back.Path, "import cycle: %s", strings.Join(names, " -> "))
}

func displayName(m *Module) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Path
}
