package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"aalower/internal/ir"
)

// typeSet collects the aggregate types a module mentions, keyed by C name.
type typeSet map[string]ir.Type

func (s typeSet) add(t ir.Type) {
	switch t.K {
	case ir.TPtr:
		s.add(*t.Elem)
	case ir.TArray:
		name := cAggName(t)
		if _, ok := s[name]; ok {
			return
		}
		s[name] = t
		s.add(*t.Elem)
	case ir.TStruct:
		name := cAggName(t)
		if prev, ok := s[name]; ok && !(prev.Opaque && !t.Opaque) {
			return
		}
		s[name] = t
		for _, f := range t.Fields {
			s.add(f)
		}
	}
}

func collectTypes(m *ir.Module) typeSet {
	s := typeSet{}
	for _, g := range m.Globals {
		s.add(g.Ty)
	}
	for _, d := range m.Decls {
		s.add(d.Ret)
		for _, p := range d.Params {
			s.add(p)
		}
	}
	for _, f := range m.Funcs {
		s.add(f.Ret)
		for _, p := range f.Params {
			s.add(p.Ty)
		}
		for _, b := range f.Blocks {
			for _, ins := range b.Instr {
				switch i := ins.(type) {
				case *ir.Alloca:
					s.add(i.Ty)
				case *ir.Load:
					s.add(i.Dst.Ty)
				case *ir.Bitcast:
					s.add(i.Dst.Ty)
				case *ir.Store:
					s.add(i.Val.Type())
				}
			}
		}
	}
	return s
}

// emitTypeDefs forward-declares every aggregate, so pointers never need an
// order, then defines bodies so that by-value members come first.
func emitTypeDefs(out *bytes.Buffer, m *ir.Module) error {
	all := collectTypes(m)
	if len(all) == 0 {
		return nil
	}

	deps := map[string]map[string]struct{}{}
	indeg := map[string]int{}
	for name := range all {
		deps[name] = map[string]struct{}{}
		indeg[name] = 0
	}

	addDep := func(from, to string) error {
		if from == to {
			return fmt.Errorf("cyclic by-value type dependency: %s contains itself", from)
		}
		// `to` must be defined before `from`; the topo edge is to -> from.
		if _, ok := deps[to][from]; ok {
			return nil
		}
		deps[to][from] = struct{}{}
		indeg[from]++
		return nil
	}

	for name, t := range all {
		members := t.Fields
		if t.K == ir.TArray {
			members = []ir.Type{*t.Elem}
		}
		for _, f := range members {
			switch f.K {
			case ir.TStruct, ir.TArray:
				if err := addDep(name, cAggName(f)); err != nil {
					return err
				}
			}
		}
	}

	// Kahn topo sort with deterministic selection.
	var ready []string
	for name, d := range indeg {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(all))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		targets := make([]string, 0, len(deps[n]))
		for m := range deps[n] {
			targets = append(targets, m)
		}
		sort.Strings(targets)
		for _, m := range targets {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(all) {
		var remain []string
		for name, d := range indeg {
			if d > 0 {
				remain = append(remain, name)
			}
		}
		sort.Strings(remain)
		return fmt.Errorf("cyclic by-value type dependency: %s", strings.Join(remain, ", "))
	}

	for _, name := range order {
		fmt.Fprintf(out, "typedef struct %s %s;\n", name, name)
	}
	out.WriteString("\n")
	for _, name := range order {
		t := all[name]
		if t.Opaque {
			continue
		}
		emitTypeBody(out, name, t)
		out.WriteString("\n")
	}
	return nil
}

func emitTypeBody(out *bytes.Buffer, name string, t ir.Type) {
	out.WriteString("struct ")
	out.WriteString(name)
	out.WriteString(" {\n")
	if t.K == ir.TArray {
		n := t.Len
		if n == 0 {
			// C has no zero-length arrays
			n = 1
		}
		fmt.Fprintf(out, "  %s a[%d];\n", cType(*t.Elem), n)
	} else {
		for i, f := range t.Fields {
			fmt.Fprintf(out, "  %s f%d;\n", cType(f), i)
		}
		if len(t.Fields) == 0 {
			out.WriteString("  uint8_t _;\n")
		}
	}
	out.WriteString("};\n")
}
