package ir

import (
	"sort"
	"strings"
)

func (m *Module) Format() string {
	var sb strings.Builder
	sb.WriteString("module ")
	sb.WriteString(m.Name)
	sb.WriteByte('\n')

	for _, name := range sortedKeys(m.Globals) {
		g := m.Globals[name]
		sb.WriteString("@")
		sb.WriteString(g.Name)
		if g.Const {
			sb.WriteString(" = constant ")
		} else {
			sb.WriteString(" = global ")
		}
		if g.Init != nil {
			sb.WriteString(typed(g.Init))
		} else {
			sb.WriteString(g.Ty.String())
			sb.WriteString(" zeroinit")
		}
		sb.WriteByte('\n')
	}
	for _, name := range sortedKeys(m.Decls) {
		sb.WriteString(m.Decls[name].fmtString())
		sb.WriteByte('\n')
	}
	for _, name := range sortedKeys(m.Funcs) {
		m.Funcs[name].format(&sb)
	}
	return sb.String()
}

func (f *Func) Format() string {
	var sb strings.Builder
	f.format(&sb)
	return sb.String()
}

func (f *Func) format(sb *strings.Builder) {
	sb.WriteString("fn ")
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Name)
		sb.WriteString(": ")
		sb.WriteString(p.Ty.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(f.Ret.String())
	sb.WriteByte('\n')
	for _, b := range f.Blocks {
		sb.WriteString("block ")
		sb.WriteString(b.Name)
		sb.WriteString(":\n")
		for _, ins := range b.Instr {
			sb.WriteString("  ")
			sb.WriteString(ins.fmtString())
			sb.WriteByte('\n')
		}
		if b.Term != nil {
			sb.WriteString("  ")
			sb.WriteString(b.Term.fmtString())
			sb.WriteByte('\n')
		}
	}
}

// String renders a single instruction, terminator or value.
func String(n interface{ fmtString() string }) string { return n.fmtString() }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
