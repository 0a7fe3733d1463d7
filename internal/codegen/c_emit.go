// Package codegen emits an ir.Module as a C11 translation unit. Declared
// functions become extern prototypes, resolved when the object is linked
// against the runtime library.
package codegen

import (
	"bytes"
	"fmt"
	"sort"

	"aalower/internal/ir"
)

type EmitOptions struct {
	// Static gives the module's functions internal linkage.
	Static bool
}

func EmitC(m *ir.Module, opts EmitOptions) (string, error) {
	if m == nil {
		return "", fmt.Errorf("nil module")
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "/* module %s */\n", m.Name)
	out.WriteString("#include <stdbool.h>\n")
	out.WriteString("#include <stdint.h>\n\n")

	if err := emitTypeDefs(&out, m); err != nil {
		return "", err
	}

	decls := sortedNames(m.Decls)
	for _, name := range decls {
		d := m.Decls[name]
		if d.NoReturn {
			out.WriteString("_Noreturn ")
		}
		out.WriteString("extern ")
		out.WriteString(cSignature(d.Ret, cFnName(d.Name), d.Params))
		out.WriteString(";\n")
	}
	if len(decls) > 0 {
		out.WriteString("\n")
	}

	if err := emitGlobals(&out, m); err != nil {
		return "", err
	}

	for _, name := range sortedNames(m.Funcs) {
		if opts.Static {
			out.WriteString("static ")
		}
		if err := emitFunc(&out, m.Funcs[name]); err != nil {
			return "", err
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}

// emitGlobals declares every global before defining any, so initializers
// may take the address of globals defined later.
func emitGlobals(out *bytes.Buffer, m *ir.Module) error {
	names := sortedNames(m.Globals)
	if len(names) == 0 {
		return nil
	}
	qual := func(g *ir.Global) string {
		if g.Const {
			return "static const "
		}
		return "static "
	}
	for _, name := range names {
		g := m.Globals[name]
		fmt.Fprintf(out, "%s%s %s;\n", qual(g), cType(g.Ty), cGlobalName(g.Name))
	}
	out.WriteString("\n")
	for _, name := range names {
		g := m.Globals[name]
		if g.Init == nil {
			continue
		}
		init, err := cInit(g.Init)
		if err != nil {
			return fmt.Errorf("global @%s: %w", g.Name, err)
		}
		fmt.Fprintf(out, "%s%s %s = %s;\n", qual(g), cType(g.Ty), cGlobalName(g.Name), init)
	}
	out.WriteString("\n")
	return nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
