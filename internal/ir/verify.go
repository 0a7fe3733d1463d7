package ir

import "fmt"

// Verify checks a module for structural and type consistency and returns one
// message per problem. An empty slice means the module is well formed.
func Verify(m *Module) []string {
	var errors []string
	for _, name := range sortedKeys(m.Globals) {
		g := m.Globals[name]
		if g.Init == nil {
			continue
		}
		if !IsConst(g.Init) {
			errors = append(errors, fmt.Sprintf("global @%s: initializer is not constant", g.Name))
		} else if !g.Init.Type().Equal(g.Ty) {
			errors = append(errors, fmt.Sprintf("global @%s: initializer type %s, want %s", g.Name, g.Init.Type(), g.Ty))
		}
	}
	for _, name := range sortedKeys(m.Funcs) {
		errors = append(errors, VerifyFunc(m, m.Funcs[name])...)
	}
	return errors
}

// VerifyFunc checks a single function against the declarations of m.
func VerifyFunc(m *Module, f *Func) []string {
	var errors []string
	ctx := "fn " + f.Name
	if len(f.Blocks) == 0 {
		return append(errors, ctx+": no blocks")
	}

	seen := map[string]bool{}
	for _, b := range f.Blocks {
		if seen[b.Name] {
			errors = append(errors, fmt.Sprintf("%s: duplicate block %s", ctx, b.Name))
		}
		seen[b.Name] = true
	}
	target := func(where, name string) {
		if !seen[name] {
			errors = append(errors, fmt.Sprintf("%s: %s targets unknown block %s", ctx, where, name))
		}
	}

	for _, b := range f.Blocks {
		where := ctx + " block " + b.Name
		for idx, ins := range b.Instr {
			errors = append(errors, verifyInstr(m, where, ins)...)
			if c, ok := ins.(*Call); ok {
				if c.Unwind != "" {
					target("invoke", c.Unwind)
				}
				if c.Callee != nil && c.Callee.NoReturn && (idx != len(b.Instr)-1 || !b.Diverges()) {
					errors = append(errors, fmt.Sprintf("%s: call to noreturn @%s must be followed by unreachable", where, c.Callee.Name))
				}
			}
		}
		switch t := b.Term.(type) {
		case nil:
			errors = append(errors, where+": missing terminator")
		case *Br:
			target("br", t.Target)
		case *CondBr:
			if !t.Cond.Type().Equal(I1) {
				errors = append(errors, fmt.Sprintf("%s: condbr condition has type %s", where, t.Cond.Type()))
			}
			target("condbr", t.Then)
			target("condbr", t.Else)
		case *Ret:
			switch {
			case t.Val == nil && f.Ret.K != TVoid:
				errors = append(errors, where+": ret without value in non-void function")
			case t.Val != nil && !t.Val.Type().Equal(f.Ret):
				errors = append(errors, fmt.Sprintf("%s: ret %s, want %s", where, t.Val.Type(), f.Ret))
			}
		}
	}
	return errors
}

func verifyInstr(m *Module, where string, ins Instr) []string {
	var errors []string
	bad := func(format string, args ...interface{}) {
		errors = append(errors, where+": "+fmt.Sprintf(format, args...))
	}
	switch i := ins.(type) {
	case *Alloca:
		if !i.Dst.Ty.Equal(PtrTo(i.Ty)) {
			bad("alloca result %s, want %s", i.Dst.Ty, PtrTo(i.Ty))
		}
	case *Store:
		if !i.Ptr.Type().Equal(PtrTo(i.Val.Type())) {
			bad("store of %s through %s", i.Val.Type(), i.Ptr.Type())
		}
	case *Load:
		if !i.Ptr.Type().Equal(PtrTo(i.Dst.Ty)) {
			bad("load of %s through %s", i.Dst.Ty, i.Ptr.Type())
		}
	case *Bitcast:
		if !CanReinterpret(i.Val.Type(), i.Dst.Ty) {
			bad("bitcast %s to %s changes representation", i.Val.Type(), i.Dst.Ty)
		}
	case *BinOp:
		if !i.A.Type().Equal(i.B.Type()) || !i.Dst.Ty.Equal(i.A.Type()) {
			bad("%s operand types %s, %s", i.Op, i.A.Type(), i.B.Type())
		}
	case *Cmp:
		if !i.A.Type().Equal(i.B.Type()) {
			bad("icmp operand types %s, %s", i.A.Type(), i.B.Type())
		}
		if !i.Dst.Ty.Equal(I1) {
			bad("icmp result %s", i.Dst.Ty)
		}
	case *Call:
		if i.Callee == nil {
			bad("call without callee")
			break
		}
		if d, ok := m.Decls[i.Callee.Name]; !ok || d != i.Callee {
			bad("call to undeclared @%s", i.Callee.Name)
		}
		if len(i.Args) != len(i.Callee.Params) {
			bad("call to @%s with %d args, want %d", i.Callee.Name, len(i.Args), len(i.Callee.Params))
			break
		}
		for j, a := range i.Args {
			if !a.Type().Equal(i.Callee.Params[j]) {
				bad("call to @%s arg %d has type %s, want %s", i.Callee.Name, j, a.Type(), i.Callee.Params[j])
			}
		}
		switch {
		case i.Callee.Ret.K == TVoid && i.Dst != nil:
			bad("void call to @%s has a result", i.Callee.Name)
		case i.Callee.Ret.K != TVoid && (i.Dst == nil || !i.Dst.Ty.Equal(i.Callee.Ret)):
			bad("call to @%s result does not match %s", i.Callee.Name, i.Callee.Ret)
		}
	}
	return errors
}

// CanReinterpret reports whether a value of type from may be retyped as to
// without changing its representation.
func CanReinterpret(from, to Type) bool {
	if from.Equal(to) {
		return true
	}
	return from.IsPtr() && to.IsPtr()
}
