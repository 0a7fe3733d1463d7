package codegen

import (
	"bytes"
	"fmt"
	"sort"

	"aalower/internal/ir"
)

func cSignature(ret ir.Type, name string, params []ir.Type) string {
	var out bytes.Buffer
	out.WriteString(cType(ret))
	out.WriteByte(' ')
	out.WriteString(name)
	out.WriteByte('(')
	if len(params) == 0 {
		out.WriteString("void")
	}
	for i, p := range params {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(cType(p))
		out.WriteByte(' ')
		out.WriteString(cParamName(i))
	}
	out.WriteByte(')')
	return out.String()
}

func emitFunc(out *bytes.Buffer, f *ir.Func) error {
	// Collect locals (alloca slots + temps)
	slotTypes := map[int]ir.Type{}
	tempTypes := map[int]ir.Type{}
	for _, b := range f.Blocks {
		for _, ins := range b.Instr {
			switch i := ins.(type) {
			case *ir.Alloca:
				slotTypes[i.Dst.ID] = i.Ty
				tempTypes[i.Dst.ID] = i.Dst.Ty
			case *ir.Load:
				tempTypes[i.Dst.ID] = i.Dst.Ty
			case *ir.Bitcast:
				tempTypes[i.Dst.ID] = i.Dst.Ty
			case *ir.BinOp:
				tempTypes[i.Dst.ID] = i.Dst.Ty
			case *ir.Cmp:
				tempTypes[i.Dst.ID] = i.Dst.Ty
			case *ir.Call:
				if i.Dst != nil {
					tempTypes[i.Dst.ID] = i.Dst.Ty
				}
			}
		}
	}

	params := make([]ir.Type, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, p.Ty)
	}
	out.WriteString(cSignature(f.Ret, cFnName(f.Name), params))
	out.WriteString(" {\n")

	// Declare slots
	slotIDs := make([]int, 0, len(slotTypes))
	for id := range slotTypes {
		slotIDs = append(slotIDs, id)
	}
	sort.Ints(slotIDs)
	for _, id := range slotIDs {
		fmt.Fprintf(out, "  %s %s;\n", cType(slotTypes[id]), cSlotName(id))
	}

	// Declare temps
	tempIDs := make([]int, 0, len(tempTypes))
	for id := range tempTypes {
		tempIDs = append(tempIDs, id)
	}
	sort.Ints(tempIDs)
	for _, id := range tempIDs {
		fmt.Fprintf(out, "  %s %s;\n", cType(tempTypes[id]), cTempName(id))
	}

	if len(slotIDs) > 0 || len(tempIDs) > 0 {
		out.WriteString("\n")
	}

	// Emit blocks
	for _, b := range f.Blocks {
		out.WriteString(cLabelName(b.Name))
		out.WriteString(":;\n")
		for _, ins := range b.Instr {
			if err := emitInstr(out, ins); err != nil {
				return fmt.Errorf("%s: block %s: %w", f.Name, b.Name, err)
			}
		}
		if b.Term == nil {
			return fmt.Errorf("%s: block %s missing terminator", f.Name, b.Name)
		}
		if err := emitTerm(out, b.Term); err != nil {
			return fmt.Errorf("%s: block %s: %w", f.Name, b.Name, err)
		}
		out.WriteString("\n")
	}

	out.WriteString("}\n")
	return nil
}

func emitInstr(out *bytes.Buffer, ins ir.Instr) error {
	switch i := ins.(type) {
	case *ir.Alloca:
		fmt.Fprintf(out, "  %s = &%s;\n", cTempName(i.Dst.ID), cSlotName(i.Dst.ID))
		return nil
	case *ir.Store:
		val, err := cValue(i.Val)
		if err != nil {
			return err
		}
		ptr, err := cValue(i.Ptr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  *%s = %s;\n", ptr, val)
		return nil
	case *ir.Load:
		ptr, err := cValue(i.Ptr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s = *%s;\n", cTempName(i.Dst.ID), ptr)
		return nil
	case *ir.Bitcast:
		val, err := cValue(i.Val)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s = (%s)%s;\n", cTempName(i.Dst.ID), cType(i.Dst.Ty), val)
		return nil
	case *ir.BinOp:
		a, err := cValue(i.A)
		if err != nil {
			return err
		}
		b, err := cValue(i.B)
		if err != nil {
			return err
		}
		u := cUnsigned(i.Dst.Ty)
		fmt.Fprintf(out, "  %s = (%s)((%s)%s %s (%s)%s);\n",
			cTempName(i.Dst.ID), cType(i.Dst.Ty), u, a, stringToCOp(i.Op), u, b)
		return nil
	case *ir.Cmp:
		if k := i.A.Type().K; k == ir.TStruct || k == ir.TArray {
			return fmt.Errorf("icmp on aggregate %s", i.A.Type())
		}
		a, err := cValue(i.A)
		if err != nil {
			return err
		}
		b, err := cValue(i.B)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s = (%s %s %s);\n", cTempName(i.Dst.ID), a, cCmpOp(i.Op), b)
		return nil
	case *ir.Call:
		if i.Unwind != "" {
			return fmt.Errorf("invoke of @%s: the C backend has no unwinding", i.Callee.Name)
		}
		out.WriteString("  ")
		if i.Dst != nil {
			out.WriteString(cTempName(i.Dst.ID))
			out.WriteString(" = ")
		}
		out.WriteString(cFnName(i.Callee.Name))
		out.WriteByte('(')
		for j, a := range i.Args {
			if j > 0 {
				out.WriteString(", ")
			}
			s, err := cValue(a)
			if err != nil {
				return err
			}
			out.WriteString(s)
		}
		out.WriteString(");\n")
		return nil
	default:
		return fmt.Errorf("unsupported instr in codegen: %s", ir.String(ins))
	}
}

func emitTerm(out *bytes.Buffer, t ir.Term) error {
	switch tt := t.(type) {
	case *ir.Ret:
		out.WriteString("  return")
		if tt.Val != nil {
			v, err := cValue(tt.Val)
			if err != nil {
				return err
			}
			out.WriteByte(' ')
			out.WriteString(v)
		}
		out.WriteString(";\n")
		return nil
	case *ir.Br:
		out.WriteString("  goto ")
		out.WriteString(cLabelName(tt.Target))
		out.WriteString(";\n")
		return nil
	case *ir.CondBr:
		c, err := cValue(tt.Cond)
		if err != nil {
			return err
		}
		out.WriteString("  if (")
		out.WriteString(c)
		out.WriteString(") goto ")
		out.WriteString(cLabelName(tt.Then))
		out.WriteString("; else goto ")
		out.WriteString(cLabelName(tt.Else))
		out.WriteString(";\n")
		return nil
	case *ir.Unreachable:
		out.WriteString("  __builtin_unreachable();\n")
		return nil
	default:
		return fmt.Errorf("unsupported terminator")
	}
}
