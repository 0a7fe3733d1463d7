package codegen

import (
	"fmt"
	"strings"

	"aalower/internal/ir"
)

// cValue spells v as a C expression inside a function body.
func cValue(v ir.Value) (string, error) {
	switch x := v.(type) {
	case *ir.Temp:
		return cTempName(x.ID), nil
	case *ir.ParamRef:
		return cParamName(x.Index), nil
	case *ir.ConstAggregate, *ir.ConstBytes:
		init, err := cInit(v)
		if err != nil {
			return "", err
		}
		return "((" + cType(v.Type()) + ")" + init + ")", nil
	default:
		return cConst(v)
	}
}

// cConst spells a scalar constant. Valid in static initializers.
func cConst(v ir.Value) (string, error) {
	switch x := v.(type) {
	case *ir.ConstInt:
		if x.Ty.K == ir.TI1 {
			if x.V != 0 {
				return "true", nil
			}
			return "false", nil
		}
		return fmt.Sprintf("((%s)%d)", cType(x.Ty), x.V), nil
	case *ir.ConstNull:
		return "((" + cType(x.Ty) + ")0)", nil
	case *ir.Global:
		return "(&" + cGlobalName(x.Name) + ")", nil
	case *ir.ConstCast:
		inner, err := cConst(x.Val)
		if err != nil {
			return "", err
		}
		return "((" + cType(x.Ty) + ")" + inner + ")", nil
	default:
		return "", fmt.Errorf("unsupported constant %s", ir.String(v))
	}
}

// cInit spells a brace initializer for a constant. Arrays are wrapped in a
// struct, so they take an extra pair of braces.
func cInit(v ir.Value) (string, error) {
	switch x := v.(type) {
	case *ir.ConstAggregate:
		parts := make([]string, 0, len(x.Elems))
		for _, e := range x.Elems {
			s, err := cInit(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if x.Ty.K == ir.TArray {
			return "{{" + strings.Join(parts, ", ") + "}}", nil
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *ir.ConstBytes:
		parts := make([]string, 0, len(x.Data))
		for _, c := range x.Data {
			parts = append(parts, fmt.Sprintf("%d", int8(c)))
		}
		if len(parts) == 0 {
			parts = append(parts, "0")
		}
		return "{{" + strings.Join(parts, ", ") + "}}", nil
	default:
		return cConst(v)
	}
}

func stringToCOp(op ir.BinOpKind) string {
	switch op {
	case ir.OpAdd:
		return "+"
	case ir.OpSub:
		return "-"
	case ir.OpMul:
		return "*"
	default:
		return string(op)
	}
}

func cCmpOp(op ir.CmpKind) string {
	switch op {
	case ir.CmpEq:
		return "=="
	case ir.CmpNe:
		return "!="
	default:
		return "=="
	}
}
