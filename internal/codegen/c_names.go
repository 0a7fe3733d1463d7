package codegen

import (
	"fmt"
	"strings"

	"aalower/internal/ir"
)

// cType spells t as a C type. Aggregates are always referred to through
// their typedef name; see emitTypeDefs.
func cType(t ir.Type) string {
	switch t.K {
	case ir.TVoid:
		return "void"
	case ir.TI1:
		return "bool"
	case ir.TI8:
		return "int8_t"
	case ir.TI16:
		return "int16_t"
	case ir.TI32:
		return "int32_t"
	case ir.TI64:
		return "int64_t"
	case ir.TPtr:
		return cType(*t.Elem) + "*"
	case ir.TArray, ir.TStruct:
		return cAggName(t)
	default:
		return "void"
	}
}

// cUnsigned is the unsigned C type of an integer type's width, used so
// wrapping arithmetic stays defined.
func cUnsigned(t ir.Type) string {
	switch t.K {
	case ir.TI1, ir.TI8:
		return "uint8_t"
	case ir.TI16:
		return "uint16_t"
	case ir.TI32:
		return "uint32_t"
	default:
		return "uint64_t"
	}
}

// cAggName names a struct or array type. Named structs keep their name;
// literal structs and arrays are named after their structure.
func cAggName(t ir.Type) string {
	switch {
	case t.K == ir.TStruct && t.Name != "":
		return "aa_struct_" + cMangle(t.Name)
	case t.K == ir.TStruct:
		return "aa_tuple_" + cMangle(t.String())
	default:
		return "aa_array_" + cMangle(t.String())
	}
}

func cFnName(name string) string { return cIdent(name) }

func cGlobalName(name string) string { return "aa_g_" + cMangle(name) }

func cLabelName(name string) string { return "aa_blk_" + cIdent(name) }

func cIdent(s string) string {
	// Best-effort sanitization: keep [A-Za-z0-9_], map others to '_'.
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
		if !ok {
			ch = '_'
		}
		if i == 0 && (ch >= '0' && ch <= '9') {
			b.WriteByte('_')
		}
		b.WriteByte(ch)
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	return out
}

func cMangle(s string) string {
	// [A-Za-z0-9] is kept; everything else, '_' included, is hex-escaped so
	// that "." and "%" in IR names cannot collide with underscores.
	var b strings.Builder
	b.Grow(len(s) + 8)
	b.WriteByte('m')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
		if ok {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "_%02x", ch)
	}
	return b.String()
}

func cParamName(i int) string { return fmt.Sprintf("p%d", i) }

func cTempName(id int) string { return fmt.Sprintf("t%d", id) }

// cSlotName is the C local backing an alloca whose address is temp id.
func cSlotName(id int) string { return fmt.Sprintf("v%d", id) }
