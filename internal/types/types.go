// Package types models the source-level types that reach code generation and
// lowers them to native IR types and runtime type descriptors.
package types

import (
	"strconv"
	"strings"
)

type Kind int

const (
	Bad Kind = iota
	Void
	Bool
	Char
	Short
	Int
	UInt
	Long
	ULong
	Pointer
	DArray // dynamic array (slice); string is char[]
	SArray // static array
	Struct
	Class
	AArray // associative array Value[Key]
)

type Type struct {
	K      Kind
	Elem   *Type // Pointer, DArray, SArray; value type of AArray
	Key    *Type // AArray
	Len    int   // SArray
	Name   string
	Fields []Field // Struct
}

type Field struct {
	Name string
	Ty   Type
}

func Basic(k Kind) Type { return Type{K: k} }

func PointerTo(t Type) Type { return Type{K: Pointer, Elem: &t} }

func SliceOf(t Type) Type { return Type{K: DArray, Elem: &t} }

func ArrayOf(n int, t Type) Type { return Type{K: SArray, Len: n, Elem: &t} }

// AAOf returns the associative array type value[key].
func AAOf(key, value Type) Type { return Type{K: AArray, Key: &key, Elem: &value} }

func StructOf(name string, fields ...Field) Type {
	return Type{K: Struct, Name: name, Fields: fields}
}

func ClassOf(name string) Type { return Type{K: Class, Name: name} }

// StringType is the character slice type.
func StringType() Type { return SliceOf(Basic(Char)) }

func (t Type) String() string {
	switch t.K {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Short:
		return "short"
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Long:
		return "long"
	case ULong:
		return "ulong"
	case Pointer:
		return t.Elem.String() + "*"
	case DArray:
		if t.Elem.K == Char {
			return "string"
		}
		return t.Elem.String() + "[]"
	case SArray:
		return t.Elem.String() + "[" + strconv.Itoa(t.Len) + "]"
	case AArray:
		return t.Elem.String() + "[" + t.Key.String() + "]"
	case Struct, Class:
		return t.Name
	default:
		return "<bad>"
	}
}

// Mangle returns the type's mangled identifier, used to name descriptors.
func (t Type) Mangle() string {
	var sb strings.Builder
	t.mangle(&sb)
	return sb.String()
}

func (t Type) mangle(sb *strings.Builder) {
	switch t.K {
	case Void:
		sb.WriteByte('v')
	case Bool:
		sb.WriteByte('b')
	case Char:
		sb.WriteByte('a')
	case Short:
		sb.WriteByte('s')
	case Int:
		sb.WriteByte('i')
	case UInt:
		sb.WriteByte('k')
	case Long:
		sb.WriteByte('l')
	case ULong:
		sb.WriteByte('m')
	case Pointer:
		sb.WriteByte('P')
		t.Elem.mangle(sb)
	case DArray:
		sb.WriteByte('A')
		t.Elem.mangle(sb)
	case SArray:
		sb.WriteByte('G')
		sb.WriteString(strconv.Itoa(t.Len))
		t.Elem.mangle(sb)
	case AArray:
		sb.WriteByte('H')
		t.Key.mangle(sb)
		t.Elem.mangle(sb)
	case Struct:
		sb.WriteByte('S')
		sb.WriteString(strconv.Itoa(len(t.Name)))
		sb.WriteString(t.Name)
	case Class:
		sb.WriteByte('C')
		sb.WriteString(strconv.Itoa(len(t.Name)))
		sb.WriteString(t.Name)
	default:
		sb.WriteByte('?')
	}
}
