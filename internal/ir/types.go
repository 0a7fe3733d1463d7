package ir

import (
	"fmt"
	"strings"
)

type TypeKind int

const (
	TBad TypeKind = iota
	TVoid
	TI1
	TI8
	TI16
	TI32
	TI64
	TPtr
	TArray
	TStruct
)

// Type is a native (target-level) type. Named structs compare by name,
// literal structs and arrays compare structurally.
type Type struct {
	K      TypeKind
	Elem   *Type  // TPtr, TArray
	Len    int    // TArray
	Name   string // TStruct: identified struct; empty for literal structs
	Fields []Type // TStruct
	Opaque bool   // TStruct: body unknown
}

var (
	Void = Type{K: TVoid}
	I1   = Type{K: TI1}
	I8   = Type{K: TI8}
	I16  = Type{K: TI16}
	I32  = Type{K: TI32}
	I64  = Type{K: TI64}
)

func PtrTo(t Type) Type { return Type{K: TPtr, Elem: &t} }

func ArrayOf(n int, elem Type) Type { return Type{K: TArray, Len: n, Elem: &elem} }

// StructOf returns a literal struct type.
func StructOf(fields ...Type) Type { return Type{K: TStruct, Fields: fields} }

// Named returns an identified struct type with a body.
func Named(name string, fields ...Type) Type {
	return Type{K: TStruct, Name: name, Fields: fields}
}

// OpaqueStruct returns an identified struct type without a body.
func OpaqueStruct(name string) Type { return Type{K: TStruct, Name: name, Opaque: true} }

func (t Type) IsPtr() bool { return t.K == TPtr }

// Pointee returns the element type of a pointer type.
func (t Type) Pointee() Type {
	if t.K != TPtr || t.Elem == nil {
		return Type{}
	}
	return *t.Elem
}

func (t Type) Equal(u Type) bool {
	if t.K != u.K {
		return false
	}
	switch t.K {
	case TPtr:
		return t.Elem.Equal(*u.Elem)
	case TArray:
		return t.Len == u.Len && t.Elem.Equal(*u.Elem)
	case TStruct:
		if t.Name != "" || u.Name != "" {
			return t.Name == u.Name
		}
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(u.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.K {
	case TVoid:
		return "void"
	case TI1:
		return "i1"
	case TI8:
		return "i8"
	case TI16:
		return "i16"
	case TI32:
		return "i32"
	case TI64:
		return "i64"
	case TPtr:
		return t.Elem.String() + "*"
	case TArray:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem.String())
	case TStruct:
		if t.Name != "" {
			return "%" + t.Name
		}
		parts := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			parts = append(parts, f.String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<bad>"
	}
}

// Layout answers size and alignment queries for a target.
type Layout struct {
	PtrSize int64
}

var DefaultLayout = Layout{PtrSize: 8}

// SizeT is the native type of the target's size_t.
func (l Layout) SizeT() Type {
	if l.PtrSize == 4 {
		return I32
	}
	return I64
}

func (l Layout) AlignOf(t Type) int64 {
	switch t.K {
	case TI1, TI8:
		return 1
	case TI16:
		return 2
	case TI32:
		return 4
	case TI64:
		return 8
	case TPtr:
		return l.PtrSize
	case TArray:
		return l.AlignOf(*t.Elem)
	case TStruct:
		a := int64(1)
		for _, f := range t.Fields {
			if fa := l.AlignOf(f); fa > a {
				a = fa
			}
		}
		return a
	default:
		return 1
	}
}

// SizeOf returns the allocation size of t, tail padding included.
// Opaque structs and void have size 0.
func (l Layout) SizeOf(t Type) int64 {
	switch t.K {
	case TI1, TI8:
		return 1
	case TI16:
		return 2
	case TI32:
		return 4
	case TI64:
		return 8
	case TPtr:
		return l.PtrSize
	case TArray:
		return int64(t.Len) * l.SizeOf(*t.Elem)
	case TStruct:
		var off int64
		for _, f := range t.Fields {
			off = alignUp(off, l.AlignOf(f)) + l.SizeOf(f)
		}
		return alignUp(off, l.AlignOf(t))
	default:
		return 0
	}
}

// FieldOffset returns the byte offset of field i of a struct, or of element
// i of an array.
func (l Layout) FieldOffset(t Type, i int) int64 {
	if t.K == TArray {
		return int64(i) * l.SizeOf(*t.Elem)
	}
	var off int64
	for j, f := range t.Fields {
		off = alignUp(off, l.AlignOf(f))
		if j == i {
			return off
		}
		off += l.SizeOf(f)
	}
	return off
}

func alignUp(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
