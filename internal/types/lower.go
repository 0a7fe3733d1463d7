package types

import (
	"sync"

	"aalower/internal/ir"
)

// Lowering maps source types to their native representation.
type Lowering interface {
	NativeType(t Type) ir.Type
	// TypeDescriptor returns the address of the runtime type descriptor for t.
	TypeDescriptor(t Type) ir.Value
	ByteSize(t ir.Type) int64
	// IsPassedByRef reports whether values of t are handled through their
	// address rather than as first-class native values.
	IsPassedByRef(t Type) bool
}

// TypeInfoType is the common header every type descriptor starts with: the
// size in bytes of a value of the described type.
func TypeInfoType(l ir.Layout) ir.Type {
	return ir.Named("object.TypeInfo", l.SizeT())
}

var typeInfoClass = map[Kind]string{
	Pointer: "Pointer",
	DArray:  "Array",
	SArray:  "StaticArray",
	Struct:  "Struct",
	Class:   "Class",
	AArray:  "AssociativeArray",
}

// Lowerer is the Lowering of one module. Descriptors are emitted into the
// module as constant globals on first use and shared afterwards.
type Lowerer struct {
	mod *ir.Module

	mu    sync.Mutex
	descs map[string]*ir.Global
}

func NewLowerer(mod *ir.Module) *Lowerer {
	return &Lowerer{mod: mod, descs: map[string]*ir.Global{}}
}

func (l *Lowerer) NativeType(t Type) ir.Type {
	layout := l.mod.Layout
	switch t.K {
	case Void:
		return ir.Void
	case Bool:
		return ir.I1
	case Char:
		return ir.I8
	case Short:
		return ir.I16
	case Int, UInt:
		return ir.I32
	case Long, ULong:
		return ir.I64
	case Pointer:
		if t.Elem.K == Void {
			return ir.PtrTo(ir.I8)
		}
		return ir.PtrTo(l.NativeType(*t.Elem))
	case DArray:
		return ir.StructOf(layout.SizeT(), ir.PtrTo(l.NativeType(*t.Elem)))
	case SArray:
		return ir.ArrayOf(t.Len, l.NativeType(*t.Elem))
	case Struct:
		fields := make([]ir.Type, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, l.NativeType(f.Ty))
		}
		return ir.Named("struct."+t.Name, fields...)
	case Class:
		return ir.PtrTo(ir.OpaqueStruct("class." + t.Name))
	case AArray:
		// Opaque runtime handle.
		return ir.PtrTo(ir.I8)
	default:
		return ir.Type{}
	}
}

func (l *Lowerer) TypeDescriptor(t Type) ir.Value {
	name := "typeinfo." + t.Mangle()

	l.mu.Lock()
	defer l.mu.Unlock()
	if g, ok := l.descs[name]; ok {
		return g
	}
	sizeT := l.mod.Layout.SizeT()
	class := "object.TypeInfo"
	if c, ok := typeInfoClass[t.K]; ok {
		class += "_" + c
	} else {
		class += "_" + t.Mangle()
	}
	ty := ir.Named(class, sizeT)
	g := l.mod.AddGlobal(&ir.Global{
		Name:  name,
		Ty:    ty,
		Init:  &ir.ConstAggregate{Ty: ty, Elems: []ir.Value{&ir.ConstInt{Ty: sizeT, V: l.ByteSize(l.NativeType(t))}}},
		Const: true,
	})
	l.descs[name] = g
	return g
}

func (l *Lowerer) ByteSize(t ir.Type) int64 { return l.mod.Layout.SizeOf(t) }

func (l *Lowerer) IsPassedByRef(t Type) bool {
	return t.K == Struct || t.K == SArray
}
