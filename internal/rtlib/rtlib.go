// Package rtlib describes the entry points of the managed runtime library
// that lowered code calls into.
package rtlib

import (
	"errors"
	"fmt"
	"sort"

	"aalower/internal/ir"
	"aalower/internal/types"
)

const (
	AAGet       = "_aaGet"
	AAGetRvalue = "_aaGetRvalue"
	AAIn        = "_aaIn"
	AADel       = "_aaDel"
	AALen       = "_aaLen"
	ArrayBounds = "_d_array_bounds"
)

var ErrUnknownFunction = errors.New("unknown runtime function")

// Resolver finds a runtime entry point and makes sure mod declares it.
type Resolver interface {
	Resolve(mod *ir.Module, name string) (*ir.FuncDecl, error)
}

type signature func(l ir.Layout) *ir.FuncDecl

// ImplType is the runtime's own view of an associative array.
var ImplType = ir.OpaqueStruct("aa.Impl")

// Runtime is the runtime library's signature table. It is read-only after
// New; Resolve may be called from several goroutines, since the module
// serializes its own declarations.
type Runtime struct {
	sigs map[string]signature
}

func New() *Runtime {
	ti := func(l ir.Layout) ir.Type { return ir.PtrTo(types.TypeInfoType(l)) }
	aa := ir.PtrTo(ImplType)
	voidp := ir.PtrTo(ir.I8)
	return &Runtime{sigs: map[string]signature{
		// void* _aaGet(AA* aa, TypeInfo keyti, size_t valuesize, void* pkey)
		AAGet: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: AAGet, Params: []ir.Type{ir.PtrTo(aa), ti(l), l.SizeT(), voidp}, Ret: voidp}
		},
		// void* _aaGetRvalue(AA aa, TypeInfo keyti, size_t valuesize, void* pkey)
		AAGetRvalue: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: AAGetRvalue, Params: []ir.Type{aa, ti(l), l.SizeT(), voidp}, Ret: voidp}
		},
		// void* _aaIn(AA aa, TypeInfo keyti, void* pkey)
		AAIn: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: AAIn, Params: []ir.Type{aa, ti(l), voidp}, Ret: voidp}
		},
		// void _aaDel(AA aa, TypeInfo keyti, void* pkey)
		AADel: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: AADel, Params: []ir.Type{aa, ti(l), voidp}, Ret: ir.Void}
		},
		// size_t _aaLen(AA aa)
		AALen: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: AALen, Params: []ir.Type{aa}, Ret: l.SizeT()}
		},
		// void _d_array_bounds(string file, uint line)
		ArrayBounds: func(l ir.Layout) *ir.FuncDecl {
			return &ir.FuncDecl{Name: ArrayBounds, Params: []ir.Type{ir.StructOf(l.SizeT(), voidp), ir.I32}, Ret: ir.Void, NoReturn: true}
		},
	}}
}

// Resolve returns mod's declaration of name, adding it on first use.
func (r *Runtime) Resolve(mod *ir.Module, name string) (*ir.FuncDecl, error) {
	sig, ok := r.sigs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return mod.Declare(sig(mod.Layout))
}

// Names lists the entry points the runtime provides.
func (r *Runtime) Names() []string {
	names := make([]string, 0, len(r.sigs))
	for name := range r.sigs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
