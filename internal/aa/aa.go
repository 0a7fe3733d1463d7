// Package aa lowers associative array operations to calls into the runtime
// library.
package aa

import (
	"errors"
	"fmt"

	"aalower/internal/diag"
	"aalower/internal/dvalue"
	"aalower/internal/ir"
	"aalower/internal/irbuild"
	"aalower/internal/rtlib"
	"aalower/internal/types"
)

// ErrSignature reports lowered arguments that do not fit the runtime's
// declared signature.
var ErrSignature = errors.New("runtime signature mismatch")

// Index lowers aa[key]. As an lvalue a missing key is inserted by the runtime;
// as an rvalue a missing key fails the bounds check. The result is the
// element's storage.
func Index(b *irbuild.Builder, loc diag.Loc, elem types.Type, container, key dvalue.Value, lvalue bool) (dvalue.Value, error) {
	// void* _aaGet(AA* aa, TypeInfo keyti, size_t valuesize, void* pkey)
	// void* _aaGetRvalue(AA aa, TypeInfo keyti, size_t valuesize, void* pkey)
	name := rtlib.AAGetRvalue
	if lvalue {
		name = rtlib.AAGet
	}
	fn, err := resolve(b, loc, name)
	if err != nil {
		return nil, err
	}

	// The lvalue form may reallocate the container, so it gets its address.
	var aaval ir.Value
	if lvalue {
		aaval, err = dvalue.LVal(container)
	} else {
		aaval, err = dvalue.RVal(b, container)
	}
	if err != nil {
		return nil, diag.Internalf(loc, "aa container: %w", err)
	}
	b.Log.Debug("aa runtime call", "fn", fn.Name, "container", aaval.Type().String(), "param", paramString(fn, 0))
	if aaval, err = param(b, loc, fn, 0, aaval); err != nil {
		return nil, err
	}

	keyti, err := param(b, loc, fn, 1, keyTypeInfo(b, key))
	if err != nil {
		return nil, err
	}

	valsize, err := param(b, loc, fn, 2, &ir.ConstInt{
		Ty: b.Mod.Layout.SizeT(),
		V:  b.Types.ByteSize(b.Types.NativeType(elem)),
	})
	if err != nil {
		return nil, err
	}

	pkey, err := materialize(b, loc, key)
	if err != nil {
		return nil, err
	}
	if pkey, err = param(b, loc, fn, 3, pkey); err != nil {
		return nil, err
	}

	call, err := callRuntime(b, loc, fn, aaval, keyti, valsize, pkey)
	if err != nil {
		return nil, err
	}
	ret, err := result(b, loc, fn, call, ir.PtrTo(b.Types.NativeType(elem)))
	if err != nil {
		return nil, err
	}

	// Only rvalues are checked; an lvalue use auto-adds the element.
	if !lvalue {
		if err := boundsCheck(b, loc, ret); err != nil {
			return nil, err
		}
	}
	return &dvalue.Var{Ty: elem, Addr: ret}, nil
}

// In lowers `key in aa`, producing a value of type resultType (a pointer to
// the element, null when absent).
func In(b *irbuild.Builder, loc diag.Loc, resultType types.Type, container, key dvalue.Value) (dvalue.Value, error) {
	// void* _aaIn(AA aa, TypeInfo keyti, void* pkey)
	fn, err := resolve(b, loc, rtlib.AAIn)
	if err != nil {
		return nil, err
	}
	args, err := keyedArgs(b, loc, fn, container, key)
	if err != nil {
		return nil, err
	}
	call, err := callRuntime(b, loc, fn, args...)
	if err != nil {
		return nil, err
	}
	ret, err := result(b, loc, fn, call, b.Types.NativeType(resultType))
	if err != nil {
		return nil, err
	}
	return &dvalue.Imm{Ty: resultType, V: ret}, nil
}

// Remove lowers aa.remove(key).
func Remove(b *irbuild.Builder, loc diag.Loc, container, key dvalue.Value) error {
	// void _aaDel(AA aa, TypeInfo keyti, void* pkey)
	fn, err := resolve(b, loc, rtlib.AADel)
	if err != nil {
		return err
	}
	args, err := keyedArgs(b, loc, fn, container, key)
	if err != nil {
		return err
	}
	_, err = callRuntime(b, loc, fn, args...)
	return err
}

// Len lowers aa.length.
func Len(b *irbuild.Builder, loc diag.Loc, resultType types.Type, container dvalue.Value) (dvalue.Value, error) {
	// size_t _aaLen(AA aa)
	fn, err := resolve(b, loc, rtlib.AALen)
	if err != nil {
		return nil, err
	}
	aaval, err := dvalue.RVal(b, container)
	if err != nil {
		return nil, diag.Internalf(loc, "aa container: %w", err)
	}
	b.Log.Debug("aa runtime call", "fn", fn.Name, "container", aaval.Type().String(), "param", paramString(fn, 0))
	if aaval, err = param(b, loc, fn, 0, aaval); err != nil {
		return nil, err
	}
	call, err := callRuntime(b, loc, fn, aaval)
	if err != nil {
		return nil, err
	}
	ret, err := result(b, loc, fn, call, b.Types.NativeType(resultType))
	if err != nil {
		return nil, err
	}
	return &dvalue.Imm{Ty: resultType, V: ret}, nil
}

// keyedArgs lowers the (container by value, key typeinfo, key address)
// argument list shared by _aaIn and _aaDel.
func keyedArgs(b *irbuild.Builder, loc diag.Loc, fn *ir.FuncDecl, container, key dvalue.Value) ([]ir.Value, error) {
	aaval, err := dvalue.RVal(b, container)
	if err != nil {
		return nil, diag.Internalf(loc, "aa container: %w", err)
	}
	b.Log.Debug("aa runtime call", "fn", fn.Name, "container", aaval.Type().String(), "param", paramString(fn, 0))
	if aaval, err = param(b, loc, fn, 0, aaval); err != nil {
		return nil, err
	}
	keyti, err := param(b, loc, fn, 1, keyTypeInfo(b, key))
	if err != nil {
		return nil, err
	}
	pkey, err := materialize(b, loc, key)
	if err != nil {
		return nil, err
	}
	if pkey, err = param(b, loc, fn, 2, pkey); err != nil {
		return nil, err
	}
	return []ir.Value{aaval, keyti, pkey}, nil
}

func resolve(b *irbuild.Builder, loc diag.Loc, name string) (*ir.FuncDecl, error) {
	fn, err := b.Runtime.Resolve(b.Mod, name)
	if err != nil {
		return nil, diag.Internalf(loc, "resolving runtime function: %w", err)
	}
	return fn, nil
}

// param reinterprets v as the declared type of fn's parameter i.
func param(b *irbuild.Builder, loc diag.Loc, fn *ir.FuncDecl, i int, v ir.Value) (ir.Value, error) {
	if i >= len(fn.Params) {
		return nil, diag.Internalf(loc, "@%s has %d params, lowering passes at least %d: %w", fn.Name, len(fn.Params), i+1, ErrSignature)
	}
	cast, err := b.Bitcast(v, fn.Params[i])
	if err != nil {
		return nil, diag.Internalf(loc, "@%s param %d: %v: %w", fn.Name, i, err, ErrSignature)
	}
	return cast, nil
}

func callRuntime(b *irbuild.Builder, loc diag.Loc, fn *ir.FuncDecl, args ...ir.Value) (*ir.Call, error) {
	if len(args) != len(fn.Params) {
		return nil, diag.Internalf(loc, "@%s called with %d args, declared with %d: %w", fn.Name, len(args), len(fn.Params), ErrSignature)
	}
	b.Log.Debug("aa call", "fn", fn.Name, "args", len(args), "block", b.Block().Name)
	return b.CallOrInvoke(fn, args...), nil
}

// result reinterprets the call's return value as want when the types differ.
func result(b *irbuild.Builder, loc diag.Loc, fn *ir.FuncDecl, call *ir.Call, want ir.Type) (ir.Value, error) {
	if call.Dst == nil {
		return nil, diag.Internalf(loc, "@%s returns void: %w", fn.Name, ErrSignature)
	}
	ret, err := b.Bitcast(call.Dst, want)
	if err != nil {
		return nil, diag.Internalf(loc, "@%s result: %v: %w", fn.Name, err, ErrSignature)
	}
	return ret, nil
}

func paramString(fn *ir.FuncDecl, i int) string {
	if i < len(fn.Params) {
		return fn.Params[i].String()
	}
	return fmt.Sprintf("<missing param %d>", i)
}
