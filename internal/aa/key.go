package aa

import (
	"aalower/internal/diag"
	"aalower/internal/dvalue"
	"aalower/internal/ir"
	"aalower/internal/irbuild"
)

const keyStorageName = "aatmpkeystorage"

// materialize makes sure the key lives in memory so its address can be
// handed to the runtime, and returns that address.
func materialize(b *irbuild.Builder, loc diag.Loc, key dvalue.Value) (ir.Value, error) {
	keytype := key.Type()
	needmem := !b.Types.IsPassedByRef(keytype)
	var pkey ir.Value
	switch k := key.(type) {
	case *dvalue.Imm:
		pkey = k.V
	case *dvalue.Var:
		return k.Addr, nil
	case *dvalue.Const:
		needmem = true
		pkey = k.V
	case *dvalue.Computed:
		tmp := b.Alloca(b.Types.NativeType(keytype), keyStorageName)
		if err := Assign(b, loc, &dvalue.Var{Ty: keytype, Addr: tmp}, k); err != nil {
			return nil, err
		}
		return tmp, nil
	default:
		return nil, diag.Internalf(loc, "aa key: %w: %T", dvalue.ErrCategory, key)
	}

	if needmem {
		tmp := b.Alloca(b.Types.NativeType(keytype), keyStorageName)
		b.Store(pkey, tmp)
		pkey = tmp
	}
	return pkey, nil
}

// keyTypeInfo returns the runtime type descriptor of the key's type.
func keyTypeInfo(b *irbuild.Builder, key dvalue.Value) ir.Value {
	return b.Types.TypeDescriptor(key.Type())
}

// Assign evaluates src once and writes its value into dst.
func Assign(b *irbuild.Builder, loc diag.Loc, dst *dvalue.Var, src dvalue.Value) error {
	native := b.Types.NativeType(dst.Ty)
	v, err := dvalue.RVal(b, src)
	if err != nil {
		return diag.Internalf(loc, "assign to %s: %w", dst.Ty, err)
	}
	switch {
	case v.Type().Equal(native):
	case b.Types.IsPassedByRef(src.Type()) && v.Type().Equal(ir.PtrTo(native)):
		v = b.Load(v)
	default:
		return diag.Internalf(loc, "assign %s value to %s storage", v.Type(), native)
	}
	b.Store(v, dst.Addr)
	return nil
}
