package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"

	"aalower/internal/aa"
	"aalower/internal/diag"
	"aalower/internal/dvalue"
	"aalower/internal/interp"
	"aalower/internal/ir"
	"aalower/internal/irbuild"
	"aalower/internal/types"
)

const demoFunc = "demo"

type demoOptions struct {
	op       string
	mode     string
	key      string
	category string
	file     string
	line     int
	present  bool
	check    bool
	trace    bool
}

var (
	intT   = types.Basic(types.Int)
	longT  = types.Basic(types.Long)
	pointT = types.StructOf("Point", types.Field{Name: "x", Ty: intT}, types.Field{Name: "y", Ty: longT})
)

// demoKey returns the key type and a constant of that type.
func demoKey(mod *ir.Module, lower types.Lowering, kind string) (types.Type, ir.Value) {
	sizeT := mod.Layout.SizeT()
	switch kind {
	case "long":
		return longT, &ir.ConstInt{Ty: ir.I64, V: 5}
	case "string":
		data := mod.AddGlobal(&ir.Global{
			Name:  ".str.key",
			Ty:    ir.ArrayOf(3, ir.I8),
			Init:  &ir.ConstBytes{Data: []byte("key")},
			Const: true,
		})
		st := types.StringType()
		return st, &ir.ConstAggregate{Ty: lower.NativeType(st), Elems: []ir.Value{
			&ir.ConstInt{Ty: sizeT, V: 3},
			&ir.ConstCast{Val: data, Ty: ir.PtrTo(ir.I8)},
		}}
	case "struct":
		return pointT, &ir.ConstAggregate{Ty: lower.NativeType(pointT), Elems: []ir.Value{
			&ir.ConstInt{Ty: ir.I32, V: 1},
			&ir.ConstInt{Ty: ir.I64, V: 2},
		}}
	default:
		return intT, &ir.ConstInt{Ty: ir.I32, V: 5}
	}
}

// spill stores c into a fresh slot and returns its address.
func spill(b *irbuild.Builder, c ir.Value, name string) ir.Value {
	slot := b.Alloca(c.Type(), name)
	b.Store(c, slot)
	return slot
}

// demoOperand wraps the key constant in the requested operand category.
func demoOperand(b *irbuild.Builder, category string, ty types.Type, c ir.Value) dvalue.Value {
	byRef := b.Types.IsPassedByRef(ty)
	switch category {
	case "var":
		return &dvalue.Var{Ty: ty, Addr: spill(b, c, "key")}
	case "const":
		return &dvalue.Const{Ty: ty, V: c}
	case "computed":
		return &dvalue.Computed{Ty: ty, Expr: dvalue.ExprFunc(func(b *irbuild.Builder) (ir.Value, error) {
			if byRef {
				return spill(b, c, "keyexpr"), nil
			}
			return c, nil
		})}
	default:
		if byRef {
			return &dvalue.Imm{Ty: ty, V: spill(b, c, "keyval")}
		}
		return &dvalue.Imm{Ty: ty, V: c}
	}
}

// buildDemo lowers one associative array operation into `demo(aa)`, which
// returns what the operation produced.
func buildDemo(opts demoOptions, layout ir.Layout, log *slog.Logger) (*ir.Module, error) {
	mod := ir.NewModule(demoFunc, layout)
	mod.SetSourceFile(opts.file)
	lower := types.NewLowerer(mod)
	keyT, keyC := demoKey(mod, lower, opts.key)
	container := types.AAOf(keyT, intT)

	fn := &ir.Func{Name: demoFunc, Params: []ir.Param{{Name: "aa", Ty: lower.NativeType(container)}}}
	mod.Funcs[fn.Name] = fn
	b := irbuild.New(mod, fn, irbuild.Options{Types: lower, Log: log})
	loc := diag.Loc{Filename: opts.file, Line: opts.line}
	aaVar := &dvalue.Var{Ty: container, Addr: spill(b, b.Param(0), "aa")}
	sizeType := types.Basic(types.ULong)
	if layout.PtrSize == 4 {
		sizeType = types.Basic(types.UInt)
	}

	if opts.present {
		v, err := aa.Index(b, loc, intT, aaVar, demoOperand(b, opts.category, keyT, keyC), true)
		if err != nil {
			return nil, err
		}
		b.Store(&ir.ConstInt{Ty: ir.I32, V: 42}, v.(*dvalue.Var).Addr)
	}
	key := demoOperand(b, opts.category, keyT, keyC)

	var ret ir.Value
	switch opts.op {
	case "in":
		p, err := aa.In(b, loc, types.PointerTo(intT), aaVar, key)
		if err != nil {
			return nil, err
		}
		pv := p.(*dvalue.Imm).V
		ret = b.ICmp(ir.CmpNe, &ir.ConstNull{Ty: pv.Type()}, pv)
	case "remove", "len":
		if opts.op == "remove" {
			if err := aa.Remove(b, loc, aaVar, key); err != nil {
				return nil, err
			}
		}
		n, err := aa.Len(b, loc, sizeType, aaVar)
		if err != nil {
			return nil, err
		}
		ret = n.(*dvalue.Imm).V
	default:
		v, err := aa.Index(b, loc, intT, aaVar, key, opts.mode == "write")
		if err != nil {
			return nil, err
		}
		elem := v.(*dvalue.Var).Addr
		if opts.mode == "write" {
			b.Store(&ir.ConstInt{Ty: ir.I32, V: 7}, elem)
		}
		ret = b.Load(elem)
	}
	fn.Ret = ret.Type()
	b.Ret(ret)

	if errs := ir.Verify(mod); len(errs) != 0 {
		return nil, diag.Internalf(loc, "lowered module is malformed: %s", errs[0])
	}
	return mod, nil
}

// runDemo executes demo with an empty associative array.
func runDemo(mod *ir.Module) (string, error) {
	m, err := interp.New(mod)
	if err != nil {
		return "", err
	}
	interp.InstallAARuntime(m)
	out, err := m.Call(demoFunc, m.Ptr(0))
	if err != nil {
		return "", err
	}
	return formatResult(mod.Funcs[demoFunc].Ret, out), nil
}

func formatResult(t ir.Type, b []byte) string {
	var buf [8]byte
	copy(buf[:], b)
	u := binary.LittleEndian.Uint64(buf[:])
	switch t.K {
	case ir.TI1:
		return strconv.FormatBool(u&1 != 0)
	case ir.TI32:
		return strconv.FormatInt(int64(int32(u)), 10)
	case ir.TI64:
		return strconv.FormatInt(int64(u), 10)
	default:
		return fmt.Sprintf("%x", b)
	}
}
