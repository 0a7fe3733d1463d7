package aa

import (
	"errors"
	"strings"
	"testing"

	"aalower/internal/dvalue"
	"aalower/internal/interp"
	"aalower/internal/ir"
	"aalower/internal/types"
)

func run(t *testing.T, mod *ir.Module, fn string) ([]byte, error) {
	t.Helper()
	if errs := ir.Verify(mod); len(errs) != 0 {
		t.Fatalf("verify:\n%s\n%s", strings.Join(errs, "\n"), mod.Format())
	}
	m, err := interp.New(mod)
	if err != nil {
		t.Fatal(err)
	}
	interp.InstallAARuntime(m)
	return m.Call(fn, m.Ptr(0))
}

func TestRunReadAfterWriteSameSlot(t *testing.T) {
	b, aa := newTestBuilder(t)
	b.Fn.Ret = ir.I1
	key := &dvalue.Const{Ty: intT, V: &ir.ConstInt{Ty: ir.I32, V: 5}}

	w, err := Index(b, testLoc, intT, aa, key, true)
	if err != nil {
		t.Fatal(err)
	}
	b.Store(&ir.ConstInt{Ty: ir.I32, V: 7}, w.(*dvalue.Var).Addr)
	r, err := Index(b, testLoc, intT, aa, key, false)
	if err != nil {
		t.Fatal(err)
	}
	b.Ret(b.ICmp(ir.CmpEq, w.(*dvalue.Var).Addr, r.(*dvalue.Var).Addr))

	out, err := run(t, b.Mod, "f")
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1 {
		t.Fatalf("expected the same element address")
	}
}

func TestRunStoredValueAndLength(t *testing.T) {
	b, aa := newTestBuilder(t)
	b.Fn.Ret = ir.I64
	for i, k := range []int64{1, 2, 1} {
		w, err := Index(b, testLoc, intT, aa, &dvalue.Imm{Ty: intT, V: &ir.ConstInt{Ty: ir.I32, V: k}}, true)
		if err != nil {
			t.Fatal(err)
		}
		b.Store(&ir.ConstInt{Ty: ir.I32, V: int64(10 + i)}, w.(*dvalue.Var).Addr)
	}
	n, err := Len(b, testLoc, longT, aa)
	if err != nil {
		t.Fatal(err)
	}
	b.Ret(n.(*dvalue.Imm).V)

	out, err := run(t, b.Mod, "f")
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 2 {
		t.Fatalf("expected 2 entries, got %d", out[0])
	}
}

func TestRunRemoveThenIn(t *testing.T) {
	b, aa := newTestBuilder(t)
	b.Fn.Ret = ir.I1
	key := &dvalue.Imm{Ty: intT, V: &ir.ConstInt{Ty: ir.I32, V: 3}}
	if _, err := Index(b, testLoc, intT, aa, key, true); err != nil {
		t.Fatal(err)
	}
	if err := Remove(b, testLoc, aa, key); err != nil {
		t.Fatal(err)
	}
	p, err := In(b, testLoc, types.PointerTo(intT), aa, key)
	if err != nil {
		t.Fatal(err)
	}
	v := p.(*dvalue.Imm).V
	b.Ret(b.ICmp(ir.CmpEq, v, &ir.ConstNull{Ty: v.Type()}))

	out, err := run(t, b.Mod, "f")
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1 {
		t.Fatalf("expected the removed key to be absent")
	}
}

func TestRunMissingKeyRangeViolation(t *testing.T) {
	b, aa := newTestBuilder(t)
	b.Fn.Ret = ir.I32
	r, err := Index(b, testLoc, intT, aa, &dvalue.Imm{Ty: intT, V: &ir.ConstInt{Ty: ir.I32, V: 9}}, false)
	if err != nil {
		t.Fatal(err)
	}
	b.Ret(b.Load(r.(*dvalue.Var).Addr))

	_, err = run(t, b.Mod, "f")
	var be *interp.BoundsError
	if !errors.As(err, &be) {
		t.Fatalf("expected a range violation, got %v", err)
	}
	if be.File != "test.d" || be.Line != 42 {
		t.Fatalf("expected test.d(42), got %s", be)
	}
	if got := be.Error(); got != "test.d(42): range violation" {
		t.Fatalf("expected %q, got %q", "test.d(42): range violation", got)
	}
}
