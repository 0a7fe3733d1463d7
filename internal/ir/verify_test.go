package ir

import (
	"strings"
	"testing"
)

func TestVerifyAcceptsWellFormed(t *testing.T) {
	m := NewModule("m", DefaultLayout)
	bounds, _ := m.Declare(&FuncDecl{Name: "fail", Params: []Type{I32}, Ret: Void, NoReturn: true})
	p := &Temp{ID: 0, Ty: PtrTo(I8)}
	c := &Temp{ID: 1, Ty: I1}
	m.Funcs["f"] = &Func{
		Name:   "f",
		Params: []Param{{Name: "p", Ty: PtrTo(I8)}},
		Ret:    PtrTo(I8),
		Blocks: []*Block{
			{Name: "entry", Instr: []Instr{
				&Bitcast{Dst: p, Val: &ParamRef{Index: 0, Ty: PtrTo(I8)}},
				&Cmp{Dst: c, Op: CmpNe, A: &ConstNull{Ty: PtrTo(I8)}, B: p},
			}, Term: &CondBr{Cond: c, Then: "ok", Else: "bad"}},
			{Name: "bad", Instr: []Instr{
				&Call{Callee: bounds, Args: []Value{&ConstInt{Ty: I32, V: 1}}},
			}, Term: &Unreachable{}},
			{Name: "ok", Term: &Ret{Val: p}},
		},
	}
	if errs := Verify(m); len(errs) != 0 {
		t.Fatalf("unexpected verify errors: %v", errs)
	}
	if !m.Funcs["f"].Block("bad").Diverges() || m.Funcs["f"].Block("ok").Diverges() {
		t.Fatalf("divergence flag mismatch")
	}
}

func TestVerifyReportsProblems(t *testing.T) {
	m := NewModule("m", DefaultLayout)
	bounds, _ := m.Declare(&FuncDecl{Name: "fail", Params: []Type{I32}, Ret: Void, NoReturn: true})
	stray := &FuncDecl{Name: "stray", Ret: Void}
	m.Funcs["f"] = &Func{
		Name: "f",
		Ret:  Void,
		Blocks: []*Block{
			{Name: "entry", Instr: []Instr{
				&Bitcast{Dst: &Temp{ID: 0, Ty: I64}, Val: &ConstNull{Ty: PtrTo(I8)}},
				&Store{Val: &ConstInt{Ty: I64, V: 1}, Ptr: &ConstNull{Ty: PtrTo(I32)}},
				&Call{Callee: bounds, Args: []Value{&ConstInt{Ty: I64, V: 1}}},
				&Call{Callee: stray},
			}, Term: &Br{Target: "nowhere"}},
			{Name: "open"},
		},
	}
	got := strings.Join(Verify(m), "\n")
	for _, wantSub := range []string{
		"bitcast i8* to i64 changes representation",
		"store of i64 through i32*",
		"arg 0 has type i64, want i32",
		"call to noreturn @fail must be followed by unreachable",
		"call to undeclared @stray",
		"br targets unknown block nowhere",
		"block open: missing terminator",
	} {
		if !strings.Contains(got, wantSub) {
			t.Fatalf("expected verify output to contain %q; got:\n%s", wantSub, got)
		}
	}
}
