package ir

import (
	"testing"
)

func TestFmtStringValues(t *testing.T) {
	g := &Global{Name: "g", Ty: I32}
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{name: "param", v: &ParamRef{Index: 2, Ty: I32}, want: "%p2"},
		{name: "temp", v: &Temp{ID: 3, Ty: I64}, want: "%t3"},
		{name: "global", v: g, want: "@g"},
		{name: "int", v: &ConstInt{Ty: I32, V: 7}, want: "7"},
		{name: "null", v: &ConstNull{Ty: PtrTo(I8)}, want: "null"},
		{name: "bytes", v: &ConstBytes{Data: []byte("a\nb")}, want: `c"a\nb"`},
		{name: "aggregate", v: &ConstAggregate{Ty: StructOf(I64, PtrTo(I8)), Elems: []Value{&ConstInt{Ty: I64, V: 1}, &ConstNull{Ty: PtrTo(I8)}}}, want: "{i64 1, i8* null}"},
		{name: "array", v: &ConstAggregate{Ty: ArrayOf(2, I32), Elems: []Value{&ConstInt{Ty: I32, V: 1}, &ConstInt{Ty: I32, V: 2}}}, want: "[i32 1, i32 2]"},
		{name: "cast", v: &ConstCast{Val: g, Ty: PtrTo(I8)}, want: "bitcast (i32* @g to i8*)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.fmtString(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFmtStringInstrAndTerm(t *testing.T) {
	p := &Temp{ID: 0, Ty: PtrTo(I32)}
	v := &Temp{ID: 1, Ty: I32}
	get := &FuncDecl{Name: "_aaGet", Params: []Type{PtrTo(PtrTo(I8)), I64}, Ret: PtrTo(I8)}
	del := &FuncDecl{Name: "_aaDel", Params: []Type{PtrTo(I8)}, Ret: Void}

	insCases := []struct {
		name string
		ins  Instr
		want string
	}{
		{name: "alloca", ins: &Alloca{Dst: p, Ty: I32}, want: "%t0 = alloca i32"},
		{name: "alloca_named", ins: &Alloca{Dst: p, Ty: I32, Name: "aatmpkeystorage"}, want: "%t0 = alloca i32 ; aatmpkeystorage"},
		{name: "store", ins: &Store{Val: &ConstInt{Ty: I32, V: 5}, Ptr: p}, want: "store i32 5, i32* %t0"},
		{name: "load", ins: &Load{Dst: v, Ptr: p}, want: "%t1 = load i32, i32* %t0"},
		{name: "bitcast", ins: &Bitcast{Dst: &Temp{ID: 2, Ty: PtrTo(I8)}, Val: p}, want: "%t2 = bitcast i32* %t0 to i8*"},
		{name: "binop", ins: &BinOp{Dst: &Temp{ID: 3, Ty: I32}, Op: OpAdd, A: v, B: &ConstInt{Ty: I32, V: 1}}, want: "%t3 = add i32 %t1, 1"},
		{name: "icmp", ins: &Cmp{Dst: &Temp{ID: 4, Ty: I1}, Op: CmpNe, A: &ConstNull{Ty: PtrTo(I32)}, B: p}, want: "%t4 = icmp ne i32* null, %t0"},
		{name: "call", ins: &Call{Dst: &Temp{ID: 5, Ty: PtrTo(I8)}, Callee: get, Args: []Value{&ConstNull{Ty: PtrTo(PtrTo(I8))}, &ConstInt{Ty: I64, V: 4}}}, want: "%t5 = call i8* @_aaGet(i8** null, i64 4)"},
		{name: "call_void", ins: &Call{Callee: del, Args: []Value{&ConstNull{Ty: PtrTo(I8)}}}, want: "call void @_aaDel(i8* null)"},
		{name: "invoke", ins: &Call{Callee: del, Args: []Value{&ConstNull{Ty: PtrTo(I8)}}, Unwind: "lpad"}, want: "invoke void @_aaDel(i8* null) unwind lpad"},
	}
	for _, tc := range insCases {
		t.Run("ins_"+tc.name, func(t *testing.T) {
			if got := tc.ins.fmtString(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}

	termCases := []struct {
		name string
		term Term
		want string
	}{
		{name: "ret_void", term: &Ret{}, want: "ret void"},
		{name: "ret_val", term: &Ret{Val: v}, want: "ret i32 %t1"},
		{name: "br", term: &Br{Target: "next"}, want: "br next"},
		{name: "condbr", term: &CondBr{Cond: &Temp{ID: 4, Ty: I1}, Then: "t", Else: "e"}, want: "condbr %t4 t e"},
		{name: "unreachable", term: &Unreachable{}, want: "unreachable"},
	}
	for _, tc := range termCases {
		t.Run("term_"+tc.name, func(t *testing.T) {
			if got := tc.term.fmtString(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	cases := []struct {
		ty   Type
		want string
	}{
		{ty: Void, want: "void"},
		{ty: PtrTo(PtrTo(I8)), want: "i8**"},
		{ty: ArrayOf(4, I32), want: "[4 x i32]"},
		{ty: StructOf(I64, PtrTo(I8)), want: "{i64, i8*}"},
		{ty: PtrTo(OpaqueStruct("aa.Impl")), want: "%aa.Impl*"},
	}
	for _, tc := range cases {
		if got := tc.ty.String(); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
