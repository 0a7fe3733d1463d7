package rtlib

import (
	"errors"
	"strings"
	"testing"

	"aalower/internal/ir"
)

func TestResolveDeclaresOnce(t *testing.T) {
	m := ir.NewModule("m", ir.DefaultLayout)
	rt := New()
	d1, err := rt.Resolve(m, AAGet)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := rt.Resolve(m, AAGet)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 || len(m.Decls) != 1 {
		t.Fatalf("expected a single declaration, got %d", len(m.Decls))
	}
	want := "declare i8* @_aaGet(%aa.Impl**, %object.TypeInfo*, i64, i8*)"
	if !strings.Contains(m.Format(), want) {
		t.Fatalf("expected %q in:\n%s", want, m.Format())
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := New().Resolve(ir.NewModule("m", ir.DefaultLayout), "_aaRehash")
	if !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}

func TestSignatures(t *testing.T) {
	cases := []struct {
		name     string
		layout   ir.Layout
		want     string
		noReturn bool
	}{
		{name: AAGetRvalue, layout: ir.DefaultLayout, want: "declare i8* @_aaGetRvalue(%aa.Impl*, %object.TypeInfo*, i64, i8*)"},
		{name: AAIn, layout: ir.DefaultLayout, want: "declare i8* @_aaIn(%aa.Impl*, %object.TypeInfo*, i8*)"},
		{name: AADel, layout: ir.DefaultLayout, want: "declare void @_aaDel(%aa.Impl*, %object.TypeInfo*, i8*)"},
		{name: AALen, layout: ir.Layout{PtrSize: 4}, want: "declare i32 @_aaLen(%aa.Impl*)"},
		{name: ArrayBounds, layout: ir.DefaultLayout, want: "declare void @_d_array_bounds({i64, i8*}, i32) noreturn", noReturn: true},
	}
	rt := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := ir.NewModule("m", tc.layout)
			d, err := rt.Resolve(m, tc.name)
			if err != nil {
				t.Fatal(err)
			}
			if d.NoReturn != tc.noReturn {
				t.Fatalf("noreturn: expected %v", tc.noReturn)
			}
			if !strings.Contains(m.Format(), tc.want) {
				t.Fatalf("expected %q in:\n%s", tc.want, m.Format())
			}
		})
	}
	if got := len(rt.Names()); got != 6 {
		t.Fatalf("expected 6 entry points, got %d", got)
	}
}
