// Package dvalue describes operands during code generation: a source type
// plus how the operand's bits can currently be reached.
package dvalue

import (
	"errors"
	"fmt"

	"aalower/internal/ir"
	"aalower/internal/irbuild"
	"aalower/internal/types"
)

var ErrCategory = errors.New("unexpected operand category")

type Kind int

const (
	KindImm Kind = iota
	KindVar
	KindConst
	KindComputed
)

func (k Kind) String() string {
	switch k {
	case KindImm:
		return "immediate"
	case KindVar:
		return "variable"
	case KindConst:
		return "constant"
	case KindComputed:
		return "computed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is implemented by *Imm, *Var, *Const and *Computed only.
type Value interface {
	Type() types.Type
	Kind() Kind
	dvalue()
}

// Imm is an already computed value. For types passed by reference, V is the
// address of the value.
type Imm struct {
	Ty types.Type
	V  ir.Value
}

// Var lives in memory at Addr.
type Var struct {
	Ty   types.Type
	Addr ir.Value
}

// Const is a compile-time constant; V is an ir constant.
type Const struct {
	Ty types.Type
	V  ir.Value
}

// Computed is an expression that has not been evaluated yet.
type Computed struct {
	Ty   types.Type
	Expr Expr
}

// Expr emits the instructions computing a value and returns it in rvalue
// form: the address for types passed by reference, the value otherwise.
type Expr interface {
	Gen(b *irbuild.Builder) (ir.Value, error)
}

type ExprFunc func(b *irbuild.Builder) (ir.Value, error)

func (f ExprFunc) Gen(b *irbuild.Builder) (ir.Value, error) { return f(b) }

func (v *Imm) Type() types.Type      { return v.Ty }
func (v *Var) Type() types.Type      { return v.Ty }
func (v *Const) Type() types.Type    { return v.Ty }
func (v *Computed) Type() types.Type { return v.Ty }

func (*Imm) Kind() Kind      { return KindImm }
func (*Var) Kind() Kind      { return KindVar }
func (*Const) Kind() Kind    { return KindConst }
func (*Computed) Kind() Kind { return KindComputed }

func (*Imm) dvalue()      {}
func (*Var) dvalue()      {}
func (*Const) dvalue()    {}
func (*Computed) dvalue() {}

// RVal returns v in rvalue form. A Computed operand is evaluated on every
// call.
func RVal(b *irbuild.Builder, v Value) (ir.Value, error) {
	switch x := v.(type) {
	case *Imm:
		return x.V, nil
	case *Var:
		if b.Types.IsPassedByRef(x.Ty) {
			return x.Addr, nil
		}
		return b.Load(x.Addr), nil
	case *Const:
		return x.V, nil
	case *Computed:
		return x.Expr.Gen(b)
	default:
		return nil, fmt.Errorf("%w: %T", ErrCategory, v)
	}
}

// LVal returns the address of v, which must be a Var.
func LVal(v Value) (ir.Value, error) {
	if x, ok := v.(*Var); ok {
		return x.Addr, nil
	}
	return nil, fmt.Errorf("%w: %s operand of type %s is not addressable", ErrCategory, v.Kind(), v.Type())
}
