package ir

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// Module is a translation unit: globals, external declarations and function bodies.
type Module struct {
	Name   string
	Layout Layout

	Globals map[string]*Global
	Decls   map[string]*FuncDecl
	Funcs   map[string]*Func

	// FileName is the module's source file name as a string value ({size_t, i8*}).
	FileName *Global

	// mu guards Globals and Decls while functions are lowered concurrently.
	mu sync.Mutex
}

func NewModule(name string, layout Layout) *Module {
	return &Module{
		Name:    name,
		Layout:  layout,
		Globals: map[string]*Global{},
		Decls:   map[string]*FuncDecl{},
		Funcs:   map[string]*Func{},
	}
}

// AddGlobal adds g, or returns the global already registered under g.Name.
// AddGlobal and Declare are safe for concurrent use.
func (m *Module) AddGlobal(g *Global) *Global {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.Globals[g.Name]; ok {
		return prev
	}
	m.Globals[g.Name] = g
	return g
}

// Declare adds an external declaration. Declaring the same name twice with
// an identical signature returns the existing declaration.
func (m *Module) Declare(d *FuncDecl) (*FuncDecl, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.Decls[d.Name]; ok {
		if !prev.sameSig(d) {
			return nil, fmt.Errorf("conflicting declaration of %s: %s vs %s", d.Name, prev.fmtString(), d.fmtString())
		}
		return prev, nil
	}
	m.Decls[d.Name] = d
	return d, nil
}

// SetSourceFile records the module's source file name as a pair of globals:
// the raw bytes and a string value pointing at them.
func (m *Module) SetSourceFile(name string) *Global {
	data := m.AddGlobal(&Global{
		Name:  ".str.file",
		Ty:    ArrayOf(len(name), I8),
		Init:  &ConstBytes{Data: []byte(name)},
		Const: true,
	})
	sizeT := m.Layout.SizeT()
	strTy := StructOf(sizeT, PtrTo(I8))
	m.FileName = m.AddGlobal(&Global{
		Name: ".modulefilename",
		Ty:   strTy,
		Init: &ConstAggregate{Ty: strTy, Elems: []Value{
			&ConstInt{Ty: sizeT, V: int64(len(name))},
			&ConstCast{Val: data, Ty: PtrTo(I8)},
		}},
		Const: true,
	})
	return m.FileName
}

type Func struct {
	Name   string
	Params []Param
	Ret    Type
	Blocks []*Block
}

type Param struct {
	Name string
	Ty   Type
}

// Block returns the block named name, or nil.
func (f *Func) Block(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// InsertBefore places b immediately before the block before. A nil or
// unknown before appends b at the end.
func (f *Func) InsertBefore(b, before *Block) {
	i := slices.Index(f.Blocks, before)
	if before == nil || i < 0 {
		f.Blocks = append(f.Blocks, b)
		return
	}
	f.Blocks = slices.Insert(f.Blocks, i, b)
}

type Block struct {
	Name  string
	Instr []Instr
	Term  Term
}

func (b *Block) Terminated() bool { return b.Term != nil }

// Diverges reports whether control never leaves the block.
func (b *Block) Diverges() bool {
	_, ok := b.Term.(*Unreachable)
	return ok
}

// FuncDecl is an external function known by signature only.
type FuncDecl struct {
	Name     string
	Params   []Type
	Ret      Type
	NoReturn bool
}

func (d *FuncDecl) sameSig(o *FuncDecl) bool {
	if !d.Ret.Equal(o.Ret) || len(d.Params) != len(o.Params) || d.NoReturn != o.NoReturn {
		return false
	}
	for i := range d.Params {
		if !d.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (d *FuncDecl) fmtString() string {
	var sb strings.Builder
	sb.WriteString("declare ")
	sb.WriteString(d.Ret.String())
	sb.WriteString(" @")
	sb.WriteString(d.Name)
	sb.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	if d.NoReturn {
		sb.WriteString(" noreturn")
	}
	return sb.String()
}

type Instr interface {
	instrNode()
	fmtString() string
}

type Term interface {
	termNode()
	fmtString() string
}

// Values
type Value interface {
	valueNode()
	Type() Type
	fmtString() string
}

func typed(v Value) string { return v.Type().String() + " " + v.fmtString() }

// ParamRef refers to a function parameter by index.
// It formats as %pN in IR text.
type ParamRef struct {
	Index int
	Ty    Type
}

func (*ParamRef) valueNode()          {}
func (p *ParamRef) Type() Type        { return p.Ty }
func (p *ParamRef) fmtString() string { return fmt.Sprintf("%%p%d", p.Index) }

type Temp struct {
	ID int
	Ty Type
}

func (*Temp) valueNode()          {}
func (t *Temp) Type() Type        { return t.Ty }
func (t *Temp) fmtString() string { return fmt.Sprintf("%%t%d", t.ID) }

// Global is a module-level variable. As a value it denotes its address.
type Global struct {
	Name  string
	Ty    Type
	Init  Value
	Const bool
}

func (*Global) valueNode()          {}
func (g *Global) Type() Type        { return PtrTo(g.Ty) }
func (g *Global) fmtString() string { return "@" + g.Name }

type ConstInt struct {
	Ty Type
	V  int64
}

func (*ConstInt) valueNode()          {}
func (c *ConstInt) Type() Type        { return c.Ty }
func (c *ConstInt) fmtString() string { return strconv.FormatInt(c.V, 10) }

type ConstNull struct {
	Ty Type
}

func (*ConstNull) valueNode()          {}
func (c *ConstNull) Type() Type        { return c.Ty }
func (c *ConstNull) fmtString() string { return "null" }

// ConstAggregate is a constant struct or array value.
type ConstAggregate struct {
	Ty    Type
	Elems []Value
}

func (*ConstAggregate) valueNode()   {}
func (c *ConstAggregate) Type() Type { return c.Ty }
func (c *ConstAggregate) fmtString() string {
	parts := make([]string, 0, len(c.Elems))
	for _, e := range c.Elems {
		parts = append(parts, typed(e))
	}
	if c.Ty.K == TArray {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ConstBytes is a constant byte array.
type ConstBytes struct {
	Data []byte
}

func (*ConstBytes) valueNode()          {}
func (c *ConstBytes) Type() Type        { return ArrayOf(len(c.Data), I8) }
func (c *ConstBytes) fmtString() string { return "c" + strconv.Quote(string(c.Data)) }

// ConstCast reinterprets a constant address as another pointer type.
type ConstCast struct {
	Val Value
	Ty  Type
}

func (*ConstCast) valueNode()   {}
func (c *ConstCast) Type() Type { return c.Ty }
func (c *ConstCast) fmtString() string {
	return fmt.Sprintf("bitcast (%s to %s)", typed(c.Val), c.Ty.String())
}

// IsConst reports whether v is usable in a global initializer.
func IsConst(v Value) bool {
	switch x := v.(type) {
	case *ConstInt, *ConstNull, *ConstBytes, *Global:
		return true
	case *ConstCast:
		return IsConst(x.Val)
	case *ConstAggregate:
		for _, e := range x.Elems {
			if !IsConst(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Instructions

// Alloca reserves function-local storage of type Ty; Dst is a pointer to it.
type Alloca struct {
	Dst  *Temp
	Ty   Type
	Name string
}

func (*Alloca) instrNode() {}
func (i *Alloca) fmtString() string {
	s := fmt.Sprintf("%s = alloca %s", i.Dst.fmtString(), i.Ty.String())
	if i.Name != "" {
		s += " ; " + i.Name
	}
	return s
}

type Store struct {
	Val Value
	Ptr Value
}

func (*Store) instrNode() {}
func (i *Store) fmtString() string {
	return fmt.Sprintf("store %s, %s", typed(i.Val), typed(i.Ptr))
}

type Load struct {
	Dst *Temp
	Ptr Value
}

func (*Load) instrNode() {}
func (i *Load) fmtString() string {
	return fmt.Sprintf("%s = load %s, %s", i.Dst.fmtString(), i.Dst.Ty.String(), typed(i.Ptr))
}

// Bitcast changes the static type of a pointer without touching its bits.
type Bitcast struct {
	Dst *Temp
	Val Value
}

func (*Bitcast) instrNode() {}
func (i *Bitcast) fmtString() string {
	return fmt.Sprintf("%s = bitcast %s to %s", i.Dst.fmtString(), typed(i.Val), i.Dst.Ty.String())
}

type BinOpKind string

const (
	OpAdd BinOpKind = "add"
	OpSub BinOpKind = "sub"
	OpMul BinOpKind = "mul"
)

type BinOp struct {
	Dst *Temp
	Op  BinOpKind
	A   Value
	B   Value
}

func (*BinOp) instrNode() {}
func (i *BinOp) fmtString() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dst.fmtString(), string(i.Op), typed(i.A), i.B.fmtString())
}

type CmpKind string

const (
	CmpEq CmpKind = "eq"
	CmpNe CmpKind = "ne"
)

type Cmp struct {
	Dst *Temp
	Op  CmpKind
	A   Value
	B   Value
}

func (*Cmp) instrNode() {}
func (i *Cmp) fmtString() string {
	return fmt.Sprintf("%s = icmp %s %s, %s", i.Dst.fmtString(), string(i.Op), typed(i.A), i.B.fmtString())
}

// Call calls an external function. A non-empty Unwind makes it an invoke
// whose exceptional edge continues at the named landing pad.
type Call struct {
	Dst    *Temp // nil when Callee returns void
	Callee *FuncDecl
	Args   []Value
	Unwind string
}

func (*Call) instrNode() {}
func (i *Call) fmtString() string {
	var sb strings.Builder
	if i.Dst != nil {
		sb.WriteString(i.Dst.fmtString())
		sb.WriteString(" = ")
	}
	if i.Unwind != "" {
		sb.WriteString("invoke ")
	} else {
		sb.WriteString("call ")
	}
	sb.WriteString(i.Callee.Ret.String())
	sb.WriteString(" @")
	sb.WriteString(i.Callee.Name)
	sb.WriteByte('(')
	for j, a := range i.Args {
		if j > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(typed(a))
	}
	sb.WriteByte(')')
	if i.Unwind != "" {
		sb.WriteString(" unwind ")
		sb.WriteString(i.Unwind)
	}
	return sb.String()
}

// Terminators
type Ret struct {
	Val Value // optional for void
}

func (*Ret) termNode() {}
func (t *Ret) fmtString() string {
	if t.Val == nil {
		return "ret void"
	}
	return "ret " + typed(t.Val)
}

type Br struct {
	Target string
}

func (*Br) termNode()           {}
func (t *Br) fmtString() string { return fmt.Sprintf("br %s", t.Target) }

type CondBr struct {
	Cond Value
	Then string
	Else string
}

func (*CondBr) termNode() {}
func (t *CondBr) fmtString() string {
	return fmt.Sprintf("condbr %s %s %s", t.Cond.fmtString(), t.Then, t.Else)
}

// Unreachable ends a block that control never leaves.
type Unreachable struct{}

func (*Unreachable) termNode()         {}
func (*Unreachable) fmtString() string { return "unreachable" }
