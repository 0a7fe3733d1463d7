// Package irbuild is the code generation context of one function: the
// function under construction, its insertion cursor and the collaborators
// lowering code consults.
package irbuild

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"aalower/internal/ir"
	"aalower/internal/rtlib"
	"aalower/internal/types"
)

type Options struct {
	Types   types.Lowering
	Runtime rtlib.Resolver
	Log     *slog.Logger
}

type Builder struct {
	Mod     *ir.Module
	Fn      *ir.Func
	Types   types.Lowering
	Runtime rtlib.Resolver
	Log     *slog.Logger

	cur      *ir.Block
	scopeEnd *ir.Block
	entry    *ir.Block
	allocas  int
	tmpID    int
	names    map[string]int
	pads     []string
}

// New starts emitting into fn. An empty fn gets an "entry" block.
func New(mod *ir.Module, fn *ir.Func, opts Options) *Builder {
	if opts.Types == nil {
		opts.Types = types.NewLowerer(mod)
	}
	if opts.Runtime == nil {
		opts.Runtime = rtlib.New()
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Builder{
		Mod:     mod,
		Fn:      fn,
		Types:   opts.Types,
		Runtime: opts.Runtime,
		Log:     opts.Log,
		names:   map[string]int{},
	}
	for _, blk := range fn.Blocks {
		b.names[blk.Name] = 0
	}
	if len(fn.Blocks) == 0 {
		fn.Blocks = append(fn.Blocks, &ir.Block{Name: "entry"})
		b.names["entry"] = 0
	}
	b.entry = fn.Blocks[0]
	b.cur = fn.Blocks[len(fn.Blocks)-1]
	return b
}

// Block is the current insertion block.
func (b *Builder) Block() *ir.Block { return b.cur }

// ScopeEnd is the block new blocks of the current scope are placed before;
// nil means the end of the function.
func (b *Builder) ScopeEnd() *ir.Block { return b.scopeEnd }

func (b *Builder) SetScope(cur, end *ir.Block) {
	b.cur = cur
	b.scopeEnd = end
}

func (b *Builder) SetBlock(blk *ir.Block) { b.cur = blk }

// NewBlock creates a block placed before before. Names are made unique
// within the function by a numeric suffix.
func (b *Builder) NewBlock(name string, before *ir.Block) *ir.Block {
	if n, ok := b.names[name]; ok {
		b.names[name] = n + 1
		name = name + strconv.Itoa(n+1)
	}
	b.names[name] = 0
	blk := &ir.Block{Name: name}
	b.Fn.InsertBefore(blk, before)
	return blk
}

func (b *Builder) Param(i int) *ir.ParamRef {
	return &ir.ParamRef{Index: i, Ty: b.Fn.Params[i].Ty}
}

func (b *Builder) newTemp(ty ir.Type) *ir.Temp {
	t := &ir.Temp{ID: b.tmpID, Ty: ty}
	b.tmpID++
	return t
}

func (b *Builder) emit(i ir.Instr) {
	if b.cur.Terminated() {
		panic(fmt.Sprintf("irbuild: emitting into terminated block %s", b.cur.Name))
	}
	b.cur.Instr = append(b.cur.Instr, i)
}

func (b *Builder) term(t ir.Term) {
	if b.cur.Terminated() {
		panic(fmt.Sprintf("irbuild: block %s already terminated", b.cur.Name))
	}
	b.cur.Term = t
}

// Alloca reserves storage at the head of the entry block, so the slot lives
// for the whole function regardless of where it is requested.
func (b *Builder) Alloca(ty ir.Type, name string) *ir.Temp {
	dst := b.newTemp(ir.PtrTo(ty))
	ins := &ir.Alloca{Dst: dst, Ty: ty, Name: name}
	e := b.entry
	e.Instr = append(e.Instr, nil)
	copy(e.Instr[b.allocas+1:], e.Instr[b.allocas:])
	e.Instr[b.allocas] = ins
	b.allocas++
	return dst
}

func (b *Builder) Store(val, ptr ir.Value) {
	b.emit(&ir.Store{Val: val, Ptr: ptr})
}

func (b *Builder) Load(ptr ir.Value) *ir.Temp {
	if !ptr.Type().IsPtr() {
		panic(fmt.Sprintf("irbuild: load through non-pointer %s", ptr.Type()))
	}
	dst := b.newTemp(ptr.Type().Pointee())
	b.emit(&ir.Load{Dst: dst, Ptr: ptr})
	return dst
}

// Bitcast retypes v as to. v is returned unchanged when it already has type
// to; changing the representation is an error.
func (b *Builder) Bitcast(v ir.Value, to ir.Type) (ir.Value, error) {
	if v.Type().Equal(to) {
		return v, nil
	}
	if !ir.CanReinterpret(v.Type(), to) {
		return nil, fmt.Errorf("cannot reinterpret %s as %s", v.Type(), to)
	}
	dst := b.newTemp(to)
	b.emit(&ir.Bitcast{Dst: dst, Val: v})
	return dst, nil
}

func (b *Builder) ICmp(op ir.CmpKind, x, y ir.Value) *ir.Temp {
	dst := b.newTemp(ir.I1)
	b.emit(&ir.Cmp{Dst: dst, Op: op, A: x, B: y})
	return dst
}

func (b *Builder) BinOp(op ir.BinOpKind, x, y ir.Value) *ir.Temp {
	dst := b.newTemp(x.Type())
	b.emit(&ir.BinOp{Dst: dst, Op: op, A: x, B: y})
	return dst
}

// CallOrInvoke calls fn, as an invoke unwinding to the innermost landing
// pad when one is active. The result temp is nil for void functions.
func (b *Builder) CallOrInvoke(fn *ir.FuncDecl, args ...ir.Value) *ir.Call {
	call := &ir.Call{Callee: fn, Args: args}
	if fn.Ret.K != ir.TVoid {
		call.Dst = b.newTemp(fn.Ret)
	}
	if len(b.pads) > 0 {
		call.Unwind = b.pads[len(b.pads)-1]
	}
	b.emit(call)
	return call
}

func (b *Builder) PushLandingPad(name string) { b.pads = append(b.pads, name) }

func (b *Builder) PopLandingPad() { b.pads = b.pads[:len(b.pads)-1] }

func (b *Builder) Br(target *ir.Block) { b.term(&ir.Br{Target: target.Name}) }

func (b *Builder) CondBr(cond ir.Value, then, els *ir.Block) {
	b.term(&ir.CondBr{Cond: cond, Then: then.Name, Else: els.Name})
}

func (b *Builder) Ret(v ir.Value) { b.term(&ir.Ret{Val: v}) }

func (b *Builder) Unreachable() { b.term(&ir.Unreachable{}) }
