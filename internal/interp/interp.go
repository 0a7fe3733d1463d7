// Package interp executes lowered ir modules against host implementations of
// the functions they declare. Memory is a flat byte arena; values are the
// little-endian bytes of their native representation.
package interp

import (
	"errors"
	"fmt"
	"sort"

	"aalower/internal/ir"
)

// HostFunc implements a declared function. args holds the encoded
// arguments; the result is nil for void functions.
type HostFunc func(m *Machine, args [][]byte) ([]byte, error)

var ErrUnreachable = errors.New("reached unreachable")

// arenaBase keeps address 0 free so null never aliases live storage.
const arenaBase = 16

// Machine holds the memory image of one module.
type Machine struct {
	Mod  *ir.Module
	Host map[string]HostFunc
	// MaxSteps bounds the instructions one Call may execute; 0 means no limit.
	MaxSteps int

	mem     []byte
	globals map[string]uint64
}

type frame struct {
	fn    *ir.Func
	args  [][]byte
	temps map[int][]byte
}

// New lays out mod's globals. Every global gets its address before any
// initializer is written, so initializers may refer to each other.
func New(mod *ir.Module) (*Machine, error) {
	m := &Machine{
		Mod:     mod,
		Host:    map[string]HostFunc{},
		mem:     make([]byte, arenaBase),
		globals: map[string]uint64{},
	}
	names := make([]string, 0, len(mod.Globals))
	for name := range mod.Globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g := mod.Globals[name]
		m.globals[name] = m.Alloc(mod.Layout.SizeOf(g.Ty), mod.Layout.AlignOf(g.Ty))
	}
	for _, name := range names {
		g := mod.Globals[name]
		if g.Init == nil {
			continue
		}
		data, err := m.constant(g.Init)
		if err != nil {
			return nil, fmt.Errorf("global @%s: %w", name, err)
		}
		if err := m.Write(m.globals[name], data); err != nil {
			return nil, fmt.Errorf("global @%s: %w", name, err)
		}
	}
	return m, nil
}

// Alloc returns the address of size zeroed bytes.
func (m *Machine) Alloc(size, align int64) uint64 {
	if align < 1 {
		align = 1
	}
	off := (int64(len(m.mem)) + align - 1) / align * align
	if size == 0 {
		size = 1
	}
	grow := off + size - int64(len(m.mem))
	m.mem = append(m.mem, make([]byte, grow)...)
	return uint64(off)
}

func (m *Machine) Read(addr uint64, size int64) ([]byte, error) {
	if addr < arenaBase || addr+uint64(size) > uint64(len(m.mem)) {
		return nil, fmt.Errorf("read of %d bytes at %#x out of bounds", size, addr)
	}
	out := make([]byte, size)
	copy(out, m.mem[addr:])
	return out, nil
}

func (m *Machine) Write(addr uint64, data []byte) error {
	if addr < arenaBase || addr+uint64(len(data)) > uint64(len(m.mem)) {
		return fmt.Errorf("write of %d bytes at %#x out of bounds", len(data), addr)
	}
	copy(m.mem[addr:], data)
	return nil
}

// GlobalAddr returns the address of the named global.
func (m *Machine) GlobalAddr(name string) (uint64, bool) {
	a, ok := m.globals[name]
	return a, ok
}

func (m *Machine) Ptr(addr uint64) []byte { return encodeInt(addr, m.Mod.Layout.PtrSize) }

func (m *Machine) Int(v int64, t ir.Type) []byte {
	return encodeInt(uint64(v), m.Mod.Layout.SizeOf(t))
}

// Call runs the module function name with encoded args and returns its
// encoded result.
func (m *Machine) Call(name string, args ...[]byte) ([]byte, error) {
	fn, ok := m.Mod.Funcs[name]
	if !ok {
		return nil, fmt.Errorf("no function %s", name)
	}
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("%s: expected %d args, got %d", name, len(fn.Params), len(args))
	}
	if len(fn.Blocks) == 0 {
		return nil, fmt.Errorf("%s: no blocks", name)
	}
	f := &frame{fn: fn, args: args, temps: map[int][]byte{}}
	blk := fn.Blocks[0]
	steps := 0
run:
	for {
		for _, ins := range blk.Instr {
			steps++
			if m.MaxSteps > 0 && steps > m.MaxSteps {
				return nil, fmt.Errorf("%s: step limit %d exceeded", name, m.MaxSteps)
			}
			target, err := m.exec(f, ins)
			if err != nil {
				return nil, err
			}
			if target != "" {
				// an invoke that unwound
				if blk = fn.Block(target); blk == nil {
					return nil, fmt.Errorf("%s: unknown landing pad %s", name, target)
				}
				continue run
			}
		}
		switch t := blk.Term.(type) {
		case *ir.Ret:
			if t.Val == nil {
				return nil, nil
			}
			return m.eval(f, t.Val)
		case *ir.Br:
			blk = fn.Block(t.Target)
		case *ir.CondBr:
			c, err := m.eval(f, t.Cond)
			if err != nil {
				return nil, err
			}
			if decodeInt(c)&1 != 0 {
				blk = fn.Block(t.Then)
			} else {
				blk = fn.Block(t.Else)
			}
		case *ir.Unreachable:
			return nil, fmt.Errorf("%s: %w in block %s", name, ErrUnreachable, blk.Name)
		default:
			return nil, fmt.Errorf("%s: block %s has no terminator", name, blk.Name)
		}
		if blk == nil {
			return nil, fmt.Errorf("%s: branch to unknown block", name)
		}
	}
}

// Unwind is returned by a host function to raise an exception. An invoke
// resumes at its landing pad; a plain call propagates it.
type Unwind struct {
	Err error
}

func (u *Unwind) Error() string { return "unwind: " + u.Err.Error() }

func (u *Unwind) Unwrap() error { return u.Err }

// exec runs one instruction. A non-empty result names the landing pad an
// invoke unwound to.
func (m *Machine) exec(f *frame, ins ir.Instr) (string, error) {
	l := m.Mod.Layout
	switch i := ins.(type) {
	case *ir.Alloca:
		f.temps[i.Dst.ID] = m.Ptr(m.Alloc(l.SizeOf(i.Ty), l.AlignOf(i.Ty)))
	case *ir.Store:
		v, err := m.eval(f, i.Val)
		if err != nil {
			return "", err
		}
		p, err := m.eval(f, i.Ptr)
		if err != nil {
			return "", err
		}
		return "", m.Write(decodeInt(p), v)
	case *ir.Load:
		p, err := m.eval(f, i.Ptr)
		if err != nil {
			return "", err
		}
		v, err := m.Read(decodeInt(p), l.SizeOf(i.Dst.Ty))
		if err != nil {
			return "", err
		}
		f.temps[i.Dst.ID] = v
	case *ir.Bitcast:
		v, err := m.eval(f, i.Val)
		if err != nil {
			return "", err
		}
		f.temps[i.Dst.ID] = v
	case *ir.BinOp:
		a, err := m.eval(f, i.A)
		if err != nil {
			return "", err
		}
		b, err := m.eval(f, i.B)
		if err != nil {
			return "", err
		}
		r, ok := binOp(i.Op, decodeInt(a), decodeInt(b), intBitWidth(i.Dst.Ty, l))
		if !ok {
			return "", fmt.Errorf("unsupported binop %s", i.Op)
		}
		f.temps[i.Dst.ID] = encodeInt(r, l.SizeOf(i.Dst.Ty))
	case *ir.Cmp:
		a, err := m.eval(f, i.A)
		if err != nil {
			return "", err
		}
		b, err := m.eval(f, i.B)
		if err != nil {
			return "", err
		}
		eq := string(a) == string(b)
		var r uint64
		if eq == (i.Op == ir.CmpEq) {
			r = 1
		}
		f.temps[i.Dst.ID] = encodeInt(r, 1)
	case *ir.Call:
		return m.call(f, i)
	default:
		return "", fmt.Errorf("unsupported instruction %T", ins)
	}
	return "", nil
}

func (m *Machine) call(f *frame, c *ir.Call) (string, error) {
	host, ok := m.Host[c.Callee.Name]
	if !ok {
		return "", fmt.Errorf("no host implementation of @%s", c.Callee.Name)
	}
	args := make([][]byte, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := m.eval(f, a)
		if err != nil {
			return "", err
		}
		args = append(args, v)
	}
	ret, err := host(m, args)
	if err != nil {
		var u *Unwind
		if c.Unwind != "" && errors.As(err, &u) {
			return c.Unwind, nil
		}
		return "", err
	}
	if c.Callee.NoReturn {
		return "", fmt.Errorf("noreturn @%s returned", c.Callee.Name)
	}
	if c.Dst != nil {
		if want := m.Mod.Layout.SizeOf(c.Dst.Ty); int64(len(ret)) != want {
			return "", fmt.Errorf("@%s returned %d bytes, want %d", c.Callee.Name, len(ret), want)
		}
		f.temps[c.Dst.ID] = ret
	}
	return "", nil
}

func (m *Machine) eval(f *frame, v ir.Value) ([]byte, error) {
	switch x := v.(type) {
	case *ir.ParamRef:
		if x.Index >= len(f.args) {
			return nil, fmt.Errorf("%s: no param %d", f.fn.Name, x.Index)
		}
		return f.args[x.Index], nil
	case *ir.Temp:
		t, ok := f.temps[x.ID]
		if !ok {
			return nil, fmt.Errorf("%s: %%t%d used before definition", f.fn.Name, x.ID)
		}
		return t, nil
	default:
		return m.constant(v)
	}
}

func (m *Machine) constant(v ir.Value) ([]byte, error) {
	l := m.Mod.Layout
	switch x := v.(type) {
	case *ir.Global:
		a, ok := m.globals[x.Name]
		if !ok {
			return nil, fmt.Errorf("unknown global @%s", x.Name)
		}
		return m.Ptr(a), nil
	case *ir.ConstInt:
		return encodeInt(uint64(x.V), l.SizeOf(x.Ty)), nil
	case *ir.ConstNull:
		return make([]byte, l.SizeOf(x.Ty)), nil
	case *ir.ConstBytes:
		return append([]byte(nil), x.Data...), nil
	case *ir.ConstCast:
		return m.constant(x.Val)
	case *ir.ConstAggregate:
		out := make([]byte, l.SizeOf(x.Ty))
		for i, e := range x.Elems {
			b, err := m.constant(e)
			if err != nil {
				return nil, err
			}
			copy(out[l.FieldOffset(x.Ty, i):], b)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}
