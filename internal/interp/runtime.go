package interp

import (
	"fmt"

	"aalower/internal/ir"
	"aalower/internal/rtlib"
)

// BoundsError is the range violation raised by _d_array_bounds.
type BoundsError struct {
	File string
	Line int
}

func (e *BoundsError) Error() string { return fmt.Sprintf("%s(%d): range violation", e.File, e.Line) }

// aaTable is one associative array. Keys compare by their bytes.
type aaTable struct {
	vals map[string]uint64
}

// AARuntime is an in-memory associative array runtime. Handles are arena
// addresses, so they survive being stored and reloaded by lowered code.
type AARuntime struct {
	tables map[uint64]*aaTable
}

// InstallAARuntime registers the associative array and bounds entry points
// on m.
func InstallAARuntime(m *Machine) *AARuntime {
	rt := &AARuntime{tables: map[uint64]*aaTable{}}
	m.Host[rtlib.AAGet] = rt.get
	m.Host[rtlib.AAGetRvalue] = rt.getRvalue
	m.Host[rtlib.AAIn] = rt.in
	m.Host[rtlib.AADel] = rt.del
	m.Host[rtlib.AALen] = rt.length
	m.Host[rtlib.ArrayBounds] = arrayBounds
	return rt
}

// Len reports the number of entries of the table behind handle.
func (rt *AARuntime) Len(handle uint64) int {
	if t := rt.tables[handle]; t != nil {
		return len(t.vals)
	}
	return 0
}

func wantArgs(name string, args [][]byte, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d args, got %d", name, n, len(args))
	}
	return nil
}

// key reads the key bytes at pkey; the key size is the tsize of keyti.
func key(m *Machine, keyti, pkey []byte) (string, error) {
	tsize, err := m.Read(decodeInt(keyti), m.Mod.Layout.SizeOf(m.Mod.Layout.SizeT()))
	if err != nil {
		return "", fmt.Errorf("key typeinfo: %w", err)
	}
	b, err := m.Read(decodeInt(pkey), int64(decodeInt(tsize)))
	if err != nil {
		return "", fmt.Errorf("key: %w", err)
	}
	return string(b), nil
}

func (rt *AARuntime) lookup(m *Machine, handle uint64, keyti, pkey []byte) (uint64, error) {
	k, err := key(m, keyti, pkey)
	if err != nil {
		return 0, err
	}
	t := rt.tables[handle]
	if t == nil {
		return 0, nil
	}
	return t.vals[k], nil
}

// void* _aaGet(AA* aa, TypeInfo keyti, size_t valuesize, void* pkey)
func (rt *AARuntime) get(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.AAGet, args, 4); err != nil {
		return nil, err
	}
	l := m.Mod.Layout
	paa := decodeInt(args[0])
	hb, err := m.Read(paa, l.PtrSize)
	if err != nil {
		return nil, err
	}
	handle := decodeInt(hb)
	t := rt.tables[handle]
	if t == nil {
		handle = m.Alloc(1, 1)
		t = &aaTable{vals: map[string]uint64{}}
		rt.tables[handle] = t
		if err := m.Write(paa, m.Ptr(handle)); err != nil {
			return nil, err
		}
	}
	k, err := key(m, args[1], args[3])
	if err != nil {
		return nil, err
	}
	v, ok := t.vals[k]
	if !ok {
		v = m.Alloc(int64(decodeInt(args[2])), l.PtrSize)
		t.vals[k] = v
	}
	return m.Ptr(v), nil
}

// void* _aaGetRvalue(AA aa, TypeInfo keyti, size_t valuesize, void* pkey)
func (rt *AARuntime) getRvalue(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.AAGetRvalue, args, 4); err != nil {
		return nil, err
	}
	v, err := rt.lookup(m, decodeInt(args[0]), args[1], args[3])
	if err != nil {
		return nil, err
	}
	return m.Ptr(v), nil
}

// void* _aaIn(AA aa, TypeInfo keyti, void* pkey)
func (rt *AARuntime) in(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.AAIn, args, 3); err != nil {
		return nil, err
	}
	v, err := rt.lookup(m, decodeInt(args[0]), args[1], args[2])
	if err != nil {
		return nil, err
	}
	return m.Ptr(v), nil
}

// void _aaDel(AA aa, TypeInfo keyti, void* pkey)
func (rt *AARuntime) del(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.AADel, args, 3); err != nil {
		return nil, err
	}
	k, err := key(m, args[1], args[2])
	if err != nil {
		return nil, err
	}
	if t := rt.tables[decodeInt(args[0])]; t != nil {
		delete(t.vals, k)
	}
	return nil, nil
}

// size_t _aaLen(AA aa)
func (rt *AARuntime) length(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.AALen, args, 1); err != nil {
		return nil, err
	}
	return m.Int(int64(rt.Len(decodeInt(args[0]))), m.Mod.Layout.SizeT()), nil
}

// void _d_array_bounds(string file, uint line)
func arrayBounds(m *Machine, args [][]byte) ([]byte, error) {
	if err := wantArgs(rtlib.ArrayBounds, args, 2); err != nil {
		return nil, err
	}
	l := m.Mod.Layout
	str := ir.StructOf(l.SizeT(), ir.PtrTo(ir.I8))
	n := decodeInt(args[0][:l.SizeOf(l.SizeT())])
	p := decodeInt(args[0][l.FieldOffset(str, 1):])
	file, err := m.Read(p, int64(n))
	if err != nil {
		return nil, fmt.Errorf("bounds file name: %w", err)
	}
	return nil, &BoundsError{File: string(file), Line: int(int32(decodeInt(args[1])))}
}
