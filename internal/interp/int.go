package interp

import (
	"encoding/binary"

	"aalower/internal/ir"
)

func intBitWidth(t ir.Type, l ir.Layout) int {
	switch t.K {
	case ir.TI1:
		return 1
	case ir.TI8:
		return 8
	case ir.TI16:
		return 16
	case ir.TI32:
		return 32
	case ir.TI64:
		return 64
	case ir.TPtr:
		return int(l.PtrSize * 8)
	default:
		return 0
	}
}

func truncBits(u uint64, w int) uint64 {
	if w >= 64 {
		return u
	}
	if w <= 0 {
		return u
	}
	return u & ((uint64(1) << uint64(w)) - 1)
}

// encodeInt stores the low bits of u little-endian in size bytes.
func encodeInt(u uint64, size int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	out := make([]byte, size)
	copy(out, buf[:])
	return out
}

func decodeInt(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func binOp(op ir.BinOpKind, a, b uint64, w int) (uint64, bool) {
	var r uint64
	switch op {
	case ir.OpAdd:
		r = a + b
	case ir.OpSub:
		r = a - b
	case ir.OpMul:
		r = a * b
	default:
		return 0, false
	}
	return truncBits(r, w), true
}
