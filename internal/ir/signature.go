package ir

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sort"
)

// Resolver maps a referenced node to its value number. The signature encoder
// uses it so that two nodes sharing structurally equivalent producers encode
// identically without re-walking subgraphs.
type Resolver func(*Node) int

// Signature is the canonical flat encoding of one node's computation:
// (target, args, sorted kwargs) with node references replaced by value numbers.
// It is an exact map key: two nodes with equal signatures are structurally
// equivalent.
type Signature string

// EncodeSignature builds the canonical signature for a call.
//
// Encoding rules:
//   - every field is length-prefixed (8-byte big-endian) to prevent ambiguity
//   - every operand carries a one-byte shape tag, so Int(3), Str("3") and a
//     reference with value number 3 never collide
//   - maps and kwargs are encoded in sorted key order, making the signature
//     independent of iteration order but still key-exact
//
// An Opaque operand has no canonical encoding; EncodeSignature returns an
// error wrapping ErrUnhashable and the caller degrades the node to a fresh
// value number.
func EncodeSignature(target string, args []Operand, kwargs map[string]Operand, resolve Resolver) (Signature, error) {
	var buf bytes.Buffer
	writeField(&buf, []byte(target))

	writeCount(&buf, len(args))
	for _, a := range args {
		if err := encodeOperand(&buf, a, resolve); err != nil {
			return "", err
		}
	}

	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeCount(&buf, len(keys))
	for _, k := range keys {
		writeField(&buf, []byte(k))
		if err := encodeOperand(&buf, kwargs[k], resolve); err != nil {
			return "", err
		}
	}

	return Signature(buf.String()), nil
}

// Shape tags. Part of the canonical encoding; do not renumber.
const (
	tagNull      = 'n'
	tagInt       = 'i'
	tagFloat     = 'f'
	tagBool      = 'b'
	tagStr       = 's'
	tagRef       = 'r'
	tagList      = 'l'
	tagMap       = 'm'
	tagDType     = 'd'
	tagDevice    = 'v'
	tagLayout    = 'y'
	tagMemFormat = 'c'
)

func encodeOperand(buf *bytes.Buffer, op Operand, resolve Resolver) error {
	switch v := op.(type) {
	case Null:
		buf.WriteByte(tagNull)
	case Int:
		buf.WriteByte(tagInt)
		writeUint64(buf, uint64(v))
	case Float:
		// Bit pattern, not text: distinguishes -0.0 from 0.0 and keeps NaN
		// payloads distinct rather than collapsing them.
		buf.WriteByte(tagFloat)
		writeUint64(buf, math.Float64bits(float64(v)))
	case Bool:
		buf.WriteByte(tagBool)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case Str:
		buf.WriteByte(tagStr)
		writeField(buf, []byte(v))
	case Ref:
		buf.WriteByte(tagRef)
		writeUint64(buf, uint64(resolve(v.Node)))
	case List:
		buf.WriteByte(tagList)
		writeCount(buf, len(v))
		for _, e := range v {
			if err := encodeOperand(buf, e, resolve); err != nil {
				return err
			}
		}
	case Map:
		buf.WriteByte(tagMap)
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeCount(buf, len(keys))
		for _, k := range keys {
			writeField(buf, []byte(k))
			if err := encodeOperand(buf, v[k], resolve); err != nil {
				return err
			}
		}
	case DType:
		buf.WriteByte(tagDType)
		writeField(buf, []byte(v))
	case Device:
		buf.WriteByte(tagDevice)
		writeField(buf, []byte(v))
	case Layout:
		buf.WriteByte(tagLayout)
		writeField(buf, []byte(v))
	case MemFormat:
		buf.WriteByte(tagMemFormat)
		writeField(buf, []byte(v))
	case Opaque:
		return unhashablef("opaque operand %T", v.Value)
	default:
		return unhashablef("unsupported operand %T", op)
	}
	return nil
}

// writeField writes an 8-byte big-endian length prefix followed by data.
func writeField(w io.Writer, data []byte) {
	writeUint64(w, uint64(len(data)))
	w.Write(data)
}

func writeCount(w io.Writer, n int) {
	writeUint64(w, uint64(n))
}

func writeUint64(w io.Writer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.Write(b[:])
}
