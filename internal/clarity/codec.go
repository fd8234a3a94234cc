package clarity

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

var (
	twoTo128 = new(big.Int).Lsh(big.NewInt(1), 128)
	twoTo127 = new(big.Int).Lsh(big.NewInt(1), 127)
)

// maxDepth bounds nesting when decoding untrusted input
const maxDepth = 32

// Serialize encodes a value in consensus format
func Serialize(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := serialize(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeHex encodes a value in consensus format as 0x-prefixed hex
func SerializeHex(v Value) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}

func serialize(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Type))

	switch v.Type {
	case TypeInt:
		if v.Int == nil || v.Int.Cmp(twoTo127) >= 0 || v.Int.Cmp(new(big.Int).Neg(twoTo127)) < 0 {
			return fmt.Errorf("int out of range")
		}
		n := new(big.Int).Set(v.Int)
		if n.Sign() < 0 {
			n.Add(n, twoTo128)
		}
		buf.Write(n.FillBytes(make([]byte, 16)))
	case TypeUInt:
		if v.Int == nil || v.Int.Sign() < 0 || v.Int.Cmp(twoTo128) >= 0 {
			return fmt.Errorf("uint out of range")
		}
		buf.Write(v.Int.FillBytes(make([]byte, 16)))
	case TypeBuffer:
		writeUint32(buf, len(v.Bytes))
		buf.Write(v.Bytes)
	case TypeTrue, TypeFalse, TypeNone:
	case TypeStandardPrincipal:
		if err := writeAddress(buf, v.Str); err != nil {
			return err
		}
	case TypeContractPrincipal:
		addr, name, ok := strings.Cut(v.Str, ".")
		if !ok || name == "" || len(name) > 128 {
			return fmt.Errorf("invalid contract principal %q", v.Str)
		}
		if err := writeAddress(buf, addr); err != nil {
			return err
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
	case TypeResponseOk, TypeResponseErr, TypeSome:
		if v.Inner == nil {
			return fmt.Errorf("missing inner value")
		}
		return serialize(buf, *v.Inner)
	case TypeList:
		writeUint32(buf, len(v.List))
		for _, item := range v.List {
			if err := serialize(buf, item); err != nil {
				return err
			}
		}
	case TypeTuple:
		writeUint32(buf, len(v.Tuple))
		for _, e := range sortedTuple(v.Tuple) {
			if len(e.Name) == 0 || len(e.Name) > 128 {
				return fmt.Errorf("invalid tuple key %q", e.Name)
			}
			buf.WriteByte(byte(len(e.Name)))
			buf.WriteString(e.Name)
			if err := serialize(buf, e.Value); err != nil {
				return err
			}
		}
	case TypeStringASCII:
		for i := 0; i < len(v.Str); i++ {
			if v.Str[i] > 0x7e {
				return fmt.Errorf("non-ascii character in string-ascii")
			}
		}
		writeUint32(buf, len(v.Str))
		buf.WriteString(v.Str)
	case TypeStringUTF8:
		if !utf8.ValidString(v.Str) {
			return fmt.Errorf("invalid utf8 string")
		}
		writeUint32(buf, len(v.Str))
		buf.WriteString(v.Str)
	default:
		return fmt.Errorf("unsupported clarity type 0x%02x", byte(v.Type))
	}

	return nil
}

func writeUint32(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n)) //nolint:gosec,G115
	buf.Write(b[:])
}

func writeAddress(buf *bytes.Buffer, addr string) error {
	version, hash160, err := DecodeAddress(addr)
	if err != nil {
		return err
	}
	buf.WriteByte(version)
	buf.Write(hash160)
	return nil
}

// Deserialize decodes a consensus-serialized value. Trailing bytes are an error.
func Deserialize(data []byte) (Value, error) {
	d := &decoder{data: data}
	v, err := d.value(0)
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.data) {
		return Value{}, fmt.Errorf("%d trailing bytes", len(d.data)-d.pos)
	}
	return v, nil
}

// DeserializeHex decodes a hex string with or without the 0x prefix
func DeserializeHex(s string) (Value, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Value{}, fmt.Errorf("invalid hex: %w", err)
	}
	return Deserialize(b)
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("unexpected end of input at offset %d", d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint32() (int, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

func (d *decoder) address() (string, error) {
	b, err := d.take(21)
	if err != nil {
		return "", err
	}
	return EncodeAddress(b[0], b[1:])
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("value nested too deeply")
	}
	prefix, err := d.take(1)
	if err != nil {
		return Value{}, err
	}
	t := Type(prefix[0])

	switch t {
	case TypeInt, TypeUInt:
		b, err := d.take(16)
		if err != nil {
			return Value{}, err
		}
		n := new(big.Int).SetBytes(b)
		if t == TypeInt && n.Cmp(twoTo127) >= 0 {
			n.Sub(n, twoTo128)
		}
		return Value{Type: t, Int: n}, nil
	case TypeBuffer:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		b, err := d.take(n)
		if err != nil {
			return Value{}, err
		}
		return Buffer(append([]byte(nil), b...)), nil
	case TypeTrue, TypeFalse, TypeNone:
		return Value{Type: t}, nil
	case TypeStandardPrincipal:
		addr, err := d.address()
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Str: addr}, nil
	case TypeContractPrincipal:
		addr, err := d.address()
		if err != nil {
			return Value{}, err
		}
		l, err := d.take(1)
		if err != nil {
			return Value{}, err
		}
		name, err := d.take(int(l[0]))
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Str: addr + "." + string(name)}, nil
	case TypeResponseOk, TypeResponseErr, TypeSome:
		inner, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Inner: &inner}, nil
	case TypeList:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		if n > len(d.data)-d.pos {
			return Value{}, fmt.Errorf("list length %d exceeds input", n)
		}
		items := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			item, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case TypeTuple:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		if n > len(d.data)-d.pos {
			return Value{}, fmt.Errorf("tuple length %d exceeds input", n)
		}
		entries := make([]TupleEntry, 0, n)
		for i := 0; i < n; i++ {
			l, err := d.take(1)
			if err != nil {
				return Value{}, err
			}
			name, err := d.take(int(l[0]))
			if err != nil {
				return Value{}, err
			}
			item, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, TupleEntry{Name: string(name), Value: item})
		}
		return Tuple(entries...), nil
	case TypeStringASCII, TypeStringUTF8:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		b, err := d.take(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Str: string(b)}, nil
	default:
		return Value{}, fmt.Errorf("unknown clarity type prefix 0x%02x", prefix[0])
	}
}
