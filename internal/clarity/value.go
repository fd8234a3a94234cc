// Package clarity implements the subset of the Clarity value model needed to talk to
// Stacks contracts: consensus serialization, the textual repr emitted in contract logs,
// and c32check principals.
package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Type is the consensus type prefix of a Clarity value
type Type byte

const (
	TypeInt               Type = 0x00
	TypeUInt              Type = 0x01
	TypeBuffer            Type = 0x02
	TypeTrue              Type = 0x03
	TypeFalse             Type = 0x04
	TypeStandardPrincipal Type = 0x05
	TypeContractPrincipal Type = 0x06
	TypeResponseOk        Type = 0x07
	TypeResponseErr       Type = 0x08
	TypeNone              Type = 0x09
	TypeSome              Type = 0x0a
	TypeList              Type = 0x0b
	TypeTuple             Type = 0x0c
	TypeStringASCII       Type = 0x0d
	TypeStringUTF8        Type = 0x0e
)

// Value is a Clarity value. Which fields are set depends on Type:
//   - Int/UInt: Int
//   - Buffer: Bytes
//   - StringASCII/StringUTF8: Str
//   - StandardPrincipal: Str holds the c32 address
//   - ContractPrincipal: Str holds "address.contract-name"
//   - ResponseOk/ResponseErr/Some: Inner
//   - List: List
//   - Tuple: Tuple, kept in declaration order
type Value struct {
	Type  Type
	Int   *big.Int
	Bytes []byte
	Str   string
	Inner *Value
	List  []Value
	Tuple []TupleEntry
}

// TupleEntry is a named tuple field
type TupleEntry struct {
	Name  string
	Value Value
}

func UInt(n uint64) Value {
	return Value{Type: TypeUInt, Int: new(big.Int).SetUint64(n)}
}

func Int(n int64) Value {
	return Value{Type: TypeInt, Int: big.NewInt(n)}
}

func Bool(b bool) Value {
	if b {
		return Value{Type: TypeTrue}
	}
	return Value{Type: TypeFalse}
}

func Buffer(b []byte) Value {
	return Value{Type: TypeBuffer, Bytes: b}
}

func StringASCII(s string) Value {
	return Value{Type: TypeStringASCII, Str: s}
}

func StringUTF8(s string) Value {
	return Value{Type: TypeStringUTF8, Str: s}
}

func None() Value {
	return Value{Type: TypeNone}
}

func Some(v Value) Value {
	return Value{Type: TypeSome, Inner: &v}
}

func Ok(v Value) Value {
	return Value{Type: TypeResponseOk, Inner: &v}
}

func Err(v Value) Value {
	return Value{Type: TypeResponseErr, Inner: &v}
}

func List(vs ...Value) Value {
	return Value{Type: TypeList, List: vs}
}

func Tuple(entries ...TupleEntry) Value {
	return Value{Type: TypeTuple, Tuple: entries}
}

// Principal builds a standard or contract principal value from its textual form.
// The address must carry a valid c32check checksum.
func Principal(s string) (Value, error) {
	addr, name, isContract := strings.Cut(strings.TrimPrefix(s, "'"), ".")
	if _, _, err := DecodeAddress(addr); err != nil {
		return Value{}, err
	}
	if isContract {
		if name == "" || len(name) > 128 {
			return Value{}, fmt.Errorf("invalid contract name %q", name)
		}
		return Value{Type: TypeContractPrincipal, Str: addr + "." + name}, nil
	}
	return Value{Type: TypeStandardPrincipal, Str: addr}, nil
}

// Get returns the named tuple field
func (v Value) Get(name string) (Value, bool) {
	for _, e := range v.Tuple {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Unwrap strips ok and some wrappers
func (v Value) Unwrap() Value {
	for (v.Type == TypeResponseOk || v.Type == TypeSome) && v.Inner != nil {
		v = *v.Inner
	}
	return v
}

// Uint64 returns the numeric value of an int or uint that fits in uint64
func (v Value) Uint64() (uint64, error) {
	if (v.Type != TypeUInt && v.Type != TypeInt) || v.Int == nil {
		return 0, fmt.Errorf("value is not an integer")
	}
	if v.Int.Sign() < 0 || !v.Int.IsUint64() {
		return 0, fmt.Errorf("integer %s out of range", v.Int.String())
	}
	return v.Int.Uint64(), nil
}

// Repr renders the value the way the Stacks API prints it
func (v Value) Repr() string {
	switch v.Type {
	case TypeInt:
		return v.Int.String()
	case TypeUInt:
		return "u" + v.Int.String()
	case TypeBuffer:
		return "0x" + hex.EncodeToString(v.Bytes)
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	case TypeStandardPrincipal, TypeContractPrincipal:
		return "'" + v.Str
	case TypeResponseOk:
		return "(ok " + v.Inner.Repr() + ")"
	case TypeResponseErr:
		return "(err " + v.Inner.Repr() + ")"
	case TypeNone:
		return "none"
	case TypeSome:
		return "(some " + v.Inner.Repr() + ")"
	case TypeList:
		parts := make([]string, 0, len(v.List)+1)
		parts = append(parts, "list")
		for _, item := range v.List {
			parts = append(parts, item.Repr())
		}
		return "(" + strings.Join(parts, " ") + ")"
	case TypeTuple:
		parts := make([]string, 0, len(v.Tuple)+1)
		parts = append(parts, "tuple")
		for _, e := range v.Tuple {
			parts = append(parts, "("+e.Name+" "+e.Value.Repr()+")")
		}
		return "(" + strings.Join(parts, " ") + ")"
	case TypeStringASCII:
		return strconv.Quote(v.Str)
	case TypeStringUTF8:
		return "u" + strconv.Quote(v.Str)
	default:
		return fmt.Sprintf("<unknown type 0x%02x>", byte(v.Type))
	}
}

// Plain renders a scalar without its Clarity decoration: no u prefix, quotes or
// principal tick. Optionals render their content, none renders empty.
func (v Value) Plain() string {
	switch v.Type {
	case TypeInt, TypeUInt:
		return v.Int.String()
	case TypeStandardPrincipal, TypeContractPrincipal, TypeStringASCII, TypeStringUTF8:
		return v.Str
	case TypeNone:
		return ""
	case TypeSome:
		return v.Inner.Plain()
	default:
		return v.Repr()
	}
}

// Field is a flattened tuple field; nested tuples are joined with a dot
type Field struct {
	Name  string
	Value Value
}

// Flatten walks a tuple and returns its leaf fields in declaration order.
// A non-tuple value flattens to a single field named "value".
func Flatten(v Value) []Field {
	if v.Type != TypeTuple {
		return []Field{{Name: "value", Value: v}}
	}
	var out []Field
	flatten("", v, &out)
	return out
}

func flatten(prefix string, v Value, out *[]Field) {
	for _, e := range v.Tuple {
		name := e.Name
		if prefix != "" {
			name = prefix + "." + e.Name
		}
		if e.Value.Type == TypeTuple {
			flatten(name, e.Value, out)
			continue
		}
		*out = append(*out, Field{Name: name, Value: e.Value})
	}
}

// sortedTuple returns the tuple entries in the order consensus serialization requires
func sortedTuple(entries []TupleEntry) []TupleEntry {
	sorted := make([]TupleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}
