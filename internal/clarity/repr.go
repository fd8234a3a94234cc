package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// ParseRepr parses the textual form of a Clarity value, e.g.
//
//	(tuple (event "nft_mint") (token-id u3) (recipient 'ST1...))
//
// Principals are taken as printed; their checksum is not verified.
func ParseRepr(s string) (Value, error) {
	p := &reprParser{src: s}
	v, err := p.value(0)
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, fmt.Errorf("unexpected trailing input at offset %d", p.pos)
	}
	return v, nil
}

type reprParser struct {
	src string
	pos int
}

func (p *reprParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *reprParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *reprParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

// atom reads up to the next delimiter
func (p *reprParser) atom() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *reprParser) quoted() (string, error) {
	if p.peek() != '"' {
		return "", fmt.Errorf("expected string at offset %d", p.pos)
	}
	p.pos++

	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'u':
				// \u{XXXX}
				end := strings.IndexByte(p.src[p.pos:], '}')
				if !strings.HasPrefix(p.src[p.pos:], "{") || end < 0 {
					return "", fmt.Errorf("invalid unicode escape at offset %d", p.pos)
				}
				code, ok := new(big.Int).SetString(p.src[p.pos+1:p.pos+end], 16)
				if !ok || !code.IsInt64() {
					return "", fmt.Errorf("invalid unicode escape at offset %d", p.pos)
				}
				sb.WriteRune(rune(code.Int64()))
				p.pos += end + 1
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *reprParser) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("value nested too deeply")
	}
	p.skipSpace()

	switch c := p.peek(); {
	case c == 0:
		return Value{}, fmt.Errorf("unexpected end of input")
	case c == '(':
		return p.compound(depth)
	case c == '"':
		s, err := p.quoted()
		if err != nil {
			return Value{}, err
		}
		return StringASCII(s), nil
	case c == 'u' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '"':
		p.pos++
		s, err := p.quoted()
		if err != nil {
			return Value{}, err
		}
		return StringUTF8(s), nil
	case c == '\'':
		p.pos++
		principal := p.atom()
		if principal == "" {
			return Value{}, fmt.Errorf("empty principal at offset %d", p.pos)
		}
		if strings.Contains(principal, ".") {
			return Value{Type: TypeContractPrincipal, Str: principal}, nil
		}
		return Value{Type: TypeStandardPrincipal, Str: principal}, nil
	default:
		return scalar(p.atom())
	}
}

func scalar(a string) (Value, error) {
	switch {
	case a == "":
		return Value{}, fmt.Errorf("empty value")
	case a == "true":
		return Bool(true), nil
	case a == "false":
		return Bool(false), nil
	case a == "none":
		return None(), nil
	case strings.HasPrefix(a, "0x"):
		b, err := hex.DecodeString(a[2:])
		if err != nil {
			return Value{}, fmt.Errorf("invalid buffer %q: %w", a, err)
		}
		return Buffer(b), nil
	case a[0] == 'u':
		n, ok := new(big.Int).SetString(a[1:], 10)
		if !ok || n.Sign() < 0 || strings.HasPrefix(a[1:], "-") || strings.HasPrefix(a[1:], "+") {
			return Value{}, fmt.Errorf("invalid uint %q", a)
		}
		return Value{Type: TypeUInt, Int: n}, nil
	default:
		n, ok := new(big.Int).SetString(a, 10)
		if !ok {
			return Value{}, fmt.Errorf("unrecognized value %q", a)
		}
		return Value{Type: TypeInt, Int: n}, nil
	}
}

func (p *reprParser) compound(depth int) (Value, error) {
	if err := p.expect('('); err != nil {
		return Value{}, err
	}
	p.skipSpace()
	head := p.atom()

	var v Value
	switch head {
	case "tuple":
		var entries []TupleEntry
		for {
			p.skipSpace()
			if p.peek() == ')' {
				break
			}
			if err := p.expect('('); err != nil {
				return Value{}, err
			}
			p.skipSpace()
			name := p.atom()
			if name == "" {
				return Value{}, fmt.Errorf("missing tuple key at offset %d", p.pos)
			}
			item, err := p.value(depth + 1)
			if err != nil {
				return Value{}, fmt.Errorf("tuple field %s: %w", name, err)
			}
			if err := p.expect(')'); err != nil {
				return Value{}, err
			}
			entries = append(entries, TupleEntry{Name: name, Value: item})
		}
		v = Tuple(entries...)
	case "list":
		var items []Value
		for {
			p.skipSpace()
			if p.peek() == ')' {
				break
			}
			item, err := p.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		v = List(items...)
	case "some", "ok", "err":
		inner, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		switch head {
		case "some":
			v = Some(inner)
		case "ok":
			v = Ok(inner)
		default:
			v = Err(inner)
		}
	default:
		return Value{}, fmt.Errorf("unknown form %q", head)
	}

	if err := p.expect(')'); err != nil {
		return Value{}, err
	}
	return v, nil
}
