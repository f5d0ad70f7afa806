package bytecode

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/lumen-lang/lumen/pkg/value"
)

// litParser parses one value literal per the grammar in the assembly
// format: unit/true/false, character, atom, struct, tuple, string, array,
// set, record, bits, number, and procedure references (&offset).
type litParser struct {
	s   string
	pos int
}

// ParseValue parses a single value literal, requiring it to consume the
// entire input (after trimming surrounding space).
func ParseValue(s string) (value.Value, error) {
	p := &litParser{s: strings.TrimSpace(s)}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Errorf("trailing input after value literal: %q", p.s[p.pos:])
	}
	return v, nil
}

func (p *litParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *litParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *litParser) consumePrefix(prefix string) bool {
	if strings.HasPrefix(p.s[p.pos:], prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *litParser) parseValue() (value.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, errors.New("unexpected end of value literal")
	}
	switch c := p.peek(); {
	case p.consumePrefix("unit"):
		return value.Unit{}, nil
	case p.consumePrefix("true"):
		return value.Boolean(true), nil
	case p.consumePrefix("false"):
		return value.Boolean(false), nil
	case c == '\'':
		return p.parseQuoted()
	case c == '"':
		return p.parseString()
	case c == '(':
		return p.parseTuple()
	case c == '[':
		return p.parseArrayOrSet()
	case c == '{':
		return p.parseRecord()
	case c == '&':
		return p.parseProcRef()
	case c == '0' && p.pos+1 < len(p.s) && p.s[p.pos+1] == 'b':
		return p.parseBits()
	default:
		return p.parseNumber()
	}
}

// parseQuoted handles 'c' (character), 'name (atom), and 'name(value)
// (struct), distinguished by what follows the opening quote.
func (p *litParser) parseQuoted() (value.Value, error) {
	p.pos++ // consume leading '
	if p.pos < len(p.s) && (isIdentStart(p.s[p.pos])) {
		start := p.pos
		for p.pos < len(p.s) && isIdentPart(p.s[p.pos]) {
			p.pos++
		}
		name := p.s[start:p.pos]
		if p.pos < len(p.s) && p.s[p.pos] == '(' {
			p.pos++
			inner, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			p.skipSpace()
			if p.pos >= len(p.s) || p.s[p.pos] != ')' {
				return nil, errors.New("expected ')' closing struct literal")
			}
			p.pos++
			return value.Construct(value.Intern(name), inner), nil
		}
		return value.Intern(name), nil
	}
	// Character literal: 'c' or escape, then closing quote.
	r, n, err := decodeCharLiteral(p.s[p.pos:])
	if err != nil {
		return nil, err
	}
	p.pos += n
	if p.pos >= len(p.s) || p.s[p.pos] != '\'' {
		return nil, errors.New("expected closing ' in character literal")
	}
	p.pos++
	return value.Character(r), nil
}

func decodeCharLiteral(s string) (rune, int, error) {
	if len(s) == 0 {
		return 0, 0, errors.New("empty character literal")
	}
	if s[0] != '\\' {
		r, n := utf8.DecodeRuneInString(s)
		return r, n, nil
	}
	if len(s) < 2 {
		return 0, 0, errors.New("truncated escape in character literal")
	}
	switch s[1] {
	case 'n':
		return '\n', 2, nil
	case 't':
		return '\t', 2, nil
	case 'r':
		return '\r', 2, nil
	case '\\':
		return '\\', 2, nil
	case '\'':
		return '\'', 2, nil
	case 'x':
		if len(s) < 4 {
			return 0, 0, errors.New("truncated \\x escape")
		}
		n, err := strconv.ParseInt(s[2:4], 16, 32)
		if err != nil {
			return 0, 0, errors.Wrap(err, "invalid \\x escape")
		}
		return rune(n), 4, nil
	case 'u':
		if len(s) < 8 {
			return 0, 0, errors.New("truncated \\u escape")
		}
		n, err := strconv.ParseInt(s[2:8], 16, 32)
		if err != nil {
			return 0, 0, errors.Wrap(err, "invalid \\u escape")
		}
		return rune(n), 8, nil
	default:
		return 0, 0, errors.Errorf("unknown escape \\%c", s[1])
	}
}

func (p *litParser) parseString() (value.Value, error) {
	if p.peek() != '"' {
		return nil, errors.New("expected opening '\"'")
	}
	p.pos++
	var sb strings.Builder
	for {
		if p.pos >= len(p.s) {
			return nil, errors.New("unterminated string literal")
		}
		if p.s[p.pos] == '"' {
			p.pos++
			return value.String(sb.String()), nil
		}
		if p.s[p.pos] == '\\' {
			r, n, err := decodeCharLiteral(p.s[p.pos:])
			if err != nil {
				return nil, err
			}
			sb.WriteRune(r)
			p.pos += n
			continue
		}
		r, n := utf8.DecodeRuneInString(p.s[p.pos:])
		sb.WriteRune(r)
		p.pos += n
	}
}

func (p *litParser) parseTuple() (value.Value, error) {
	p.pos++ // (
	first, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != ':' {
		return nil, errors.New("expected ':' in tuple literal")
	}
	p.pos++
	second, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != ')' {
		return nil, errors.New("expected ')' closing tuple literal")
	}
	p.pos++
	return value.Cons(first, second), nil
}

func (p *litParser) parseDelimited(closing string) ([]value.Value, error) {
	var items []value.Value
	p.skipSpace()
	if strings.HasPrefix(p.s[p.pos:], closing) {
		p.pos += len(closing)
		return items, nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		if p.consumePrefix(",") {
			continue
		}
		if strings.HasPrefix(p.s[p.pos:], closing) {
			p.pos += len(closing)
			return items, nil
		}
		return nil, errors.Errorf("expected ',' or %q", closing)
	}
}

func (p *litParser) parseArrayOrSet() (value.Value, error) {
	if p.consumePrefix("[|") {
		items, err := p.parseDelimited("|]")
		if err != nil {
			return nil, err
		}
		return value.NewSet(items), nil
	}
	p.pos++ // [
	items, err := p.parseDelimited("]")
	if err != nil {
		return nil, err
	}
	return value.NewArray(items), nil
}

func (p *litParser) parseRecord() (value.Value, error) {
	if !p.consumePrefix("{|") {
		return nil, errors.New("expected '{|' opening record literal")
	}
	rec := value.NewRecord()
	p.skipSpace()
	if p.consumePrefix("|}") {
		return rec, nil
	}
	for {
		k, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consumePrefix("=>") {
			return nil, errors.New("expected '=>' in record literal")
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		rec.Set(k, v)
		p.skipSpace()
		if p.consumePrefix(",") {
			p.skipSpace()
			continue
		}
		if p.consumePrefix("|}") {
			return rec, nil
		}
		return nil, errors.New("expected ',' or '|}' in record literal")
	}
}

func (p *litParser) parseBits() (value.Value, error) {
	p.pos += 2 // 0b
	start := p.pos
	for p.pos < len(p.s) && (p.s[p.pos] == '0' || p.s[p.pos] == '1') {
		p.pos++
	}
	bits := make([]bool, p.pos-start)
	for i, c := range p.s[start:p.pos] {
		bits[i] = c == '1'
	}
	return value.NewBits(bits), nil
}

func (p *litParser) parseProcRef() (value.Value, error) {
	p.pos++ // &
	start := p.pos
	for p.pos < len(p.s) && (p.s[p.pos] >= '0' && p.s[p.pos] <= '9') {
		p.pos++
	}
	if start == p.pos {
		return nil, errors.New("expected offset after '&'")
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return nil, errors.Wrap(err, "invalid procedure reference")
	}
	return &value.Procedure{Arity: 0, IP: n}, nil
}

func (p *litParser) parseNumber() (value.Value, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start || (p.pos == start+1 && !isDigit(p.s[start])) {
		return nil, errors.Errorf("invalid number literal at %q", p.s[p.pos:])
	}
	reText := p.s[start:p.pos]
	var re *big.Rat
	if p.peek() == '/' {
		p.pos++
		denStart := p.pos
		for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			p.pos++
		}
		den := p.s[denStart:p.pos]
		r, ok := new(big.Rat).SetString(reText + "/" + den)
		if !ok {
			return nil, errors.Errorf("invalid rational literal %q/%q", reText, den)
		}
		re = r
	} else {
		r, ok := new(big.Rat).SetString(reText)
		if !ok {
			return nil, errors.Errorf("invalid number literal %q", reText)
		}
		re = r
	}
	if p.peek() == '+' || p.peek() == '-' {
		imStart := p.pos
		p.pos++
		for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			p.pos++
		}
		if p.pos < len(p.s) && p.s[p.pos] == 'i' {
			imText := p.s[imStart:p.pos]
			p.pos++
			im, ok := new(big.Rat).SetString(imText)
			if !ok {
				return nil, errors.Errorf("invalid imaginary part %q", imText)
			}
			return value.Complex(re, im), nil
		}
		p.pos = imStart
	}
	return value.Real(re), nil
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
