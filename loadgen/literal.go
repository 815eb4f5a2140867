package loadgen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeptools/gw-invoice/invoice"
)

// ParseLiteral reads one Python-style literal as found in exported CSV cells:
// lists, tuples, dicts with string keys, quoted strings, numbers, True/False/None.
// Numbers come back as json.Number so they re-encode unchanged.
func ParseLiteral(s string) (any, error) {
	p := &literalParser{src: s}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing input %q", p.src[p.pos:])
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '{':
		return p.dict()
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	}
	for word, v := range map[string]any{"True": true, "False": false, "None": nil} {
		if strings.HasPrefix(p.src[p.pos:], word) {
			p.pos += len(word)
			return v, nil
		}
	}
	return nil, p.errorf("unexpected %q", p.peek())
}

// sequence parses [a, b, ...] or (a, b, ...). A trailing comma is allowed.
func (p *literalParser) sequence(open byte, close byte) ([]any, error) {
	p.pos++ // open
	items := []any{}
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
		default:
			return nil, p.errorf("expected ',' or %q in %c...%c", close, open, close)
		}
	}
}

func (p *literalParser) dict() (map[string]any, error) {
	p.pos++ // {
	m := map[string]any{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, p.errorf("dict key must be a string, got %v", k)
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

func (p *literalParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return b.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default: // \\ \' \" and unknown escapes keep the char
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) number() (json.Number, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.ContainsRune("+-.0123456789eE_", rune(p.src[p.pos])) {
		p.pos++
	}
	text := strings.TrimPrefix(strings.ReplaceAll(p.src[start:p.pos], "_", ""), "+")
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return json.Number(text), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return "", p.errorf("bad number %q", p.src[start:])
	}
	// canonical form: Python allows "5." and ".5", JSON does not
	return json.Number(invoice.FloatText(f)), nil
}
