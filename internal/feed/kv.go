package feed

import (
	"bytes"
	"fmt"
)

// KeyValue (VDF) text as shipped in the game's script and resource files:
//
//	"root"
//	{
//		"key"	"value"	[$WIN32]
//		"block" { ... }	// comment
//	}
//
// Backslash escapes other than \" are kept verbatim; downstream tooltip
// handling relies on the literal \n marker.

type kvKind int

const (
	kvEOF kvKind = iota
	kvString
	kvOpen
	kvClose
)

type kvToken struct {
	kind kvKind
	text string
	line int
}

type kvLexer struct {
	data []byte
	pos  int
	line int
}

func (l *kvLexer) next() (kvToken, error) {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return kvToken{kind: kvEOF, line: l.line}, nil
		}
		c := l.data[l.pos]
		switch {
		case c == '/' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '/':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
		case c == '{':
			l.pos++
			return kvToken{kind: kvOpen, line: l.line}, nil
		case c == '}':
			l.pos++
			return kvToken{kind: kvClose, line: l.line}, nil
		case c == '"':
			return l.quoted()
		default:
			tok := l.bare()
			// platform conditionals like [$WIN32] or [!$X360]
			if len(tok.text) > 1 && tok.text[0] == '[' && tok.text[len(tok.text)-1] == ']' {
				continue
			}
			return tok, nil
		}
	}
}

func (l *kvLexer) skipSpace() {
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case '\n':
			l.line++
			l.pos++
		case ' ', '\t', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *kvLexer) quoted() (kvToken, error) {
	start := l.line
	l.pos++
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		// \\ is kept as written and never escapes the quote after it.
		case c == '\\' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '\\':
			buf.WriteString(`\\`)
			l.pos += 2
		case c == '\\' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '"':
			buf.WriteByte('"')
			l.pos += 2
		case c == '"':
			l.pos++
			return kvToken{kind: kvString, text: buf.String(), line: start}, nil
		default:
			if c == '\n' {
				l.line++
			}
			buf.WriteByte(c)
			l.pos++
		}
	}
	return kvToken{}, fmt.Errorf("line %d: unterminated string", start)
}

func (l *kvLexer) bare() kvToken {
	start := l.pos
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case ' ', '\t', '\r', '\n', '{', '}', '"':
			return kvToken{kind: kvString, text: string(l.data[start:l.pos]), line: l.line}
		}
		l.pos++
	}
	return kvToken{kind: kvString, text: string(l.data[start:]), line: l.line}
}

// ParseKeyValue parses KeyValue text into an ordered table holding the
// top-level pairs (normally a single root key).
func ParseKeyValue(data []byte) (*Table, error) {
	l := &kvLexer{data: stripBOM(data), line: 1}
	root, err := parseKVBlock(l, 0)
	if err != nil {
		return nil, err
	}
	if root.Len() == 0 {
		return nil, fmt.Errorf("no key-value pairs")
	}
	return root, nil
}

func parseKVBlock(l *kvLexer, depth int) (*Table, error) {
	t := NewTable()
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case kvEOF:
			if depth > 0 {
				return nil, fmt.Errorf("line %d: unexpected end of input, %d block(s) open", tok.line, depth)
			}
			return t, nil
		case kvClose:
			if depth == 0 {
				return nil, fmt.Errorf("line %d: unbalanced '}'", tok.line)
			}
			return t, nil
		case kvOpen:
			return nil, fmt.Errorf("line %d: block without a key", tok.line)
		}

		key := tok.text
		val, err := l.next()
		if err != nil {
			return nil, err
		}
		switch val.kind {
		case kvString:
			t.Put(key, val.text)
		case kvOpen:
			sub, err := parseKVBlock(l, depth+1)
			if err != nil {
				return nil, err
			}
			t.Put(key, sub)
		default:
			return nil, fmt.Errorf("line %d: key %q has no value", val.line, key)
		}
	}
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
