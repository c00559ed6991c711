// Package prop implements the one-line key/value record format used on the
// command dispatch channel. A record is a sequence of space-separated
// key=value pairs; values containing spaces or quotes are double-quoted with
// Go escaping. Key order is preserved so that serialized records are stable.
package prop

import (
	"strconv"
	"strings"
)

// Properties is an ordered set of string key/value pairs.
type Properties struct {
	keys []string
	vals map[string]string
}

// New returns an empty Properties record.
func New() *Properties {
	return &Properties{vals: make(map[string]string)}
}

// Parse decodes a single record line. Malformed trailing input is tolerated:
// a token with no '=' is treated as a key with an empty value, and an
// unterminated quoted value consumes the remainder of the line.
func Parse(line string) *Properties {
	p := New()
	s := strings.TrimSpace(line)
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		sp := strings.IndexByte(s, ' ')
		if eq < 0 || (sp >= 0 && sp < eq) {
			// bare key
			end := sp
			if end < 0 {
				end = len(s)
			}
			p.Set(s[:end], "")
			s = strings.TrimLeft(s[end:], " ")
			continue
		}

		key := s[:eq]
		rest := s[eq+1:]
		var val string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				end = len(rest) - 1
			}
			if unq, err := strconv.Unquote(rest[:end+1]); err == nil {
				val = unq
			} else {
				val = rest[1:end]
			}
			rest = rest[end+1:]
		} else {
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			val = rest[:end]
			rest = rest[end:]
		}
		p.Set(key, val)
		s = strings.TrimLeft(rest, " ")
	}
	return p
}

// closingQuote returns the index of the quote terminating the quoted string
// beginning at s[0], or -1 if the string never closes.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// Set stores a key/value pair, preserving the position of an existing key.
func (p *Properties) Set(key, value string) {
	if key == "" {
		return
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = value
}

// Get returns the value for key, or dft if the key is absent.
func (p *Properties) Get(key, dft string) string {
	if v, ok := p.vals[key]; ok {
		return v
	}
	return dft
}

// Has reports whether key is present.
func (p *Properties) Has(key string) bool {
	_, ok := p.vals[key]
	return ok
}

// Keys returns the record's keys in insertion order.
func (p *Properties) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of pairs in the record.
func (p *Properties) Len() int {
	return len(p.keys)
}

// String serializes the record as a single line, without a trailing newline.
func (p *Properties) String() string {
	var sb strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		v := p.vals[k]
		if strings.ContainsAny(v, " \"\\\n") {
			sb.WriteString(strconv.Quote(v))
		} else {
			sb.WriteString(v)
		}
	}
	return sb.String()
}
