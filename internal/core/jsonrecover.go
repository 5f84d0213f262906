// ABOUTME: Lenient recovery of a single JSON object from free-form model output
// ABOUTME: Scans for the first balanced brace span, repairs it and decodes it
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// ErrNoJSON means the text held no balanced {...} span
var ErrNoJSON = errors.New("no json object found")

// RecoverObject extracts and decodes the first JSON object in raw.
// Trailing commas, comments, raw control characters inside strings,
// single-quoted strings and bare keys are tolerated.
func RecoverObject(raw string) (map[string]any, error) {
	span, ok := firstObject(raw)
	if !ok {
		return nil, ErrNoJSON
	}

	v, err := hujson.Parse([]byte(repairJSON(span)))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	v.Standardize()

	var out map[string]any
	if err := json.Unmarshal(v.Pack(), &out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return out, nil
}

// firstObject returns the span from the first '{' to its matching '}'.
// Braces inside quoted strings do not count.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// repairJSON rewrites the relaxed syntax models tend to emit into JSON
// that hujson accepts.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				if quote == '\'' && s[i+1] == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte(c)
					b.WriteByte(s[i+1])
				}
				i++
			case c == quote:
				b.WriteByte('"')
				quote = 0
			case c == '"':
				b.WriteString(`\"`)
			case c < 0x20:
				b.WriteString(escapeControl(c))
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte('"')
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			b.WriteString(bareWord(s[i:j], followedByColon(s, j)))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func bareWord(word string, isKey bool) string {
	if isKey {
		return `"` + word + `"`
	}
	switch word {
	case "None", "nil", "NULL", "Null":
		return "null"
	case "True":
		return "true"
	case "False":
		return "false"
	}
	return word
}

func followedByColon(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}

func escapeControl(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	}
	return fmt.Sprintf(`\u%04x`, c)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
