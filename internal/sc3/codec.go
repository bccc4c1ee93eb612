// Package sc3 implements the binary text codec used by the supported
// games. Encoded strings are sequences of two-byte character units and
// single-byte control codes, closed by a terminator byte.
//
// The text form uses bracket tags for control codes ([name], [line],
// [%p]) and backslash escapes for literal brackets and backslashes.
package sc3

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hazukari/sc3kit/internal/gamedef"
)

const (
	opLineBreak  = 0x00
	opNameStart  = 0x01
	opLineStart  = 0x02
	opPause      = 0x03
	opTerminator = 0xFF
)

// Tag spellings recognized in text form.
const (
	tagName  = "name"
	tagLine  = "line"
	tagPause = "%p"
)

// UnmappableError reports a character the game's charset cannot encode.
type UnmappableError struct {
	Char rune
	Pos  int
}

func (e *UnmappableError) Error() string {
	return fmt.Sprintf("character %q (U+%04X) at offset %d is not in the charset", e.Char, e.Char, e.Pos)
}

// Encode converts text into the game's binary string format.
//
// Compound replacement texts are matched longest first. Printable ASCII
// outside the game's fullwidth blocklist is encoded through its fullwidth
// form. The result always ends with the terminator byte.
func Encode(def *gamedef.GameDef, text string) ([]byte, error) {
	maps := def.Maps()
	text = strings.ReplaceAll(text, "\r\n", "\n")

	out := make([]byte, 0, len(text)*2+1)
	for i := 0; i < len(text); {
		rest := text[i:]

		if rest[0] == '\\' {
			if len(rest) < 2 || (rest[1] != '[' && rest[1] != '\\') {
				return nil, fmt.Errorf("bad escape at offset %d: expected \\[ or \\\\", i)
			}
			unit, err := encodeChar(def, maps, rune(rest[1]), i)
			if err != nil {
				return nil, err
			}
			out = append(out, unit...)
			i += 2
			continue
		}

		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated tag at offset %d", i)
			}
			op, err := tagOp(rest[1:end])
			if err != nil {
				return nil, fmt.Errorf("offset %d: %w", i, err)
			}
			out = append(out, op)
			i += end + 1
			continue
		}

		if rest[0] == '\n' {
			out = append(out, opLineBreak)
			i++
			continue
		}

		if pua, n, ok := maps.MatchCompound(rest); ok {
			idx, _ := maps.IndexOf(pua)
			out = appendUnit(out, idx)
			i += n
			continue
		}

		ch, size := utf8.DecodeRuneInString(rest)
		if ch == utf8.RuneError && size == 1 {
			return nil, fmt.Errorf("invalid UTF-8 at offset %d", i)
		}
		unit, err := encodeChar(def, maps, ch, i)
		if err != nil {
			return nil, err
		}
		out = append(out, unit...)
		i += size
	}
	return append(out, opTerminator), nil
}

// encodeChar emits the two-byte unit for a single character, preferring
// the fullwidth form of printable ASCII unless the game blocks it.
func encodeChar(def *gamedef.GameDef, maps *gamedef.EncodingMaps, ch rune, pos int) ([]byte, error) {
	lookup := ch
	if ch >= '!' && ch <= '~' && !def.BlockedFullwidth(ch) {
		lookup = ch - '!' + '！'
	}
	idx, ok := maps.IndexOf(lookup)
	if !ok && lookup != ch {
		idx, ok = maps.IndexOf(ch)
	}
	if !ok {
		return nil, &UnmappableError{Char: ch, Pos: pos}
	}
	return appendUnit(nil, idx), nil
}

func appendUnit(out []byte, idx int) []byte {
	return append(out, 0x80|byte(idx>>8), byte(idx))
}

func tagOp(tag string) (byte, error) {
	switch tag {
	case tagName:
		return opNameStart, nil
	case tagLine:
		return opLineStart, nil
	case tagPause:
		return opPause, nil
	default:
		return 0, fmt.Errorf("unknown tag [%s]", tag)
	}
}

// Decode converts a binary string back into text form. Compound
// characters come out as their replacement text, and literal brackets and
// backslashes are escaped so the output encodes back to the same bytes.
func Decode(def *gamedef.GameDef, data []byte) (string, error) {
	maps := def.Maps()
	var b strings.Builder

	i := 0
	for i < len(data) {
		c := data[i]
		if c == opTerminator {
			if i != len(data)-1 {
				return "", fmt.Errorf("trailing bytes after terminator at offset %d", i)
			}
			return b.String(), nil
		}
		if c&0x80 != 0 {
			if i+1 >= len(data) {
				return "", fmt.Errorf("truncated character unit at offset %d", i)
			}
			idx := int(c&0x7F)<<8 | int(data[i+1])
			ch, ok := maps.CharAt(idx)
			if !ok {
				return "", fmt.Errorf("no character at index %d (offset %d)", idx, i)
			}
			if text, ok := maps.Expand(ch); ok {
				b.WriteString(text)
			} else {
				writeEscaped(&b, ch)
			}
			i += 2
			continue
		}
		switch c {
		case opLineBreak:
			b.WriteByte('\n')
		case opNameStart:
			b.WriteString("[" + tagName + "]")
		case opLineStart:
			b.WriteString("[" + tagLine + "]")
		case opPause:
			b.WriteString("[" + tagPause + "]")
		default:
			return "", fmt.Errorf("unknown control byte 0x%02X at offset %d", c, i)
		}
		i++
	}
	return "", fmt.Errorf("missing terminator")
}

func writeEscaped(b *strings.Builder, ch rune) {
	if ch == '[' || ch == '\\' {
		b.WriteByte('\\')
	}
	b.WriteRune(ch)
}
