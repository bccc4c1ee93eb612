package gamedef

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PUAMapping assigns a replacement text to an inclusive range of private
// use area codepoints. Single-codepoint mappings have Lo == Hi.
type PUAMapping struct {
	Lo   rune
	Hi   rune
	Text string
}

// ParseCompoundMap reads a compound character map. Each non-blank line maps
// a codepoint or codepoint range to its replacement text:
//
//	[E000]=!?
//	[E010-E013]=¹⁸
//
// Range bounds are inclusive hexadecimal codepoints. Later lines win when
// ranges overlap.
func ParseCompoundMap(data string) (map[rune]string, error) {
	out := make(map[rune]string)
	data = strings.ReplaceAll(data, "\r", "")
	for i, line := range strings.Split(data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m, err := parsePUAMapping(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		for r := m.Lo; r <= m.Hi; r++ {
			out[r] = m.Text
		}
	}
	return out, nil
}

func parsePUAMapping(line string) (PUAMapping, error) {
	if !strings.HasPrefix(line, "[") {
		return PUAMapping{}, fmt.Errorf("expected '[', got %q", line)
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return PUAMapping{}, fmt.Errorf("unterminated codepoint in %q", line)
	}
	spec := line[1:end]
	rest := line[end+1:]
	if !strings.HasPrefix(rest, "=") {
		return PUAMapping{}, fmt.Errorf("expected '=' after codepoint in %q", line)
	}
	text := rest[1:]
	if text == "" {
		return PUAMapping{}, fmt.Errorf("empty replacement text in %q", line)
	}

	lo, hi := spec, spec
	if dash := strings.IndexByte(spec, '-'); dash >= 0 {
		lo, hi = spec[:dash], spec[dash+1:]
	}
	loR, err := parseCodepoint(lo)
	if err != nil {
		return PUAMapping{}, err
	}
	hiR, err := parseCodepoint(hi)
	if err != nil {
		return PUAMapping{}, err
	}
	if hiR < loR {
		return PUAMapping{}, fmt.Errorf("range U+%04X-U+%04X is inverted", loR, hiR)
	}
	return PUAMapping{Lo: loR, Hi: hiR, Text: text}, nil
}

func parseCodepoint(s string) (rune, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("bad codepoint %q: %w", s, err)
	}
	if v > utf8.MaxRune {
		return 0, fmt.Errorf("codepoint %q out of range", s)
	}
	return rune(v), nil
}
