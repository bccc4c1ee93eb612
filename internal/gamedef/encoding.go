package gamedef

import (
	"fmt"
	"sort"
	"strings"
)

// MissingPUAError reports compound characters that the charset grid does
// not map, which would make their replacement text impossible to encode.
type MissingPUAError struct {
	Chars []rune
}

func (e *MissingPUAError) Error() string {
	return fmt.Sprintf("compound characters missing from charset: %s", formatRuneList(e.Chars))
}

type compoundEntry struct {
	text string
	pua  rune
}

// EncodingMaps holds the lookup tables derived from a game's charset grid
// and compound character map. Values are immutable after construction.
type EncodingMaps struct {
	charByIndex []rune
	indexByChar map[rune]int
	expansions  map[rune]string
	compounds   []compoundEntry
}

// NewEncodingMaps builds maps from the grid and the compound mappings. It
// fails with a *MissingPUAError when a compound character has no charset
// index.
func NewEncodingMaps(charset []rune, compound map[rune]string) (*EncodingMaps, error) {
	m := &EncodingMaps{
		charByIndex: charset,
		indexByChar: make(map[rune]int, len(charset)),
		expansions:  make(map[rune]string, len(compound)),
	}
	for i, ch := range charset {
		if ch == 0 {
			continue
		}
		if _, ok := m.indexByChar[ch]; !ok {
			m.indexByChar[ch] = i
		}
	}

	var missing []rune
	for pua, text := range compound {
		if _, ok := m.indexByChar[pua]; !ok {
			missing = append(missing, pua)
			continue
		}
		m.expansions[pua] = text
		m.compounds = append(m.compounds, compoundEntry{text: text, pua: pua})
	}
	if len(missing) > 0 {
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return nil, &MissingPUAError{Chars: missing}
	}

	// Longest text first so encoding prefers the widest match; ties break
	// on the lowest codepoint for determinism.
	sort.Slice(m.compounds, func(i, j int) bool {
		a, b := m.compounds[i], m.compounds[j]
		if len(a.text) != len(b.text) {
			return len(a.text) > len(b.text)
		}
		if a.text != b.text {
			return a.text < b.text
		}
		return a.pua < b.pua
	})
	return m, nil
}

// IndexOf returns the charset index of ch.
func (m *EncodingMaps) IndexOf(ch rune) (int, bool) {
	i, ok := m.indexByChar[ch]
	return i, ok
}

// CharAt returns the character mapped at index i.
func (m *EncodingMaps) CharAt(i int) (rune, bool) {
	if i < 0 || i >= len(m.charByIndex) || m.charByIndex[i] == 0 {
		return 0, false
	}
	return m.charByIndex[i], true
}

// Expand returns the replacement text of a compound character.
func (m *EncodingMaps) Expand(ch rune) (string, bool) {
	text, ok := m.expansions[ch]
	return text, ok
}

// MatchCompound finds the longest compound replacement text that prefixes
// s and returns its character and the byte length consumed.
func (m *EncodingMaps) MatchCompound(s string) (rune, int, bool) {
	for _, c := range m.compounds {
		if strings.HasPrefix(s, c.text) {
			return c.pua, len(c.text), true
		}
	}
	return 0, 0, false
}

// MappedCount returns how many charset cells are mapped.
func (m *EncodingMaps) MappedCount() int { return len(m.indexByChar) }

// CompoundCount returns how many compound characters are mapped.
func (m *EncodingMaps) CompoundCount() int { return len(m.expansions) }
