package gamedef

import (
	"fmt"
	"strings"
)

// ParseCharset reads a charset grid into an index-ordered rune slice.
//
// The grid is line oriented: line k holds the characters for indices 64*k
// through 64*k+63, filled left to right. A space marks an unmapped cell,
// except at index 0 where it maps the space character itself. Short lines
// leave the rest of the row unmapped and blank lines leave a whole row
// unmapped. Unmapped cells are zero runes.
func ParseCharset(data string) ([]rune, error) {
	data = strings.ReplaceAll(data, "\r", "")
	lines := strings.Split(data, "\n")
	// A trailing newline yields one empty trailing element; drop it so it
	// does not count as an extra row.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	grid := make([]rune, len(lines)*64)
	for row, line := range lines {
		cells := []rune(line)
		if len(cells) > 64 {
			return nil, fmt.Errorf("charset line %d holds %d characters, limit is 64", row+1, len(cells))
		}
		for col, ch := range cells {
			idx := row*64 + col
			if ch == ' ' && idx != 0 {
				ch = 0
			}
			grid[idx] = ch
		}
	}
	return grid, nil
}
