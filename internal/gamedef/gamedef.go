// Package gamedef holds the per-title definitions for the SC3 text
// encoding: the character set grid, the compound character map, and the
// encoding maps derived from them. Resources are embedded so the binary is
// self-contained.
package gamedef

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed resources
var resourceFS embed.FS

// Game identifies a supported title.
type Game int

const (
	SteinsGateHD Game = iota
	RoboticsNotes
	SteinsGatePhenogram
	SteinsGate0
	RoboticsNotesDash
)

// CodepointRange is an inclusive range of runes.
type CodepointRange struct {
	Lo rune
	Hi rune
}

// Contains reports whether r falls inside the range.
func (cr CodepointRange) Contains(r rune) bool {
	return r >= cr.Lo && r <= cr.Hi
}

// GameDef describes one supported title: identity, CLI aliases, and the
// text-encoding tables loaded from its embedded resource directory.
type GameDef struct {
	Game     Game
	FullName string
	Aliases  []string

	// ReservedCodepoints is a PUA range the game keeps for its own glyphs.
	// Compound mappings must not intrude on it.
	ReservedCodepoints *CodepointRange

	// FullwidthBlocklist lists ASCII characters that must stay halfwidth
	// when encoding (the game renders them directly).
	FullwidthBlocklist []rune

	resourceDir string
	charset     []rune
	compound    map[rune]string
	maps        *EncodingMaps
}

// Charset returns the index-ordered character grid. Zero cells are unmapped.
func (d *GameDef) Charset() []rune { return d.charset }

// Maps returns the encoding maps built from the charset and compound map.
func (d *GameDef) Maps() *EncodingMaps { return d.maps }

// HasAlias reports whether alias names this definition.
func (d *GameDef) HasAlias(alias string) bool {
	for _, a := range d.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// BlockedFullwidth reports whether ch is on the fullwidth blocklist.
func (d *GameDef) BlockedFullwidth(ch rune) bool {
	for _, b := range d.FullwidthBlocklist {
		if b == ch {
			return true
		}
	}
	return false
}

type defSpec struct {
	game      Game
	fullName  string
	dir       string
	aliases   []string
	reserved  *CodepointRange
	blocklist []rune
}

var defSpecs = []defSpec{
	{
		game:      SteinsGateHD,
		fullName:  "Steins;Gate Steam",
		dir:       "sghd",
		aliases:   []string{"sghd", "steinsgatehd"},
		blocklist: []rune{'\'', '-', '[', ']', '(', ')'},
	},
	{
		game:      SteinsGateHD,
		fullName:  "Steins;Gate Steam (Simplified Chinese)",
		dir:       "sghdzhs",
		aliases:   []string{"sghdzhs", "steinsgatehdzhs"},
		reserved:  &CodepointRange{Lo: '\uE12F', Hi: '\uE2AF'},
		blocklist: []rune{'\''},
	},
	{
		game:      RoboticsNotes,
		fullName:  "Robotics;Notes",
		dir:       "rn",
		aliases:   []string{"rn", "roboticsnotes"},
		blocklist: []rune{'\'', '-', '[', ']', '(', ')'},
	},
	{
		game:      SteinsGatePhenogram,
		fullName:  "Steins;Gate: Linear Bounded Phenogram",
		dir:       "sglbp",
		aliases:   []string{"sglbp", "steinsgatelbp"},
		blocklist: []rune{'\'', '-', '[', ']', '(', ')'},
	},
	{
		game:      SteinsGate0,
		fullName:  "Steins;Gate 0",
		dir:       "sg0",
		aliases:   []string{"sg0", "steinsgate0"},
		blocklist: []rune{'\''},
	},
	{
		game:      SteinsGate0,
		fullName:  "Steins;Gate 0 (Simplified Chinese)",
		dir:       "sg0zhs",
		aliases:   []string{"sg0zhs", "steinsgate0zhs"},
		reserved:  &CodepointRange{Lo: '\uE12F', Hi: '\uE2AF'},
		blocklist: []rune{'\''},
	},
	{
		game:      RoboticsNotesDash,
		fullName:  "Robotics;Notes DaSH",
		dir:       "rnd",
		aliases:   []string{"rnd", "roboticsnotesdash"},
		blocklist: []rune{'\''},
	},
}

var (
	defsOnce sync.Once
	defs     []*GameDef
	defsErr  error
)

// Defs returns every game definition, loading embedded resources on the
// first call. The slice is shared; callers must not mutate it.
func Defs() ([]*GameDef, error) {
	defsOnce.Do(func() {
		defs, defsErr = loadDefs()
	})
	return defs, defsErr
}

func loadDefs() ([]*GameDef, error) {
	out := make([]*GameDef, 0, len(defSpecs))
	for _, spec := range defSpecs {
		d, err := loadDef(spec)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", spec.fullName, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func loadDef(spec defSpec) (*GameDef, error) {
	rawCharset, err := resourceFS.ReadFile("resources/" + spec.dir + "/charset.utf8")
	if err != nil {
		return nil, fmt.Errorf("read charset: %w", err)
	}
	charset, err := ParseCharset(string(rawCharset))
	if err != nil {
		return nil, fmt.Errorf("parse charset: %w", err)
	}

	rawCompound, err := resourceFS.ReadFile("resources/" + spec.dir + "/compound_chars.map")
	if err != nil {
		return nil, fmt.Errorf("read compound map: %w", err)
	}
	compound, err := ParseCompoundMap(string(rawCompound))
	if err != nil {
		return nil, fmt.Errorf("parse compound map: %w", err)
	}

	if spec.reserved != nil {
		if bad := compoundKeysIn(compound, *spec.reserved); len(bad) > 0 {
			return nil, fmt.Errorf("compound mapping %s intrudes on reserved range U+%04X-U+%04X",
				formatRuneList(bad), spec.reserved.Lo, spec.reserved.Hi)
		}
	}

	maps, err := NewEncodingMaps(charset, compound)
	if err != nil {
		return nil, err
	}

	return &GameDef{
		Game:               spec.game,
		FullName:           spec.fullName,
		Aliases:            spec.aliases,
		ReservedCodepoints: spec.reserved,
		FullwidthBlocklist: spec.blocklist,
		resourceDir:        spec.dir,
		charset:            charset,
		compound:           compound,
		maps:               maps,
	}, nil
}

func compoundKeysIn(compound map[rune]string, r CodepointRange) []rune {
	var bad []rune
	for k := range compound {
		if r.Contains(k) {
			bad = append(bad, k)
		}
	}
	sort.Slice(bad, func(i, j int) bool { return bad[i] < bad[j] })
	return bad
}

func formatRuneList(rs []rune) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("U+%04X", r))
	}
	return strings.Join(parts, ", ")
}

// Get returns the first definition for game.
func Get(game Game) (*GameDef, error) {
	all, err := Defs()
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		if d.Game == game {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no definition for game %d", game)
}

// GetByAlias returns the definition matching alias, or nil when unknown.
func GetByAlias(alias string) (*GameDef, error) {
	all, err := Defs()
	if err != nil {
		return nil, err
	}
	alias = strings.ToLower(strings.TrimSpace(alias))
	for _, d := range all {
		if d.HasAlias(alias) {
			return d, nil
		}
	}
	return nil, nil
}
