// Package palette maps the secondary hub's hex colors to the primary hub's
// hue/saturation pairs.
package palette

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownColor is returned when a color has no entry in the table.
var ErrUnknownColor = errors.New("unknown color")

// Entry is one color known to both hubs.
type Entry struct {
	Hex        string
	Hue        int
	Saturation int
}

// HSB is the primary hub's view of a color plus brightness.
type HSB struct {
	On         bool
	Hue        int
	Saturation int
	Brightness int
}

// Table is an immutable list of entries. Hue/saturation pairs are unique;
// hex codes may repeat.
type Table struct {
	entries []Entry
}

// Default is the palette of the Tradfri white-spectrum presets as reported
// by the Hue bridge.
var Default = MustNew([]Entry{
	{Hex: "efd275", Hue: 6188, Saturation: 249}, // warm
	{Hex: "f1e0b5", Hue: 7644, Saturation: 150}, // medium
	{Hex: "f5faf6", Hue: 39312, Saturation: 13}, // cold
})

// New builds a table, rejecting duplicate hue/saturation pairs since they
// would make reverse lookups ambiguous.
func New(entries []Entry) (*Table, error) {
	seen := make(map[[2]int]string, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := [2]int{e.Hue, e.Saturation}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate hue/sat %d/%d for %s and %s", e.Hue, e.Saturation, prev, e.Hex)
		}
		seen[key] = e.Hex
		e.Hex = strings.ToLower(e.Hex)
		out = append(out, e)
	}
	return &Table{entries: out}, nil
}

// MustNew is New that panics on error.
func MustNew(entries []Entry) *Table {
	t, err := New(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// At returns the entry at index i.
func (t *Table) At(i int) (Entry, error) {
	if i < 0 || i >= len(t.entries) {
		return Entry{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrUnknownColor, i, len(t.entries))
	}
	return t.entries[i], nil
}

// IndexOfHex returns the position of the first entry with the given hex code.
func (t *Table) IndexOfHex(hex string) (int, error) {
	hex = strings.ToLower(hex)
	for i, e := range t.entries {
		if e.Hex == hex {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: hex %q", ErrUnknownColor, hex)
}

// IndexOfHueSat returns the position of the entry with the given pair.
func (t *Table) IndexOfHueSat(hue, saturation int) (int, error) {
	for i, e := range t.entries {
		if e.Hue == hue && e.Saturation == saturation {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: hue %d sat %d", ErrUnknownColor, hue, saturation)
}

// HexForHueSat translates a primary hub color to the secondary hub's hex code.
func (t *Table) HexForHueSat(hue, saturation int) (string, error) {
	i, err := t.IndexOfHueSat(hue, saturation)
	if err != nil {
		return "", err
	}
	return t.entries[i].Hex, nil
}

// HSBForHex translates a hex code and brightness into an "on" HSB state.
func (t *Table) HSBForHex(hex string, brightness int) (HSB, error) {
	i, err := t.IndexOfHex(hex)
	if err != nil {
		return HSB{}, err
	}
	e := t.entries[i]
	return HSB{On: true, Hue: e.Hue, Saturation: e.Saturation, Brightness: brightness}, nil
}
