package console

import "fmt"

// Color is an ANSI palette index as understood by lipgloss.
type Color string

// ErrUnknownColor is returned when parsing a color name that is not in
// the palette.
var ErrUnknownColor = fmt.Errorf("unknown color")

// pool of visually distinct colors handed out to names without an
// explicit assignment
var colorPool = []Color{
	"2", "3", "4", "5", "6", "9", "10", "11", "12", "13", "14", "1",
}

var colorNames = map[string]Color{
	"black":          "0",
	"red":            "1",
	"green":          "2",
	"yellow":         "3",
	"blue":           "4",
	"magenta":        "5",
	"cyan":           "6",
	"white":          "7",
	"bright-red":     "9",
	"bright-green":   "10",
	"bright-yellow":  "11",
	"bright-blue":    "12",
	"bright-magenta": "13",
	"bright-cyan":    "14",
	"bright-white":   "15",
}

// ParseColor maps a human-readable color name to its palette index.
func ParseColor(name string) (Color, error) {
	if color, ok := colorNames[name]; ok {
		return color, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColor, name)
}

// Assign maps every worker name to a display color. Names present in
// explicit keep their color, the rest draw from the pool in order, only
// reusing a color once the pool is exhausted. The returned mapping is
// scoped to one run; there is no process-wide color state.
func Assign(names []string, explicit map[string]Color) map[string]Color {
	assigned := make(map[string]Color, len(names))
	used := make(map[Color]bool, len(explicit))

	for _, name := range names {
		if color, ok := explicit[name]; ok {
			assigned[name] = color
			used[color] = true
		}
	}

	next := 0
	pick := func() Color {
		for range colorPool {
			color := colorPool[next%len(colorPool)]
			next++
			if !used[color] {
				used[color] = true
				return color
			}
		}

		// pool exhausted, wrap around
		color := colorPool[next%len(colorPool)]
		next++
		return color
	}

	for _, name := range names {
		if _, ok := assigned[name]; !ok {
			assigned[name] = pick()
		}
	}

	return assigned
}
