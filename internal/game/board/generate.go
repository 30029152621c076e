package board

import (
	"fmt"
	"math/rand"
)

// Layout controls how many special spaces each path receives.
type Layout struct {
	Paths  int
	Blue   int
	Red    int
	Yellow int
	Black  int
	Star   int
	// Positive and Negative are the field-effect catalogs blue and red
	// spaces draw their effect names from.
	Positive []string
	Negative []string
}

// colorable returns the positions that may carry a color: every space except
// the first and last.
func colorable() []int {
	out := make([]int, 0, SpacesPerPath-2)
	for pos := 2; pos < SpacesPerPath; pos++ {
		out = append(out, pos)
	}
	return out
}

// Generate builds a board and colors each path according to the layout.
func Generate(layout Layout, rng *rand.Rand) (*Board, error) {
	special := layout.Blue + layout.Red + layout.Yellow + layout.Black + layout.Star
	if special > SpacesPerPath-2 {
		return nil, fmt.Errorf("layout asks for %d colored spaces but a path only has %d", special, SpacesPerPath-2)
	}
	if layout.Blue > 0 && len(layout.Positive) == 0 {
		return nil, fmt.Errorf("blue spaces require a positive effect catalog")
	}
	if layout.Red > 0 && len(layout.Negative) == 0 {
		return nil, fmt.Errorf("red spaces require a negative effect catalog")
	}

	b := NewBoard(layout.Paths)
	for _, path := range b.Paths {
		positions := colorable()
		rng.Shuffle(len(positions), func(i, j int) {
			positions[i], positions[j] = positions[j], positions[i]
		})

		next := 0
		place := func(count int, color Color, catalog []string) {
			for i := 0; i < count; i++ {
				space := path.Space(positions[next])
				next++
				space.Color = color
				if len(catalog) > 0 {
					space.Effect = catalog[rng.Intn(len(catalog))]
				}
			}
		}
		place(layout.Blue, ColorBlue, layout.Positive)
		place(layout.Red, ColorRed, layout.Negative)
		place(layout.Yellow, ColorYellow, nil)
		place(layout.Black, ColorBlack, nil)
		place(layout.Star, ColorStar, nil)
	}
	return b, nil
}
