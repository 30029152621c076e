// Package board describes the parallel paths participants race along.
package board

import (
	"fmt"
)

// Color is the kind of a board space.
type Color string

const (
	ColorWhite   Color = "white"
	ColorBlue    Color = "blue"
	ColorRed     Color = "red"
	ColorYellow  Color = "yellow"
	ColorBlack   Color = "black"
	ColorStar    Color = "star"
	ColorNeutral Color = "neutral"
)

const (
	// DefaultPaths is the number of parallel paths on a standard board.
	DefaultPaths = 6
	// SpacesPerPath is the number of sequential spaces on a path.
	SpacesPerPath = 9
)

// Space is a single square on a path. Positions are 1-based.
type Space struct {
	Position int    `json:"position"`
	Color    Color  `json:"color"`
	Effect   string `json:"effect,omitempty"`
	Used     bool   `json:"used"`
}

// Colored reports whether landing on the space can trigger something.
func (s *Space) Colored() bool {
	return s.Color != ColorWhite && s.Color != ColorNeutral && s.Color != ""
}

// Path is one track of spaces. OccupantID is empty while the path is free.
type Path struct {
	ID         int      `json:"id"`
	Spaces     []*Space `json:"spaces"`
	OccupantID string   `json:"occupant_id,omitempty"`
}

// Space returns the space at the given 1-based position, or nil.
func (p *Path) Space(position int) *Space {
	if position < 1 || position > len(p.Spaces) {
		return nil
	}
	return p.Spaces[position-1]
}

// CountAhead counts spaces of a color strictly after position.
func (p *Path) CountAhead(position int, color Color) int {
	n := 0
	for _, s := range p.Spaces {
		if s.Position > position && s.Color == color && !s.Used {
			n++
		}
	}
	return n
}

// Board is the ordered set of paths.
type Board struct {
	Paths []*Path `json:"paths"`
}

// NewBoard creates a board of blank paths.
func NewBoard(paths int) *Board {
	if paths <= 0 {
		paths = DefaultPaths
	}
	b := &Board{Paths: make([]*Path, paths)}
	for i := range b.Paths {
		p := &Path{ID: i, Spaces: make([]*Space, SpacesPerPath)}
		for pos := 1; pos <= SpacesPerPath; pos++ {
			p.Spaces[pos-1] = &Space{Position: pos, Color: ColorWhite}
		}
		b.Paths[i] = p
	}
	return b
}

// Path returns the path with the given ID, or nil.
func (b *Board) Path(id int) *Path {
	if id < 0 || id >= len(b.Paths) {
		return nil
	}
	return b.Paths[id]
}

// Assign gives a free path to a participant.
func (b *Board) Assign(pathID int, participantID string) error {
	path := b.Path(pathID)
	if path == nil {
		return fmt.Errorf("path %d does not exist", pathID)
	}
	if path.OccupantID != "" && path.OccupantID != participantID {
		return fmt.Errorf("path %d is occupied by %s", pathID, path.OccupantID)
	}
	for _, other := range b.Paths {
		if other.OccupantID == participantID {
			other.OccupantID = ""
		}
	}
	path.OccupantID = participantID
	return nil
}

// Release frees whatever path the participant occupies.
func (b *Board) Release(participantID string) {
	for _, p := range b.Paths {
		if p.OccupantID == participantID {
			p.OccupantID = ""
		}
	}
}

// PathOf returns the ID of the participant's path, or -1.
func (b *Board) PathOf(participantID string) int {
	for _, p := range b.Paths {
		if p.OccupantID == participantID {
			return p.ID
		}
	}
	return -1
}

// FreePaths lists unoccupied paths that are not reserved.
func (b *Board) FreePaths(reserved map[int]bool) []int {
	free := make([]int, 0, len(b.Paths))
	for _, p := range b.Paths {
		if p.OccupantID == "" && !reserved[p.ID] {
			free = append(free, p.ID)
		}
	}
	return free
}

// IsFree reports whether a path exists, is unoccupied and not reserved.
func (b *Board) IsFree(pathID int, reserved map[int]bool) bool {
	p := b.Path(pathID)
	return p != nil && p.OccupantID == "" && !reserved[pathID]
}

// Copy returns a deep copy of the board.
func (b *Board) Copy() *Board {
	if b == nil {
		return nil
	}
	out := &Board{Paths: make([]*Path, len(b.Paths))}
	for i, p := range b.Paths {
		cp := &Path{ID: p.ID, OccupantID: p.OccupantID, Spaces: make([]*Space, len(p.Spaces))}
		for j, s := range p.Spaces {
			space := *s
			cp.Spaces[j] = &space
		}
		out.Paths[i] = cp
	}
	return out
}
