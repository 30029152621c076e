package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
)

// ErrInvalidConfiguration is returned by NewGame for setups that can never
// be played. It is fatal for the game being created only.
var ErrInvalidConfiguration = errors.New("invalid game configuration")

// ModeKind selects how participants are grouped into sides.
type ModeKind string

const (
	// ModeSolo: every participant plays alone.
	ModeSolo ModeKind = "solo"
	// ModeDuo: seats 1 and 3 play against seats 2 and 4.
	ModeDuo ModeKind = "duo"
	// ModeOneVsAll: every challenger shares a side against a single home
	// participant.
	ModeOneVsAll ModeKind = "one_vs_all"
	// ModeTwoVsTwo: two fixed rosters given by each seat's team.
	ModeTwoVsTwo ModeKind = "two_vs_two"
)

// ParseModeKind resolves a mode name.
func ParseModeKind(s string) (ModeKind, error) {
	switch ModeKind(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSolo, "":
		return ModeSolo, nil
	case ModeDuo:
		return ModeDuo, nil
	case ModeOneVsAll:
		return ModeOneVsAll, nil
	case ModeTwoVsTwo:
		return ModeTwoVsTwo, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, s)
}

// Mode carries the rule variants of a game.
type Mode struct {
	Kind ModeKind `json:"kind"`
	// HomeID is the participant that yellow spaces push forward.
	HomeID string `json:"home_id,omitempty"`
	// InvertedGoal games start on the goal space and race back to the first.
	InvertedGoal bool `json:"inverted_goal,omitempty"`
	// Looping games wrap past the goal and count laps.
	Looping bool `json:"looping,omitempty"`
	// Hazard games place black spaces and track lives.
	Hazard bool `json:"hazard,omitempty"`
	// Challenge games place star spaces.
	Challenge bool `json:"challenge,omitempty"`
	// Battle games add the doubled scoring cards to the effect deck.
	Battle bool `json:"battle,omitempty"`
}

// Seat describes a participant at setup time.
type Seat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team,omitempty"`
	Human   bool   `json:"human"`
	Persona string `json:"persona,omitempty"`
}

// Settings holds the tunable rules of a game.
type Settings struct {
	// Seed drives every random choice. Zero picks a random seed.
	Seed       int64
	Paths      int
	Goal       int
	ValueCap   int
	EffectCap  int
	ValueDeck  []cards.Entry
	EffectDeck []cards.Entry
	// Blue and Red are the colored spaces placed on each path.
	Blue      int
	Red       int
	Lives     int
	LapsToWin int
	// AutoContinue starts the next round from Advance once a round summary
	// has been produced.
	AutoContinue bool
}

// DefaultSettings returns the standard rules.
func DefaultSettings() Settings {
	return Settings{
		Paths:        board.DefaultPaths,
		Goal:         board.SpacesPerPath + 1,
		ValueCap:     3,
		EffectCap:    2,
		Blue:         2,
		Red:          2,
		Lives:        3,
		LapsToWin:    2,
		AutoContinue: true,
	}
}

func (s Settings) withDefaults(mode Mode) Settings {
	def := DefaultSettings()
	if s.Paths <= 0 {
		s.Paths = def.Paths
	}
	if s.Goal <= 1 {
		s.Goal = def.Goal
	}
	if s.ValueCap <= 0 {
		s.ValueCap = def.ValueCap
	}
	if s.EffectCap < 0 {
		s.EffectCap = def.EffectCap
	}
	if s.LapsToWin <= 0 {
		s.LapsToWin = def.LapsToWin
	}
	if len(s.ValueDeck) == 0 {
		s.ValueDeck = cards.DefaultValueEntries()
	}
	if len(s.EffectDeck) == 0 {
		if mode.Battle {
			s.EffectDeck = cards.BattleEffectEntries()
		} else {
			s.EffectDeck = cards.DefaultEffectEntries()
		}
	}
	return s
}

// layout derives the board layout from settings and mode.
func (s Settings) layout(mode Mode) board.Layout {
	l := board.Layout{
		Paths:    s.Paths,
		Blue:     s.Blue,
		Red:      s.Red,
		Positive: effects.PositiveNames(),
		Negative: effects.NegativeNames(),
	}
	if mode.HomeID != "" {
		l.Yellow = 1
	}
	if mode.Hazard {
		l.Black = 1
	}
	if mode.Challenge {
		l.Star = 1
	}
	return l
}

// assignTeams validates the seating for the mode and returns the team of
// each seat.
func assignTeams(mode *Mode, seats []Seat) (map[string]string, error) {
	if len(seats) < 2 || len(seats) > 4 {
		return nil, fmt.Errorf("%w: %d participants, need 2 to 4", ErrInvalidConfiguration, len(seats))
	}
	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: participant id is required", ErrInvalidConfiguration)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidConfiguration, id)
		}
		seen[id] = true
	}

	teams := make(map[string]string, len(seats))
	switch mode.Kind {
	case ModeSolo:
		for _, s := range seats {
			teams[s.ID] = s.ID
		}
	case ModeDuo:
		if len(seats)%2 != 0 {
			return nil, fmt.Errorf("%w: team mode needs an even participant count, got %d", ErrInvalidConfiguration, len(seats))
		}
		for i, s := range seats {
			if i%2 == 0 {
				teams[s.ID] = "A"
			} else {
				teams[s.ID] = "B"
			}
		}
	case ModeOneVsAll, ModeTwoVsTwo:
		members := make(map[string][]string)
		for _, s := range seats {
			team := strings.TrimSpace(s.Team)
			if team == "" {
				return nil, fmt.Errorf("%w: participant %s has no team", ErrInvalidConfiguration, s.ID)
			}
			teams[s.ID] = team
			members[team] = append(members[team], s.ID)
		}
		if len(members) != 2 {
			return nil, fmt.Errorf("%w: %s needs exactly two teams, got %d", ErrInvalidConfiguration, mode.Kind, len(members))
		}
		if mode.Kind == ModeTwoVsTwo {
			for team, ids := range members {
				if len(ids) != 2 {
					return nil, fmt.Errorf("%w: team %s has %d members, need 2", ErrInvalidConfiguration, team, len(ids))
				}
			}
		} else {
			home := ""
			for _, s := range seats {
				if ids := members[teams[s.ID]]; len(ids) == 1 && home == "" {
					home = s.ID
				}
			}
			if home == "" {
				return nil, fmt.Errorf("%w: one_vs_all needs a single-member team", ErrInvalidConfiguration)
			}
			if mode.HomeID == "" {
				mode.HomeID = home
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, mode.Kind)
	}

	if mode.HomeID != "" && !seen[mode.HomeID] {
		return nil, fmt.Errorf("%w: home participant %s is not seated", ErrInvalidConfiguration, mode.HomeID)
	}
	return teams, nil
}
