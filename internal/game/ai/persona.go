// Package ai chooses moves for participants that are not driven by a
// person: a heuristic weighted by persona, optionally overridden by a remote
// suggestion service.
package ai

import "strings"

// Persona holds the weights the heuristic uses to rank moves. Bots differ
// only by these numbers.
type Persona struct {
	Name string `mapstructure:"name" json:"name"`
	// Support scales gains handed to the bot's own side.
	Support float64 `mapstructure:"support" json:"support"`
	// Aggression scales losses inflicted on opponents.
	Aggression float64 `mapstructure:"aggression" json:"aggression"`
	// SpaceValue converts one board space into score points.
	SpaceValue float64 `mapstructure:"space_value" json:"space_value"`
	// RedWeight values each unused red space ahead of a participant.
	RedWeight float64 `mapstructure:"red_weight" json:"red_weight"`
	// TotalThreshold is the least net gain that justifies flipping global
	// inversion with Reversus Total.
	TotalThreshold float64 `mapstructure:"total_threshold" json:"total_threshold"`
	// MinGain is the least gain an effect play must promise over passing.
	MinGain float64 `mapstructure:"min_gain" json:"min_gain"`
}

// DefaultPersona is used for unknown persona names.
func DefaultPersona() Persona {
	return Persona{
		Name:           "balanced",
		Support:        1,
		Aggression:     1,
		SpaceValue:     4,
		RedWeight:      2,
		TotalThreshold: 6,
		MinGain:        1,
	}
}

var builtin = map[string]Persona{
	"balanced": DefaultPersona(),
	"aggressive": {
		Name:           "aggressive",
		Support:        0.6,
		Aggression:     1.6,
		SpaceValue:     4,
		RedWeight:      3,
		TotalThreshold: 4,
		MinGain:        0.5,
	},
	"supportive": {
		Name:           "supportive",
		Support:        1.6,
		Aggression:     0.6,
		SpaceValue:     5,
		RedWeight:      1,
		TotalThreshold: 8,
		MinGain:        1,
	},
	"cautious": {
		Name:           "cautious",
		Support:        1,
		Aggression:     0.8,
		SpaceValue:     3,
		RedWeight:      1,
		TotalThreshold: 12,
		MinGain:        3,
	},
}

// Personas is a lookup of persona weights by name.
type Personas map[string]Persona

// BuiltinPersonas returns a copy of the bundled personas.
func BuiltinPersonas() Personas {
	out := make(Personas, len(builtin))
	for name, p := range builtin {
		out[name] = p
	}
	return out
}

// Lookup returns the named persona or the default one.
func (ps Personas) Lookup(name string) Persona {
	if p, ok := ps[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return DefaultPersona()
}
