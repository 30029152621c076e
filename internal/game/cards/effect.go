package cards

import (
	"fmt"
	"strings"
)

// EffectName identifies an effect card in the fixed catalog.
type EffectName int

const (
	EffectNone EffectName = iota
	EffectMais
	EffectMenos
	EffectSobe
	EffectDesce
	EffectPula
	EffectReversus
	EffectReversusTotal
	// Battle variants apply twice the resto value.
	EffectMaisDobro
	EffectMenosDobro
)

var effectNames = map[EffectName]string{
	EffectNone:          "NONE",
	EffectMais:          "Mais",
	EffectMenos:         "Menos",
	EffectSobe:          "Sobe",
	EffectDesce:         "Desce",
	EffectPula:          "Pula",
	EffectReversus:      "Reversus",
	EffectReversusTotal: "ReversusTotal",
	EffectMaisDobro:     "MaisDobro",
	EffectMenosDobro:    "MenosDobro",
}

// AllEffects lists every playable effect in catalog order.
var AllEffects = []EffectName{
	EffectMais,
	EffectMenos,
	EffectSobe,
	EffectDesce,
	EffectPula,
	EffectReversus,
	EffectReversusTotal,
	EffectMaisDobro,
	EffectMenosDobro,
}

func (e EffectName) String() string {
	if name, ok := effectNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EFFECT_%d", int(e))
}

// ParseEffectName resolves a catalog name, case-insensitively.
func ParseEffectName(s string) (EffectName, error) {
	s = strings.TrimSpace(s)
	for name, label := range effectNames {
		if name != EffectNone && strings.EqualFold(label, s) {
			return name, nil
		}
	}
	return EffectNone, fmt.Errorf("unknown effect %q", s)
}

// MarshalText encodes the effect by its catalog name.
func (e EffectName) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes a catalog name. An empty string is EffectNone.
func (e *EffectName) UnmarshalText(text []byte) error {
	if len(text) == 0 || strings.EqualFold(string(text), "NONE") {
		*e = EffectNone
		return nil
	}
	parsed, err := ParseEffectName(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Axis is the slot an effect occupies on a participant.
type Axis int

const (
	AxisNone Axis = iota
	AxisScore
	AxisMovement
	AxisGlobal
)

var axisNames = map[Axis]string{
	AxisNone:     "NONE",
	AxisScore:    "SCORE",
	AxisMovement: "MOVEMENT",
	AxisGlobal:   "GLOBAL",
}

func (a Axis) String() string {
	if name, ok := axisNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AXIS_%d", int(a))
}

// MarshalText encodes the axis by name.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an axis name.
func (a *Axis) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	if s == "" {
		*a = AxisNone
		return nil
	}
	for axis, name := range axisNames {
		if name == s {
			*a = axis
			return nil
		}
	}
	return fmt.Errorf("unknown axis %q", string(text))
}

// AxisOf returns the slot an effect occupies when applied. Reversus has no
// slot of its own: it modifies the target's effect on a chosen axis.
func AxisOf(e EffectName) Axis {
	switch e {
	case EffectMais, EffectMenos, EffectMaisDobro, EffectMenosDobro:
		return AxisScore
	case EffectSobe, EffectDesce, EffectPula:
		return AxisMovement
	case EffectReversusTotal:
		return AxisGlobal
	case EffectNone, EffectReversus:
		return AxisNone
	}
	return AxisNone
}

// Inverse returns the opposite effect and whether one exists.
func Inverse(e EffectName) (EffectName, bool) {
	switch e {
	case EffectMais:
		return EffectMenos, true
	case EffectMenos:
		return EffectMais, true
	case EffectSobe:
		return EffectDesce, true
	case EffectDesce:
		return EffectSobe, true
	case EffectMaisDobro:
		return EffectMenosDobro, true
	case EffectMenosDobro:
		return EffectMaisDobro, true
	case EffectNone, EffectPula, EffectReversus, EffectReversusTotal:
		return e, false
	}
	return e, false
}

// IsPenalty reports whether the effect lowers its target's score or position.
func IsPenalty(e EffectName) bool {
	return e == EffectMenos || e == EffectDesce || e == EffectMenosDobro
}

// IsBonus reports whether the effect raises its target's score or position.
func IsBonus(e EffectName) bool {
	return e == EffectMais || e == EffectSobe || e == EffectMaisDobro
}
