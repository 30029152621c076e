// Package effects defines the field effects triggered by landing on blue and
// red board spaces, and the registry of standing effects consulted by the
// scoring and movement rules.
package effects

import "strings"

// FieldEffect names an entry of the positive or negative catalog.
type FieldEffect string

const (
	// Positive catalog (blue spaces).
	RestoMaior FieldEffect = "Resto Maior"
	CartaMaior FieldEffect = "Carta Maior"
	Imunidade  FieldEffect = "Imunidade"
	Desafio    FieldEffect = "Desafio"
	Impulso    FieldEffect = "Impulso"
	TrocaJusta FieldEffect = "Troca Justa"
	OlhoVivo   FieldEffect = "Olho Vivo"
	CartaExtra FieldEffect = "Carta Extra"

	// Negative catalog (red spaces).
	RestoMenor   FieldEffect = "Resto Menor"
	CartaMenor   FieldEffect = "Carta Menor"
	SuperExposto FieldEffect = "Super Exposto"
	Parada       FieldEffect = "Parada"
	Castigo      FieldEffect = "Castigo"
	TrocaInjusta FieldEffect = "Troca Injusta"
	JogoAberto   FieldEffect = "Jogo Aberto"
	Descarte     FieldEffect = "Descarte"
)

// Scope is the rule family a standing effect modifies.
type Scope string

const (
	ScopeNone       Scope = ""
	ScopeScore      Scope = "score"
	ScopeMovement   Scope = "movement"
	ScopeProtection Scope = "protection"
)

// Definition describes how a field effect resolves.
type Definition struct {
	Name     FieldEffect
	Positive bool
	// Standing effects are registered and consulted until the round they
	// apply to has been resolved. Others resolve immediately.
	Standing bool
	Scope    Scope
	// NeedsTarget effects require another participant to be chosen.
	NeedsTarget bool
	Description string
}

var catalog = []Definition{
	{Name: RestoMaior, Positive: true, Standing: true, Scope: ScopeScore, Description: "resto counts as 10 next round"},
	{Name: CartaMaior, Positive: true, Description: "discard the lowest value card in hand and draw a replacement"},
	{Name: Imunidade, Positive: true, Standing: true, Scope: ScopeProtection, Description: "ignore Menos and Desce next round"},
	{Name: Desafio, Positive: true, Standing: true, Scope: ScopeMovement, Description: "winning without Mais or Sobe advances 3 spaces"},
	{Name: Impulso, Positive: true, Standing: true, Scope: ScopeMovement, Description: "advance 1 space even when losing"},
	{Name: TrocaJusta, Positive: true, NeedsTarget: true, Description: "trade your lowest value card for an opponent's highest"},
	{Name: OlhoVivo, Positive: true, Description: "see every opponent's hand"},
	{Name: CartaExtra, Positive: true, Description: "draw an effect card"},

	{Name: RestoMenor, Standing: true, Scope: ScopeScore, Description: "resto counts as 2 next round"},
	{Name: CartaMenor, Description: "discard the highest value card in hand and draw a replacement"},
	{Name: SuperExposto, Standing: true, Scope: ScopeScore, Description: "Menos and Desce penalties are doubled next round"},
	{Name: Parada, Standing: true, Scope: ScopeMovement, Description: "winning next round does not advance"},
	{Name: Castigo, Standing: true, Scope: ScopeMovement, Description: "losing next round moves back 3 spaces"},
	{Name: TrocaInjusta, NeedsTarget: true, Description: "trade your highest value card for an opponent's lowest"},
	{Name: JogoAberto, Description: "your hand is revealed to everyone"},
	{Name: Descarte, Description: "discard every effect card in hand"},
}

// Lookup returns the definition for a name, matched case-insensitively.
func Lookup(name string) (Definition, bool) {
	name = strings.TrimSpace(name)
	for _, def := range catalog {
		if strings.EqualFold(string(def.Name), name) {
			return def, true
		}
	}
	return Definition{}, false
}

// PositiveNames is the blue-space catalog.
func PositiveNames() []string {
	return names(true)
}

// NegativeNames is the red-space catalog.
func NegativeNames() []string {
	return names(false)
}

func names(positive bool) []string {
	out := make([]string, 0, len(catalog)/2)
	for _, def := range catalog {
		if def.Positive == positive {
			out = append(out, string(def.Name))
		}
	}
	return out
}
