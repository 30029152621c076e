package effects

// Active is a standing field effect registered for one participant and one
// round.
type Active struct {
	Name          FieldEffect `json:"name"`
	Scope         Scope       `json:"scope"`
	ParticipantID string      `json:"applies_to"`
	Round         int         `json:"round"`
}

// Registry holds standing field effects. It is owned by the game state and
// is not safe for concurrent use on its own.
type Registry struct {
	Entries []Active `json:"entries"`
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{Entries: make([]Active, 0)}
}

// Add registers a standing effect for a participant in the given round.
// Registering the same effect twice for the same round is a no-op.
func (r *Registry) Add(name FieldEffect, participantID string, round int) bool {
	if r.Has(participantID, name, round) {
		return false
	}
	scope := ScopeNone
	if def, ok := Lookup(string(name)); ok {
		scope = def.Scope
	}
	r.Entries = append(r.Entries, Active{
		Name:          name,
		Scope:         scope,
		ParticipantID: participantID,
		Round:         round,
	})
	return true
}

// Has reports whether the participant has the effect for the round.
func (r *Registry) Has(participantID string, name FieldEffect, round int) bool {
	if r == nil {
		return false
	}
	for _, e := range r.Entries {
		if e.ParticipantID == participantID && e.Name == name && e.Round == round {
			return true
		}
	}
	return false
}

// For returns the effects registered for a participant in a round.
func (r *Registry) For(participantID string, round int) []Active {
	if r == nil {
		return nil
	}
	out := make([]Active, 0)
	for _, e := range r.Entries {
		if e.ParticipantID == participantID && e.Round == round {
			out = append(out, e)
		}
	}
	return out
}

// Expire removes every effect registered for rounds up to and including the
// given round and returns how many were removed.
func (r *Registry) Expire(round int) int {
	kept := r.Entries[:0]
	removed := 0
	for _, e := range r.Entries {
		if e.Round <= round {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.Entries = kept
	return removed
}

// RemoveParticipant drops every effect for an eliminated participant.
func (r *Registry) RemoveParticipant(participantID string) {
	kept := r.Entries[:0]
	for _, e := range r.Entries {
		if e.ParticipantID != participantID {
			kept = append(kept, e)
		}
	}
	r.Entries = kept
}

// Copy returns a deep copy of the registry.
func (r *Registry) Copy() *Registry {
	if r == nil {
		return NewRegistry()
	}
	return &Registry{Entries: append(make([]Active, 0, len(r.Entries)), r.Entries...)}
}
