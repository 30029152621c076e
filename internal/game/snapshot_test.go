package game

import (
	"testing"

	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotChecksumStable(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2", "p3"), nil)
	h.Start("p1")

	snap := newSnapshot(h.state())
	first, err := snap.ComputeChecksum()
	require.NoError(t, err)
	second, err := newSnapshot(h.state()).ComputeChecksum()
	require.NoError(t, err)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Len(t, first.Hash, 64)

	h.participant("p2").Position = 4
	changed, err := newSnapshot(h.state()).ComputeChecksum()
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, changed.Hash)

	ok, err := snap.VerifyChecksum(first)
	require.NoError(t, err)
	assert.True(t, ok, "snapshots are copies")
}

func TestSnapshotChecksumCoversTurnState(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *TableHarness)
	}{
		{"reserved path", func(h *TableHarness) { h.state().Reserved[3] = "p2" }},
		{"path choice", func(h *TableHarness) {
			choice := 3
			h.participant("p2").Effect(cards.AxisMovement).PathChoice = &choice
		}},
		{"pending input", func(h *TableHarness) {
			h.state().Pending = &PendingInput{
				Kind:          PendingFieldEffectTarget,
				ParticipantID: "p1",
				Effect:        effects.TrocaJusta,
				Candidates:    []string{"p2", "p3"},
				NextIndex:     1,
			}
		}},
		{"pending candidates", func(h *TableHarness) {
			h.state().Pending = &PendingInput{
				Kind:          PendingFieldEffectTarget,
				ParticipantID: "p1",
				Effect:        effects.TrocaJusta,
				Candidates:    []string{"p2"},
				NextIndex:     1,
			}
		}},
		{"played value flag", func(h *TableHarness) { h.participant("p1").PlayedValueThisTurn = true }},
		{"played effect flag", func(h *TableHarness) { h.participant("p1").PlayedEffectThisTurn = true }},
		{"played bonus flag", func(h *TableHarness) { h.participant("p1").PlayedBonus = true }},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2", "p3"), nil)
			h.ClearTable()
			h.Start("p1")
			h.Record("p2", cards.EffectPula, false)

			before := h.checksum()
			tt.mutate(h)
			after := h.checksum()
			assert.NotEqual(t, before, after)
			for name, sum := range seen {
				assert.NotEqual(t, sum, after, "same checksum as %s", name)
			}
			seen[tt.name] = after
		})
	}
}
