package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reversus/reversus-server-go/internal/game/cards"
)

// Snapshot is an immutable copy of a game taken at the start of a round.
type Snapshot struct {
	GameID    string
	Round     int
	Timestamp time.Time
	State     *GameState
}

func newSnapshot(s *GameState) *Snapshot {
	return &Snapshot{
		GameID:    s.ID,
		Round:     s.Round,
		Timestamp: time.Now(),
		State:     s.Copy(),
	}
}

// Checksum identifies the content of a snapshot independently of map
// iteration order and timestamps.
type Checksum struct {
	Hash    string
	Version int
}

// ComputeChecksum hashes a canonical rendering of the snapshot.
func (snap *Snapshot) ComputeChecksum() (*Checksum, error) {
	hash := sha256.New()
	if _, err := hash.Write([]byte(snap.canonical())); err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}
	return &Checksum{Hash: hex.EncodeToString(hash.Sum(nil)), Version: 1}, nil
}

// VerifyChecksum reports whether the snapshot still matches a checksum.
func (snap *Snapshot) VerifyChecksum(expected *Checksum) (bool, error) {
	computed, err := snap.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

func (snap *Snapshot) canonical() string {
	s := snap.State
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%s|%d|%d|%t|%s\n",
		s.ID, s.Mode.Kind, s.Round, s.Phase, s.CurrentIndex, s.ConsecutivePasses,
		s.GlobalInversionActive, s.StarterID)
	buf.WriteString("ORDER:" + strings.Join(s.TurnOrder, ",") + "\n")

	ids := make([]string, 0, len(s.Participants))
	for id := range s.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := s.Participants[id]
		fmt.Fprintf(&buf, "PARTICIPANT:%s|%s|%d|%d|%d|%d|%t\n",
			id, p.Team, p.Position, p.PathID, p.Lives, p.Laps, p.Eliminated)
		fmt.Fprintf(&buf, "  TURN:%t|%t|%t\n", p.PlayedValueThisTurn, p.PlayedEffectThisTurn, p.PlayedBonus)
		fmt.Fprintf(&buf, "  HAND:%s\n", sortedIDs(p.Hand))
		fmt.Fprintf(&buf, "  PLAYED:%s\n", cardIDs(p.PlayedValues))
		fmt.Fprintf(&buf, "  RESTO:%s|%s\n", cardID(p.Resto), cardID(p.NextResto))
		for _, axis := range []cards.Axis{cards.AxisScore, cards.AxisMovement, cards.AxisGlobal} {
			if rec := p.Effects[axis]; rec != nil {
				fmt.Fprintf(&buf, "  EFFECT:%s|%s|%s|%s|%t|%s|%s\n",
					axis, rec.Name, cardID(rec.Card), rec.CasterID, rec.Locked, cardIDs(rec.Modifiers), pathChoice(rec.PathChoice))
			}
		}
	}

	for _, deck := range []*cards.Deck{s.ValueDeck, s.EffectDeck} {
		fmt.Fprintf(&buf, "DECK:%s|%d|%s\n", deck.Kind, deck.Generation, cardIDs(deck.Cards))
		fmt.Fprintf(&buf, "DISCARD:%s|%s\n", deck.Kind, sortedIDs(deck.Discard))
	}
	for _, fx := range s.FieldEffects.Entries {
		fmt.Fprintf(&buf, "FIELD:%s|%s|%d\n", fx.Name, fx.ParticipantID, fx.Round)
	}
	reserved := make([]int, 0, len(s.Reserved))
	for path := range s.Reserved {
		reserved = append(reserved, path)
	}
	sort.Ints(reserved)
	for _, path := range reserved {
		fmt.Fprintf(&buf, "RESERVED:%d|%s\n", path, s.Reserved[path])
	}
	if pending := s.Pending; pending != nil {
		fmt.Fprintf(&buf, "PENDING:%s|%s|%s|%d|%s\n",
			pending.Kind, pending.ParticipantID, pending.Effect, pending.NextIndex, strings.Join(pending.Candidates, ","))
	}
	for _, path := range s.Board.Paths {
		fmt.Fprintf(&buf, "PATH:%d|%s\n", path.ID, path.OccupantID)
		for _, space := range path.Spaces {
			if space.Colored() {
				fmt.Fprintf(&buf, "  SPACE:%d|%s|%s|%t\n", space.Position, space.Color, space.Effect, space.Used)
			}
		}
	}
	return buf.String()
}

func cardID(c *cards.Card) string {
	if c == nil {
		return "-"
	}
	return c.ID
}

func pathChoice(choice *int) string {
	if choice == nil {
		return "-"
	}
	return strconv.Itoa(*choice)
}

func cardIDs(list []*cards.Card) string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	return strings.Join(ids, ",")
}

func sortedIDs(list []*cards.Card) string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
