package rules

import "testing"

func TestTurnManagerAdvanceSkipsInactive(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob", " ", "Carol"})
	if len(tm.TurnOrder) != 3 {
		t.Fatalf("expected blank seats to be dropped, got %v", tm.TurnOrder)
	}

	tm.StartRound("Alice")
	if tm.Current() != "Alice" {
		t.Fatalf("expected Alice to start, got %s", tm.Current())
	}

	eliminated := map[string]bool{"Bob": true}
	next := tm.Advance(func(id string) bool { return !eliminated[id] })
	if next != "Carol" {
		t.Fatalf("expected Carol after skipping Bob, got %s", next)
	}
	next = tm.Advance(func(id string) bool { return !eliminated[id] })
	if next != "Alice" {
		t.Fatalf("expected turn to wrap to Alice, got %s", next)
	}

	none := tm.Advance(func(string) bool { return false })
	if none != "" {
		t.Fatalf("expected no active participant, got %s", none)
	}
}

func TestTurnManagerPassDetection(t *testing.T) {
	tm := NewTurnManager([]string{"Alice", "Bob"})
	tm.StartRound("Bob")
	if tm.Round != 1 {
		t.Fatalf("expected round 1, got %d", tm.Round)
	}

	if tm.EndTurn(true, 2) {
		t.Fatalf("a turn with a play must not end the round")
	}
	if tm.EndTurn(false, 2) {
		t.Fatalf("one pass out of two must not end the round")
	}
	if tm.EndTurn(true, 2) {
		t.Fatalf("a play must reset the pass counter")
	}
	if tm.ConsecutivePasses != 0 {
		t.Fatalf("expected pass counter reset, got %d", tm.ConsecutivePasses)
	}
	tm.EndTurn(false, 2)
	if !tm.EndTurn(false, 2) {
		t.Fatalf("expected round to end after every participant passed")
	}
	if tm.TurnCounter != 5 {
		t.Fatalf("expected 5 turns counted, got %d", tm.TurnCounter)
	}

	tm.StartRound("Alice")
	if tm.ConsecutivePasses != 0 || tm.Current() != "Alice" || tm.Round != 2 {
		t.Fatalf("unexpected state after new round: %+v", tm)
	}
}

func TestTurnManagerOrderFrom(t *testing.T) {
	tm := NewTurnManager([]string{"A", "B", "C", "D"})
	got := tm.OrderFrom("C")
	want := []string{"C", "D", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	cp := tm.Copy()
	cp.TurnOrder[0] = "Z"
	if tm.TurnOrder[0] != "A" {
		t.Fatalf("copy must not share the turn order")
	}
}

func TestPhaseText(t *testing.T) {
	var p Phase
	if err := p.UnmarshalText([]byte("round_summary")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != PhaseRoundSummary {
		t.Fatalf("expected ROUND_SUMMARY, got %s", p)
	}
	if PhaseAwaitingInput.String() != "AWAITING_INPUT" {
		t.Fatalf("unexpected name %s", PhaseAwaitingInput)
	}
}
