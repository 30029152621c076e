package rules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/reversus/reversus-server-go/internal/game/cards"
)

func TestIllegalActionErrorWrapsSentinel(t *testing.T) {
	err := Reject(ReasonMustPlayValue, "alice", PlayEffect("e-mais-1", "bob"), "")
	wrapped := fmt.Errorf("submit: %w", err)

	if !errors.Is(wrapped, ErrIllegalAction) {
		t.Fatalf("expected errors.Is to match ErrIllegalAction")
	}
	reason, ok := ReasonOf(wrapped)
	if !ok || reason != ReasonMustPlayValue {
		t.Fatalf("expected reason %q, got %q (%v)", ReasonMustPlayValue, reason, ok)
	}

	want := "illegal action by alice: a value card must be played first (card e-mais-1) (target bob)"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, ok := ReasonOf(errors.New("other")); ok {
		t.Fatalf("expected plain errors to carry no reason")
	}
}

func TestActionString(t *testing.T) {
	cases := []struct {
		action Action
		want   string
	}{
		{Pass(), "PASS"},
		{PlayValue("v-6-1"), "PLAY_VALUE card=v-6-1"},
		{PlayReversal("e-reversus-1", "bob", cards.AxisScore), "PLAY_EFFECT card=e-reversus-1 target=bob axis=SCORE"},
		{PlayPula("e-pula-1", "bob", 3), "PLAY_EFFECT card=e-pula-1 target=bob path=3"},
	}
	for _, tc := range cases {
		if got := tc.action.String(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}
