// Command simulate plays a game between bots and prints its audit trail.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/reversus/reversus-server-go/internal/config"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/ai"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	seed       = flag.Int64("seed", 0, "game seed; 0 uses the configured seed or a random one")
	modeName   = flag.String("mode", "", "solo, duo, one_vs_all or two_vs_two; empty uses the configured mode")
	personas   = flag.String("personas", "balanced,aggressive,supportive,cautious", "comma separated persona per bot")
	bots       = flag.Int("bots", 4, "number of bots")
	hazard     = flag.Bool("hazard", false, "place black spaces and track lives")
	challenge  = flag.Bool("challenge", false, "place star spaces")
	battle     = flag.Bool("battle", false, "add the doubled scoring cards")
	looping    = flag.Bool("looping", false, "wrap the board and count laps")
	inverted   = flag.Bool("inverted", false, "race from the goal space back to the first")
	asJSON     = flag.Bool("json", false, "print the final state as JSON")
	timeout    = flag.Duration("timeout", time.Minute, "give up after this long")
	verbose    = flag.Bool("v", false, "log engine activity")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level := zapcore.WarnLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	settings, err := cfg.Game.Settings()
	if err != nil {
		return err
	}
	settings.AutoContinue = true
	if *seed != 0 {
		settings.Seed = *seed
	}

	name := cfg.Game.Mode
	if *modeName != "" {
		name = *modeName
	}
	kind, err := game.ParseModeKind(name)
	if err != nil {
		return err
	}
	mode := game.Mode{
		Kind:         kind,
		Hazard:       *hazard,
		Challenge:    *challenge,
		Battle:       *battle,
		Looping:      *looping,
		InvertedGoal: *inverted,
	}

	if *bots < 2 {
		return fmt.Errorf("need at least 2 bots, got %d", *bots)
	}
	seats := botSeats(*bots, kind, strings.Split(*personas, ","))
	if kind == game.ModeOneVsAll {
		mode.HomeID = seats[0].ID
	}

	decider := ai.NewDecider(logger.Named("ai"), ai.WithPersonas(cfg.Decision.PersonaSet()))
	engine, err := game.NewGame(settings, mode, seats, logger, game.WithDecisionMaker(decider))
	if err != nil {
		return err
	}

	if !*asJSON {
		engine.Events().SubscribeTyped(rules.EventRoundResolved, func(ev rules.Event) {
			printRound(engine.State())
		})
		engine.Events().SubscribeTyped(rules.EventParticipantEliminated, func(ev rules.Event) {
			fmt.Printf("  %s is eliminated\n", ev.ParticipantID)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := engine.Start(); err != nil {
		return err
	}
	if err := engine.Advance(ctx); err != nil {
		return err
	}

	final := engine.State()
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	}
	if final.Result == nil {
		return fmt.Errorf("game stopped in phase %s", final.Phase)
	}
	fmt.Printf("\nseed %d: %s wins after %d rounds (%s)\n",
		final.Seed, teamLabel(final.Result), final.Result.Round, final.Result.Reason)
	return nil
}

func botSeats(n int, kind game.ModeKind, names []string) []game.Seat {
	seats := make([]game.Seat, 0, n)
	for i := 0; i < n; i++ {
		seat := game.Seat{
			ID:      fmt.Sprintf("bot%d", i+1),
			Persona: strings.TrimSpace(names[i%len(names)]),
		}
		seat.Name = seat.ID + " (" + seat.Persona + ")"
		switch kind {
		case game.ModeOneVsAll:
			seat.Team = "challengers"
			if i == 0 {
				seat.Team = "home"
			}
		case game.ModeTwoVsTwo:
			seat.Team = []string{"red", "blue"}[i/2%2]
		}
		seats = append(seats, seat)
	}
	return seats
}

func printRound(s *game.GameState) {
	r := s.LastRound
	if r == nil {
		return
	}
	lines := r.Audit
	if len(lines) == 0 {
		// field effects are still waiting on a target
		lines = s.Audit
	}
	fmt.Printf("round %d\n", r.Round)
	for _, line := range lines {
		fmt.Printf("  %s\n", line)
	}
	for _, p := range s.Ordered() {
		fmt.Printf("  %-24s score %3d  move %+d  space %d\n", p.Name, r.Scores[p.ID], r.Moves[p.ID], p.Position)
	}
}

func teamLabel(res *game.GameResult) string {
	if res.WinningTeam == "" {
		return "nobody"
	}
	return res.WinningTeam + " [" + strings.Join(res.Winners, ", ") + "]"
}
