package sim

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/randutil"
)

// Config holds configuration for running simulations
type Config struct {
	Rounds int
	Seats  int
	Bet    int
	Policy string
	Seed   int64
	Logger *log.Logger
}

// Simulator plays rounds against the dealer with a fixed policy and
// reports the outcome distribution
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	return &Simulator{config: config}
}

// Statistics accumulates results across simulated rounds
type Statistics struct {
	Rounds   int
	NetTotal int
	Wagered  int
	Outcomes map[game.Outcome]int
	MinNet   int
	MaxNet   int
	Aborted  int
}

// Add records one round result
func (s *Statistics) Add(rec *game.RoundRecord) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[game.Outcome]int)
	}
	s.Rounds++
	s.NetTotal += rec.Net
	s.Wagered += rec.Bet
	for _, seat := range rec.Seats {
		s.Outcomes[seat.Result]++
	}
	if rec.Net < s.MinNet {
		s.MinNet = rec.Net
	}
	if rec.Net > s.MaxNet {
		s.MaxNet = rec.Net
	}
}

// EdgePerBet returns the player's average return per point wagered.
// Negative is the house edge.
func (s *Statistics) EdgePerBet() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return float64(s.NetTotal) / float64(s.Wagered)
}

// MeanNet returns the average net per round
func (s *Statistics) MeanNet() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.NetTotal) / float64(s.Rounds)
}

// Run executes the simulation and returns results
func (s *Simulator) Run() (*Statistics, error) {
	if s.config.Seats < 1 || s.config.Seats > game.NumSeats {
		return nil, fmt.Errorf("seats must be between 1 and %d, got %d", game.NumSeats, s.config.Seats)
	}
	policy, err := policyFor(s.config.Policy)
	if err != nil {
		return nil, err
	}

	s.config.Logger.Debug("Starting simulation",
		"rounds", s.config.Rounds,
		"seats", s.config.Seats,
		"policy", s.config.Policy,
		"seed", s.config.Seed,
		"workers", runtime.NumCPU())

	// Rounds are independent, so they parallelise cleanly. Results merge
	// under a mutex; every aggregate is order-insensitive.
	var mu sync.Mutex
	stats := &Statistics{}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < s.config.Rounds; i++ {
		// Independent seed per round, so any round can be replayed alone
		roundSeed := s.config.Seed + int64(i)
		round := i + 1
		g.Go(func() error {
			rec, err := s.playRound(roundSeed, policy)
			if err != nil {
				return fmt.Errorf("round %d (seed %d): %w", round, roundSeed, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if rec == nil {
				s.config.Logger.Warn("Round aborted, shoe exhausted", "round", round, "seed", roundSeed)
				stats.Aborted++
				return nil
			}
			stats.Add(rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// playRound plays one full round with a fresh shoe. The bankroll is big
// enough that funds never gate the policy.
func (s *Simulator) playRound(seed int64, policy Policy) (*game.RoundRecord, error) {
	account := &game.Account{ID: "sim", Points: s.config.Bet * game.NumSeats * 10}
	round := game.NewRound(randutil.New(seed), account)

	for seat := 1; seat <= s.config.Seats; seat++ {
		if err := round.ToggleSeat(seat); err != nil {
			return nil, err
		}
		if err := round.SetBet(seat, s.config.Bet); err != nil {
			return nil, err
		}
	}

	if err := round.Deal(); err != nil {
		return nil, err
	}

	for round.Phase() == game.PhasePlaying && !round.AllSeatsResolved() {
		seat := round.CurrentSeat()
		if seat == nil {
			break
		}
		up, _ := round.DealerUpCard()
		switch policy(seat, up.Rank.Points()) {
		case actionHit:
			if _, err := round.Hit(); err != nil {
				return nil, err
			}
		case actionDouble:
			if _, err := round.DoubleDown(); err != nil {
				return nil, err
			}
		default:
			if err := round.Stand(); err != nil {
				return nil, err
			}
		}
	}

	if round.Aborted() {
		return nil, nil
	}

	if !round.NaturalShortCircuit() {
		if _, err := round.PlayDealer(); err != nil {
			return nil, err
		}
	}
	return round.Settle()
}

// PrintSummary prints a summary of simulation results
func PrintSummary(stats *Statistics, policy string) {
	fmt.Printf("\n=== RESULTS (%s policy) ===\n", policy)
	fmt.Printf("Rounds played: %d\n", stats.Rounds)
	if stats.Aborted > 0 {
		fmt.Printf("Rounds aborted: %d\n", stats.Aborted)
	}
	fmt.Printf("Net: %+d points over %d wagered\n", stats.NetTotal, stats.Wagered)
	fmt.Printf("Mean: %+.4f points/round\n", stats.MeanNet())
	fmt.Printf("Edge: %+.4f per point bet\n", stats.EdgePerBet())
	fmt.Printf("Range: [%+d, %+d] per round\n", stats.MinNet, stats.MaxNet)

	fmt.Printf("\n=== SEAT OUTCOMES ===\n")
	total := 0
	for _, n := range stats.Outcomes {
		total += n
	}
	for _, outcome := range []game.Outcome{
		game.OutcomeBlackjack, game.OutcomeCharlie, game.OutcomeDealerBust,
		game.OutcomeWin, game.OutcomePush, game.OutcomeLose, game.OutcomeBust,
	} {
		n := stats.Outcomes[outcome]
		if n == 0 {
			continue
		}
		fmt.Printf("%-18s %6d (%.1f%%)\n", outcome, n, float64(n)/float64(total)*100)
	}
}
