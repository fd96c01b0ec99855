package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/game"
	"github.com/lox/blackjacktable/internal/randutil"
)

// settleDelay paces the pause between the dealer's last card and the
// round result banner
const settleDelay = 500 * time.Millisecond

// settleMsg fires after the settle pause to resolve the round
type settleMsg struct{}

// Model is the Bubble Tea model for a local blackjack table. The engine
// runs in-process; the recorder posts round transactions like the server
// does.
type Model struct {
	account   *game.Account
	round     *game.Round
	recorder  game.Recorder
	logger    *log.Logger
	seed      int64
	roundOpts []game.RoundOption

	betInput    textinput.Model
	enteringBet bool

	betStep     int
	showRules   bool
	confirmQuit bool
	headline    string
	warning     string

	width    int
	height   int
	quitting bool
}

// ModelOption configures a Model
type ModelOption func(*Model)

// WithBetStep sets the increment used by the +/- bet keys
func WithBetStep(step int) ModelOption {
	return func(m *Model) {
		m.betStep = step
	}
}

// WithSeed fixes the shuffle seed, mainly for tests
func WithSeed(seed int64) ModelOption {
	return func(m *Model) {
		m.seed = seed
	}
}

// WithRoundOptions passes options through to the underlying round, which
// lets tests stack the deck
func WithRoundOptions(opts ...game.RoundOption) ModelOption {
	return func(m *Model) {
		m.roundOpts = opts
	}
}

// NewModel creates a model for a player with the given starting balance
func NewModel(playerID string, points int, rec game.Recorder, logger *log.Logger, opts ...ModelOption) *Model {
	ti := textinput.New()
	ti.Placeholder = "bet amount"
	ti.CharLimit = 6
	ti.Width = 10
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

	account := &game.Account{ID: playerID, Points: points}
	m := &Model{
		account:  account,
		recorder: rec,
		logger:   logger.WithPrefix("tui"),
		seed:     time.Now().UnixNano(),
		betInput: ti,
		betStep:  5,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.round = game.NewRound(randutil.New(m.seed), account, m.roundOpts...)
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case settleMsg:
		m.settle()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.enteringBet {
		var cmd tea.Cmd
		m.betInput, cmd = m.betInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m.requestQuit()
	}

	if m.confirmQuit {
		switch key {
		case "y", "Y":
			m.abandon()
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		default:
			m.confirmQuit = false
		}
		return m, nil
	}

	if m.showRules {
		m.showRules = false
		return m, nil
	}

	if m.enteringBet {
		return m.handleBetEntry(msg)
	}

	switch key {
	case "q", "esc":
		return m.requestQuit()
	case "?":
		m.showRules = true
		return m, nil
	}

	switch m.round.Phase() {
	case game.PhaseBetting:
		return m.handleBettingKey(key)
	case game.PhasePlaying:
		return m.handlePlayingKey(key)
	case game.PhaseFinished:
		return m.handleFinishedKey(key)
	}
	return m, nil
}

func (m *Model) handleBettingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "1", "2", "3":
		seat, _ := strconv.Atoi(key)
		if err := m.round.ToggleSeat(seat); err != nil {
			m.warn(err)
		}
	case "+", "=":
		m.stepBets(m.betStep)
	case "-", "_":
		m.stepBets(-m.betStep)
	case "b":
		m.enteringBet = true
		m.betInput.SetValue("")
		m.betInput.Focus()
		return m, textinput.Blink
	case "d", "enter":
		m.deal()
		if m.round.NaturalShortCircuit() {
			return m, m.settleAfterPause()
		}
	}
	return m, nil
}

func (m *Model) handlePlayingKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "h":
		if _, err := m.round.Hit(); err != nil {
			m.warn(err)
			return m, nil
		}
	case "s":
		if err := m.round.Stand(); err != nil {
			m.warn(err)
			return m, nil
		}
	case "x":
		if _, err := m.round.DoubleDown(); err != nil {
			m.warn(err)
			return m, nil
		}
	default:
		return m, nil
	}

	m.warning = ""
	if !m.round.AllSeatsResolved() {
		return m, nil
	}

	if !m.round.NaturalShortCircuit() {
		if _, err := m.round.PlayDealer(); err != nil {
			m.warn(err)
			return m, nil
		}
	}
	return m, m.settleAfterPause()
}

func (m *Model) handleFinishedKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "p", "enter":
		if err := m.round.Reset(); err != nil {
			m.warn(err)
			return m, nil
		}
		m.headline = ""
		m.warning = ""
	}
	return m, nil
}

func (m *Model) handleBetEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.applyBetEntry()
		return m, nil
	case "esc":
		m.enteringBet = false
		m.betInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.betInput, cmd = m.betInput.Update(msg)
	return m, cmd
}

func (m *Model) applyBetEntry() {
	m.enteringBet = false
	m.betInput.Blur()

	amount, err := strconv.Atoi(strings.TrimSpace(m.betInput.Value()))
	if err != nil {
		m.warning = "Bet must be a number"
		return
	}
	for _, s := range m.round.ActiveSeats() {
		if err := m.round.SetBet(s.ID, amount); err != nil {
			m.warn(err)
			return
		}
	}
	m.warning = ""
}

// stepBets nudges every active seat's bet. The engine clamps to the
// playable range.
func (m *Model) stepBets(delta int) {
	for _, s := range m.round.ActiveSeats() {
		if err := m.round.SetBet(s.ID, s.Bet+delta); err != nil {
			m.warn(err)
			return
		}
	}
	m.warning = ""
}

func (m *Model) deal() {
	if err := m.round.Deal(); err != nil {
		m.warn(err)
		return
	}
	m.warning = ""
	m.headline = ""
}

func (m *Model) settleAfterPause() tea.Cmd {
	return tea.Tick(settleDelay, func(time.Time) tea.Msg {
		return settleMsg{}
	})
}

// settle resolves the finished round and posts the transaction. The
// balance applies even when recording fails; play continues with a
// warning.
func (m *Model) settle() {
	rec, err := m.round.Settle()
	if err != nil {
		m.warn(err)
		return
	}

	if rerr := m.recorder.Record(context.Background(), m.account.ID, rec); rerr != nil {
		m.logger.Warn("Failed to record game transaction", "error", rerr, "net", rec.Net)
		m.warning = "Game transaction not recorded properly"
	}
	m.account.Points += rec.Net
	m.headline = rec.Headline()
}

func (m *Model) requestQuit() (tea.Model, tea.Cmd) {
	if m.round.Phase() == game.PhasePlaying {
		m.confirmQuit = true
		return m, nil
	}
	m.quitting = true
	return m, tea.Sequence(tea.ClearScreen, tea.Quit)
}

// abandon forfeits the round in progress on a confirmed quit
func (m *Model) abandon() {
	rec, err := m.round.Abandon()
	if err != nil {
		m.logger.Error("Failed to abandon round", "error", err)
		return
	}
	if rerr := m.recorder.Record(context.Background(), m.account.ID, rec); rerr != nil {
		m.logger.Warn("Failed to record game transaction", "error", rerr, "net", rec.Net)
	}
	m.account.Points += rec.Net
	m.logger.Info("Round forfeited", "bet", rec.Bet)
}

func (m *Model) warn(err error) {
	if errors.Is(err, game.ErrInsufficientFunds) {
		m.warning = "Not enough points: top up your balance to continue"
		return
	}
	m.warning = err.Error()
}

// Balance returns the player's current points
func (m *Model) Balance() int {
	return m.account.Points
}

// Round exposes the underlying round, mainly for tests
func (m *Model) Round() *game.Round {
	return m.round
}
