package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjacktable/internal/game"
)

// MessageType identifies a websocket message
type MessageType string

const (
	// Client → Server
	MessageTypeJoin       MessageType = "join"
	MessageTypeSetBet     MessageType = "set_bet"
	MessageTypeToggleSeat MessageType = "toggle_seat"
	MessageTypeDeal       MessageType = "deal"
	MessageTypeHit        MessageType = "hit"
	MessageTypeStand      MessageType = "stand"
	MessageTypeDoubleDown MessageType = "double_down"
	MessageTypePlayAgain  MessageType = "play_again"
	MessageTypeLeave      MessageType = "leave"

	// Server → Client
	MessageTypeJoined        MessageType = "joined"
	MessageTypeState         MessageType = "state"
	MessageTypeCardDealt     MessageType = "card_dealt"
	MessageTypeDealerDraw    MessageType = "dealer_draw"
	MessageTypeRoundResult   MessageType = "round_result"
	MessageTypeTopUpRequired MessageType = "top_up_required"
	MessageTypeWarning       MessageType = "warning"
	MessageTypeError         MessageType = "error"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		var err error
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type JoinData struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points,omitempty"` // falls back to the configured default
}

type SetBetData struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

type ToggleSeatData struct {
	Seat int `json:"seat"`
}

// Server → Client payloads

type JoinedData struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
	BetStep  int    `json:"betStep"`
}

// CardDealtData streams one card as it lands. Seat 0 is the dealer, whose
// hole card arrives masked until the round finishes.
type CardDealtData struct {
	Seat  int    `json:"seat"`
	Card  string `json:"card"`
	Score int    `json:"score,omitempty"`
}

type DealerDrawData struct {
	Card  string `json:"card"`
	Score int    `json:"score"`
}

// SeatState is the client-visible view of one seat
type SeatState struct {
	ID            int      `json:"id"`
	Bet           int      `json:"bet"`
	Cards         []string `json:"cards"`
	Score         int      `json:"score"`
	IsActive      bool     `json:"isActive"`
	CanDoubleDown bool     `json:"canDoubleDown"`
	DoubledDown   bool     `json:"doubledDown,omitempty"`
	Resolved      bool     `json:"resolved,omitempty"`
	Result        string   `json:"result,omitempty"`
	IsCurrent     bool     `json:"isCurrent,omitempty"`
}

// DealerState hides the hole card while seats are still playing
type DealerState struct {
	Cards        []string `json:"cards"`
	VisibleScore int      `json:"visibleScore"`
}

// StateData is a full table snapshot
type StateData struct {
	Phase   string      `json:"phase"`
	Balance int         `json:"balance"`
	Seats   []SeatState `json:"seats"`
	Dealer  DealerState `json:"dealer"`
}

type RoundResultData struct {
	Headline string            `json:"headline"`
	Record   *game.RoundRecord `json:"record"`
	Balance  int               `json:"balance"`
}

type TopUpRequiredData struct {
	Required int `json:"required"`
	Balance  int `json:"balance"`
}

type WarningData struct {
	Message string `json:"message"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const hiddenCard = "??"

// snapshotState builds the client view of a round. The dealer's second
// card stays hidden until the round finishes.
func snapshotState(round *game.Round, account *game.Account) StateData {
	seats := make([]SeatState, 0, game.NumSeats)
	current := round.CurrentSeat()
	for _, s := range round.Seats() {
		names := make([]string, len(s.Cards))
		for i, c := range s.Cards {
			names[i] = c.String()
		}
		seats = append(seats, SeatState{
			ID:            s.ID,
			Bet:           s.Bet,
			Cards:         names,
			Score:         s.Score(),
			IsActive:      s.IsActive,
			CanDoubleDown: s.CanDoubleDown,
			DoubledDown:   s.DoubledDown,
			Resolved:      s.Resolved,
			Result:        string(s.Result),
			IsCurrent:     current != nil && current.ID == s.ID,
		})
	}

	dealerCards := round.DealerCards()
	names := make([]string, len(dealerCards))
	for i, c := range dealerCards {
		if i == 1 && round.Phase() == game.PhasePlaying {
			names[i] = hiddenCard
			continue
		}
		names[i] = c.String()
	}

	return StateData{
		Phase:   round.Phase().String(),
		Balance: account.Points,
		Seats:   seats,
		Dealer: DealerState{
			Cards:        names,
			VisibleScore: round.DealerVisibleScore(),
		},
	}
}
