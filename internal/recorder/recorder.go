// Package recorder delivers round records to the platform's transaction
// backend. The backend exposes a single RPC, process_game_transaction,
// which debits or credits the player's points balance and stores the
// per-seat game data.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/game"
)

const defaultTimeout = 10 * time.Second

// transactionRequest is the RPC argument shape expected by the backend
type transactionRequest struct {
	UserID       string            `json:"user_id_input"`
	GameType     string            `json:"game_type_input"`
	BetAmount    int               `json:"bet_amount_input"`
	ResultAmount int               `json:"result_amount_input"`
	GameResult   string            `json:"game_result_input"`
	GameData     *game.RoundRecord `json:"game_data_input"`
}

// transactionResponse is the RPC result shape
type transactionResponse struct {
	Success bool `json:"success"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPRecorder posts round records to the backend RPC endpoint
type HTTPRecorder struct {
	endpoint string
	client   *http.Client
	logger   *log.Logger
}

// NewHTTPRecorder creates a recorder targeting the given RPC endpoint
func NewHTTPRecorder(endpoint string, logger *log.Logger) *HTTPRecorder {
	return &HTTPRecorder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.WithPrefix("recorder"),
	}
}

// Record implements game.Recorder. Each call corresponds to exactly one
// concluded round or abandonment; there is no retry, a failure is the
// caller's signal to warn the player (accepted-drift strategy).
func (r *HTTPRecorder) Record(ctx context.Context, userID string, rec *game.RoundRecord) error {
	body, err := json.Marshal(transactionRequest{
		UserID:       userID,
		GameType:     rec.GameType,
		BetAmount:    rec.Bet,
		ResultAmount: rec.Net,
		GameResult:   rec.Result,
		GameData:     rec,
	})
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transaction endpoint returned %s", resp.Status)
	}

	var result transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding transaction response: %w", err)
	}
	if !result.Success {
		msg := "unknown error"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return fmt.Errorf("transaction rejected: %s", msg)
	}

	r.logger.Debug("Transaction recorded",
		"user", userID,
		"bet", rec.Bet,
		"net", rec.Net,
		"result", rec.Result,
		"reason", rec.Reason)
	return nil
}

// MemoryRecorder keeps records in memory. Used for local play and tests.
type MemoryRecorder struct {
	Records []Recorded
	Err     error // returned by Record when set, for failure-path tests
}

// Recorded pairs a record with the user it was recorded for
type Recorded struct {
	UserID string
	Record *game.RoundRecord
}

// NewMemoryRecorder creates an empty in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements game.Recorder
func (m *MemoryRecorder) Record(_ context.Context, userID string, rec *game.RoundRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, Recorded{UserID: userID, Record: rec})
	return nil
}

// LogRecorder logs each transaction instead of posting it. Used when no
// backend endpoint is configured.
type LogRecorder struct {
	logger *log.Logger
}

// NewLogRecorder creates a recorder that only logs
func NewLogRecorder(logger *log.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.WithPrefix("recorder")}
}

// Record implements game.Recorder
func (l *LogRecorder) Record(_ context.Context, userID string, rec *game.RoundRecord) error {
	l.logger.Info("Transaction",
		"user", userID,
		"bet", rec.Bet,
		"net", rec.Net,
		"result", rec.Result,
		"reason", rec.Reason)
	return nil
}
