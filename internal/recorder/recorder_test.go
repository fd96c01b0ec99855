package recorder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/game"
)

func testRecord() *game.RoundRecord {
	return &game.RoundRecord{
		GameType: game.GameType,
		Reason:   game.ReasonPlayed,
		Bet:      20,
		Net:      15,
		Result:   "win",
		Seats: []game.SeatRecord{
			{ID: 1, Bet: 10, Score: 21, Result: game.OutcomeBlackjack, Net: 15},
			{ID: 2, Bet: 10, Score: 18, Result: game.OutcomePush, Net: 0},
		},
		DealerCards: []string{"10♠", "8♥"},
		DealerScore: 18,
	}
}

func TestHTTPRecorderPostsSnakeCasePayload(t *testing.T) {
	var payload map[string]json.RawMessage
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))

		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	rec := NewHTTPRecorder(srv.URL, log.New(io.Discard))
	err := rec.Record(context.Background(), "user-42", testRecord())
	require.NoError(t, err)
	require.Equal(t, 1, calls, "exactly one request per round")

	for _, key := range []string{
		"user_id_input", "game_type_input", "bet_amount_input",
		"result_amount_input", "game_result_input", "game_data_input",
	} {
		assert.Contains(t, payload, key)
	}

	var userID string
	require.NoError(t, json.Unmarshal(payload["user_id_input"], &userID))
	assert.Equal(t, "user-42", userID)

	var net int
	require.NoError(t, json.Unmarshal(payload["result_amount_input"], &net))
	assert.Equal(t, 15, net)
}

func TestHTTPRecorderBackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": {"message": "balance mismatch"}}`))
	}))
	defer srv.Close()

	rec := NewHTTPRecorder(srv.URL, log.New(io.Discard))
	err := rec.Record(context.Background(), "user-42", testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance mismatch")
}

func TestHTTPRecorderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := NewHTTPRecorder(srv.URL, log.New(io.Discard))
	err := rec.Record(context.Background(), "user-42", testRecord())
	require.Error(t, err)
}

func TestMemoryRecorder(t *testing.T) {
	m := NewMemoryRecorder()
	require.NoError(t, m.Record(context.Background(), "u1", testRecord()))
	require.Len(t, m.Records, 1)
	assert.Equal(t, "u1", m.Records[0].UserID)
	assert.Equal(t, 15, m.Records[0].Record.Net)
}
