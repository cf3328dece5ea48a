// ABOUTME: Request/response protocol adapter: an HTTP handler that runs one turn per POST
// ABOUTME: and returns every reply sent during the turn as the response body.

package adapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/metrics"
)

const maxTurnBodyBytes = 1 << 20

// TurnResponse is the body returned for a turn.
type TurnResponse struct {
	Activities []*activity.Activity `json:"activities"`
}

// TurnAdapter serves the request/response protocol.
type TurnAdapter struct {
	senders  *Set
	pipeline *Pipeline
	handler  Handler
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// NewTurnAdapter creates the adapter and registers it as the turn protocol's sender.
func NewTurnAdapter(senders *Set, pipeline *Pipeline, handler Handler, m *metrics.Collectors, logger *slog.Logger) *TurnAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &TurnAdapter{
		senders:  senders,
		pipeline: pipeline,
		handler:  handler,
		metrics:  m,
		logger:   logger.With("component", "turn-adapter"),
	}
	senders.Register(a)
	return a
}

// Protocol implements Sender.
func (a *TurnAdapter) Protocol() Protocol { return ProtocolTurn }

// Send implements Sender. Turn replies travel in the HTTP response, so the TurnContext's
// record of sent activities is the delivery.
func (a *TurnAdapter) Send(_ context.Context, act *activity.Activity) error {
	if act == nil {
		return ErrNilActivity
	}
	return nil
}

// ServeHTTP decodes one activity, runs the turn and writes the replies.
func (a *TurnAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := a.serve(w, r)
	a.metrics.ObserveTurn(status, time.Since(start))
}

func (a *TurnAdapter) serve(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTurnBodyBytes))
	if err != nil {
		return writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	}

	act, err := Decode(ProtocolTurn, body)
	if err != nil {
		a.logger.Warn("rejecting turn", "error", err)
		return writeError(w, http.StatusBadRequest, "invalid activity")
	}

	tc := NewTurnContext(act, ProtocolTurn, a.senders)
	if err := a.pipeline.Run(r.Context(), tc, a.handler); err != nil {
		a.logger.Error("turn failed", "conversation_id", act.ConversationID(), "error", err)
		return writeError(w, http.StatusInternalServerError, "turn failed")
	}

	resp := TurnResponse{Activities: tc.Sent()}
	if resp.Activities == nil {
		resp.Activities = []*activity.Activity{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Warn("failed to write turn response", "error", err)
	}
	return http.StatusOK
}

func writeError(w http.ResponseWriter, status int, msg string) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	return status
}
