// ABOUTME: Protocol identifiers, adapter sentinel errors, and raw event decoding.
// ABOUTME: Decode is the single entry that turns either protocol's raw payload into an Activity.

package adapter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/translate"
)

// Protocol names the ingress a turn arrived on.
type Protocol string

const (
	ProtocolTurn Protocol = "turn"
	ProtocolPush Protocol = "push"
)

// DisplayName is the human-readable name used in replies and logs.
func (p Protocol) DisplayName() string {
	switch p {
	case ProtocolTurn:
		return "Bot Framework connector"
	case ProtocolPush:
		return "LivePerson"
	default:
		return string(p)
	}
}

var (
	// ErrNotSupported is returned for operations the turn's protocol cannot perform.
	ErrNotSupported = errors.New("operation not supported by this adapter")
	// ErrUnknownProtocol is returned when no adapter serves the requested protocol.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrNilActivity is returned when asked to send a nil activity.
	ErrNilActivity = errors.New("send nil activity")
)

// Decode converts a raw inbound payload into an Activity. Turn payloads are activity JSON;
// push payloads are reconciled deliveries as produced by the registry.
func Decode(p Protocol, raw []byte) (*activity.Activity, error) {
	switch p {
	case ProtocolTurn:
		var act activity.Activity
		if err := json.Unmarshal(raw, &act); err != nil {
			return nil, fmt.Errorf("decode turn activity: %w", err)
		}
		if act.Type == "" {
			return nil, errors.New("decode turn activity: missing type")
		}
		return &act, nil
	case ProtocolPush:
		var d struct {
			push.Delivery
			CustomerID string `json:"customerId"`
		}
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode push delivery: %w", err)
		}
		return translate.ToActivity(d.Delivery, d.CustomerID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, p)
	}
}
