package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for configuration-level failures. These are returned
// (never wrapped in an envelope) because they indicate caller bugs, not
// exchange rejections.
var (
	ErrNotAuthenticated = errors.New("session not authenticated: call Authenticate first")
	ErrNoOrderHashes    = errors.New("no order hashes provided for cancellation")

	// ErrCancelOnDisconnectUnavailable maps the engine's HTTP 503 for the
	// dead-man-switch feature. Unlike other rejections it is fatal: the
	// caller relies on the timer being armed.
	ErrCancelOnDisconnectUnavailable = errors.New("cancel on disconnect is unavailable on this deployment")
)

// Envelope is the uniform result of every exchange call. Ok is true
// only for a 2xx-equivalent application status; rejections (invalid
// signatures, rejected orders) come back with Ok=false rather than as
// errors, so batch callers can inspect and continue.
type Envelope struct {
	Ok      bool            `json:"ok"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    int             `json:"code,omitempty"`
}

// Decode unmarshals the envelope's data payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope has no data (status %d: %s)", e.Status, e.Message)
	}
	return json.Unmarshal(e.Data, v)
}

// Err converts a failed envelope into an error for callers that treat
// any rejection as terminal. Returns nil when Ok.
func (e *Envelope) Err() error {
	if e.Ok {
		return nil
	}
	return fmt.Errorf("exchange returned status %d (code %d): %s", e.Status, e.Code, e.Message)
}

// apiError is the error shape the exchange uses for non-2xx responses.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
