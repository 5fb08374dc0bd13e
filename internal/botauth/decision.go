package botauth

// decision.go turns a verification outcome plus the configured enforcement
// mode into an enforcement decision.

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Mode selects how verification outcomes are enforced.
type Mode string

const (
	// ModeObserve records the verification outcome without blocking the
	// request. Handlers still run and can inspect the state.
	ModeObserve Mode = "observe"

	// ModeRequire blocks requests that are unsigned or fail verification.
	ModeRequire Mode = "require"
)

// ParseMode validates an enforcement mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeObserve:
		return ModeObserve, nil
	case ModeRequire:
		return ModeRequire, nil
	default:
		return "", fmt.Errorf("invalid enforcement mode: %q (must be observe or require)", s)
	}
}

// DecisionHeader is the response header carrying the enforcement marker.
const DecisionHeader = "X-OBA-Decision"

// Marker summarizes the enforcement outcome of a request.
type Marker string

const (
	MarkerAllow   Marker = "allow"
	MarkerObserve Marker = "observe"
	MarkerDeny    Marker = "deny"
)

// RequestView is the normalized request description supplied by the host.
type RequestView struct {
	// HTTP method
	Method string

	// Full request URL
	URL string

	// Request headers; lookup is case-insensitive
	Headers map[string]string

	// Buffered request body, empty when the request carries none. The host is
	// responsible for keeping the original body available to downstream
	// processing.
	Body string
}

// Rejection is a short-circuit response: the wrapped handler must not run and
// the host should emit this response directly.
type Rejection struct {
	StatusCode int
	Body       RejectionBody
}

// RejectionBody is the JSON body of a rejection response.
type RejectionBody struct {
	Error string `json:"error"`
}

// Decision is the result of evaluating one request.
type Decision struct {
	// Per-request verification state, for downstream handlers
	State State

	// Enforcement marker to stamp on the response. Empty for unsigned
	// requests in observe mode, where no verification was attempted.
	Marker Marker

	// Non-nil when the request must be rejected without running the handler
	Reject *Rejection

	// Non-nil when the verifier could not be reached (transport fault).
	// The State already reflects the failure; this is the secondary signal
	// for callers that need "unreachable" distinguished from "rejected".
	Fault error
}

// Engine evaluates requests against the configured enforcement mode.
//
// The engine shares no mutable state between requests; the client and mode
// are fixed at construction.
type Engine struct {
	client *Client
	mode   Mode
	logger *slog.Logger
}

// NewEngine creates a decision engine. A nil logger falls back to
// slog.Default().
func NewEngine(client *Client, mode Mode, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{client: client, mode: mode, logger: logger}
}

// Mode returns the configured enforcement mode.
func (e *Engine) Mode() Mode { return e.mode }

// Evaluate renders the enforcement decision for one request.
//
// Unsigned requests skip the verifier entirely: in observe mode they proceed
// with State{Signed: false}, in require mode they are rejected. Signed
// requests trigger exactly one verifier call; a verified outcome allows the
// request in both modes, a non-verified outcome is observed or rejected
// depending on the mode.
func (e *Engine) Evaluate(ctx context.Context, view RequestView) Decision {
	if !HasSignatureHeaders(view.Headers) {
		state := State{Signed: false}

		if e.mode == ModeRequire {
			return Decision{
				State:  state,
				Marker: MarkerDeny,
				Reject: &Rejection{
					StatusCode: http.StatusUnauthorized,
					Body:       RejectionBody{Error: "Missing OpenBotAuth signature headers"},
				},
			}
		}
		return Decision{State: state}
	}

	result, fault := e.client.Verify(ctx, view.Method, view.URL, view.Headers, view.Body)
	if fault != nil {
		e.logger.Warn("verifier transport fault",
			slog.String("component", "DecisionEngine"),
			slog.String("url", e.client.VerifierURL()),
			slog.String("error", fault.Error()),
		)
	}

	state := State{Signed: true, Result: result}

	if result.Verified {
		return Decision{State: state, Marker: MarkerAllow, Fault: fault}
	}

	if e.mode == ModeRequire {
		msg := result.Error
		if msg == "" {
			msg = "Signature verification failed"
		}
		return Decision{
			State:  state,
			Marker: MarkerDeny,
			Fault:  fault,
			Reject: &Rejection{
				StatusCode: http.StatusUnauthorized,
				Body:       RejectionBody{Error: msg},
			},
		}
	}

	return Decision{State: state, Marker: MarkerObserve, Fault: fault}
}
