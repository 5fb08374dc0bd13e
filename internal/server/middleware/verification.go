package middleware

// verification.go adapts the botauth decision engine to net/http: it builds
// the normalized request view, evaluates it, and either short-circuits with
// the rejection or threads the verification state to the wrapped handler.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
	"github.com/openbotauth/openbotauth-go/internal/logger"
	"github.com/openbotauth/openbotauth-go/internal/metrics"
	"github.com/openbotauth/openbotauth-go/internal/server/respond"
)

type contextKey int

const stateKey contextKey = iota

// StateFromContext returns the verification state stored by the Verification
// middleware. ok is false for requests that did not pass through it.
func StateFromContext(ctx context.Context) (botauth.State, bool) {
	state, ok := ctx.Value(stateKey).(botauth.State)
	return state, ok
}

// methods whose semantics allow a request body
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

// Verification returns a middleware that evaluates every request against the
// decision engine.
//
// Short-circuited requests receive the engine's rejection (with the decision
// marker set to "deny") and the wrapped handler never runs. All other
// requests run the handler with the verification state in the request context
// and the allow/observe marker stamped on the response. For body-bearing
// methods the body is buffered before verification and restored afterwards,
// so downstream handlers read it unchanged.
//
// m may be nil to disable metrics collection.
func Verification(engine *botauth.Engine, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view := botauth.RequestView{
				Method:  r.Method,
				URL:     requestURL(r),
				Headers: flattenHeaders(r),
			}

			if bodyMethods[r.Method] && r.Body != nil {
				bodyBytes, err := io.ReadAll(r.Body)
				if err != nil {
					var maxBytesErr *http.MaxBytesError
					if errors.As(err, &maxBytesErr) {
						respond.WithError(w, r, botauth.NewRequestTooLargeError(
							fmt.Sprintf("Request body exceeds maximum allowed size (%d bytes)", maxBytesErr.Limit),
						))
						return
					}
					respond.WithError(w, r, botauth.WrapInternalError(err, "failed to read request body"))
					return
				}
				r.Body.Close() //nolint:errcheck

				// keep the original body available to downstream handlers
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
				view.Body = string(bodyBytes)
			}

			start := time.Now()
			decision := engine.Evaluate(r.Context(), view)

			recordDecision(m, decision, time.Since(start))

			if decision.State.Signed {
				logger.ContextWithLogAttrs(r.Context(),
					slog.String("oba_decision", string(decision.Marker)),
				)
			}

			if decision.Reject != nil {
				w.Header().Set(botauth.DecisionHeader, string(botauth.MarkerDeny))
				respond.WithJSON(w, decision.Reject.StatusCode, decision.Reject.Body)
				return
			}

			if decision.Marker != "" {
				w.Header().Set(botauth.DecisionHeader, string(decision.Marker))
			}

			ctx := context.WithValue(r.Context(), stateKey, decision.State)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func recordDecision(m *metrics.Metrics, decision botauth.Decision, elapsed time.Duration) {
	if m == nil {
		return
	}

	marker := string(decision.Marker)
	if marker == "" {
		marker = "none"
	}
	m.IncDecisions(marker)

	// verifier calls happen only for signed requests
	if !decision.State.Signed || decision.State.Result == nil {
		return
	}

	m.ObserveVerificationDuration(elapsed.Seconds())

	switch {
	case decision.State.Result.Verified:
		m.IncVerifications(metrics.ResultVerified)
	case decision.Fault != nil:
		m.IncVerifications(metrics.ResultTransportFault)
	default:
		m.IncVerifications(metrics.ResultRejected)
	}
}

// flattenHeaders converts the request headers into the case-insensitive
// single-valued view the decision engine expects. Multi-valued headers are
// joined with ", " per RFC 9110. The Host header is surfaced explicitly since
// net/http strips it from the header map.
func flattenHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}
	return headers
}

// requestURL reconstructs the full request URL as seen by the client.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
