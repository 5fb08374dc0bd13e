package server

// handlers.go implements the gateway's demo endpoints. /protected and
// /api/secret show how downstream handlers consume the verification state;
// /public runs behind the same middleware but never requires a signature.

import (
	"net/http"
	"time"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
	"github.com/openbotauth/openbotauth-go/internal/server/middleware"
	"github.com/openbotauth/openbotauth-go/internal/server/respond"
	"github.com/openbotauth/openbotauth-go/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respond.WithJSON(w, http.StatusOK, version.Get())
}

func (s *Server) handlePublic(w http.ResponseWriter, r *http.Request) {
	respond.WithJSON(w, http.StatusOK, map[string]string{
		"message": "Public access - no signature required",
	})
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	result, ok := verifiedResult(r)
	if !ok {
		respondNotVerified(w, r)
		return
	}

	respond.WithJSON(w, http.StatusOK, map[string]any{
		"message":   "Access granted",
		"agent":     result.Agent,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"resource":  "protected-data",
	})
}

func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	result, ok := verifiedResult(r)
	if !ok {
		respondNotVerified(w, r)
		return
	}

	respond.WithJSON(w, http.StatusOK, map[string]any{
		"message": "Secret data",
		"agent":   result.Agent,
		"data": map[string]any{
			"secret": "This is protected information",
			"value":  42,
		},
	})
}

// verifiedResult returns the verification result when the request carried a
// signature that verified.
func verifiedResult(r *http.Request) (*botauth.VerificationResult, bool) {
	state, ok := middleware.StateFromContext(r.Context())
	if !ok || !state.Signed || state.Result == nil || !state.Result.Verified {
		return nil, false
	}
	return state.Result, true
}

// respondNotVerified rejects a request whose state is unsigned or failed
// verification. In require mode the middleware rejects these before the
// handler runs; this path is for observe mode, where handlers decide.
func respondNotVerified(w http.ResponseWriter, r *http.Request) {
	state, ok := middleware.StateFromContext(r.Context())

	msg := "Signature required"
	if ok && state.Signed && state.Result != nil && state.Result.Error != "" {
		msg = state.Result.Error
	}

	respond.WithError(w, r, botauth.NewVerifierRejectedError(msg))
}
