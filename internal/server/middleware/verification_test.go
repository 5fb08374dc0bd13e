package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
)

// newVerifier starts a fake verifier service answering with the given JSON.
func newVerifier(t *testing.T, response string) *httptest.Server {
	t.Helper()
	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(verifier.Close)
	return verifier
}

// newRouter wires the verification middleware around a handler that records
// whether it ran and what state it saw.
func newRouter(engine *botauth.Engine, handlerRan *bool, seenState *botauth.State) http.Handler {
	router := chi.NewRouter()
	router.Use(Verification(engine, nil))
	router.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		*handlerRan = true
		if state, ok := StateFromContext(r.Context()); ok {
			*seenState = state
		}
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func addSignatureHeaders(req *http.Request) {
	req.Header.Set("Signature-Input", `sig=("host");created=123`)
	req.Header.Set("Signature", "base64==")
	req.Header.Set("Signature-Agent", "https://registry.openbotauth.org/jwks/test.json")
}

func TestVerificationUnsignedObserve(t *testing.T) {
	verifier := newVerifier(t, `{"verified": true}`)
	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeObserve, nil)

	var handlerRan bool
	var state botauth.State
	router := newRouter(engine, &handlerRan, &state)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if !handlerRan {
		t.Fatal("handler must run for unsigned requests in observe mode")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rr.Code)
	}
	if state.Signed {
		t.Error("state must be unsigned")
	}
	if state.Result != nil {
		t.Error("unsigned requests carry no result")
	}
	if marker := rr.Header().Get(botauth.DecisionHeader); marker != "" {
		t.Errorf("unsigned observe requests carry no marker, got %q", marker)
	}
}

func TestVerificationUnsignedRequire(t *testing.T) {
	verifier := newVerifier(t, `{"verified": true}`)
	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeRequire, nil)

	var handlerRan bool
	var state botauth.State
	router := newRouter(engine, &handlerRan, &state)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if handlerRan {
		t.Fatal("handler must never run for rejected requests")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rr.Code)
	}
	if marker := rr.Header().Get(botauth.DecisionHeader); marker != "deny" {
		t.Errorf("marker: got %q, want deny", marker)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("rejection body is not JSON: %v", err)
	}
	if body.Error == "" {
		t.Error("rejection body must carry an error field")
	}
}

func TestVerificationVerified(t *testing.T) {
	for _, mode := range []botauth.Mode{botauth.ModeObserve, botauth.ModeRequire} {
		t.Run(string(mode), func(t *testing.T) {
			verifier := newVerifier(t, `{"verified": true, "agent": {"kid": "key-123"}}`)
			engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), mode, nil)

			var handlerRan bool
			var state botauth.State
			router := newRouter(engine, &handlerRan, &state)

			req := httptest.NewRequest("GET", "/test", nil)
			addSignatureHeaders(req)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if !handlerRan {
				t.Fatal("handler must run for verified requests")
			}
			if marker := rr.Header().Get(botauth.DecisionHeader); marker != "allow" {
				t.Errorf("marker: got %q, want allow", marker)
			}
			if !state.Signed || state.Result == nil {
				t.Fatal("handler must see signed state with a result")
			}
			if kid, _ := state.Result.Agent["kid"].(string); kid != "key-123" {
				t.Errorf("agent kid: got %q, want key-123", kid)
			}
		})
	}
}

func TestVerificationFailedObserve(t *testing.T) {
	verifier := newVerifier(t, `{"verified": false, "error": "Invalid signature"}`)
	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeObserve, nil)

	var handlerRan bool
	var state botauth.State
	router := newRouter(engine, &handlerRan, &state)

	req := httptest.NewRequest("GET", "/test", nil)
	addSignatureHeaders(req)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if !handlerRan {
		t.Fatal("observe mode must run the handler on failed verification")
	}
	if marker := rr.Header().Get(botauth.DecisionHeader); marker != "observe" {
		t.Errorf("marker: got %q, want observe", marker)
	}
	if !state.Signed || state.Result == nil {
		t.Fatal("handler must see the failed verification state")
	}
	if state.Result.Error != "Invalid signature" {
		t.Errorf("result error: got %q", state.Result.Error)
	}
}

func TestVerificationFailedRequire(t *testing.T) {
	verifier := newVerifier(t, `{"verified": false, "error": "Invalid signature"}`)
	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeRequire, nil)

	var handlerRan bool
	var state botauth.State
	router := newRouter(engine, &handlerRan, &state)

	req := httptest.NewRequest("GET", "/test", nil)
	addSignatureHeaders(req)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if handlerRan {
		t.Fatal("require mode must not run the handler on failed verification")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want 401", rr.Code)
	}
	if marker := rr.Header().Get(botauth.DecisionHeader); marker != "deny" {
		t.Errorf("marker: got %q, want deny", marker)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("rejection body is not JSON: %v", err)
	}
	if body.Error != "Invalid signature" {
		t.Errorf("rejection error: got %q, want the verifier's error", body.Error)
	}
}

func TestVerificationBodyReplay(t *testing.T) {
	// the verifier receives the body in the envelope AND the downstream
	// handler still reads the original, unconsumed body
	var envelope botauth.VerificationRequest
	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&envelope)
		_, _ = w.Write([]byte(`{"verified": true}`))
	}))
	t.Cleanup(verifier.Close)

	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeObserve, nil)

	var downstreamBody string
	router := chi.NewRouter()
	router.Use(Verification(engine, nil))
	router.Post("/test", func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("downstream body read failed: %v", err)
		}
		downstreamBody = string(b)
		w.WriteHeader(http.StatusOK)
	})

	payload := `{"order":"42"}`
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(payload)))
	addSignatureHeaders(req)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}
	if envelope.Body != payload {
		t.Errorf("verifier envelope body: got %q, want %q", envelope.Body, payload)
	}
	if downstreamBody != payload {
		t.Errorf("downstream body: got %q, want %q", downstreamBody, payload)
	}
}

func TestVerificationRequestURL(t *testing.T) {
	var envelope botauth.VerificationRequest
	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&envelope)
		_, _ = w.Write([]byte(`{"verified": true}`))
	}))
	t.Cleanup(verifier.Close)

	engine := botauth.NewEngine(botauth.NewClient(verifier.URL, time.Second), botauth.ModeObserve, nil)

	router := chi.NewRouter()
	router.Use(Verification(engine, nil))
	router.Get("/api/items", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "http://example.com/api/items?limit=5", nil)
	addSignatureHeaders(req)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if envelope.URL != "http://example.com/api/items?limit=5" {
		t.Errorf("envelope url: got %q", envelope.URL)
	}
	if envelope.Headers["host"] != "example.com" {
		t.Errorf("envelope host header: got %q", envelope.Headers["host"])
	}
}
