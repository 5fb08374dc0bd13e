package botauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, mode Mode, verifierResponse string, statusCode int) *Engine {
	t.Helper()

	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(verifierResponse))
	}))
	t.Cleanup(verifier.Close)

	return NewEngine(NewClient(verifier.URL, time.Second), mode, nil)
}

func signedView() RequestView {
	return RequestView{
		Method: "GET",
		URL:    "https://example.com/api",
		Headers: map[string]string{
			"signature-input": `sig=("host");created=123`,
			"signature":       "base64==",
			"host":            "example.com",
		},
	}
}

func unsignedView() RequestView {
	return RequestView{
		Method:  "GET",
		URL:     "https://example.com/api",
		Headers: map[string]string{"host": "example.com", "user-agent": "curl"},
	}
}

func TestEvaluateUnsigned(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		wantMarker Marker
		wantReject bool
	}{
		{"observe mode proceeds without marker", ModeObserve, "", false},
		{"require mode rejects", ModeRequire, MarkerDeny, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the verifier must never be contacted for unsigned requests;
			// pointing the client at a closed server proves it
			verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("verifier called for unsigned request")
			}))
			verifier.Close()

			engine := NewEngine(NewClient(verifier.URL, time.Second), tt.mode, nil)
			decision := engine.Evaluate(context.Background(), unsignedView())

			if decision.State.Signed {
				t.Error("state must be unsigned")
			}
			if decision.State.Result != nil {
				t.Error("unsigned requests carry no verification result")
			}
			if decision.Marker != tt.wantMarker {
				t.Errorf("marker: got %q, want %q", decision.Marker, tt.wantMarker)
			}

			if !tt.wantReject {
				if decision.Reject != nil {
					t.Errorf("unexpected rejection: %+v", decision.Reject)
				}
				return
			}

			if decision.Reject == nil {
				t.Fatal("expected rejection")
			}
			if decision.Reject.StatusCode != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", decision.Reject.StatusCode)
			}
			if decision.Reject.Body.Error != "Missing OpenBotAuth signature headers" {
				t.Errorf("body error: got %q", decision.Reject.Body.Error)
			}
		})
	}
}

func TestEvaluateVerified(t *testing.T) {
	for _, mode := range []Mode{ModeObserve, ModeRequire} {
		t.Run(string(mode), func(t *testing.T) {
			engine := newTestEngine(t, mode, `{"verified": true, "agent": {"kid": "key-123"}}`, http.StatusOK)

			decision := engine.Evaluate(context.Background(), signedView())

			if decision.Reject != nil {
				t.Fatalf("verified requests are never rejected, got %+v", decision.Reject)
			}
			if decision.Marker != MarkerAllow {
				t.Errorf("marker: got %q, want allow", decision.Marker)
			}
			if !decision.State.Signed || decision.State.Result == nil {
				t.Fatal("state must be signed with a result")
			}
			if kid, _ := decision.State.Result.Agent["kid"].(string); kid != "key-123" {
				t.Errorf("agent kid: got %q", kid)
			}
		})
	}
}

func TestEvaluateVerificationFailed(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		wantMarker Marker
		wantReject bool
	}{
		{"observe mode carries state through", ModeObserve, MarkerObserve, false},
		{"require mode rejects with verifier error", ModeRequire, MarkerDeny, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, tt.mode, `{"verified": false, "error": "Invalid signature"}`, http.StatusOK)

			decision := engine.Evaluate(context.Background(), signedView())

			if !decision.State.Signed || decision.State.Result == nil {
				t.Fatal("state must be signed with a result")
			}
			if decision.State.Result.Error != "Invalid signature" {
				t.Errorf("result error: got %q", decision.State.Result.Error)
			}
			if decision.Marker != tt.wantMarker {
				t.Errorf("marker: got %q, want %q", decision.Marker, tt.wantMarker)
			}

			if !tt.wantReject {
				if decision.Reject != nil {
					t.Errorf("unexpected rejection: %+v", decision.Reject)
				}
				return
			}

			if decision.Reject == nil {
				t.Fatal("expected rejection")
			}
			if decision.Reject.Body.Error != "Invalid signature" {
				t.Errorf("rejection body: got %q, want verifier error", decision.Reject.Body.Error)
			}
		})
	}
}

func TestEvaluateTransportFaultSignal(t *testing.T) {
	verifier := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	verifier.Close()

	engine := NewEngine(NewClient(verifier.URL, time.Second), ModeObserve, nil)

	decision := engine.Evaluate(context.Background(), signedView())

	if decision.Fault == nil {
		t.Error("unreachable verifier must set the fault signal")
	}
	if decision.Marker != MarkerObserve {
		t.Errorf("marker: got %q, want observe", decision.Marker)
	}
	if decision.State.Result == nil || decision.State.Result.Verified {
		t.Errorf("expected non-verified result, got %+v", decision.State.Result)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"observe", ModeObserve, false},
		{"require", ModeRequire, false},
		{"OBSERVE", ModeObserve, false},
		{"Require", ModeRequire, false},
		{"enforce", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
