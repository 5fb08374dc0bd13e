package botauth

// client.go implements the client for the remote verifier service.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultVerifierURL is the hosted verifier endpoint used when no URL is
// configured.
const DefaultVerifierURL = "https://verifier.openbotauth.org/verify"

// DefaultTimeout bounds a single verifier call.
const DefaultTimeout = 5 * time.Second

// Client calls the OpenBotAuth verifier service to validate RFC 9421 HTTP
// message signatures. It holds no per-request state and is safe for
// concurrent use.
type Client struct {
	verifierURL string
	httpClient  *http.Client
}

// NewClient creates a verifier client. An empty verifierURL selects the
// hosted verifier; a non-positive timeout selects the default.
func NewClient(verifierURL string, timeout time.Duration) *Client {
	if verifierURL == "" {
		verifierURL = DefaultVerifierURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		verifierURL: verifierURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// VerifierURL returns the configured verifier endpoint.
func (c *Client) VerifierURL() string { return c.verifierURL }

// Verify checks a signed request description against the verifier service.
//
// Exactly one network call is made per invocation, bounded by the configured
// timeout - no retries, no caching. Requests missing the signature-input or
// signature header, and requests whose covered list names a sensitive header,
// are rejected locally without any network access.
//
// The returned VerificationResult is never nil. The error return is non-nil
// only for transport faults (verifier unreachable, timed out, unparseable
// response - code ErrCodeVerifierTransport); a reachable verifier that judges
// the signature invalid yields Verified=false with a nil error. Callers that
// only care about the outcome can ignore the error entirely.
func (c *Client) Verify(ctx context.Context, method, url string, headers map[string]string, body string) (*VerificationResult, error) {
	normalized := make(map[string]string, len(headers))
	for name, value := range headers {
		normalized[strings.ToLower(name)] = value
	}

	// fast rejection: unverifiable without both signature headers
	for _, required := range []string{HeaderSignatureInput, HeaderSignature} {
		if _, ok := normalized[required]; !ok {
			missing := NewMissingHeaderError(required)
			return &VerificationResult{Verified: false, Error: missing.Error()}, nil
		}
	}

	forwarded, err := ExtractForwardedHeaders(normalized)
	if err != nil {
		// an ordinary unverifiable outcome, not a fault
		return &VerificationResult{Verified: false, Error: err.Error()}, nil
	}

	envelope := VerificationRequest{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: forwarded,
		Body:    body,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		fault := WrapVerifierTransportError(err, "failed to encode verification request")
		return &VerificationResult{Verified: false, Error: fault.Error()}, fault
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifierURL, bytes.NewReader(payload))
	if err != nil {
		fault := WrapVerifierTransportError(err, "failed to build verifier request")
		return &VerificationResult{Verified: false, Error: fault.Error()}, fault
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fault := WrapVerifierTransportError(err, "verifier request failed")
		return &VerificationResult{Verified: false, Error: fault.Error()}, fault
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fault := WrapVerifierTransportError(err, "failed to read verifier response")
		return &VerificationResult{Verified: false, Error: fault.Error()}, fault
	}

	return parseVerifierResponse(resp.StatusCode, raw)
}

// VerifyReply carries the outcome of an asynchronous verification.
type VerifyReply struct {
	Result *VerificationResult
	Err    error
}

// VerifyAsync runs Verify in its own goroutine and delivers the reply on the
// returned channel. The channel is buffered so the goroutine never blocks on
// an abandoned caller. Observable behavior is identical to Verify.
func (c *Client) VerifyAsync(ctx context.Context, method, url string, headers map[string]string, body string) <-chan VerifyReply {
	ch := make(chan VerifyReply, 1)
	go func() {
		result, err := c.Verify(ctx, method, url, headers, body)
		ch <- VerifyReply{Result: result, Err: err}
	}()
	return ch
}

// parseVerifierResponse normalizes every verifier response shape into a
// VerificationResult.
//
//   - unparseable body: non-verified, transport fault naming the status code
//   - status >= 500: non-verified with the server-supplied error (or a generic
//     service error message); only the error field is read from the body
//   - anything else: fields copied directly, verified defaulting to false
func parseVerifierResponse(statusCode int, raw []byte) (*VerificationResult, error) {
	var decoded VerificationResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		fault := NewVerifierTransportError(fmt.Sprintf("Invalid verifier response: %d", statusCode))
		return &VerificationResult{Verified: false, Error: fault.Error()}, fault
	}

	if statusCode >= http.StatusInternalServerError {
		msg := decoded.Error
		if msg == "" {
			msg = "Verifier service error"
		}
		return &VerificationResult{Verified: false, Error: msg}, nil
	}

	return &decoded, nil
}
