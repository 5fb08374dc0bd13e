package botauth

// types.go defines the wire types shared with the verifier service and the
// per-request state exposed to handlers.

// VerificationRequest is the JSON envelope POSTed to the verifier service.
type VerificationRequest struct {

	// HTTP method of the request being verified, upper-cased
	Method string `json:"method"`

	// Full request URL including scheme, host, path and query
	URL string `json:"url"`

	// Headers safe to disclose to the verifier (see ExtractForwardedHeaders)
	Headers map[string]string `json:"headers"`

	// Optional request body for methods that carry one
	Body string `json:"body,omitempty"`
}

// VerificationResult is the verifier service's answer.
//
// Verified defaults to false whenever the verifier omits the field or the
// call fails before a usable response is received.
type VerificationResult struct {

	// Whether the signature was judged valid
	Verified bool `json:"verified"`

	// Agent info when verified (kid, jwks_url, client_name, etc.)
	Agent map[string]any `json:"agent,omitempty"`

	// Error message when verification failed
	Error string `json:"error,omitempty"`

	// Signature creation timestamp (Unix epoch seconds)
	Created int64 `json:"created,omitempty"`

	// Signature expiration timestamp (Unix epoch seconds)
	Expires int64 `json:"expires,omitempty"`
}

// State is the per-request verification state handed to downstream handlers.
//
// It is created once per request by Engine.Evaluate and never mutated
// afterward. Result is non-nil iff Signed is true and a verification attempt
// (successful or not) was made.
type State struct {
	Signed bool
	Result *VerificationResult
}
