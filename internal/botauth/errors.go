package botauth

// errors.go defines the error codes used on the verification request path.

import "fmt"

// AuthError represents a structured error from the botauth package.
type AuthError struct {
	// code identifies the failure class
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *AuthError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *AuthError) Code() ErrorCode { return e.code }
func (e *AuthError) Unwrap() error   { return e.wrapped }

// ErrorCode classifies failures on the verification request path.
//
// All of these are request-scoped and recoverable: they affect only the
// current request's decision and never crash the process.
type ErrorCode int

const (

	// ErrCodeMissingHeader is used when some but not all of the required
	// signature headers are present - the request cannot be verified and no
	// verifier call is made.
	ErrCodeMissingHeader ErrorCode = iota + 1

	// ErrCodeSensitiveHeader is used when the Signature-Input covered list
	// names a credential-bearing header. Forwarding the request would leak the
	// credential, so nothing is forwarded at all.
	ErrCodeSensitiveHeader

	// ErrCodeVerifierTransport is used when the verifier service is
	// unreachable, times out, or returns a response that cannot be parsed.
	// Distinct from ErrCodeVerifierRejected so callers can tell "unreachable"
	// from "signature invalid" apart.
	ErrCodeVerifierTransport

	// ErrCodeVerifierRejected is used when the verifier was reached and judged
	// the signature invalid.
	ErrCodeVerifierRejected

	// ErrCodeRateLimitExceeded is used when the gateway rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge

	// ErrCodeInternalError is used when an unexpected server-side failure
	// occurs (e.g. the request body could not be read)
	ErrCodeInternalError
)

// NewMissingHeaderError creates an error naming a required signature header
// that is absent from the request.
//
// The returned error will have code ErrCodeMissingHeader.
func NewMissingHeaderError(header string) error {
	return &AuthError{code: ErrCodeMissingHeader, message: fmt.Sprintf("Missing %s header", header)}
}

// NewSensitiveHeaderError creates an error naming a credential-bearing header
// that appears in the Signature-Input covered list.
//
// The returned error will have code ErrCodeSensitiveHeader.
func NewSensitiveHeaderError(header string) error {
	return &AuthError{
		code: ErrCodeSensitiveHeader,
		message: fmt.Sprintf(
			"Sensitive header '%s' is covered by Signature-Input. Cannot forward request to verifier - this may leak credentials.",
			header),
	}
}

// NewVerifierTransportError creates a transport fault error.
// Use this when the verifier service could not be reached or did not produce a
// usable response.
//
// The returned error will have code ErrCodeVerifierTransport.
func NewVerifierTransportError(msg string) error {
	return &AuthError{code: ErrCodeVerifierTransport, message: msg}
}

// WrapVerifierTransportError wraps an existing error as a transport fault.
// Use this for network-level failures (timeout, connection refused, DNS).
//
// The returned error will have code ErrCodeVerifierTransport.
func WrapVerifierTransportError(err error, msg string) error {
	return &AuthError{code: ErrCodeVerifierTransport, message: msg, wrapped: err}
}

// NewVerifierRejectedError creates an error carrying the verifier's reason for
// judging a signature invalid.
//
// The returned error will have code ErrCodeVerifierRejected.
func NewVerifierRejectedError(msg string) error {
	return &AuthError{code: ErrCodeVerifierRejected, message: msg}
}

// NewRateLimitError creates a rate limit exceeded error.
//
// The returned error will have code ErrCodeRateLimitExceeded.
func NewRateLimitError(msg string) error {
	return &AuthError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
//
// The returned error will have code ErrCodeRequestTooLarge.
func NewRequestTooLargeError(msg string) error {
	return &AuthError{code: ErrCodeRequestTooLarge, message: msg}
}

// WrapInternalError wraps an unexpected server-side failure.
//
// The returned error will have code ErrCodeInternalError.
func WrapInternalError(err error, msg string) error {
	return &AuthError{code: ErrCodeInternalError, message: msg, wrapped: err}
}
