// botauth implements the OpenBotAuth request-signature decision pipeline.
//
// Inbound requests carrying RFC 9421 message-signature headers (Signature-Input,
// Signature, Signature-Agent) are not validated locally: the signature material
// and the headers it covers are forwarded to a remote verifier service which
// performs the cryptographic checks and answers with a verification result.
//
// **header forwarding**
// Only the minimum header data crosses the network boundary. The three
// signature headers are always forwarded; beyond that, only headers named in
// the Signature-Input covered-component list are included. Credential-bearing
// headers (cookie, authorization, proxy-authorization, www-authenticate) are
// never forwarded - a covered list that names one aborts the whole request
// before anything is disclosed. See headers.go.
//
// **decision engine**
// Engine.Evaluate combines the signedness check, the verifier outcome and the
// configured enforcement mode (observe or require) into a Decision: either the
// request proceeds (carrying an immutable State for downstream handlers) or it
// is short-circuited with a 401 rejection. The allow/observe/deny marker is
// exposed to clients via the X-OBA-Decision response header.
//
// **error handling**
// All failures on the request path (missing headers, policy violations,
// verifier faults) are request-scoped and surface as a non-verified result -
// they never escape as panics or fatal errors. Transport faults (verifier
// unreachable, timed out, unparseable response) are additionally reported via
// the error return of Client.Verify so callers can tell "unreachable" apart
// from "signature rejected".
package botauth
