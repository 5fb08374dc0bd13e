package botauth

// headers.go implements Signature-Input parsing and the privacy-safe header
// forwarding policy.

import (
	"regexp"
	"strings"
)

// Signature header names (lowercase).
const (
	HeaderSignatureInput = "signature-input"
	HeaderSignature      = "signature"
	HeaderSignatureAgent = "signature-agent"
)

// SignatureHeaders are the headers that mark a request as signed. They are
// always forwarded to the verifier when present.
var SignatureHeaders = []string{HeaderSignatureInput, HeaderSignature, HeaderSignatureAgent}

// SensitiveHeaders must never be forwarded to the verifier.
var SensitiveHeaders = map[string]bool{
	"cookie":              true,
	"authorization":       true,
	"proxy-authorization": true,
	"www-authenticate":    true,
}

// matches the quoted-token list in e.g. sig1=("@method" "host");created=123
var coveredListPattern = regexp.MustCompile(`\(([^)]*)\)`)

// ParseCoveredComponents extracts the covered component identifiers from a
// Signature-Input header value.
//
// RFC 9421 Signature-Input format:
//
//	sig1=("@method" "@target-uri" "host" "content-type");created=...;keyid=...
//
// The identifiers inside the parentheses are returned lowercased, unquoted and
// in source order (duplicates are kept). A value with no parenthesized list,
// or an empty one, yields no components - that is valid input meaning nothing
// was declared as covered, not an error. No other structured-field parameters
// (created, keyid, alg) are interpreted here.
func ParseCoveredComponents(signatureInput string) []string {
	match := coveredListPattern.FindStringSubmatch(signatureInput)
	if match == nil {
		return nil
	}

	var components []string
	for _, item := range strings.Fields(match[1]) {
		item = strings.Trim(item, `"`)
		if item != "" {
			components = append(components, strings.ToLower(item))
		}
	}
	return components
}

// HasSignatureHeaders reports whether any of the three signature headers is
// present. Header name lookup is case-insensitive.
func HasSignatureHeaders(headers map[string]string) bool {
	for name := range headers {
		name = strings.ToLower(name)
		for _, sigHeader := range SignatureHeaders {
			if name == sigHeader {
				return true
			}
		}
	}
	return false
}

// ExtractForwardedHeaders selects the headers that are safe to forward to the
// verifier service.
//
// Rules:
//  1. signature-input, signature and signature-agent are always included when
//     present, whether or not they appear in the covered list
//  2. headers named in the Signature-Input covered list are included when
//     present; absent covered headers are silently skipped
//  3. derived components (starting with "@") are never looked up as headers
//  4. if the covered list names a sensitive header the whole extraction fails
//     with an ErrCodeSensitiveHeader error and NO headers are forwarded,
//     including the signature headers
//
// The covered list is scanned in full before anything is copied so a
// violation discovered late cannot leave a partially-built set behind.
// Returned keys are lowercase.
func ExtractForwardedHeaders(headers map[string]string) (map[string]string, error) {
	normalized := make(map[string]string, len(headers))
	for name, value := range headers {
		normalized[strings.ToLower(name)] = value
	}

	var covered []string
	if sigInput, ok := normalized[HeaderSignatureInput]; ok {
		covered = ParseCoveredComponents(sigInput)

		for _, component := range covered {
			if strings.HasPrefix(component, "@") {
				continue
			}
			if SensitiveHeaders[component] {
				return nil, NewSensitiveHeaderError(component)
			}
		}
	}

	forwarded := make(map[string]string)

	for _, sigHeader := range SignatureHeaders {
		if value, ok := normalized[sigHeader]; ok {
			forwarded[sigHeader] = value
		}
	}

	for _, component := range covered {
		if strings.HasPrefix(component, "@") {
			continue
		}
		if SensitiveHeaders[component] {
			continue
		}
		if value, ok := normalized[component]; ok {
			forwarded[component] = value
		}
	}

	return forwarded, nil
}
