package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openbotauth/openbotauth-go/internal/botauth"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a signed request description against the verifier service",
	Long: `Verify a signed request description against the verifier service.

Describe the request with --method, --url and repeated --header flags; the
headers the signature covers are forwarded to the verifier and the outcome is
printed as JSON. The command exits non-zero when the signature does not
verify.

Example:
  botauth verify --url https://example.com/api \
    --header 'Signature-Input: sig=("@method" "host");created=1699900000' \
    --header 'Signature: abc==' \
    --header 'Host: example.com'`,
	RunE: runVerify,
}

var (
	verifyMethod  string
	verifyURL     string
	verifyHeaders []string
	verifyBody    string
	verifierURL   string
	verifyTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyMethod, "method", "GET", "HTTP method of the request being verified")
	verifyCmd.Flags().StringVar(&verifyURL, "url", "", "Full request URL (required)")
	verifyCmd.Flags().StringArrayVar(&verifyHeaders, "header", nil, "Request header as 'Name: value' (repeatable)")
	verifyCmd.Flags().StringVar(&verifyBody, "body", "", "Request body")
	verifyCmd.Flags().StringVar(&verifierURL, "verifier-url", botauth.DefaultVerifierURL, "Verifier service endpoint")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", botauth.DefaultTimeout, "Verifier call timeout")
	_ = verifyCmd.MarkFlagRequired("url")
}

func runVerify(cmd *cobra.Command, args []string) error {
	headers := make(map[string]string, len(verifyHeaders))
	for _, header := range verifyHeaders {
		name, value, found := strings.Cut(header, ":")
		if !found {
			return fmt.Errorf("invalid --header %q: expected 'Name: value'", header)
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	client := botauth.NewClient(verifierURL, verifyTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result, err := client.Verify(ctx, verifyMethod, verifyURL, headers, verifyBody)
	if err != nil {
		return fmt.Errorf("verifier unreachable: %w", err)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(encoded))

	if !result.Verified {
		return fmt.Errorf("signature not verified: %s", result.Error)
	}
	return nil
}
