package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"warranty/internal/auth/token"
	"warranty/pkg/domain"
)

func newTokenCmd(getenv func(string) string) *cobra.Command {
	var (
		signingKey string
		issuer     string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <address>",
		Short: "Mint a development bearer token for an address",
		Long: `Mint an HS256 bearer token whose caller is the given address. The signing
key must match the server's JWT_SIGNING_KEY.`,
		Args: cobra.ExactArgs(1),
		// The token command needs no server connection.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if signingKey == "" {
				signingKey = getenv("JWT_SIGNING_KEY")
			}
			if signingKey == "" {
				return fmt.Errorf("a signing key is required (--signing-key or JWT_SIGNING_KEY)")
			}
			signed, err := token.NewJWTService(signingKey, issuer).Issue(domain.Address(args[0]), ttl)
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "HS256 signing key (env JWT_SIGNING_KEY)")
	cmd.Flags().StringVar(&issuer, "issuer", "warranty", "token issuer; must match the server")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
