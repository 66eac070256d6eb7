package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"warranty/internal/warranty/handler"
	"warranty/pkg/domain"
)

func newCreateCmd(st *state) *cobra.Command {
	var req handler.CreateCertificateRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a certificate to a buyer (the token's address is the seller)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := st.client.Create(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to create certificate: %w", err)
			}
			return st.print(cmd, handler.CreateCertificateResponse{ID: id})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.BrandName, "brand", "", "brand name")
	f.StringVar(&req.Product, "product", "", "product name")
	f.StringVar(&req.Category, "category", "", "product category")
	f.StringVar(&req.Description, "description", "", "free-form description")
	f.Int64Var(&req.Price, "price", 0, "purchase price")
	f.Int64Var(&req.WarrantyPeriod, "months", 0, "warranty period in 30-day months")
	f.StringVar(&req.BuyerAddress, "buyer", "", "buyer address (0x...)")
	return cmd
}

func newGetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <certificate-id>",
		Short: "Show a certificate with its holder and validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cert, err := st.client.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to get certificate: %w", err)
			}
			return st.print(cmd, cert)
		},
	}
}

func newStatusCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "status <certificate-id>",
		Short: "Check whether a warranty is still valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := st.client.Validity(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to check validity: %w", err)
			}
			return st.print(cmd, status)
		},
	}
}

func newOwnerCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "owner <certificate-id>",
		Short: "Show the current holder of a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			owner, err := st.client.Owner(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to look up owner: %w", err)
			}
			return st.print(cmd, owner)
		},
	}
}

func newTransferCmd(st *state) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "transfer <certificate-id>",
		Short: "Transfer a certificate to a new holder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := st.client.Transfer(cmd.Context(), id, domain.Address(from), domain.Address(to)); err != nil {
				return fmt.Errorf("failed to transfer certificate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Certificate %s transferred to %s.\n", id, to)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "current holder address")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newCountCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many certificates have been issued",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := st.client.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read token counter: %w", err)
			}
			return st.print(cmd, handler.CountResponse{TokenCounter: n})
		},
	}
}

// certificateRow is the list view of a certificate.
type certificateRow struct {
	ID        domain.CertificateID `json:"id"`
	Brand     string               `json:"brand_name"`
	Product   string               `json:"product"`
	Seller    domain.Address       `json:"seller"`
	Buyer     domain.Address       `json:"buyer"`
	Owner     domain.Address       `json:"owner"`
	Valid     bool                 `json:"valid"`
	ExpiresAt string               `json:"expires_at"`
}

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list <address>",
		Short: "List certificates where the address is seller or buyer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			certs, err := st.client.List(cmd.Context(), domain.Address(args[0]))
			if err != nil {
				return fmt.Errorf("failed to list certificates: %w", err)
			}
			if _, table := st.formatter.(TableFormatter); !table {
				return st.print(cmd, certs)
			}
			rows := make([]certificateRow, 0, len(certs))
			for _, c := range certs {
				rows = append(rows, certificateRow{
					ID:        c.ID,
					Brand:     c.BrandName,
					Product:   c.Product,
					Seller:    c.Seller,
					Buyer:     c.Buyer,
					Owner:     c.Owner,
					Valid:     c.Valid,
					ExpiresAt: c.ExpiresAt.UTC().Format("2006-01-02"),
				})
			}
			return st.print(cmd, rows)
		},
	}
}

func newBalanceCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show how many certificates an address currently holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			holder := domain.Address(args[0])
			n, err := st.client.Balance(cmd.Context(), holder)
			if err != nil {
				return fmt.Errorf("failed to read balance: %w", err)
			}
			return st.print(cmd, handler.BalanceResponse{Holder: holder, Balance: n})
		},
	}
}

func parseID(s string) (domain.CertificateID, error) {
	id, err := domain.ParseCertificateID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid certificate-id %q: %w", s, err)
	}
	return id, nil
}
