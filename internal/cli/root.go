package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Options configures the root command. NewClient is swapped out in tests.
type Options struct {
	NewClient func(server, token string) Client
	Getenv    func(string) string
}

type state struct {
	server    string
	token     string
	output    string
	client    Client
	formatter Formatter
}

// NewRootCmd builds the warrantyctl command tree.
func NewRootCmd(opts Options) *cobra.Command {
	if opts.NewClient == nil {
		opts.NewClient = func(server, token string) Client { return NewHTTPClient(server, token) }
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	st := &state{}

	root := &cobra.Command{
		Use:   "warrantyctl",
		Short: "Warranty registry CLI: issue, inspect and transfer warranty certificates",
		Long: `warrantyctl talks to a warranty registry server. Sellers issue certificates
to buyers; holders transfer them; anyone can check whether a warranty is
still in force.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if st.server == "" {
				st.server = opts.Getenv("WARRANTY_SERVER")
			}
			if st.server == "" {
				st.server = "http://localhost:8080"
			}
			if st.token == "" {
				st.token = opts.Getenv("WARRANTY_TOKEN")
			}
			formatter, err := NewFormatter(st.output)
			if err != nil {
				return err
			}
			st.formatter = formatter
			st.client = opts.NewClient(st.server, st.token)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&st.server, "server", "", "registry server URL (env WARRANTY_SERVER, default http://localhost:8080)")
	root.PersistentFlags().StringVar(&st.token, "token", "", "bearer token naming the caller (env WARRANTY_TOKEN)")
	root.PersistentFlags().StringVarP(&st.output, "output", "o", "table", "output format: table, json, yaml")

	root.AddCommand(
		newCreateCmd(st),
		newGetCmd(st),
		newStatusCmd(st),
		newOwnerCmd(st),
		newTransferCmd(st),
		newCountCmd(st),
		newListCmd(st),
		newBalanceCmd(st),
		newTokenCmd(opts.Getenv),
	)
	return root
}

func (st *state) print(cmd *cobra.Command, data any) error {
	out, err := st.formatter.Format(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
