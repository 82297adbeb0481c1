package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/client"
	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/render"
)

func newTransactionsCmd(newClient func() *client.Client) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "tail the journal entries for the account owning --token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := newClient().GetTransactions(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("get transactions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Transactions(txs))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show")
	return cmd
}
