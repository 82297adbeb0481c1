package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/client"
	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/render"
)

func newDepositCmd(newClient func() *client.Client) *cobra.Command {
	var (
		accountID string
		currency  string
		amount    int64
	)

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "credit an account using the admin key (--admin-key)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accountID == "" {
				return errors.New("--account is required")
			}
			if amount <= 0 {
				return errors.New("--amount must be positive")
			}
			account, err := newClient().Deposit(cmd.Context(), accountID, currency, amount)
			if err != nil {
				return fmt.Errorf("deposit: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Account(account))
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account id to credit")
	cmd.Flags().StringVar(&currency, "currency", "USD", "currency code (USD, USDC, ETH, BTC, SOL)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in the currency's smallest unit")
	return cmd
}
