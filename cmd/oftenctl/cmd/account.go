package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/client"
	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/render"
)

func newAccountCmd(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "show the balances of the account owning --token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := newClient().GetAccount(cmd.Context())
			if err != nil {
				return fmt.Errorf("get account: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Account(account))
			return nil
		},
	}
}
