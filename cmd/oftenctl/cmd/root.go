// Package cmd implements oftenctl's command tree (C15): a thin HTTP client
// of the gateway's own surface, grounded on
// lnilluv-openai-accounts-cli/cmd's root/wire split (a root command that
// builds one shared client, subcommands that use it).
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oftenai/often-gateway/cmd/oftenctl/internal/client"
)

// Execute runs the oftenctl root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("OFTENCTL")
	v.AutomaticEnv()
	v.SetDefault("base_url", "http://localhost:8080")

	root := &cobra.Command{
		Use:           "oftenctl",
		Short:         "oftenctl: operate an often-gateway instance from the terminal",
		Long:          "oftenctl drives a running often-gateway instance over its own HTTP surface: inspect an account, tail its transactions, and deposit funds with the admin key. It holds no direct store access.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("base-url", "", "gateway base URL (default http://localhost:8080, env OFTENCTL_BASE_URL)")
	root.PersistentFlags().String("token", "", "bearer token for the account being inspected (env OFTENCTL_TOKEN)")
	root.PersistentFlags().String("admin-key", "", "admin key for /deposit (env OFTENCTL_ADMIN_KEY)")
	_ = v.BindPFlag("base_url", root.PersistentFlags().Lookup("base-url"))
	_ = v.BindPFlag("token", root.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag("admin_key", root.PersistentFlags().Lookup("admin-key"))

	newClient := func() *client.Client {
		return client.New(v.GetString("base_url"), v.GetString("admin_key"), v.GetString("token"))
	}

	root.AddCommand(
		newAccountCmd(newClient),
		newTransactionsCmd(newClient),
		newDepositCmd(newClient),
	)

	return root
}
