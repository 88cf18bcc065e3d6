package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Exchange and refresh Instagram access tokens",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <short-lived-token>",
		Short: "Trade a short-lived token for a long-lived one",
		Long: `Exchange a short-lived Instagram token for a long-lived token and print the
Graph response. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc *Services) error {
				result, err := svc.Tokens.ExchangeForLongLivedToken(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <account-id>",
		Short: "Refresh the long-lived token of a stored Instagram account",
		Long: `Refresh the stored token of an Instagram account. The token must be at least
24 hours old and carry the instagram_business_basic permission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(svc *Services) error {
				account, err := svc.Tokens.RefreshAccountToken(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token refreshed for %s (%s), expires %s\n",
					account.ID, account.ExternalID, formatExpiry(account.TokenExpiresAt))
				return nil
			})
		},
	})

	return cmd
}
