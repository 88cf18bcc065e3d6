package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/metabridge/graph-connector/internal/model"
)

func newAccountsCmd(open Opener, global *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Inspect connected accounts",
	}

	var flags struct {
		Provider string
		Limit    int
		Offset   int
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List connected Facebook Pages and Instagram accounts",
		Long: `List connected accounts, newest first.

Examples:
  graphctl accounts list
  graphctl accounts list --provider instagram --limit 20
  graphctl accounts list --json | jq '.items[].externalId'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var provider *model.Provider
			if flags.Provider != "" {
				p := model.Provider(flags.Provider)
				provider = &p
			}

			return withServices(cmd, open, func(svc *Services) error {
				result, err := svc.Accounts.ListAccounts(cmd.Context(), provider, flags.Limit, flags.Offset)
				if err != nil {
					return err
				}
				if global.JSON {
					return printJSON(cmd.OutOrStdout(), result)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPROVIDER\tEXTERNAL ID\tNAME\tTOKEN EXPIRES")
				for _, a := range result.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Provider, a.ExternalID, a.Name, formatExpiry(a.TokenExpiresAt))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d account(s)\n", len(result.Items), result.Total)
				return nil
			})
		},
	}
	list.Flags().StringVar(&flags.Provider, "provider", "", "Filter by provider (facebook, instagram)")
	list.Flags().IntVar(&flags.Limit, "limit", 0, "Maximum number of accounts")
	list.Flags().IntVar(&flags.Offset, "offset", 0, "Number of accounts to skip")

	cmd.AddCommand(list)
	return cmd
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
