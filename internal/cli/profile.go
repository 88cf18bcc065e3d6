package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

// profileField describes one messenger profile field managed by a command group.
type profileField struct {
	use     string
	aliases []string
	label   string
	get     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error)
	del     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error)
	set     func(ctx context.Context, p MessengerProfiles, t service.Target, data []byte) (graph.JSON, error)
}

var menuField = profileField{
	use:     "menu",
	aliases: []string{"persistent-menu"},
	label:   "persistent menu",
	get:     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error) { return p.GetPersistentMenu },
	del:     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error) { return p.DeletePersistentMenu },
	set: func(ctx context.Context, p MessengerProfiles, t service.Target, data []byte) (graph.JSON, error) {
		var menus []service.PersistentMenu
		if err := json.Unmarshal(data, &menus); err != nil {
			return nil, fmt.Errorf("parse persistent menu: %w", err)
		}
		return p.SetPersistentMenu(ctx, t, menus)
	},
}

var iceBreakerField = profileField{
	use:     "icebreakers",
	aliases: []string{"ice-breakers"},
	label:   "ice breakers",
	get:     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error) { return p.GetIceBreakers },
	del:     func(p MessengerProfiles) func(context.Context, service.Target) (graph.JSON, error) { return p.DeleteIceBreakers },
	set: func(ctx context.Context, p MessengerProfiles, t service.Target, data []byte) (graph.JSON, error) {
		var iceBreakers []service.IceBreaker
		if err := json.Unmarshal(data, &iceBreakers); err != nil {
			return nil, fmt.Errorf("parse ice breakers: %w", err)
		}
		return p.SetIceBreakers(ctx, t, iceBreakers)
	},
}

func newProfileFieldCmd(open Opener, field profileField) *cobra.Command {
	cmd := &cobra.Command{
		Use:     field.use,
		Aliases: field.aliases,
		Short:   "Manage the " + field.label + " of an Instagram account",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <account-id>",
		Short: "Print the current " + field.label,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileCall(cmd, open, args[0], func(svc *Services, t service.Target) (graph.JSON, error) {
				return field.get(svc.Profiles)(cmd.Context(), t)
			})
		},
	})

	var file string
	set := &cobra.Command{
		Use:   "set <account-id>",
		Short: "Replace the " + field.label + " from a JSON array",
		Long: `Replace the ` + field.label + ` with the JSON array read from --file, or stdin
when --file is omitted or "-".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			return runProfileCall(cmd, open, args[0], func(svc *Services, t service.Target) (graph.JSON, error) {
				return field.set(cmd.Context(), svc.Profiles, t, data)
			})
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "JSON file with the "+field.label)
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <account-id>",
		Short: "Remove the " + field.label,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileCall(cmd, open, args[0], func(svc *Services, t service.Target) (graph.JSON, error) {
				return field.del(svc.Profiles)(cmd.Context(), t)
			})
		},
	})

	return cmd
}

func runProfileCall(
	cmd *cobra.Command,
	open Opener,
	accountID string,
	call func(svc *Services, t service.Target) (graph.JSON, error),
) error {
	return withServices(cmd, open, func(svc *Services) error {
		account, err := svc.Accounts.GetAccount(cmd.Context(), accountID)
		if err != nil {
			return err
		}
		if account.Provider != model.ProviderInstagram {
			return fmt.Errorf("account %s is a %s account; messenger profile requires instagram", account.ID, account.Provider)
		}
		result, err := call(svc, service.TargetFor(account))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	})
}
