package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/metabridge/graph-connector/internal/graph"
	"github.com/metabridge/graph-connector/internal/model"
	"github.com/metabridge/graph-connector/internal/service"
)

type AccountLister interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, provider *model.Provider, limit, offset int) (*service.AccountList, error)
}

type TokenManager interface {
	ExchangeForLongLivedToken(ctx context.Context, shortLivedToken string) (graph.JSON, error)
	RefreshAccountToken(ctx context.Context, accountID string) (*model.Account, error)
}

type MessengerProfiles interface {
	SetPersistentMenu(ctx context.Context, target service.Target, menus []service.PersistentMenu) (graph.JSON, error)
	GetPersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error)
	DeletePersistentMenu(ctx context.Context, target service.Target) (graph.JSON, error)
	SetIceBreakers(ctx context.Context, target service.Target, iceBreakers []service.IceBreaker) (graph.JSON, error)
	GetIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error)
	DeleteIceBreakers(ctx context.Context, target service.Target) (graph.JSON, error)
}

type Migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
}

// Services is everything a command may touch. Close releases connections.
type Services struct {
	Accounts AccountLister
	Tokens   TokenManager
	Profiles MessengerProfiles
	Migrator Migrator
	Close    func()
}

// Opener builds Services on demand so that --help never dials a database.
type Opener func(ctx context.Context) (*Services, error)

type GlobalFlags struct {
	JSON bool
}

// NewRootCmd assembles graphctl. Output goes to cmd.OutOrStdout().
func NewRootCmd(open Opener) *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "graphctl",
		Short: "Operate the Meta Graph connector",
		Long: `graphctl runs operator tasks against the connector database and the Graph API:
schema migrations, account listing, token exchange and refresh, and the
persistent menu and ice breakers of Instagram accounts.

Configuration is read from the same environment variables as the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&flags.JSON, "json", false, "Output in JSON format")

	root.AddCommand(
		newMigrateCmd(open),
		newAccountsCmd(open, flags),
		newTokenCmd(open),
		newProfileFieldCmd(open, menuField),
		newProfileFieldCmd(open, iceBreakerField),
	)

	return root
}

// withServices opens Services for the duration of fn.
func withServices(cmd *cobra.Command, open Opener, fn func(svc *Services) error) error {
	svc, err := open(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
