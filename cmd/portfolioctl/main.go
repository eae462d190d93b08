// Command portfolioctl administers the portfolio backend directly against
// its database and object store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
)

// cliEnv is shared by every command in one invocation.
type cliEnv struct {
	build     func(config.Config) (*bootstrap.App, error)
	load      func() config.Config
	requireDB bool

	output string
	app    *bootstrap.App
}

func main() {
	env := &cliEnv{build: bootstrap.Build, load: config.Load, requireDB: true}
	if err := newRootCmd(env).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:   "portfolioctl",
		Short: "Administer portfolio contacts and assets",
		Long: "portfolioctl reads and updates contact submissions and maintains the\n" +
			"asset store using the same configuration as the API server.",
		SilenceUsage:       true,
		PersistentPreRunE:  env.open,
		PersistentPostRunE: env.close,
	}
	root.PersistentFlags().StringVarP(&env.output, "output", "o", "table", "output format: table, json or yaml")
	root.AddCommand(newContactsCmd(env), newAssetsCmd(env))
	return root
}

func (e *cliEnv) open(cmd *cobra.Command, args []string) error {
	switch e.output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", e.output)
	}
	app, err := e.build(e.load())
	if err != nil {
		return err
	}
	if e.requireDB && app.DB == nil {
		_ = app.Close(context.Background())
		return errors.New("DATABASE_URL is required")
	}
	e.app = app
	return nil
}

func (e *cliEnv) close(cmd *cobra.Command, args []string) error {
	if e.app == nil {
		return nil
	}
	return e.app.Close(cmd.Context())
}
