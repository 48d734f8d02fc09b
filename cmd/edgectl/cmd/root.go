package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"edge-tradesim/internal/app"
	"edge-tradesim/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "edgectl",
	Short: "Operator tool for the trading simulator backend",
	Long: `edgectl works directly against the configured database.

It reads the same environment (and .env / CONFIG_FILE) as the API server,
so it can open accounts, decide deposit and withdrawal requests and run a
settlement sweep without going through HTTP.

Examples:
  edgectl migrate
  edgectl open-account acc-1 --deposit 500 --trading 500
  edgectl deposits approve <request-id>
  edgectl sweep`,
	SilenceUsage: true,
}

var (
	dbDriver string
	dbDSN    string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "database driver override (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVarP(&dbDSN, "db", "d", "", "database DSN override")
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbDriver != "" {
		cfg.DBDriver = dbDriver
	}
	if dbDSN != "" {
		cfg.DBDSN = dbDSN
	}
	return app.New(ctx, cfg, nil)
}

// withApp opens the store for a single command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
