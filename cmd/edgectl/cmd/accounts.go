package cmd

import (
	"context"
	"fmt"

	"edge-tradesim/internal/app"
	"edge-tradesim/internal/money"
	"edge-tradesim/internal/types"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.DB.Dialect())
			return nil
		})
	},
}

var (
	openDeposit string
	openTrading string
)

var openAccountCmd = &cobra.Command{
	Use:   "open-account <account-id>",
	Short: "Open an account, seeded with demo balances unless amounts are given",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpenAccount,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account-id>",
	Short: "Show an account's buckets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Ledger.GetBalance(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List every account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			all, err := a.Ledger.ListAccounts(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, all)
		})
	},
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <account-id> <deposit|trading> <signed-amount>",
	Short: "Credit or debit one bucket; debits stop at zero",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := money.Parse(args[2])
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			b, err := a.Ledger.Adjust(ctx, args[0], types.Bucket(args[1]), amount)
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Settle every trade that is due now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			changed, err := a.Scheduler.Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settled %d account(s)\n", len(changed))
			for _, acct := range changed {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", acct)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(openAccountCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(sweepCmd)

	openAccountCmd.Flags().StringVar(&openDeposit, "deposit", "", "initial deposit bucket (default: demo amount)")
	openAccountCmd.Flags().StringVar(&openTrading, "trading", "", "initial trading bucket (default: demo amount)")
}

func runOpenAccount(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		deposit, trading := a.Config.DemoDeposit, a.Config.DemoTrading
		var err error
		if openDeposit != "" {
			if deposit, err = money.Parse(openDeposit); err != nil {
				return fmt.Errorf("deposit: %w", err)
			}
		}
		if openTrading != "" {
			if trading, err = money.Parse(openTrading); err != nil {
				return fmt.Errorf("trading: %w", err)
			}
		}
		b, err := a.Ledger.OpenAccount(ctx, args[0], deposit, trading)
		if err != nil {
			return err
		}
		return printJSON(cmd, b)
	})
}
