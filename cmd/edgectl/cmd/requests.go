package cmd

import (
	"context"

	"edge-tradesim/internal/app"

	"github.com/spf13/cobra"
)

var depositsCmd = &cobra.Command{
	Use:   "deposits",
	Short: "List and decide deposit requests",
	Long: `Subcommands:
  list     - every deposit request, oldest first
  approve  - credit the deposit bucket and mark approved
  reject   - mark rejected with no balance change`,
}

var withdrawalsCmd = &cobra.Command{
	Use:   "withdrawals",
	Short: "List and decide withdrawal requests",
	Long: `Subcommands:
  list     - every withdrawal request, oldest first
  approve  - release the locked amount and mark approved
  reject   - release the lock, refund the deposit bucket and mark rejected`,
}

func decideCmd(use, short string, fn func(ctx context.Context, a *app.App, id string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <request-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := fn(ctx, a, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
}

func listCmd(short string, fn func(ctx context.Context, a *app.App) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := fn(ctx, a)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
}

func init() {
	rootCmd.AddCommand(depositsCmd)
	rootCmd.AddCommand(withdrawalsCmd)

	depositsCmd.AddCommand(listCmd("List deposit requests", func(ctx context.Context, a *app.App) (any, error) {
		return a.Requests.ListAllDeposits(ctx)
	}))
	depositsCmd.AddCommand(decideCmd("approve", "Approve a pending deposit", func(ctx context.Context, a *app.App, id string) (any, error) {
		return a.Requests.ApproveDeposit(ctx, id)
	}))
	depositsCmd.AddCommand(decideCmd("reject", "Reject a pending deposit", func(ctx context.Context, a *app.App, id string) (any, error) {
		return a.Requests.RejectDeposit(ctx, id)
	}))

	withdrawalsCmd.AddCommand(listCmd("List withdrawal requests", func(ctx context.Context, a *app.App) (any, error) {
		return a.Requests.ListAllWithdrawals(ctx)
	}))
	withdrawalsCmd.AddCommand(decideCmd("approve", "Approve a pending withdrawal", func(ctx context.Context, a *app.App, id string) (any, error) {
		return a.Requests.ApproveWithdrawal(ctx, id)
	}))
	withdrawalsCmd.AddCommand(decideCmd("reject", "Reject a pending withdrawal", func(ctx context.Context, a *app.App, id string) (any, error) {
		return a.Requests.RejectWithdrawal(ctx, id)
	}))
}
