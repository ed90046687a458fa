// internal/cli/history.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past transactions",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		return runJob(ctx, d, core.RoleGetOldTransactions, func(b *backend.Backend, job *backend.Job) {
			b.GetOldTransactions(job, historyLimit)
		})
	}),
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of transactions to show (0 for all)")
}
