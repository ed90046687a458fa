// internal/cli/repos.go
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List and manage repositories",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleGetRepoList, func(b *backend.Backend, job *backend.Job) {
			b.GetRepoList(job, filters)
		})
	}),
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable [repo-id]",
	Short: "Enable a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  daemonCommand(repoEnable(true)),
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable [repo-id]",
	Short: "Disable a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  daemonCommand(repoEnable(false)),
}

func repoEnable(enabled bool) func(context.Context, *upkgd.Daemon, []string) error {
	return func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		return runJob(ctx, d, core.RoleRepoEnable, func(b *backend.Backend, job *backend.Job) {
			b.RepoEnable(job, args[0], enabled)
		})
	}
}

var repoSetCmd = &cobra.Command{
	Use:   "set [repo-id] [parameter] [value]",
	Short: "Set repository data",
	Args:  cobra.ExactArgs(3),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		return runJob(ctx, d, core.RoleRepoSetData, func(b *backend.Backend, job *backend.Job) {
			b.RepoSetData(job, args[0], args[1], args[2])
		})
	}),
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove [repo-id]",
	Short: "Remove a repository",
	Args:  cobra.ExactArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		flags := transactionFlags()
		return runJob(ctx, d, core.RoleRepoRemove, func(b *backend.Backend, job *backend.Job) {
			b.RepoRemove(job, flags, args[0], autoremove)
		})
	}),
}

var signatureCmd = &cobra.Command{
	Use:   "import-key [key-id] [package-id]",
	Short: "Trust a repository signing key",
	Args:  cobra.ExactArgs(2),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		return runJob(ctx, d, core.RoleInstallSignature, func(b *backend.Backend, job *backend.Job) {
			b.InstallSignature(job, core.SigTypeGPG, args[0], args[1])
		})
	}),
}

func init() {
	repoRemoveCmd.Flags().BoolVar(&autoremove, "autoremove", false, "remove packages only available from this repository")
	repoRemoveCmd.Flags().BoolVar(&simulate, "simulate", false, "check without removing")

	reposCmd.AddCommand(repoEnableCmd)
	reposCmd.AddCommand(repoDisableCmd)
	reposCmd.AddCommand(repoSetCmd)
	reposCmd.AddCommand(repoRemoveCmd)
	reposCmd.AddCommand(signatureCmd)
}
