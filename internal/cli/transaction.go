// internal/cli/transaction.go
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

var (
	simulate     bool
	onlyDownload bool
	reinstall    bool
	allowDeps    bool
	autoremove   bool
	downloadDir  string
)

// transactionFlags builds the flags shared by the transaction commands
func transactionFlags() core.Bitfield {
	flags := core.Bits(core.TransactionFlagNone)
	if simulate {
		flags = flags.Add(core.TransactionFlagSimulate.Bit())
	}
	if onlyDownload {
		flags = flags.Add(core.TransactionFlagOnlyDownload.Bit())
	}
	if reinstall {
		flags = flags.Add(core.TransactionFlagAllowReinstall.Bit())
	}
	return flags
}

// isLocal reports whether the arguments name local package files
func isLocal(args []string) bool {
	for _, arg := range args {
		if !strings.HasSuffix(arg, ".deb") && !strings.HasSuffix(arg, ".rpm") {
			return false
		}
	}
	return len(args) > 0
}

var installCmd = &cobra.Command{
	Use:   "install [package-id|file.deb|file.rpm...]",
	Short: "Install packages or local package files",
	Long: `Install packages by id, or local .deb and .rpm files.

Examples:
  upkgd install "hello;2.10-1;x86_64;main"
  upkgd install ./hello_2.10-1_amd64.deb
  upkgd install --simulate "hello;2.10-1;x86_64;main"
  upkgd install --accept-eula=vendor-eula "vendor-tool;1.0;x86_64;nonfree"`,
	Args: cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		flags := transactionFlags()
		if isLocal(args) {
			return runJob(ctx, d, core.RoleInstallFiles, func(b *backend.Backend, job *backend.Job) {
				b.InstallFiles(job, flags, args)
			})
		}
		return runJob(ctx, d, core.RoleInstallPackages, func(b *backend.Backend, job *backend.Job) {
			b.InstallPackages(job, flags, args)
		})
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove [package-id...]",
	Short: "Remove installed packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		flags := transactionFlags()
		return runJob(ctx, d, core.RoleRemovePackages, func(b *backend.Backend, job *backend.Job) {
			b.RemovePackages(job, flags, args, allowDeps, autoremove)
		})
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update [package-id...]",
	Short: "Update packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		flags := transactionFlags()
		return runJob(ctx, d, core.RoleUpdatePackages, func(b *backend.Backend, job *backend.Job) {
			b.UpdatePackages(job, flags, args)
		})
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download [package-id...]",
	Short: "Download packages into a directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		return runJob(ctx, d, core.RoleDownloadPackages, func(b *backend.Backend, job *backend.Job) {
			b.DownloadPackages(job, args, downloadDir)
		})
	}),
}

var (
	forceRefresh bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the package cache",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		return runJob(ctx, d, core.RoleRefreshCache, func(b *backend.Backend, job *backend.Job) {
			b.RefreshCache(job, forceRefresh)
		})
	}),
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair the package system",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		flags := transactionFlags()
		return runJob(ctx, d, core.RoleRepairSystem, func(b *backend.Backend, job *backend.Job) {
			b.RepairSystem(job, flags)
		})
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, removeCmd, updateCmd, repairCmd} {
		cmd.Flags().BoolVar(&simulate, "simulate", false, "show what would happen without changing anything")
	}
	installCmd.Flags().BoolVar(&onlyDownload, "only-download", false, "download without installing")
	installCmd.Flags().BoolVar(&reinstall, "reinstall", false, "allow reinstalling installed packages")
	updateCmd.Flags().BoolVar(&onlyDownload, "only-download", false, "download without updating")
	removeCmd.Flags().BoolVar(&allowDeps, "allow-deps", false, "also remove packages that depend on these")
	removeCmd.Flags().BoolVar(&autoremove, "autoremove", false, "remove dependencies no longer needed")
	downloadCmd.Flags().StringVar(&downloadDir, "dir", ".", "destination directory")
	refreshCmd.Flags().BoolVar(&forceRefresh, "force", false, "sync even if the cache is present")
}
