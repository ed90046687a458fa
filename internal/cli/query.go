// internal/cli/query.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

var (
	searchBy  string
	recursive bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [name...]",
	Short: "Resolve package names to package ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleResolve, func(b *backend.Backend, job *backend.Job) {
			b.Resolve(job, filters, args)
		})
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search [term...]",
	Short: "Search packages",
	Long: `Search packages by name, details, file or group.

Examples:
  upkgd search hello
  upkgd search --by=details "GNU hello"
  upkgd search --by=file /usr/bin/hello
  upkgd search --by=group programming`,
	Args: cobra.MinimumNArgs(1),
	RunE: daemonCommand(runSearch),
}

func runSearch(ctx context.Context, d *upkgd.Daemon, args []string) error {
	filters, err := parseFilters(filterFlag)
	if err != nil {
		return err
	}

	switch searchBy {
	case "name":
		return runJob(ctx, d, core.RoleSearchName, func(b *backend.Backend, job *backend.Job) {
			b.SearchNames(job, filters, args)
		})
	case "details":
		return runJob(ctx, d, core.RoleSearchDetails, func(b *backend.Backend, job *backend.Job) {
			b.SearchDetails(job, filters, args)
		})
	case "file":
		return runJob(ctx, d, core.RoleSearchFile, func(b *backend.Backend, job *backend.Job) {
			b.SearchFiles(job, filters, args)
		})
	case "group":
		return runJob(ctx, d, core.RoleSearchGroup, func(b *backend.Backend, job *backend.Job) {
			b.SearchGroups(job, filters, args)
		})
	}
	return fmt.Errorf("unknown search type %q (name, details, file, group)", searchBy)
}

var infoCmd = &cobra.Command{
	Use:   "info [package-id|file.deb|file.rpm...]",
	Short: "Show package details",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		if isLocal(args) {
			return runJob(ctx, d, core.RoleGetDetailsLocal, func(b *backend.Backend, job *backend.Job) {
				b.GetDetailsLocal(job, args)
			})
		}
		return runJob(ctx, d, core.RoleGetDetails, func(b *backend.Backend, job *backend.Job) {
			b.GetDetails(job, args)
		})
	}),
}

var filesCmd = &cobra.Command{
	Use:   "files [package-id|file.deb|file.rpm...]",
	Short: "List the files of packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		if isLocal(args) {
			return runJob(ctx, d, core.RoleGetFilesLocal, func(b *backend.Backend, job *backend.Job) {
				b.GetFilesLocal(job, args)
			})
		}
		return runJob(ctx, d, core.RoleGetFiles, func(b *backend.Backend, job *backend.Job) {
			b.GetFiles(job, args)
		})
	}),
}

var dependsCmd = &cobra.Command{
	Use:   "depends [package-id...]",
	Short: "List the dependencies of packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleDependsOn, func(b *backend.Backend, job *backend.Job) {
			b.DependsOn(job, filters, args, recursive)
		})
	}),
}

var requiredByCmd = &cobra.Command{
	Use:   "required-by [package-id...]",
	Short: "List the packages requiring packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleRequiredBy, func(b *backend.Backend, job *backend.Job) {
			b.RequiredBy(job, filters, args, recursive)
		})
	}),
}

var providesCmd = &cobra.Command{
	Use:   "provides [capability...]",
	Short: "Find packages providing a capability",
	Args:  cobra.MinimumNArgs(1),
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleWhatProvides, func(b *backend.Backend, job *backend.Job) {
			b.WhatProvides(job, filters, args)
		})
	}),
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List all packages",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleGetPackages, func(b *backend.Backend, job *backend.Job) {
			b.GetPackages(job, filters)
		})
	}),
}

var updatesCmd = &cobra.Command{
	Use:   "updates [package-id...]",
	Short: "List available updates, or show details of the given ones",
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, args []string) error {
		if len(args) > 0 {
			return runJob(ctx, d, core.RoleGetUpdateDetail, func(b *backend.Backend, job *backend.Job) {
				b.GetUpdateDetail(job, args)
			})
		}
		filters, err := parseFilters(filterFlag)
		if err != nil {
			return err
		}
		return runJob(ctx, d, core.RoleGetUpdates, func(b *backend.Backend, job *backend.Job) {
			b.GetUpdates(job, filters)
		})
	}),
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List package categories",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		return runJob(ctx, d, core.RoleGetCategories, func(b *backend.Backend, job *backend.Job) {
			b.GetCategories(job)
		})
	}),
}

var upgradesCmd = &cobra.Command{
	Use:   "distro-upgrades",
	Short: "List available distribution upgrades",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(ctx context.Context, d *upkgd.Daemon, _ []string) error {
		return runJob(ctx, d, core.RoleGetDistroUpgrades, func(b *backend.Backend, job *backend.Job) {
			b.GetDistroUpgrades(job)
		})
	}),
}

func init() {
	searchCmd.Flags().StringVar(&searchBy, "by", "name", "search type: name, details, file or group")
	dependsCmd.Flags().BoolVar(&recursive, "recursive", false, "follow dependencies recursively")
	requiredByCmd.Flags().BoolVar(&recursive, "recursive", false, "follow reverse dependencies recursively")
}
