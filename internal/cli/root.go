// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/internal/logging"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
)

var (
	cfgFile     string
	backendName string
	debug       bool
	filterFlag  []string
	acceptEulas []string
	config      *core.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "upkgd",
	Short: "Package management daemon",
	Long: `upkgd - package management daemon

Loads one backend module and runs package operations against it:
queries, installs, removals, updates and repository management.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/upkgd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "backend module to load (e.g. dummy)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&filterFlag, "filter", nil, "package filters (e.g. installed,~devel)")
	rootCmd.PersistentFlags().StringSliceVar(&acceptEulas, "accept-eula", nil, "license agreements to accept")

	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(dependsCmd)
	rootCmd.AddCommand(requiredByCmd)
	rootCmd.AddCommand(providesCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(upgradesCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	// Override config with flags
	if backendName != "" {
		config.Daemon.DefaultBackend = backendName
	}
	if debug {
		config.Debug = true
	}
}

// parseFilters turns the --filter names into a bitfield
func parseFilters(names []string) (core.Bitfield, error) {
	if len(names) == 0 {
		return core.Bits(core.FilterNone), nil
	}
	var filters core.Bitfield
	for _, name := range names {
		f := core.FilterFromString(strings.TrimSpace(name))
		if f == core.FilterUnknown {
			return 0, fmt.Errorf("unknown filter %q", name)
		}
		filters = filters.Add(f.Bit())
	}
	return filters, nil
}

// withDaemon loads the configured backend for the duration of fn.
// Interrupts cancel the context.
func withDaemon(cmd *cobra.Command, fn func(ctx context.Context, d *upkgd.Daemon) error) error {
	logger := logging.New("upkgd", config.Debug)
	d, err := upkgd.New(upkgd.Options{Config: config, Logger: &logger})
	if err != nil {
		return err
	}
	defer d.Close()

	for _, id := range acceptEulas {
		d.Backend().AcceptEula(id)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return fn(ctx, d)
}

// runJob checks the role, then runs one job with console reporting
func runJob(ctx context.Context, d *upkgd.Daemon, role core.Role, dispatch func(b *backend.Backend, job *backend.Job)) error {
	if err := d.Supports(role); err != nil {
		return err
	}
	job := backend.NewJob(ctx)
	newReporter(os.Stdout, os.Stderr, config.Debug).attach(job)
	_, err := d.Execute(ctx, job, dispatch)
	return err
}

// daemonCommand builds a RunE that runs fn inside withDaemon
func daemonCommand(fn func(ctx context.Context, d *upkgd.Daemon, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDaemon(cmd, func(ctx context.Context, d *upkgd.Daemon) error {
			return fn(ctx, d, args)
		})
	}
}
