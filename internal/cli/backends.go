// internal/cli/backends.go
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd"
	"github.com/arc-language/upkgd/pkg/backend"
	"github.com/arc-language/upkgd/pkg/core"
	"github.com/arc-language/upkgd/pkg/platform"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List compiled-in backend modules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Compiled-in backends:")
		for _, name := range backend.Registered() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Printf("\nShared objects are looked up as %s in:\n", backend.LibraryName("<name>"))
		fmt.Printf("  %s\n  %s\n", config.Daemon.LocalDir, config.Daemon.InstallDir)

		plat, err := platform.Detect()
		if err != nil {
			return fmt.Errorf("detecting platform: %w", err)
		}
		fmt.Printf("\nHost: %s\n", plat)
		return nil
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Show what the configured backend supports",
	Args:  cobra.NoArgs,
	RunE: daemonCommand(func(_ context.Context, d *upkgd.Daemon, _ []string) error {
		b := d.Backend()
		fmt.Printf("Backend:     %s\n", b.Name())
		fmt.Printf("Description: %s\n", b.Description())
		fmt.Printf("Author:      %s\n", b.Author())
		fmt.Printf("Parallel:    %s\n", core.BoolToString(b.SupportsParallelization()))
		fmt.Printf("Online:      %s\n", core.BoolToString(b.IsOnline()))
		fmt.Printf("Roles:       %s\n", core.Join[core.Role](b.GetRoles()))
		fmt.Printf("Filters:     %s\n", core.Join[core.Filter](b.GetFilters()))
		fmt.Printf("Groups:      %s\n", core.Join[core.Group](b.GetGroups()))
		fmt.Printf("Mime types:  %s\n", strings.Join(b.GetMimeTypes(), ";"))
		return nil
	}),
}
