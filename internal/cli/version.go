// internal/cli/version.go
package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arc-language/upkgd/pkg/backend"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "upkgd %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "module file: %s\n", backend.LibraryName("<name>"))
		fmt.Fprintf(out, "builtin backends: %s\n", strings.Join(backend.Registered(), ", "))
	},
}
