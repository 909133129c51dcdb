package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version string")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if lo.Must(cmd.Flags().GetBool("short")) {
			fmt.Fprintln(out, Version)
			return
		}

		fmt.Fprintf(out, "vparse %s\n", Version)
		if Revision != "" {
			fmt.Fprintf(out, "  revision: %s\n", Revision)
		}
		if built := strings.TrimSpace(BuiltAt); built != "" {
			fmt.Fprintf(out, "  built:    %s\n", built)
		}
		fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
	},
}
