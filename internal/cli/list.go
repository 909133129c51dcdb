package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(platformsCmd)
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List the configured parse services in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tNAME\tKIND\tPREFIX")
		for i, c := range cfg.Candidates {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, c.Name, c.Kind, c.Prefix)
		}
		return w.Flush()
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the supported video platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDOMAINS\tPATTERNS")
		for _, p := range cfg.Platforms {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, strings.Join(p.Domains, ","), strings.Join(p.Patterns, " "))
		}
		return w.Flush()
	},
}
