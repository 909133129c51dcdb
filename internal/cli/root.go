// Package cli implements the vparse command-line interface.
package cli

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vparse/vparse/internal/config"
)

// Build metadata, set through -ldflags
var (
	Version  = "dev"
	Revision = ""
	BuiltAt  = ""
)

// v collects environment variables and bound flags
var v = config.NewViper()

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML configuration file")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	lo.Must0(v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")
	lo.Must0(v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format")))

	rootCmd.PersistentFlags().String("cache", config.CacheMemory, "Result cache backend (none, memory, redis, sqlite)")
	lo.Must0(v.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache")))
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("cache", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{config.CacheNone, config.CacheMemory, config.CacheRedis, config.CacheSQLite}, cobra.ShellCompDirectiveDefault
	}))
}

// rootCmd is the entry point of the vparse CLI
var rootCmd = &cobra.Command{
	Use:           "vparse",
	Short:         "Turn video page URLs into playable URLs",
	Long:          "vparse resolves video page URLs from supported platforms into playable URLs through a list of parse services, falling back from one to the next.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads the configuration selected by the --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := lo.Must(cmd.Flags().GetString("config"))
	return config.Load(path, v)
}

// Execute runs the CLI
func Execute() {
	if os.Getenv("NO_COLOR") == "" {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		handleErr(err)
	}
}

func handleErr(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "vparse: %s\n", strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
