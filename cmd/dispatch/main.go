package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/port-experimental/dispatch-cli/internal/commands"
	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildDate = "unknown"
	commit    = "unknown"
)

func init() {
	// Try to get build info from runtime
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && commit == "unknown" {
					commit = setting.Value
					if len(commit) > 7 {
						commit = commit[:7]
					}
				}
				if setting.Key == "vcs.time" && buildDate == "unknown" {
					buildDate = setting.Value
				}
			}
		}
	}

	commands.SetBuildInfo(commands.BuildInfo{
		Version:   version,
		BuildDate: buildDate,
		Commit:    commit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch CLI - orders, products and inventory from the terminal",
		Long: `Dispatch CLI - orders, products and inventory from the terminal

Log in once with ` + "`dispatch login`" + `; the session is stored locally and renewed
automatically while commands run.

Settings can be provided via:
  1. CLI flags (--profile, --api-url) - highest priority
  2. Environment variables (DISPATCH_PROFILE, DISPATCH_API_URL, ...)
  3. Configuration file (~/.dispatch/config.yaml)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	var (
		configFile string
		profile    string
		apiURL     string
		debug      bool
		noColor    bool
		quiet      bool
		verbose    bool
	)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Profile to use (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Dispatch API URL (overrides config/env)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().MarkHidden("debug")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Store global flags in context and initialize color output
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		output.Init(noColor)

		if quiet {
			output.SetVerbosity(output.QuietLevel)
		} else if verbose {
			output.SetVerbosity(output.VerboseLevel)
		} else {
			output.SetVerbosity(output.NormalLevel)
		}

		cmd.SetContext(commands.WithGlobalFlags(cmd.Context(), commands.GlobalFlags{
			ConfigFile: configFile,
			Profile:    profile,
			APIURL:     apiURL,
			Debug:      debug,
			NoColor:    noColor,
			Quiet:      quiet,
			Verbose:    verbose,
		}))
	}

	commands.RegisterAuth(rootCmd)
	commands.RegisterOrders(rootCmd)
	commands.RegisterProducts(rootCmd)
	commands.RegisterInventory(rootCmd)
	commands.RegisterProbe(rootCmd)
	commands.RegisterVersion(rootCmd)
	commands.RegisterConfig(rootCmd)
	commands.RegisterCompletion(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		// Initialize output in case PreRun didn't execute
		output.Init(noColor)
		formattedErr := output.FormatError(err)
		if formattedErr != "" {
			output.ErrorPrintf("%s\n", formattedErr)
		} else {
			output.ErrorPrintf("%s: %v\n", output.Error("Error"), err)
		}
		os.Exit(1)
	}
}
