package commands

import (
	"fmt"
	"sort"

	"github.com/port-experimental/dispatch-cli/internal/config"
	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/spf13/cobra"
)

// RegisterConfig registers the config command.
func RegisterConfig(rootCmd *cobra.Command) {
	var show, init bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Dispatch CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := GetGlobalFlags(cmd.Context())
			configManager := config.NewConfigManager(flags.ConfigFile)

			if init {
				if err := configManager.CreateDefaultConfig(); err != nil {
					return fmt.Errorf("failed to create configuration: %w", err)
				}
				output.SuccessPrintln(fmt.Sprintf("✓ Configuration file created at %s", configManager.ConfigPath()))
				output.Println("\nPlease edit the file and set your username and API URL.")
				return nil
			}

			if show {
				cfg, err := configManager.Load()
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}

				output.Println("\nCurrent Configuration:")
				output.Printf("Config file:     %s\n", configManager.ConfigPath())
				output.Printf("Default profile: %s\n", cfg.DefaultProfile)
				output.Printf("Session store:   %s\n", cfg.Session.Store)
				switch cfg.Session.Store {
				case config.StoreFile:
					output.Printf("Session file:    %s\n", cfg.SessionPath())
				case config.StoreRedis:
					output.Printf("Redis:           %s (key %s)\n", cfg.Session.RedisAddr, cfg.Session.RedisKey)
				}
				output.Printf("Expiry buffer:   %s\n", cfg.ExpiryBuffer())
				output.Printf("Renew at:        %.0f%% of lifetime\n", cfg.Session.RenewAt*100)
				output.Printf("Profiles: %d\n", len(cfg.Profiles))

				names := make([]string, 0, len(cfg.Profiles))
				for name := range cfg.Profiles {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					p := cfg.Profiles[name]
					output.Printf("  - %s (%s, %s)\n", name, firstNonEmpty(p.Username, "no user"), p.APIURL)
				}

				if err := cfg.Validate(); err != nil {
					output.WarningPrintln(fmt.Sprintf("\nConfiguration problem: %v", err))
				}
				return nil
			}

			output.Println("Use --show to display configuration")
			output.Println("Use --init to create a new configuration file")
			return nil
		},
	}

	configCmd.Flags().BoolVar(&show, "show", false, "Show current configuration")
	configCmd.Flags().BoolVar(&init, "init", false, "Initialize configuration file")

	rootCmd.AddCommand(configCmd)
}
