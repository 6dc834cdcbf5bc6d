package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sf-attachments configuration",
		Long: `Configuration management commands for sf-attachments.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the Salesforce connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for sf-attachments.

The configuration is saved as a key,value CSV in the user config directory
(see 'config path'). Access tokens and passwords are never written to it;
use the sf CLI or environment variables for credentials.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			path := configPath()

			if !force && config.FileExists(path) {
				fmt.Printf("Configuration already exists at: %s\n", path)
				fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
				return nil
			}

			fmt.Println("sf-attachments Configuration Setup")
			fmt.Println("==================================")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			cfg := config.Defaults()

			cfg.OrgAlias = promptString(reader, "sf CLI org alias (empty = default org)", "")
			cfg.RecordsDir = promptString(reader, "Records directory", "./records")
			cfg.OutputDir = promptString(reader, "Output directory", cfg.OutputDir)

			fmt.Println()
			fmt.Println("Download Settings (press Enter for defaults)")
			fmt.Println("--------------------------------------------")
			cfg.BatchSize = promptInt(reader, "Parent ids per query", cfg.BatchSize)
			cfg.Concurrency = promptInt(reader, "Download workers", cfg.Concurrency)
			if cfg.Concurrency > constants.MaxDownloadWorkers {
				cfg.Concurrency = constants.MaxDownloadWorkers
			}

			fmt.Println()
			if promptYesNo(reader, "Configure proxy?") {
				fmt.Println()
				fmt.Println("Proxy Configuration")
				fmt.Println("-------------------")
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = promptString(reader, "Proxy mode", "system")
				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					cfg.ProxyHost = promptString(reader, "Proxy host", "")
					cfg.ProxyPort = promptInt(reader, "Proxy port", 8080)
					cfg.ProxyUser = promptString(reader, "Proxy user (optional)", "")
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info().Str("path", path).Msg("Configuration saved")

			fmt.Println()
			fmt.Printf("✓ Configuration saved to: %s\n", path)
			fmt.Println()
			fmt.Println("Log in with the Salesforce CLI if you have not already:")
			fmt.Println("  sf org login web --alias <alias>")
			fmt.Println()
			fmt.Println("Test your configuration with: sf-attachments config test")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the merged configuration from:
  1. Built-in defaults
  2. Configuration file (see 'config path')
  3. Environment variables (and the .env file)

Priority: environment > config file > defaults. Secrets are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(GetContext(), cmd, nil)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			red := cfg.Redacted()

			fmt.Println("Current Configuration")
			fmt.Println("=====================")
			fmt.Println()
			for _, kv := range red.Pairs() {
				fmt.Printf("  %-20s %s\n", kv[0]+":", kv[1])
			}
			if red.AccessToken != "" {
				fmt.Printf("  %-20s %s\n", "access_token:", red.AccessToken)
			}
			fmt.Println()

			path := configPath()
			fmt.Printf("Configuration file: %s\n", path)
			if !config.FileExists(path) {
				fmt.Println("  (file does not exist - using defaults)")
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the Salesforce connection",
		Long: `Resolve the session and run a one-row Attachment query.

Use this to verify the sf CLI login, proxy settings and network access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			fmt.Println("Testing Salesforce Connection")
			fmt.Println("=============================")
			fmt.Println()

			cfg, err := loadConfig(GetContext(), cmd, nil)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), 30*time.Second)
			defer cancel()

			client, err := newSalesforceClient(ctx, cfg, logger)
			if err != nil {
				fmt.Println("✗ Session FAILED")
				fmt.Printf("  Error: %v\n", err)
				return err
			}
			session := client.Session()
			fmt.Printf("Instance:    %s\n", session.InstanceURL)
			fmt.Printf("API version: %s\n", session.APIVersion)
			fmt.Println("Testing query...")
			fmt.Println()

			recs, err := client.QueryPage(ctx, "", 1, 0)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Println("✗ Connection FAILED")
				fmt.Printf("  Error: %v\n", err)
				return fmt.Errorf("connection test failed: %w", err)
			}

			logger.Info().Msg("Connection test successful")
			fmt.Println("✓ Connection SUCCESSFUL")
			if session.Username != "" {
				fmt.Printf("  User: %s\n", session.Username)
			}
			fmt.Printf("  Attachment query returned %d row(s)\n", len(recs))
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				fmt.Println("Default configuration path:")
			} else {
				fmt.Println("Configuration path (from --config flag):")
			}
			path := configPath()
			fmt.Printf("  %s\n", path)
			fmt.Println()

			if info, err := os.Stat(path); err == nil {
				fmt.Println("Status: ✓ File exists")
				fmt.Printf("Size:   %d bytes\n", info.Size())
				fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Status: File does not exist")
				fmt.Println()
				fmt.Println("Create a configuration file with: sf-attachments config init")
			}
			return nil
		},
	}

	return cmd
}
