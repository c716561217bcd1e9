package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcpgate/mcpgate/internal/config"
)

var configShowSecrets bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the configuration as resolved from the config file, defaults,
and MCPGATE_* environment variables, along with its validation status.`,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print the API key instead of masking it")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config file: %s\n", loader.GetConfigPath())

	display := *cfg
	if !configShowSecrets && display.AI.APIKey != "" {
		display.AI.APIKey = "********"
	}
	fmt.Fprintln(out, display.String())

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "Validation: %v\n", err)
		return nil
	}
	fmt.Fprintln(out, "Validation: ok")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration written to: %s\n", loader.GetConfigPath())
	fmt.Fprintln(out, "Set ai.api_key (or MCPGATE_AI_API_KEY) before starting a chat.")
	return nil
}
