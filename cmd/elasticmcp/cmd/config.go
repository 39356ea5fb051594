package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/elasticmcp/configs"
	"github.com/Aman-CERP/elasticmcp/internal/config"
	"github.com/Aman-CERP/elasticmcp/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the elasticmcp configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/elasticmcp/config.yaml)
  3. Project config (.elasticmcp.yaml or .elasticmcp.yml in --dir)
  4. Environment variables (ES_HOST, ES_USER, ES_PASS, ES_DEFAULT_INDEX,
     ELASTICMCP_TIMEOUT, ELASTICMCP_INSECURE, ELASTICMCP_TRANSPORT,
     ELASTICMCP_ADDR, ELASTICMCP_LOG_LEVEL)`,
		Example: `  # Create the user config with defaults
  elasticmcp config init

  # Show effective configuration
  elasticmcp config show

  # Print the user config path
  elasticmcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, effective bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		Long: `Create the user configuration file with the default settings.

The file is a commented template holding the defaults. With --effective
the merged configuration is written instead, capturing environment
overrides such as ES_HOST.

With --force an existing file is backed up next to itself before being
replaced. The newest backups are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, effective)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the merged configuration instead of the template")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the effective configuration after merging all sources. The password is masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force, effective bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	// Load before backing up so a broken file is reported, not replaced.
	var current *config.Config
	if effective {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		current = cfg
	}

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Status("💡", "Use --force to replace it with defaults (a backup is kept)")
			return nil
		}

		backup, err := config.BackupFile(configPath)
		if err != nil {
			return err
		}
		out.Statusf("💾", "Backed up to %s", backup)
	}

	var err error
	if current != nil {
		err = current.WriteYAML(configPath)
	} else {
		err = config.WriteFile(configPath, configs.ConfigTemplate)
	}
	if err != nil {
		return err
	}

	out.Successf("Created %s", configPath)
	out.Status("", "Set elasticsearch.url and credentials, or export ES_HOST, ES_USER and ES_PASS.")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	shown := cfg.Redacted()

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(shown)
	}

	data, err := yaml.Marshal(shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if path := config.GetUserConfigPath(); config.UserConfigExists() {
		_, _ = fmt.Fprintf(w, "# user config: %s\n", path)
	}
	if path := config.ProjectConfigPath(projectDir); path != "" {
		_, _ = fmt.Fprintf(w, "# project config: %s\n", path)
	}
	_, err = w.Write(data)
	return err
}
