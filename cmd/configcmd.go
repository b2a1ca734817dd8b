package cmd

import (
	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteConfig(cfgFile, config.Default(), configForce); err != nil {
			return &configError{err: err}
		}
		pterm.Success.Printf("Wrote %s\n", cfgFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after defaults and environment overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.WithoutValidation())
		if err != nil {
			return err
		}
		if cfg.Remote.Password != "" {
			cfg.Remote.Password = "********"
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			pterm.Warning.Println(err.Error())
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
