package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/regform/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the regform configuration file",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write the default configuration file",
	Long:  `Write the commented default configuration to PATH (default: .regform/config.yaml).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var debounceOpts struct {
	disabled         bool
	username         time.Duration
	passwordEmpty    time.Duration
	passwordEquality time.Duration
	strength         time.Duration
}

var configDebounceCmd = &cobra.Command{
	Use:   "debounce",
	Short: "Update the debounce settings in the configuration file",
	Long: `Update the debounce section of the active configuration file, keeping the
rest of the file and its comments intact. Only the given flags change.`,
	Example: `  regform config debounce --username 300ms --strength 0s`,
	Args:    cobra.NoArgs,
	RunE:    runConfigDebounce,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configDebounceCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	f := configDebounceCmd.Flags()
	f.BoolVar(&debounceOpts.disabled, "disabled", false, "disable all quiet periods")
	f.DurationVar(&debounceOpts.username, "username", 0, "username check quiet period")
	f.DurationVar(&debounceOpts.passwordEmpty, "password-empty", 0, "password emptiness quiet period")
	f.DurationVar(&debounceOpts.passwordEquality, "password-equality", 0, "password match quiet period")
	f.DurationVar(&debounceOpts.strength, "strength", 0, "strength classification quiet period")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := localConfigPath
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigDebounce(cmd *cobra.Command, _ []string) error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = localConfigPath
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
	}

	d := cfg.Debounce
	flags := cmd.Flags()
	if flags.Changed("disabled") {
		d.Disabled = debounceOpts.disabled
	}
	if flags.Changed("username") {
		d.Username = debounceOpts.username
	}
	if flags.Changed("password-empty") {
		d.PasswordEmpty = debounceOpts.passwordEmpty
	}
	if flags.Changed("password-equality") {
		d.PasswordEquality = debounceOpts.passwordEquality
	}
	if flags.Changed("strength") {
		d.Strength = debounceOpts.strength
	}

	if err := config.ValidateDebounce(d); err != nil {
		return err
	}
	if err := config.SaveDebounce(path, d); err != nil {
		return fmt.Errorf("saving debounce settings: %w", err)
	}

	cfg.Debounce = d
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated debounce settings in %s\n", path)
	return nil
}
