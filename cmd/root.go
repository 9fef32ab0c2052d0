package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/regform/internal/config"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/mode/register"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/scheduler"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply does not land in an input field.
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is where project-local configuration lives.
const localConfigPath = ".regform/config.yaml"

// errFormInvalid makes the process exit non-zero when the evaluated form is
// not valid.
var errFormInvalid = errors.New("form is invalid")

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config

	// configErr is the failure from the last initConfig, reported by
	// newRuntime once a command needs the configuration.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "regform",
	Short: "Reactive validation for a registration form",
	Long: `regform validates a username, a password and its confirmation as they are
typed, debouncing edits and reporting messages and password strength.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runTUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive registration form",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .regform/config.yaml or ~/.config/regform/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also enabled by REGFORM_DEBUG)")
	rootCmd.PersistentFlags().String("metrics-addr", "",
		"serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().Bool("no-debounce", false,
		"validate on every edit without quiet periods")

	_ = viper.BindPFlag("metrics.addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("debounce.disabled", rootCmd.PersistentFlags().Lookup("no-debounce"))

	rootCmd.AddCommand(tuiCmd)
}

func initConfig() {
	configErr = nil
	defaults := config.Defaults()
	viper.SetDefault("debounce.disabled", defaults.Debounce.Disabled)
	viper.SetDefault("debounce.username", defaults.Debounce.Username)
	viper.SetDefault("debounce.password_empty", defaults.Debounce.PasswordEmpty)
	viper.SetDefault("debounce.password_equality", defaults.Debounce.PasswordEquality)
	viper.SetDefault("debounce.strength", defaults.Debounce.Strength)
	viper.SetDefault("ui.show_level", defaults.UI.ShowLevel)
	viper.SetDefault("ui.mask_password", defaults.UI.MaskPassword)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .regform/config.yaml (current directory)
		// 2. ~/.config/regform/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "regform"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = fmt.Errorf("reading config %s: %w", viper.ConfigFileUsed(), err)
			return
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		configErr = fmt.Errorf("decoding config: %w", err)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime("regform")
	if err != nil {
		return err
	}
	defer rt.Close()

	loop := scheduler.NewLoop()
	defer loop.Close()

	s := registration.New(loop, registration.Fields{}, cfg.Debounce.Registration(), rt.sessionOptions()...)
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := register.New(ctx, s, register.Options{
		ShowLevel:    cfg.UI.ShowLevel,
		MaskPassword: cfg.UI.MaskPassword,
		Logs:         log.NewListener(ctx),
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}

	if m, ok := final.(register.Model); ok && m.Submitted() {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", s.Fields().Username)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
