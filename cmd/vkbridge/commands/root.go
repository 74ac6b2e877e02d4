package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NOT-REAL-GAMES/vkbridge/internal/config"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

const version = "0.1.0"

var (
	cfgFile string
	verbose bool

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vkbridge",
	Short: "Share a GPU image between two Vulkan devices",
	Long: `vkbridge exports a device-local image from one Vulkan device as an
OPAQUE_FD handle and imports it on a second device in the same process.

A synthetic producer renders a test card into the exported image and a
window on the importing device shows it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		cfg = loaded
		return setupLogging(cfg.Logging)
	},
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vkbridge/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("validation", false, "enable the Khronos validation layer")
	flags.Int("device", -1, "physical device index, -1 picks the first suitable one")
}

func setupLogging(c config.LoggingConfig) error {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, c.Format, level)
	if err != nil {
		return err
	}
	logging.SetLogger(log)
	slog.SetDefault(log)
	return nil
}
