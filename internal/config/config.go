package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Copy    CopyConfig    `mapstructure:"copy" yaml:"copy"`
	Present PresentConfig `mapstructure:"present" yaml:"present"`
	GPU     GPUConfig     `mapstructure:"gpu" yaml:"gpu"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type BridgeConfig struct {
	Width  uint32 `mapstructure:"width" yaml:"width"`
	Height uint32 `mapstructure:"height" yaml:"height"`
}

// EngineConfig sizes the test-pattern producer. A zero width or height
// follows the bridge size.
type EngineConfig struct {
	Width      uint32 `mapstructure:"width" yaml:"width"`
	Height     uint32 `mapstructure:"height" yaml:"height"`
	FPS        int    `mapstructure:"fps" yaml:"fps"`
	PoolSize   int    `mapstructure:"pool_size" yaml:"pool_size"`
	MaxFrames  uint64 `mapstructure:"max_frames" yaml:"max_frames"`
	OutputName string `mapstructure:"output_name" yaml:"output_name"`
}

type CopyConfig struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

type PresentConfig struct {
	Title         string        `mapstructure:"title" yaml:"title"`
	Width         uint32        `mapstructure:"width" yaml:"width"`
	Height        uint32        `mapstructure:"height" yaml:"height"`
	TargetFPS     int           `mapstructure:"target_fps" yaml:"target_fps"`
	Pacing        string        `mapstructure:"pacing" yaml:"pacing"`
	SignalTimeout time.Duration `mapstructure:"signal_timeout" yaml:"signal_timeout"`
	FrameStats    bool          `mapstructure:"frame_stats" yaml:"frame_stats"`
	VSync         bool          `mapstructure:"vsync" yaml:"vsync"`
}

type GPUConfig struct {
	Validation  bool `mapstructure:"validation" yaml:"validation"`
	DeviceIndex int  `mapstructure:"device_index" yaml:"device_index"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Width:  1920,
			Height: 1080,
		},
		Engine: EngineConfig{
			FPS:        30,
			PoolSize:   2,
			MaxFrames:  0,
			OutputName: "window_preview",
		},
		Copy: CopyConfig{
			Mode:         "blocking",
			PollInterval: 5 * time.Millisecond,
		},
		Present: PresentConfig{
			Title:         "vkbridge",
			Width:         1920,
			Height:        1080,
			TargetFPS:     60,
			Pacing:        "fixed",
			SignalTimeout: 100 * time.Millisecond,
			FrameStats:    false,
			VSync:         true,
		},
		GPU: GPUConfig{
			Validation:  false,
			DeviceIndex: -1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"width":       "bridge.width",
	"height":      "bridge.height",
	"fps":         "engine.fps",
	"max-frames":  "engine.max_frames",
	"copy-mode":   "copy.mode",
	"pacing":      "present.pacing",
	"target-fps":  "present.target_fps",
	"frame-stats": "present.frame_stats",
	"vsync":       "present.vsync",
	"validation":  "gpu.validation",
	"device":      "gpu.device_index",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
}

// Load loads configuration from file, environment, flags and defaults.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	// Config file setup
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".vkbridge"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	// Environment variables
	v.SetEnvPrefix("VKBRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) resolve() {
	if c.Engine.Width == 0 {
		c.Engine.Width = c.Bridge.Width
	}
	if c.Engine.Height == 0 {
		c.Engine.Height = c.Bridge.Height
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Bridge.Width == 0 || c.Bridge.Height == 0 {
		return errors.New("bridge.width and bridge.height must be positive")
	}
	if c.Bridge.Width > 16384 || c.Bridge.Height > 16384 {
		return errors.New("bridge.width and bridge.height must be at most 16384")
	}
	if c.Engine.FPS <= 0 || c.Engine.FPS > 1000 {
		return errors.New("engine.fps must be between 1 and 1000")
	}
	if c.Engine.PoolSize < 2 {
		return errors.New("engine.pool_size must be at least 2")
	}
	if c.Engine.OutputName == "" {
		return errors.New("engine.output_name must not be empty")
	}

	validModes := []string{"blocking", "polling"}
	if !contains(validModes, c.Copy.Mode) {
		return fmt.Errorf("copy.mode must be one of: %v", validModes)
	}
	if c.Copy.PollInterval <= 0 {
		return errors.New("copy.poll_interval must be positive")
	}

	if c.Present.Width == 0 || c.Present.Height == 0 {
		return errors.New("present.width and present.height must be positive")
	}
	if c.Present.TargetFPS <= 0 || c.Present.TargetFPS > 1000 {
		return errors.New("present.target_fps must be between 1 and 1000")
	}
	validPacing := []string{"fixed", "signaled"}
	if !contains(validPacing, c.Present.Pacing) {
		return fmt.Errorf("present.pacing must be one of: %v", validPacing)
	}
	if c.Present.SignalTimeout <= 0 {
		return errors.New("present.signal_timeout must be positive")
	}

	if c.GPU.DeviceIndex < -1 {
		return errors.New("gpu.device_index must be -1 or a device index")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	validFormats := []string{"text", "json"}
	if !contains(validFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of: %v", validFormats)
	}

	return nil
}

// WriteYAML writes the configuration in the same layout Load reads.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("bridge.width", cfg.Bridge.Width)
	v.SetDefault("bridge.height", cfg.Bridge.Height)

	v.SetDefault("engine.width", cfg.Engine.Width)
	v.SetDefault("engine.height", cfg.Engine.Height)
	v.SetDefault("engine.fps", cfg.Engine.FPS)
	v.SetDefault("engine.pool_size", cfg.Engine.PoolSize)
	v.SetDefault("engine.max_frames", cfg.Engine.MaxFrames)
	v.SetDefault("engine.output_name", cfg.Engine.OutputName)

	v.SetDefault("copy.mode", cfg.Copy.Mode)
	v.SetDefault("copy.poll_interval", cfg.Copy.PollInterval)

	v.SetDefault("present.title", cfg.Present.Title)
	v.SetDefault("present.width", cfg.Present.Width)
	v.SetDefault("present.height", cfg.Present.Height)
	v.SetDefault("present.target_fps", cfg.Present.TargetFPS)
	v.SetDefault("present.pacing", cfg.Present.Pacing)
	v.SetDefault("present.signal_timeout", cfg.Present.SignalTimeout)
	v.SetDefault("present.frame_stats", cfg.Present.FrameStats)
	v.SetDefault("present.vsync", cfg.Present.VSync)

	v.SetDefault("gpu.validation", cfg.GPU.Validation)
	v.SetDefault("gpu.device_index", cfg.GPU.DeviceIndex)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
