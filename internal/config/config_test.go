package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bridge.Width != 1920 || cfg.Bridge.Height != 1080 {
		t.Errorf("bridge = %+v", cfg.Bridge)
	}
	if cfg.Engine.Width != 1920 || cfg.Engine.Height != 1080 {
		t.Errorf("engine size did not follow bridge: %+v", cfg.Engine)
	}
	if cfg.Engine.FPS != 30 || cfg.Present.TargetFPS != 60 {
		t.Errorf("fps = %d/%d", cfg.Engine.FPS, cfg.Present.TargetFPS)
	}
	if cfg.Copy.Mode != "blocking" || cfg.Present.Pacing != "fixed" {
		t.Errorf("copy.mode=%q pacing=%q", cfg.Copy.Mode, cfg.Present.Pacing)
	}
	if cfg.Present.SignalTimeout != 100*time.Millisecond || cfg.Copy.PollInterval != 5*time.Millisecond {
		t.Errorf("timeouts = %v/%v", cfg.Present.SignalTimeout, cfg.Copy.PollInterval)
	}
	if !cfg.Present.VSync || cfg.GPU.DeviceIndex != -1 {
		t.Errorf("present=%+v gpu=%+v", cfg.Present, cfg.GPU)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "vkbridge.yaml")
	yaml := `
bridge:
  width: 1280
  height: 720
copy:
  mode: polling
  poll_interval: 2ms
present:
  pacing: signaled
  signal_timeout: 250ms
  frame_stats: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bridge.Width != 1280 || cfg.Engine.Width != 1280 || cfg.Engine.Height != 720 {
		t.Errorf("bridge=%+v engine=%+v", cfg.Bridge, cfg.Engine)
	}
	if cfg.Copy.Mode != "polling" || cfg.Copy.PollInterval != 2*time.Millisecond {
		t.Errorf("copy = %+v", cfg.Copy)
	}
	if cfg.Present.Pacing != "signaled" || cfg.Present.SignalTimeout != 250*time.Millisecond || !cfg.Present.FrameStats {
		t.Errorf("present = %+v", cfg.Present)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("VKBRIDGE_ENGINE_FPS", "24")
	t.Setenv("VKBRIDGE_LOGGING_FORMAT", "json")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.FPS != 24 || cfg.Logging.Format != "json" {
		t.Errorf("env not applied: fps=%d format=%q", cfg.Engine.FPS, cfg.Logging.Format)
	}
}

func TestLoadFlags(t *testing.T) {
	isolate(t)
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.String("pacing", "fixed", "")
	fs.Int("target-fps", 60, "")
	fs.Bool("vsync", true, "")
	if err := fs.Parse([]string{"--pacing=signaled", "--vsync=false"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Present.Pacing != "signaled" || cfg.Present.VSync {
		t.Errorf("flags not applied: %+v", cfg.Present)
	}
	if cfg.Present.TargetFPS != 60 {
		t.Errorf("unset flag overrode default: %d", cfg.Present.TargetFPS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		want string
	}{
		{"ok", func(*Config) {}, ""},
		{"zero bridge", func(c *Config) { c.Bridge.Width = 0 }, "bridge.width"},
		{"huge bridge", func(c *Config) { c.Bridge.Height = 20000 }, "bridge.width"},
		{"fps", func(c *Config) { c.Engine.FPS = 0 }, "engine.fps"},
		{"pool", func(c *Config) { c.Engine.PoolSize = 1 }, "engine.pool_size"},
		{"output name", func(c *Config) { c.Engine.OutputName = "" }, "engine.output_name"},
		{"copy mode", func(c *Config) { c.Copy.Mode = "spin" }, "copy.mode"},
		{"poll interval", func(c *Config) { c.Copy.PollInterval = 0 }, "copy.poll_interval"},
		{"window", func(c *Config) { c.Present.Height = 0 }, "present.width"},
		{"target fps", func(c *Config) { c.Present.TargetFPS = -1 }, "present.target_fps"},
		{"pacing", func(c *Config) { c.Present.Pacing = "vsync" }, "present.pacing"},
		{"signal timeout", func(c *Config) { c.Present.SignalTimeout = 0 }, "present.signal_timeout"},
		{"device", func(c *Config) { c.GPU.DeviceIndex = -2 }, "gpu.device_index"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.resolve()
			tt.mod(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLLoadsBack(t *testing.T) {
	isolate(t)

	cfg := DefaultConfig()
	cfg.resolve()
	cfg.Bridge.Width = 1280
	cfg.Present.SignalTimeout = 40 * time.Millisecond
	cfg.Copy.Mode = "polling"

	var buf strings.Builder
	if err := cfg.WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "signal_timeout: 40ms") {
		t.Errorf("durations should be written as strings:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Errorf("reloaded config differs:\n got %+v\nwant %+v", *got, *cfg)
	}
}
