package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/engine"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/session"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/vkgpu"
	"github.com/NOT-REAL-GAMES/vkbridge/present"
	"github.com/NOT-REAL-GAMES/vkbridge/transfer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the producer and the preview window",
	Long: `Create both device contexts, export the bridge image from the producer
device, import it on the window device and run the test-card producer,
the copy loop and the preview window until the window is closed.`,
	RunE: runBridge,
}

func init() {
	flags := runCmd.Flags()
	flags.Uint32("width", 1920, "bridge image width")
	flags.Uint32("height", 1080, "bridge image height")
	flags.Int("fps", 30, "producer frame rate")
	flags.Uint64("max-frames", 0, "stop the producer after this many frames, 0 runs until closed")
	flags.String("copy-mode", "blocking", "copy loop discipline: blocking or polling")
	flags.String("pacing", "fixed", "presenter pacing: fixed or signaled")
	flags.Int("target-fps", 60, "presenter rate for fixed pacing")
	flags.Bool("frame-stats", false, "log presenter frame statistics every second")
	flags.Bool("vsync", true, "present with FIFO")

	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	// The window and its swapchain belong to the main thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := logging.Logger()

	ctx, sup := session.NewSupervisor(cmd.Context())
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	copyMode, err := transfer.ParseMode(cfg.Copy.Mode)
	if err != nil {
		return err
	}
	pacing, err := present.ParsePacingMode(cfg.Present.Pacing)
	if err != nil {
		return err
	}
	extent := bridge.Extent{Width: cfg.Bridge.Width, Height: cfg.Bridge.Height}

	window, err := vkgpu.OpenWindow(vkgpu.WindowOptions{
		Title:  cfg.Present.Title,
		Width:  cfg.Present.Width,
		Height: cfg.Present.Height,
		VSync:  cfg.Present.VSync,
	})
	if err != nil {
		return err
	}
	defer window.Close()

	windowExts, err := window.InstanceExtensions()
	if err != nil {
		return fmt.Errorf("window instance extensions: %w", err)
	}

	producer, err := vkgpu.NewContext(vkgpu.Options{
		Name:        "producer",
		Validation:  cfg.GPU.Validation,
		DeviceIndex: cfg.GPU.DeviceIndex,
		OnFatal:     sup.Fatal,
	})
	if err != nil {
		return err
	}
	defer producer.Destroy()

	consumer, err := vkgpu.NewContext(vkgpu.Options{
		Name:               "consumer",
		InstanceExtensions: windowExts,
		Present:            true,
		Validation:         cfg.GPU.Validation,
		DeviceIndex:        cfg.GPU.DeviceIndex,
		OnFatal:            sup.Fatal,
	})
	if err != nil {
		return err
	}
	defer func() {
		window.Close()
		consumer.Destroy()
	}()

	producerDev := vkgpu.NewBridgeDevice(producer)
	consumerDev := vkgpu.NewBridgeDevice(consumer)

	exporter, handle, err := bridge.Export(producerDev, extent)
	if err != nil {
		return fmt.Errorf("bridge setup: %w", err)
	}
	defer exporter.Destroy()

	importer, err := bridge.Import(consumerDev, handle, extent, bridge.FormatRGBA8SRGB)
	if err != nil {
		return fmt.Errorf("bridge setup: %w", err)
	}
	defer importer.Destroy()

	if err := consumerDev.PrepareShared(importer.Image(), false); err != nil {
		return fmt.Errorf("bridge setup: %w", err)
	}
	if err := producerDev.PrepareShared(exporter.Image(), true); err != nil {
		return fmt.Errorf("bridge setup: %w", err)
	}

	engineExtent := bridge.Extent{Width: cfg.Engine.Width, Height: cfg.Engine.Height}
	pool, err := vkgpu.NewFramePool(producer, cfg.Engine.PoolSize, engineExtent)
	if err != nil {
		return err
	}
	defer pool.Destroy()

	eng, err := engine.New(engine.Config{
		Width:      cfg.Engine.Width,
		Height:     cfg.Engine.Height,
		FPS:        cfg.Engine.FPS,
		PoolSize:   cfg.Engine.PoolSize,
		MaxFrames:  cfg.Engine.MaxFrames,
		OutputName: cfg.Engine.OutputName,
	}, pool)
	if err != nil {
		return err
	}

	copyDev, err := vkgpu.NewCopier(producer, exporter.Image(), extent)
	if err != nil {
		return err
	}
	defer copyDev.Destroy()

	ready := frames.NewSignal()
	copier := transfer.NewCopier(copyDev, extent, bridge.FormatRGBA8SRGB, ready)

	blitter, err := vkgpu.NewBlitter(consumer, importer.Image())
	if err != nil {
		return err
	}
	defer blitter.Destroy()

	window.Attach(consumer)
	presenter := present.New(window, present.Options{FrameStats: cfg.Present.FrameStats})
	defer presenter.Close()
	if err := presenter.Open(); err != nil {
		return err
	}
	if err := presenter.Ready(blitter); err != nil {
		return err
	}

	producerCtx, stopProducer := context.WithCancel(ctx)
	defer stopProducer()
	g, gctx := errgroup.WithContext(producerCtx)
	g.Go(func() error {
		err := eng.Run(gctx)
		if err != nil {
			sup.Fatal("engine", err)
		}
		return err
	})
	g.Go(func() error {
		err := copier.Run(gctx, eng.Channel(), transfer.LoopConfig{
			Mode:         copyMode,
			PollInterval: cfg.Copy.PollInterval,
		})
		if err != nil {
			sup.Fatal("copy", err)
		}
		return err
	})

	var pacer present.Pacer
	switch pacing {
	case present.PacingSignaled:
		pacer = present.NewSignaledPacer(ready, cfg.Present.SignalTimeout)
	default:
		pacer = present.NewFixedPacer(cfg.Present.TargetFPS, present.SystemClock)
	}

	runErr := presenter.Run(ctx, pacer)
	if runErr != nil {
		sup.Fatal("present", runErr)
	}

	// The window goes first so the blit resources can be released before
	// the importer they sample.
	presenter.Close()
	blitter.Destroy()

	teardownErr := session.Teardown{
		StopProducer: stopProducer,
		Channel:      eng.Channel(),
		WaitWorkers:  g.Wait,
		ProducerIdle: producer.WaitIdle,
		ConsumerIdle: consumer.WaitIdle,
		Importer:     importer,
		Exporter:     exporter,
	}.Run()

	stats := eng.Channel().Stats()
	log.Info("bridge stopped",
		"produced", eng.Produced(),
		"copied", copier.Copied(),
		"skipped", copier.Skipped(),
		"presented", presenter.Presented(),
		"sent", stats.Sent,
		"released", stats.Released)

	// Worker errors are already recorded as the fatal error.
	if err := sup.Err(); err != nil {
		return errors.Join(err, teardownErr)
	}
	return teardownErr
}
