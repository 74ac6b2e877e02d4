package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/engine"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/session"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/vkgpu"
)

var roundtrip bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Inspect export/import support without opening a window",
	Long: `Create both device contexts, print their memory types and the type the
bridge would allocate from, and report OPAQUE_FD support for the bridge
format.

With --roundtrip a test card is written into an exported image, read back
through the imported image on the second device and compared byte for byte.`,
	RunE: runProbe,
}

func init() {
	flags := probeCmd.Flags()
	flags.BoolVar(&roundtrip, "roundtrip", false, "export, import and compare a test card")
	flags.Uint32("width", 1920, "bridge image width")
	flags.Uint32("height", 1080, "bridge image height")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	out := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	ctx, sup := session.NewSupervisor(cmd.Context())
	extent := bridge.Extent{Width: cfg.Bridge.Width, Height: cfg.Bridge.Height}

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
		Name:        "consumer",
		Validation:  cfg.GPU.Validation,
		DeviceIndex: cfg.GPU.DeviceIndex,
		OnFatal:     sup.Fatal,
	})
	if err != nil {
		return err
	}
	defer consumer.Destroy()

	producerDev := vkgpu.NewBridgeDevice(producer)
	consumerDev := vkgpu.NewBridgeDevice(consumer)

	for _, c := range []struct {
		ctx *vkgpu.Context
		dev *vkgpu.BridgeDevice
	}{{producer, producerDev}, {consumer, consumerDev}} {
		if err := describeDevice(out, w, c.ctx, c.dev, extent); err != nil {
			return err
		}
	}

	same := producerDev.IDs() == consumerDev.IDs()
	out.Fprintf(w, "device and driver UUIDs match: %t\n", same)

	if !roundtrip {
		return nil
	}
	if err := probeRoundTrip(ctx, out, w, producer, consumer, extent); err != nil {
		return err
	}
	return sup.Err()
}

func describeDevice(out *message.Printer, w io.Writer, c *vkgpu.Context, dev *vkgpu.BridgeDevice, extent bridge.Extent) error {
	out.Fprintf(w, "%s: %s\n", c.Name, c.DeviceName())

	props := c.MemoryProperties()
	for i, heap := range props.MemoryHeaps[:props.MemoryHeapCount] {
		out.Fprintf(w, "  heap %d: %d MiB\n", i, heap.Size>>20)
	}

	img, req, err := dev.CreateImage(bridge.ImageDesc{
		Extent: extent,
		Format: bridge.FormatRGBA8SRGB,
		Usage:  bridge.UsageTransferSrc | bridge.UsageTransferDst | bridge.UsageSampled,
	})
	if err != nil {
		return fmt.Errorf("%s: probe image: %w", c.Name, err)
	}
	dev.DestroyImage(img)

	types := dev.MemoryTypes()
	selected, selErr := bridge.SelectMemoryType(types, req.TypeBits)
	for i, t := range types {
		mark := " "
		if selErr == nil && uint32(i) == selected {
			mark = "*"
		}
		out.Fprintf(w, "  %s type %2d: heap %d, %s, compatible %t\n",
			mark, i, t.HeapIndex, describeProperties(t.Properties), req.TypeBits&(1<<uint(i)) != 0)
	}
	out.Fprintf(w, "  bridge image: %d bytes, alignment %d\n", req.Size, req.Alignment)
	if selErr != nil {
		out.Fprintf(w, "  no usable memory type: %v\n", selErr)
	}

	exportable, importable, err := dev.ExternalFeatures(bridge.FormatRGBA8SRGB, bridge.UsageTransferSrc|bridge.UsageTransferDst|bridge.UsageSampled)
	if err != nil {
		out.Fprintf(w, "  OPAQUE_FD support: unknown (%v)\n", err)
		return nil
	}
	out.Fprintf(w, "  OPAQUE_FD exportable %t, importable %t\n", exportable, importable)
	return nil
}

func describeProperties(p bridge.MemoryProperty) string {
	var b bytes.Buffer
	for _, f := range []struct {
		bit  bridge.MemoryProperty
		name string
	}{
		{bridge.MemoryDeviceLocal, "device-local"},
		{bridge.MemoryHostVisible, "host-visible"},
		{bridge.MemoryHostCoherent, "host-coherent"},
	} {
		if p&f.bit == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(f.name)
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}

func probeRoundTrip(ctx context.Context, out *message.Printer, w io.Writer, producer, consumer *vkgpu.Context, extent bridge.Extent) error {
	producerDev := vkgpu.NewBridgeDevice(producer)
	consumerDev := vkgpu.NewBridgeDevice(consumer)

	exporter, handle, err := bridge.Export(producerDev, extent)
	if err != nil {
		return err
	}
	defer exporter.Destroy()

	importer, err := bridge.Import(consumerDev, handle, extent, bridge.FormatRGBA8SRGB)
	if err != nil {
		return err
	}
	defer importer.Destroy()

	if err := consumerDev.PrepareShared(importer.Image(), false); err != nil {
		return err
	}
	if err := producerDev.PrepareShared(exporter.Image(), true); err != nil {
		return err
	}

	pool, err := vkgpu.NewFramePool(producer, 1, extent)
	if err != nil {
		return err
	}
	defer pool.Destroy()
	copyDev, err := vkgpu.NewCopier(producer, exporter.Image(), extent)
	if err != nil {
		return err
	}
	defer copyDev.Destroy()

	card := image.NewRGBA(image.Rect(0, 0, int(extent.Width), int(extent.Height)))
	engine.RenderPattern(card, 1, 0)

	src, err := pool.Upload(ctx, 0, card.Pix, extent)
	if err != nil {
		return fmt.Errorf("upload test card: %w", err)
	}
	if err := copyDev.CopyToBridge(ctx, frames.Frame{
		Image:  src,
		Extent: extent,
		Format: bridge.FormatRGBA8SRGB,
		Seq:    1,
	}); err != nil {
		return fmt.Errorf("copy test card: %w", err)
	}

	got, err := vkgpu.Readback(consumer, importer.Image(), extent)
	if err != nil {
		return fmt.Errorf("read back imported image: %w", err)
	}

	if i := firstDifference(card.Pix, got); i >= 0 {
		px := i / 4
		return fmt.Errorf("round trip differs at byte %d (pixel %d,%d)",
			i, px%int(extent.Width), px/int(extent.Width))
	}
	out.Fprintf(w, "round trip: %d bytes identical through fd %d\n", len(got), handle.Fd())
	return nil
}

// firstDifference returns the first index where a and b differ, or -1.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
