package bridge

import (
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

var printer = message.NewPrinter(language.English)

// Exporter owns the producer-side bridge image, its memory and the exported fd.
type Exporter struct {
	dev    Device
	image  Image
	memory Memory
	handle Handle

	once sync.Once
	err  error
}

// Export creates the shared image on dev and exports its memory. Every object
// created before a failure is released before returning.
func Export(dev Device, extent Extent) (*Exporter, Handle, error) {
	if extent.IsZero() {
		return nil, Handle{}, &AllocationError{Op: "create image", Err: ErrZeroExtent}
	}

	format := FormatRGBA8SRGB
	img, req, err := dev.CreateImage(ImageDesc{Extent: extent, Format: format, Usage: exportUsage})
	if err != nil {
		return nil, Handle{}, &AllocationError{Op: "create image", Err: err}
	}

	typeIndex, err := SelectMemoryType(dev.MemoryTypes(), req.TypeBits)
	if err != nil {
		dev.DestroyImage(img)
		return nil, Handle{}, err
	}

	mem, err := dev.AllocateExportable(req.Size, typeIndex, img)
	if err != nil {
		dev.DestroyImage(img)
		return nil, Handle{}, &AllocationError{Op: "allocate memory", Err: err}
	}

	if err := dev.BindImageMemory(img, mem); err != nil {
		dev.FreeMemory(mem)
		dev.DestroyImage(img)
		return nil, Handle{}, &AllocationError{Op: "bind memory", Err: err}
	}

	fd, err := dev.ExportFd(mem)
	if err != nil {
		dev.DestroyImage(img)
		dev.FreeMemory(mem)
		return nil, Handle{}, &HandleExportError{Err: err}
	}

	h := Handle{fd: fd, Size: req.Size, Extent: extent, Format: format, Devices: dev.IDs()}

	logging.Logger().Info("exported bridge image",
		"fd", fd,
		"size_mb", float64(req.Size)/(1024*1024),
		"size", printer.Sprintf("%d bytes", req.Size),
		"width", extent.Width,
		"height", extent.Height,
		"memory_type", typeIndex)

	return &Exporter{dev: dev, image: img, memory: mem, handle: h}, h, nil
}

// Image is the native image for the producer's own command buffers.
func (e *Exporter) Image() Image { return e.image }

func (e *Exporter) Handle() Handle { return e.handle }
func (e *Exporter) Extent() Extent { return e.handle.Extent }
func (e *Exporter) Format() Format { return e.handle.Format }

// Destroy releases the image, the memory and the exported fd. Only the first
// call has any effect. The producer device must be idle.
func (e *Exporter) Destroy() error {
	e.once.Do(func() {
		e.dev.DestroyImage(e.image)
		e.dev.FreeMemory(e.memory)
		if err := unix.Close(e.handle.fd); err != nil {
			e.err = err
		}
		logging.Logger().Debug("destroyed bridge exporter", "fd", e.handle.fd)
	})
	return e.err
}
