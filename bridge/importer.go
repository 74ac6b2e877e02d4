package bridge

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// Importer owns the consumer-side image bound to the exporter's memory.
type Importer struct {
	dev    Device
	image  Image
	memory Memory
	extent Extent
	format Format

	once sync.Once
}

// Import binds a new image on dev to the memory named by h. The handle is
// checked before dev is touched. h's fd stays with the exporter; a duplicate
// is handed to the driver.
func Import(dev Device, h Handle, extent Extent, format Format) (*Importer, error) {
	if !h.Valid() {
		return nil, &ImportError{Reason: "invalid handle", Err: ErrInvalidHandle}
	}
	if h.Extent != extent {
		return nil, &ImportError{Reason: "extent mismatch: handle " + h.Extent.String() + ", requested " + extent.String()}
	}
	if h.Format != format {
		return nil, &ImportError{Reason: "format mismatch: handle " + h.Format.String() + ", requested " + format.String()}
	}
	ids := dev.IDs()
	if ids.Device != h.Devices.Device {
		return nil, &ImportError{Reason: "device UUID differs from exporting device"}
	}
	if ids.Driver != h.Devices.Driver {
		return nil, &ImportError{Reason: "driver UUID differs from exporting driver"}
	}

	img, req, err := dev.CreateImage(ImageDesc{Extent: extent, Format: format, Usage: importUsage})
	if err != nil {
		return nil, &ImportError{Reason: "create image", Err: err}
	}

	if req.Size > h.Size {
		dev.DestroyImage(img)
		return nil, &ImportError{Reason: printer.Sprintf("image needs %d bytes, export holds %d", req.Size, h.Size)}
	}

	typeIndex, err := SelectMemoryType(dev.MemoryTypes(), req.TypeBits)
	if err != nil {
		dev.DestroyImage(img)
		return nil, &ImportError{Reason: "select memory type", Err: err}
	}

	fd, err := h.Dup()
	if err != nil {
		dev.DestroyImage(img)
		return nil, &ImportError{Reason: "duplicate fd", Err: err}
	}

	mem, err := dev.AllocateImported(h.Size, typeIndex, img, fd)
	if err != nil {
		_ = unix.Close(fd)
		dev.DestroyImage(img)
		return nil, &ImportError{Reason: "allocate memory", Err: err}
	}

	if err := dev.BindImageMemory(img, mem); err != nil {
		dev.FreeMemory(mem)
		dev.DestroyImage(img)
		return nil, &ImportError{Reason: "bind memory", Err: err}
	}

	logging.Logger().Info("imported bridge image",
		"fd", h.fd,
		"width", extent.Width,
		"height", extent.Height,
		"memory_type", typeIndex)

	return &Importer{dev: dev, image: img, memory: mem, extent: extent, format: format}, nil
}

func (i *Importer) Image() Image   { return i.image }
func (i *Importer) Extent() Extent { return i.extent }
func (i *Importer) Format() Format { return i.format }

// Destroy releases the image and the imported memory. Only the first call
// has any effect. The consumer device must be idle.
func (i *Importer) Destroy() {
	i.once.Do(func() {
		i.dev.DestroyImage(i.image)
		i.dev.FreeMemory(i.memory)
		logging.Logger().Debug("destroyed bridge importer")
	})
}
