// Package bridge shares one device-local image between two Vulkan devices in
// the same process. The exporting side allocates the memory and hands out an
// OPAQUE_FD handle; the importing side binds a second image to that memory.
//
// The package is written against the Device interface so the allocation and
// ownership rules can be exercised without a GPU. internal/vkgpu provides the
// Vulkan implementation.
package bridge

import "fmt"

// Format is the pixel format of a bridge image.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatRGBA8SRGB
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8SRGB:
		return "R8G8B8A8_SRGB"
	case FormatUndefined:
		return "UNDEFINED"
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// BytesPerPixel returns the texel size, or 0 for formats the bridge does not carry.
func (f Format) BytesPerPixel() int {
	if f == FormatRGBA8SRGB {
		return 4
	}
	return 0
}

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) IsZero() bool { return e.Width == 0 || e.Height == 0 }

func (e Extent) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

// Usage is the set of ways an image is used by its device.
type Usage uint32

const (
	UsageTransferSrc Usage = 1 << iota
	UsageTransferDst
	UsageSampled
)

const (
	exportUsage = UsageTransferDst | UsageTransferSrc | UsageSampled
	importUsage = UsageSampled | UsageTransferDst | UsageTransferSrc
)

// MemoryProperty mirrors the Vulkan memory property bits the bridge inspects.
type MemoryProperty uint32

const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// Requirements is what the driver reports for a created image.
type Requirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// DeviceIDs identifies the physical device and driver behind a context.
// Import is only attempted between devices that report the same IDs.
type DeviceIDs struct {
	Device [16]byte
	Driver [16]byte
}

// ImageDesc describes an image with external memory of type OPAQUE_FD.
type ImageDesc struct {
	Extent Extent
	Format Format
	Usage  Usage
}

// Image and Memory are native handles owned by a Device implementation.
type (
	Image  any
	Memory any
)

// Device is the slice of a Vulkan device context the bridge needs.
type Device interface {
	IDs() DeviceIDs
	MemoryTypes() []MemoryType

	// CreateImage creates a 2D, single-mip, optimally tiled image chained
	// with external memory create info for OPAQUE_FD.
	CreateImage(desc ImageDesc) (Image, Requirements, error)
	DestroyImage(img Image)

	// AllocateExportable allocates dedicated memory for img that can be
	// exported as OPAQUE_FD.
	AllocateExportable(size uint64, typeIndex uint32, img Image) (Memory, error)
	// AllocateImported allocates dedicated memory for img backed by fd. On
	// success the implementation owns fd.
	AllocateImported(size uint64, typeIndex uint32, img Image, fd int) (Memory, error)
	BindImageMemory(img Image, mem Memory) error
	FreeMemory(mem Memory)

	// ExportFd returns a new OPAQUE_FD for mem. The caller owns it.
	ExportFd(mem Memory) (int, error)
}
