package vkgpu

import (
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
)

const opaqueFd = vk.EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_FD_BIT

// BridgeDevice adapts a Context to bridge.Device.
type BridgeDevice struct {
	c *Context
}

func NewBridgeDevice(c *Context) *BridgeDevice { return &BridgeDevice{c: c} }

func (d *BridgeDevice) IDs() bridge.DeviceIDs {
	return bridge.DeviceIDs{Device: d.c.ids.DeviceUUID, Driver: d.c.ids.DriverUUID}
}

func (d *BridgeDevice) MemoryTypes() []bridge.MemoryType {
	props := d.c.memory
	types := make([]bridge.MemoryType, 0, props.MemoryTypeCount)
	for _, t := range props.MemoryTypes[:props.MemoryTypeCount] {
		types = append(types, bridge.MemoryType{
			Properties: memoryProperties(t.PropertyFlags),
			HeapIndex:  t.HeapIndex,
		})
	}
	return types
}

func memoryProperties(f vk.MemoryPropertyFlags) bridge.MemoryProperty {
	var p bridge.MemoryProperty
	if f&vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT != 0 {
		p |= bridge.MemoryDeviceLocal
	}
	if f&vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT != 0 {
		p |= bridge.MemoryHostVisible
	}
	if f&vk.MEMORY_PROPERTY_HOST_COHERENT_BIT != 0 {
		p |= bridge.MemoryHostCoherent
	}
	return p
}

func vkFormat(f bridge.Format) (vk.Format, error) {
	if f == bridge.FormatRGBA8SRGB {
		return vk.FORMAT_R8G8B8A8_SRGB, nil
	}
	return vk.FORMAT_UNDEFINED, fmt.Errorf("unsupported bridge format %s", f)
}

func imageUsage(u bridge.Usage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if u&bridge.UsageTransferSrc != 0 {
		flags |= vk.IMAGE_USAGE_TRANSFER_SRC_BIT
	}
	if u&bridge.UsageTransferDst != 0 {
		flags |= vk.IMAGE_USAGE_TRANSFER_DST_BIT
	}
	if u&bridge.UsageSampled != 0 {
		flags |= vk.IMAGE_USAGE_SAMPLED_BIT
	}
	return flags
}

func asImage(img bridge.Image) (vk.Image, error) {
	v, ok := img.(vk.Image)
	if !ok {
		return vk.Image{}, fmt.Errorf("not a Vulkan image: %T", img)
	}
	return v, nil
}

func asMemory(mem bridge.Memory) (vk.DeviceMemory, error) {
	v, ok := mem.(vk.DeviceMemory)
	if !ok {
		return vk.DeviceMemory{}, fmt.Errorf("not Vulkan device memory: %T", mem)
	}
	return v, nil
}

func (d *BridgeDevice) CreateImage(desc bridge.ImageDesc) (bridge.Image, bridge.Requirements, error) {
	format, err := vkFormat(desc.Format)
	if err != nil {
		return nil, bridge.Requirements{}, err
	}
	img, err := d.c.Device.CreateImage(&vk.ImageCreateInfo{
		ImageType:           vk.IMAGE_TYPE_2D,
		Format:              format,
		Extent:              vk.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1},
		MipLevels:           1,
		ArrayLayers:         1,
		Samples:             vk.SAMPLE_COUNT_1_BIT,
		Tiling:              vk.IMAGE_TILING_OPTIMAL,
		Usage:               imageUsage(desc.Usage),
		SharingMode:         vk.SHARING_MODE_EXCLUSIVE,
		InitialLayout:       vk.IMAGE_LAYOUT_UNDEFINED,
		ExternalHandleTypes: opaqueFd,
	})
	if err != nil {
		return nil, bridge.Requirements{}, d.c.check("create image", err)
	}
	req := d.c.Device.GetImageMemoryRequirements(img)
	return img, bridge.Requirements{
		Size:      req.Size,
		Alignment: req.Alignment,
		TypeBits:  req.MemoryTypeBits,
	}, nil
}

func (d *BridgeDevice) DestroyImage(img bridge.Image) {
	if v, err := asImage(img); err == nil {
		d.c.Device.DestroyImage(v)
	}
}

func (d *BridgeDevice) AllocateExportable(size uint64, typeIndex uint32, img bridge.Image) (bridge.Memory, error) {
	v, err := asImage(img)
	if err != nil {
		return nil, err
	}
	mem, err := d.c.Device.AllocateMemory(&vk.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
		Export:          opaqueFd,
		DedicatedImage:  v,
	})
	if err != nil {
		return nil, d.c.check("allocate exportable memory", err)
	}
	return mem, nil
}

func (d *BridgeDevice) AllocateImported(size uint64, typeIndex uint32, img bridge.Image, fd int) (bridge.Memory, error) {
	v, err := asImage(img)
	if err != nil {
		return nil, err
	}
	mem, err := d.c.Device.AllocateMemory(&vk.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
		Import:          &vk.ImportMemoryFdInfo{HandleType: opaqueFd, Fd: fd},
		DedicatedImage:  v,
	})
	if err != nil {
		return nil, d.c.check("allocate imported memory", err)
	}
	return mem, nil
}

func (d *BridgeDevice) BindImageMemory(img bridge.Image, mem bridge.Memory) error {
	v, err := asImage(img)
	if err != nil {
		return err
	}
	m, err := asMemory(mem)
	if err != nil {
		return err
	}
	return d.c.check("bind image memory", d.c.Device.BindImageMemory(v, m, 0))
}

func (d *BridgeDevice) FreeMemory(mem bridge.Memory) {
	if m, err := asMemory(mem); err == nil {
		d.c.Device.FreeMemory(m)
	}
}

func (d *BridgeDevice) ExportFd(mem bridge.Memory) (int, error) {
	m, err := asMemory(mem)
	if err != nil {
		return -1, err
	}
	fd, err := d.c.Device.GetMemoryFdKHR(m, opaqueFd)
	if err != nil {
		return -1, d.c.check("get memory fd", err)
	}
	return fd, nil
}

// ExternalFeatures reports whether the bridge format can be exported and
// imported as OPAQUE_FD with the given usage on this device.
func (d *BridgeDevice) ExternalFeatures(format bridge.Format, usage bridge.Usage) (exportable, importable bool, err error) {
	f, err := vkFormat(format)
	if err != nil {
		return false, false, err
	}
	features, err := d.c.Physical.GetExternalImageFormatFeatures(f, imageUsage(usage), opaqueFd)
	if err != nil {
		return false, false, err
	}
	return features&vk.EXTERNAL_MEMORY_FEATURE_EXPORTABLE_BIT != 0,
		features&vk.EXTERNAL_MEMORY_FEATURE_IMPORTABLE_BIT != 0, nil
}

// PrepareShared moves a freshly bound bridge image from UNDEFINED to
// GENERAL, the only layout it is used in across devices. With clear set the
// image is also cleared to opaque black.
func (d *BridgeDevice) PrepareShared(img bridge.Image, clear bool) error {
	v, err := asImage(img)
	if err != nil {
		return err
	}
	shot, err := newOneShot(d.c)
	if err != nil {
		return err
	}
	defer shot.destroy()

	return shot.run("prepare bridge image", func(cmd vk.CommandBuffer) {
		cmd.TransitionImage(v,
			vk.IMAGE_LAYOUT_UNDEFINED, vk.IMAGE_LAYOUT_GENERAL,
			vk.ACCESS_NONE, vk.ACCESS_TRANSFER_WRITE_BIT,
			vk.PIPELINE_STAGE_TOP_OF_PIPE_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT)
		if !clear {
			return
		}
		cmd.CmdClearColorImage(v, vk.IMAGE_LAYOUT_GENERAL, vk.ClearColorValue{Float32: [4]float32{0, 0, 0, 1}})
		cmd.TransitionImage(v,
			vk.IMAGE_LAYOUT_GENERAL, vk.IMAGE_LAYOUT_GENERAL,
			vk.ACCESS_TRANSFER_WRITE_BIT, vk.ACCESS_MEMORY_READ_BIT|vk.ACCESS_MEMORY_WRITE_BIT,
			vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_ALL_COMMANDS_BIT)
	})
}
