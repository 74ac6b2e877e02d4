package vkbridge

/*
#include <vulkan/vulkan.h>
*/
import "C"
import "unsafe"

// CmdClearColorImage fills the whole colour image with one value. The image
// must be in GENERAL or TRANSFER_DST_OPTIMAL layout.
func (cmd CommandBuffer) CmdClearColorImage(image Image, imageLayout ImageLayout, color ClearColorValue) {
	cRange := C.VkImageSubresourceRange{
		aspectMask:     C.VkImageAspectFlags(ColorSubresourceRange.AspectMask),
		baseMipLevel:   C.uint32_t(ColorSubresourceRange.BaseMipLevel),
		levelCount:     C.uint32_t(ColorSubresourceRange.LevelCount),
		baseArrayLayer: C.uint32_t(ColorSubresourceRange.BaseArrayLayer),
		layerCount:     C.uint32_t(ColorSubresourceRange.LayerCount),
	}

	var cColor C.VkClearColorValue
	floats := (*[4]C.float)(unsafe.Pointer(&cColor))
	for i := range floats {
		floats[i] = C.float(color.Float32[i])
	}

	C.vkCmdClearColorImage(
		cmd.handle,
		image.handle,
		C.VkImageLayout(imageLayout),
		&cColor,
		1,
		&cRange,
	)
}
