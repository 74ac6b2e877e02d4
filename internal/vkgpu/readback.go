package vkgpu

import (
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
)

// Readback copies an image that is in GENERAL layout into host memory and
// returns its tightly packed RGBA bytes. The image is left in GENERAL.
func Readback(c *Context, src bridge.Image, extent bridge.Extent) ([]byte, error) {
	img, err := asImage(src)
	if err != nil {
		return nil, err
	}
	size := uint64(extent.Width) * uint64(extent.Height) * 4

	buffer, memory, err := c.Device.CreateBufferWithMemory(
		size,
		vk.BUFFER_USAGE_TRANSFER_DST_BIT,
		vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
		c.Physical,
	)
	if err != nil {
		return nil, fmt.Errorf("readback buffer: %w", err)
	}
	defer func() {
		c.Device.DestroyBuffer(buffer)
		c.Device.FreeMemory(memory)
	}()

	shot, err := newOneShot(c)
	if err != nil {
		return nil, err
	}
	defer shot.destroy()

	err = shot.run("readback", func(cmd vk.CommandBuffer) {
		cmd.TransitionImage(img,
			vk.IMAGE_LAYOUT_GENERAL, vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL,
			vk.ACCESS_MEMORY_WRITE_BIT, vk.ACCESS_TRANSFER_READ_BIT,
			vk.PIPELINE_STAGE_ALL_COMMANDS_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT)
		cmd.CopyImageToBuffer(img, vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL, buffer, []vk.BufferImageCopy{{
			ImageSubresource: vk.ColorSubresourceLayers,
			ImageExtent:      vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		}})
		cmd.TransitionImage(img,
			vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL, vk.IMAGE_LAYOUT_GENERAL,
			vk.ACCESS_TRANSFER_READ_BIT, vk.ACCESS_HOST_READ_BIT,
			vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_HOST_BIT)
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := c.Device.DownloadFromBuffer(memory, out); err != nil {
		return nil, fmt.Errorf("readback map: %w", err)
	}
	return out, nil
}
