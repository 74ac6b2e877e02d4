package vkgpu

import (
	"context"
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
)

type poolImage struct {
	image  vk.Image
	memory vk.DeviceMemory
}

// FramePool is the producer's ring of device-local RGBA images and the
// staging buffer used to fill them. It implements engine.Uploader.
type FramePool struct {
	c      *Context
	extent bridge.Extent
	images []poolImage

	staging       vk.Buffer
	stagingMemory vk.DeviceMemory
	stagingSize   uint64
	shot          *oneShot
}

func NewFramePool(c *Context, size int, extent bridge.Extent) (p *FramePool, err error) {
	if size <= 0 || extent.IsZero() {
		return nil, fmt.Errorf("frame pool: %d images of %s", size, extent)
	}
	p = &FramePool{
		c:           c,
		extent:      extent,
		stagingSize: uint64(extent.Width) * uint64(extent.Height) * 4,
	}
	defer func() {
		if err != nil {
			p.Destroy()
		}
	}()

	for i := range size {
		img, mem, err := c.Device.CreateImageWithMemory(
			extent.Width, extent.Height,
			vk.FORMAT_R8G8B8A8_SRGB,
			vk.IMAGE_TILING_OPTIMAL,
			vk.IMAGE_USAGE_TRANSFER_SRC_BIT|vk.IMAGE_USAGE_TRANSFER_DST_BIT|vk.IMAGE_USAGE_SAMPLED_BIT,
			vk.MEMORY_PROPERTY_DEVICE_LOCAL_BIT,
			c.Physical,
		)
		if err != nil {
			return nil, fmt.Errorf("frame pool image %d: %w", i, err)
		}
		p.images = append(p.images, poolImage{image: img, memory: mem})
	}

	p.staging, p.stagingMemory, err = c.Device.CreateBufferWithMemory(
		p.stagingSize,
		vk.BUFFER_USAGE_TRANSFER_SRC_BIT,
		vk.MEMORY_PROPERTY_HOST_VISIBLE_BIT|vk.MEMORY_PROPERTY_HOST_COHERENT_BIT,
		c.Physical,
	)
	if err != nil {
		return nil, fmt.Errorf("frame pool staging buffer: %w", err)
	}

	if p.shot, err = newOneShot(c); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FramePool) Size() int { return len(p.images) }

// Upload copies pixels into pool image slot and leaves it in
// TRANSFER_SRC_OPTIMAL.
func (p *FramePool) Upload(ctx context.Context, slot int, pixels []byte, extent bridge.Extent) (bridge.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(p.images) {
		return nil, fmt.Errorf("frame pool: slot %d out of range", slot)
	}
	if extent != p.extent || uint64(len(pixels)) != p.stagingSize {
		return nil, fmt.Errorf("frame pool: %d bytes at %s, pool is %s", len(pixels), extent, p.extent)
	}

	if err := p.c.Device.UploadToBuffer(p.stagingMemory, pixels); err != nil {
		return nil, fmt.Errorf("frame pool: map staging buffer: %w", err)
	}

	img := p.images[slot].image
	err := p.shot.run("upload frame", func(cmd vk.CommandBuffer) {
		cmd.TransitionImage(img,
			vk.IMAGE_LAYOUT_UNDEFINED, vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL,
			vk.ACCESS_NONE, vk.ACCESS_TRANSFER_WRITE_BIT,
			vk.PIPELINE_STAGE_TOP_OF_PIPE_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT)
		cmd.CopyBufferToImage(p.staging, img, vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, []vk.BufferImageCopy{{
			ImageSubresource: vk.ColorSubresourceLayers,
			ImageExtent:      vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		}})
		cmd.TransitionImage(img,
			vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL,
			vk.ACCESS_TRANSFER_WRITE_BIT, vk.ACCESS_TRANSFER_READ_BIT,
			vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT)
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Destroy releases every pool resource. The device must be idle.
func (p *FramePool) Destroy() {
	if p.shot != nil {
		p.shot.destroy()
		p.shot = nil
	}
	if !p.stagingMemory.IsNull() {
		p.c.Device.DestroyBuffer(p.staging)
		p.c.Device.FreeMemory(p.stagingMemory)
		p.stagingMemory = vk.DeviceMemory{}
	}
	for _, img := range p.images {
		p.c.Device.DestroyImage(img.image)
		p.c.Device.FreeMemory(img.memory)
	}
	p.images = nil
}
