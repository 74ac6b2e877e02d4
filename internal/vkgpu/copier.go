package vkgpu

import (
	"context"
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/frames"
)

// Copier records a full-extent image copy from a pool image into the
// exported bridge image. It implements transfer.Device.
type Copier struct {
	shot   *oneShot
	bridge vk.Image
	extent vk.Extent3D
}

func NewCopier(c *Context, bridgeImage bridge.Image, extent bridge.Extent) (*Copier, error) {
	img, err := asImage(bridgeImage)
	if err != nil {
		return nil, err
	}
	shot, err := newOneShot(c)
	if err != nil {
		return nil, err
	}
	return &Copier{
		shot:   shot,
		bridge: img,
		extent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}, nil
}

// CopyToBridge expects src in TRANSFER_SRC_OPTIMAL, as left by FramePool.
// The bridge image returns to GENERAL before the fence signals.
func (cp *Copier) CopyToBridge(ctx context.Context, src frames.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := asImage(src.Image)
	if err != nil {
		return err
	}

	return cp.shot.run(fmt.Sprintf("copy frame %d", src.Seq), func(cmd vk.CommandBuffer) {
		cmd.PipelineBarrier(vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT, 0, []vk.ImageMemoryBarrier{
			{
				SrcAccessMask:       vk.ACCESS_TRANSFER_WRITE_BIT,
				DstAccessMask:       vk.ACCESS_TRANSFER_READ_BIT,
				OldLayout:           vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL,
				NewLayout:           vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL,
				SrcQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
				DstQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
				Image:               img,
				SubresourceRange:    vk.ColorSubresourceRange,
			},
			{
				SrcAccessMask:       vk.ACCESS_MEMORY_READ_BIT,
				DstAccessMask:       vk.ACCESS_TRANSFER_WRITE_BIT,
				OldLayout:           vk.IMAGE_LAYOUT_GENERAL,
				NewLayout:           vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL,
				SrcQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
				DstQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
				Image:               cp.bridge,
				SubresourceRange:    vk.ColorSubresourceRange,
			},
		})

		cmd.CopyImage(img, vk.IMAGE_LAYOUT_TRANSFER_SRC_OPTIMAL,
			cp.bridge, vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL,
			[]vk.ImageCopy{{
				SrcSubresource: vk.ColorSubresourceLayers,
				DstSubresource: vk.ColorSubresourceLayers,
				Extent:         cp.extent,
			}})

		cmd.TransitionImage(cp.bridge,
			vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, vk.IMAGE_LAYOUT_GENERAL,
			vk.ACCESS_TRANSFER_WRITE_BIT, vk.ACCESS_MEMORY_READ_BIT,
			vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT)
	})
}

func (cp *Copier) Destroy() { cp.shot.destroy() }
