// imageview.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type ImageViewType int32

const (
	IMAGE_VIEW_TYPE_2D ImageViewType = C.VK_IMAGE_VIEW_TYPE_2D
)

type ComponentSwizzle int32

const (
	COMPONENT_SWIZZLE_IDENTITY ComponentSwizzle = C.VK_COMPONENT_SWIZZLE_IDENTITY
)

// ComponentMapping's zero value is the identity swizzle.
type ComponentMapping struct {
	R ComponentSwizzle
	G ComponentSwizzle
	B ComponentSwizzle
	A ComponentSwizzle
}

type ImageViewCreateInfo struct {
	Image            Image
	ViewType         ImageViewType
	Format           Format
	Components       ComponentMapping
	SubresourceRange ImageSubresourceRange
}

func (info *ImageViewCreateInfo) vulkanize() *C.VkImageViewCreateInfo {
	cInfo := (*C.VkImageViewCreateInfo)(C.calloc(1, C.sizeof_VkImageViewCreateInfo))
	cInfo.sType = C.VK_STRUCTURE_TYPE_IMAGE_VIEW_CREATE_INFO
	cInfo.image = info.Image.handle
	cInfo.viewType = C.VkImageViewType(info.ViewType)
	cInfo.format = C.VkFormat(info.Format)

	cInfo.components.r = C.VkComponentSwizzle(info.Components.R)
	cInfo.components.g = C.VkComponentSwizzle(info.Components.G)
	cInfo.components.b = C.VkComponentSwizzle(info.Components.B)
	cInfo.components.a = C.VkComponentSwizzle(info.Components.A)

	cInfo.subresourceRange.aspectMask = C.VkImageAspectFlags(info.SubresourceRange.AspectMask)
	cInfo.subresourceRange.baseMipLevel = C.uint32_t(info.SubresourceRange.BaseMipLevel)
	cInfo.subresourceRange.levelCount = C.uint32_t(info.SubresourceRange.LevelCount)
	cInfo.subresourceRange.baseArrayLayer = C.uint32_t(info.SubresourceRange.BaseArrayLayer)
	cInfo.subresourceRange.layerCount = C.uint32_t(info.SubresourceRange.LayerCount)

	return cInfo
}

func (device Device) CreateImageView(createInfo *ImageViewCreateInfo) (ImageView, error) {
	cInfo := createInfo.vulkanize()
	defer C.free(unsafe.Pointer(cInfo))

	var imageView C.VkImageView
	result := C.vkCreateImageView(device.handle, cInfo, nil, &imageView)

	if result != C.VK_SUCCESS {
		return ImageView{}, Result(result)
	}

	return ImageView{handle: imageView}, nil
}

func (device Device) DestroyImageView(imageView ImageView) {
	C.vkDestroyImageView(device.handle, imageView.handle, nil)
}
