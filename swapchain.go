// swapchain.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// SwapchainCreateInfoKHR describes an exclusively owned swapchain; the
// window is only ever presented from the queue that renders to it.
type SwapchainCreateInfoKHR struct {
	Surface          SurfaceKHR
	MinImageCount    uint32
	ImageFormat      Format
	ImageColorSpace  ColorSpaceKHR
	ImageExtent      Extent2D
	ImageArrayLayers uint32
	ImageUsage       ImageUsageFlags
	PreTransform     SurfaceTransformFlagsKHR
	CompositeAlpha   CompositeAlphaFlagsKHR
	PresentMode      PresentModeKHR
	Clipped          bool
	OldSwapchain     SwapchainKHR
}

type SharingMode int32

const SHARING_MODE_EXCLUSIVE SharingMode = C.VK_SHARING_MODE_EXCLUSIVE

func (device Device) CreateSwapchainKHR(info *SwapchainCreateInfoKHR) (SwapchainKHR, error) {
	cInfo := (*C.VkSwapchainCreateInfoKHR)(C.calloc(1, C.sizeof_VkSwapchainCreateInfoKHR))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_SWAPCHAIN_CREATE_INFO_KHR
	cInfo.surface = info.Surface.handle
	cInfo.minImageCount = C.uint32_t(info.MinImageCount)
	cInfo.imageFormat = C.VkFormat(info.ImageFormat)
	cInfo.imageColorSpace = C.VkColorSpaceKHR(info.ImageColorSpace)
	cInfo.imageExtent = C.VkExtent2D{width: C.uint32_t(info.ImageExtent.Width), height: C.uint32_t(info.ImageExtent.Height)}
	cInfo.imageArrayLayers = C.uint32_t(info.ImageArrayLayers)
	cInfo.imageUsage = C.VkImageUsageFlags(info.ImageUsage)
	cInfo.imageSharingMode = C.VK_SHARING_MODE_EXCLUSIVE
	cInfo.preTransform = C.VkSurfaceTransformFlagBitsKHR(info.PreTransform)
	cInfo.compositeAlpha = C.VkCompositeAlphaFlagBitsKHR(info.CompositeAlpha)
	cInfo.presentMode = C.VkPresentModeKHR(info.PresentMode)
	cInfo.clipped = C.VK_FALSE
	if info.Clipped {
		cInfo.clipped = C.VK_TRUE
	}
	cInfo.oldSwapchain = info.OldSwapchain.handle

	var swapchain C.VkSwapchainKHR
	if result := C.vkCreateSwapchainKHR(device.handle, cInfo, nil, &swapchain); result != C.VK_SUCCESS {
		return SwapchainKHR{}, Result(result)
	}
	return SwapchainKHR{handle: swapchain}, nil
}

func (device Device) DestroySwapchainKHR(swapchain SwapchainKHR) {
	C.vkDestroySwapchainKHR(device.handle, swapchain.handle, nil)
}

func (device Device) GetSwapchainImagesKHR(swapchain SwapchainKHR) ([]Image, error) {
	var count C.uint32_t
	result := C.vkGetSwapchainImagesKHR(device.handle, swapchain.handle, &count, nil)

	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}
	if count == 0 {
		return nil, nil
	}

	images := make([]C.VkImage, count)
	result = C.vkGetSwapchainImagesKHR(device.handle, swapchain.handle, &count, &images[0])

	if result != C.VK_SUCCESS && result != C.VK_INCOMPLETE {
		return nil, Result(result)
	}

	goImages := make([]Image, count)
	for i := range goImages {
		goImages[i] = Image{handle: images[i]}
	}

	return goImages, nil
}
