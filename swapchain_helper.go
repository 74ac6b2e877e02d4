// swapchain_helper.go
package vkbridge

import "fmt"

type SwapchainSupportDetails struct {
	Capabilities SurfaceCapabilitiesKHR
	Formats      []SurfaceFormatKHR
	PresentModes []PresentModeKHR
}

func (device PhysicalDevice) QuerySwapchainSupport(surface SurfaceKHR) (SwapchainSupportDetails, error) {
	var details SwapchainSupportDetails
	var err error

	details.Capabilities, err = device.GetSurfaceCapabilitiesKHR(surface)
	if err != nil {
		return details, err
	}

	details.Formats, err = device.GetSurfaceFormatsKHR(surface)
	if err != nil {
		return details, err
	}

	details.PresentModes, err = device.GetSurfacePresentModesKHR(surface)
	if err != nil {
		return details, err
	}

	return details, nil
}

func ChooseSwapExtent(capabilities SurfaceCapabilitiesKHR, windowWidth, windowHeight uint32) Extent2D {
	// If width is max uint32, we can choose our own extent
	if capabilities.CurrentExtent.Width != 0xFFFFFFFF {
		return capabilities.CurrentExtent
	}

	extent := Extent2D{
		Width:  windowWidth,
		Height: windowHeight,
	}

	extent.Width = min(max(extent.Width, capabilities.MinImageExtent.Width), capabilities.MaxImageExtent.Width)
	extent.Height = min(max(extent.Height, capabilities.MinImageExtent.Height), capabilities.MaxImageExtent.Height)

	return extent
}

func ChooseImageCount(capabilities SurfaceCapabilitiesKHR) uint32 {
	// Request one more than minimum for better performance
	imageCount := capabilities.MinImageCount + 1

	// Don't exceed maximum (0 means no limit)
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

// SwapchainOptions are the caller's choices for CreateSwapchain. Format and
// PresentMode must come from the surface's supported lists.
type SwapchainOptions struct {
	Format       SurfaceFormatKHR
	PresentMode  PresentModeKHR
	Width        uint32
	Height       uint32
	OldSwapchain SwapchainKHR
}

// CreateSwapchain builds a colour-attachment swapchain for surface. A zero
// extent means the window is minimised and no swapchain can be created.
func CreateSwapchain(
	device Device,
	physicalDevice PhysicalDevice,
	surface SurfaceKHR,
	opts SwapchainOptions,
) (SwapchainKHR, Extent2D, error) {

	caps, err := physicalDevice.GetSurfaceCapabilitiesKHR(surface)
	if err != nil {
		return SwapchainKHR{}, Extent2D{}, err
	}

	extent := ChooseSwapExtent(caps, opts.Width, opts.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return SwapchainKHR{}, extent, fmt.Errorf("surface extent is %dx%d", extent.Width, extent.Height)
	}

	compositeAlpha := COMPOSITE_ALPHA_OPAQUE_BIT_KHR
	if caps.SupportedCompositeAlpha&compositeAlpha == 0 {
		compositeAlpha = COMPOSITE_ALPHA_INHERIT_BIT_KHR
	}

	swapchain, err := device.CreateSwapchainKHR(&SwapchainCreateInfoKHR{
		Surface:          surface,
		MinImageCount:    ChooseImageCount(caps),
		ImageFormat:      opts.Format.Format,
		ImageColorSpace:  opts.Format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       IMAGE_USAGE_COLOR_ATTACHMENT_BIT,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      opts.PresentMode,
		Clipped:          true,
		OldSwapchain:     opts.OldSwapchain,
	})
	if err != nil {
		return SwapchainKHR{}, Extent2D{}, err
	}

	return swapchain, extent, nil
}

// Create image views for swapchain images
func CreateSwapchainImageViews(device Device, images []Image, format Format) ([]ImageView, error) {
	imageViews := make([]ImageView, len(images))

	for i, image := range images {
		view, err := device.CreateImageViewForTexture(image, format)
		if err != nil {
			// Clean up already created views
			for j := 0; j < i; j++ {
				device.DestroyImageView(imageViews[j])
			}
			return nil, err
		}

		imageViews[i] = view
	}

	return imageViews, nil
}
