package vkbridge

/*
#include <vulkan/vulkan.h>
*/
import "C"

import "fmt"

type Result int32

const (
	SUCCESS                 Result = 0
	NOT_READY               Result = 1
	TIMEOUT                 Result = 2
	INCOMPLETE              Result = 5
	OUT_OF_HOST_MEMORY      Result = -1
	OUT_OF_DEVICE_MEMORY    Result = -2
	INITIALIZATION_FAILED   Result = -3
	DEVICE_LOST             Result = -4
	MEMORY_MAP_FAILED       Result = -5
	LAYER_NOT_PRESENT       Result = -6
	EXTENSION_NOT_PRESENT   Result = -7
	FEATURE_NOT_PRESENT     Result = -8
	INCOMPATIBLE_DRIVER     Result = -9
	TOO_MANY_OBJECTS        Result = -10
	FORMAT_NOT_SUPPORTED    Result = -11
	FRAGMENTED_POOL         Result = -12
	UNKNOWN                 Result = -13
	OUT_OF_POOL_MEMORY      Result = -1000069000
	INVALID_EXTERNAL_HANDLE Result = -1000072003
	SURFACE_LOST            Result = -1000000000
	NATIVE_WINDOW_IN_USE    Result = -1000000001
	SUBOPTIMAL              Result = 1000001003
	OUT_OF_DATE             Result = -1000001004
	VALIDATION_FAILED       Result = -1000011001
)

func (r Result) Error() string {
	switch r {
	case SUCCESS:
		return "SUCCESS"
	case NOT_READY:
		return "NOT READY"
	case TIMEOUT:
		return "TIMEOUT"
	case INCOMPLETE:
		return "INCOMPLETE"
	case OUT_OF_HOST_MEMORY:
		return "OUT OF HOST MEMORY"
	case OUT_OF_DEVICE_MEMORY:
		return "OUT OF DEVICE MEMORY"
	case INITIALIZATION_FAILED:
		return "INITIALIZATION FAILED"
	case DEVICE_LOST:
		return "DEVICE LOST"
	case MEMORY_MAP_FAILED:
		return "MEMORY MAP FAILED"
	case LAYER_NOT_PRESENT:
		return "LAYER NOT PRESENT"
	case EXTENSION_NOT_PRESENT:
		return "EXTENSION NOT PRESENT"
	case FEATURE_NOT_PRESENT:
		return "FEATURE NOT PRESENT"
	case INCOMPATIBLE_DRIVER:
		return "INCOMPATIBLE DRIVER"
	case TOO_MANY_OBJECTS:
		return "TOO MANY OBJECTS"
	case FORMAT_NOT_SUPPORTED:
		return "FORMAT NOT SUPPORTED"
	case FRAGMENTED_POOL:
		return "FRAGMENTED POOL"
	case UNKNOWN:
		return "UNKNOWN"
	case OUT_OF_POOL_MEMORY:
		return "OUT OF POOL MEMORY"
	case INVALID_EXTERNAL_HANDLE:
		return "INVALID EXTERNAL HANDLE"
	case SURFACE_LOST:
		return "SURFACE LOST"
	case NATIVE_WINDOW_IN_USE:
		return "NATIVE WINDOW IN USE"
	case SUBOPTIMAL:
		return "SUBOPTIMAL"
	case OUT_OF_DATE:
		return "OUT OF DATE"
	case VALIDATION_FAILED:
		return "VALIDATION FAILED"
	default:
		return fmt.Sprintf("VkResult(%d)", r)
	}
}

// Dispatchable and non-dispatchable handles. The zero value is VK_NULL_HANDLE.
type Instance struct {
	handle C.VkInstance
}

type PhysicalDevice struct {
	handle C.VkPhysicalDevice
}

type Device struct {
	handle C.VkDevice
}

type Queue struct {
	handle C.VkQueue
}

type Image struct {
	handle C.VkImage
}

type ImageView struct {
	handle C.VkImageView
}

type Pipeline struct {
	handle C.VkPipeline
}

type PipelineLayout struct {
	handle C.VkPipelineLayout
}

type DescriptorSetLayout struct {
	handle C.VkDescriptorSetLayout
}

type SurfaceKHR struct {
	handle C.VkSurfaceKHR
}

type SwapchainKHR struct {
	handle C.VkSwapchainKHR
}

func (image Image) IsNull() bool { return image.handle == nil }

func (swapchain SwapchainKHR) IsNull() bool { return swapchain.handle == nil }

// Geometry
type Extent2D struct {
	Width  uint32
	Height uint32
}

type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type Format int32

const (
	FORMAT_UNDEFINED      Format = C.VK_FORMAT_UNDEFINED
	FORMAT_R8G8B8A8_UNORM Format = C.VK_FORMAT_R8G8B8A8_UNORM
	FORMAT_R8G8B8A8_SRGB  Format = C.VK_FORMAT_R8G8B8A8_SRGB
	FORMAT_B8G8R8A8_UNORM Format = C.VK_FORMAT_B8G8R8A8_UNORM
	FORMAT_B8G8R8A8_SRGB  Format = C.VK_FORMAT_B8G8R8A8_SRGB
)

func (f Format) String() string {
	switch f {
	case FORMAT_UNDEFINED:
		return "UNDEFINED"
	case FORMAT_R8G8B8A8_UNORM:
		return "R8G8B8A8_UNORM"
	case FORMAT_R8G8B8A8_SRGB:
		return "R8G8B8A8_SRGB"
	case FORMAT_B8G8R8A8_UNORM:
		return "B8G8R8A8_UNORM"
	case FORMAT_B8G8R8A8_SRGB:
		return "B8G8R8A8_SRGB"
	default:
		return fmt.Sprintf("VkFormat(%d)", int32(f))
	}
}

// IsSRGB reports whether the format stores sRGB-encoded colour.
func (f Format) IsSRGB() bool {
	switch f {
	case FORMAT_R8G8B8A8_SRGB, FORMAT_B8G8R8A8_SRGB,
		C.VK_FORMAT_A8B8G8R8_SRGB_PACK32, C.VK_FORMAT_R8G8B8_SRGB, C.VK_FORMAT_B8G8R8_SRGB:
		return true
	}
	return false
}

type ImageUsageFlags uint32

const (
	IMAGE_USAGE_TRANSFER_SRC_BIT     ImageUsageFlags = C.VK_IMAGE_USAGE_TRANSFER_SRC_BIT
	IMAGE_USAGE_TRANSFER_DST_BIT     ImageUsageFlags = C.VK_IMAGE_USAGE_TRANSFER_DST_BIT
	IMAGE_USAGE_SAMPLED_BIT          ImageUsageFlags = C.VK_IMAGE_USAGE_SAMPLED_BIT
	IMAGE_USAGE_COLOR_ATTACHMENT_BIT ImageUsageFlags = C.VK_IMAGE_USAGE_COLOR_ATTACHMENT_BIT
)

type ImageCreateFlags uint32

type ImageAspectFlags uint32

const (
	IMAGE_ASPECT_COLOR_BIT ImageAspectFlags = C.VK_IMAGE_ASPECT_COLOR_BIT
)

type ImageSubresourceRange struct {
	AspectMask     ImageAspectFlags
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ColorSubresourceRange covers the single mip level and layer of a plain 2D colour image.
var ColorSubresourceRange = ImageSubresourceRange{
	AspectMask: IMAGE_ASPECT_COLOR_BIT,
	LevelCount: 1,
	LayerCount: 1,
}

type SampleCountFlags uint32

const (
	SAMPLE_COUNT_1_BIT SampleCountFlags = C.VK_SAMPLE_COUNT_1_BIT
)

type ShaderStageFlags uint32

const (
	SHADER_STAGE_VERTEX_BIT   ShaderStageFlags = C.VK_SHADER_STAGE_VERTEX_BIT
	SHADER_STAGE_FRAGMENT_BIT ShaderStageFlags = C.VK_SHADER_STAGE_FRAGMENT_BIT
)

type QueueFlags uint32

const (
	QUEUE_GRAPHICS_BIT QueueFlags = C.VK_QUEUE_GRAPHICS_BIT
	QUEUE_COMPUTE_BIT  QueueFlags = C.VK_QUEUE_COMPUTE_BIT
	QUEUE_TRANSFER_BIT QueueFlags = C.VK_QUEUE_TRANSFER_BIT
)

// QUEUE_FAMILY_IGNORED leaves queue family ownership untouched in a barrier.
const QUEUE_FAMILY_IGNORED = ^uint32(0)

// WAIT_FOREVER is the timeout that never expires.
const WAIT_FOREVER = ^uint64(0)
