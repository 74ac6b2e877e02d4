package vkbridge

// #cgo windows LDFLAGS: -LC:/VulkanSDK/1.4.328.1/Lib -lvulkan-1
// #cgo windows CFLAGS: -IC:/VulkanSDK/1.4.328.1/Include
// #cgo linux LDFLAGS: -lvulkan
// #cgo darwin LDFLAGS: -lvulkan
// #include <vulkan/vulkan.h>
import "C"

import "unsafe"

const (
	KHR_SURFACE_EXTENSION_NAME                 = "VK_KHR_surface"
	KHR_SWAPCHAIN_EXTENSION_NAME               = "VK_KHR_swapchain"
	KHR_EXTERNAL_MEMORY_EXTENSION_NAME         = "VK_KHR_external_memory"
	KHR_EXTERNAL_MEMORY_FD_EXTENSION_NAME      = "VK_KHR_external_memory_fd"
	KHR_EXTERNAL_MEMORY_CAPABILITIES_EXTENSION = "VK_KHR_external_memory_capabilities"
	LAYER_KHRONOS_VALIDATION                   = "VK_LAYER_KHRONOS_validation"
)

var (
	ApiVersion_1_3 = MakeApiVersion(0, 1, 3, 0)
	ApiVersion_1_4 = MakeApiVersion(0, 1, 4, 0)
)

func MakeApiVersion(variant, major, minor, patch uint32) uint32 {
	return variant<<29 | major<<22 | minor<<12 | patch
}

func ApiVersionMajor(version uint32) uint32 { return (version >> 22) & 0x7F }
func ApiVersionMinor(version uint32) uint32 { return (version >> 12) & 0x3FF }
func ApiVersionPatch(version uint32) uint32 { return version & 0xFFF }

func EnumerateInstanceVersion() (uint32, error) {
	var version C.uint32_t
	result := C.vkEnumerateInstanceVersion(&version)

	if result != C.VK_SUCCESS {
		return 0, Result(result)
	}

	return uint32(version), nil
}

type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	ApiVersion         uint32
}

type InstanceCreateInfo struct {
	Flags                 uint32
	ApplicationInfo       *ApplicationInfo
	EnabledLayerNames     []string
	EnabledExtensionNames []string
}

func CreateInstance(createInfo *InstanceCreateInfo) (Instance, error) {
	data := createInfo.vulkanize()
	defer data.free()

	var instance C.VkInstance
	result := C.vkCreateInstance(data.cInfo, nil, &instance)
	if result != C.VK_SUCCESS {
		return Instance{}, Result(result)
	}

	return Instance{handle: instance}, nil
}

func (instance Instance) Destroy() {
	C.vkDestroyInstance(instance.handle, nil)
}

// Handle exposes the raw VkInstance for windowing libraries that create surfaces.
func (instance Instance) Handle() unsafe.Pointer {
	return unsafe.Pointer(instance.handle)
}

func (instance Instance) EnumeratePhysicalDevices() ([]PhysicalDevice, error) {
	var count C.uint32_t
	result := C.vkEnumeratePhysicalDevices(instance.handle, &count, nil)
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}
	if count == 0 {
		return nil, nil
	}

	handles := make([]C.VkPhysicalDevice, count)
	result = C.vkEnumeratePhysicalDevices(instance.handle, &count, &handles[0])
	if result != C.VK_SUCCESS && result != C.VK_INCOMPLETE {
		return nil, Result(result)
	}

	devices := make([]PhysicalDevice, count)
	for i := range devices {
		devices[i] = PhysicalDevice{handle: handles[i]}
	}
	return devices, nil
}

func (instance Instance) DestroySurfaceKHR(surface SurfaceKHR) {
	C.vkDestroySurfaceKHR(instance.handle, surface.handle, nil)
}
