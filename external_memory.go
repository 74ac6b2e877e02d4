// external_memory.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>

static VkResult callGetMemoryFdKHR(VkDevice device, const VkMemoryGetFdInfoKHR* info, int* fd) {
	PFN_vkGetMemoryFdKHR fn = (PFN_vkGetMemoryFdKHR)vkGetDeviceProcAddr(device, "vkGetMemoryFdKHR");
	if (fn == NULL) {
		return VK_ERROR_EXTENSION_NOT_PRESENT;
	}
	return fn(device, info, fd);
}
*/
import "C"
import "unsafe"

type ExternalMemoryHandleTypeFlags uint32

const (
	EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_FD_BIT ExternalMemoryHandleTypeFlags = C.VK_EXTERNAL_MEMORY_HANDLE_TYPE_OPAQUE_FD_BIT
	EXTERNAL_MEMORY_HANDLE_TYPE_DMA_BUF_BIT   ExternalMemoryHandleTypeFlags = C.VK_EXTERNAL_MEMORY_HANDLE_TYPE_DMA_BUF_BIT_EXT
)

type ExternalMemoryFeatureFlags uint32

const (
	EXTERNAL_MEMORY_FEATURE_DEDICATED_ONLY_BIT ExternalMemoryFeatureFlags = C.VK_EXTERNAL_MEMORY_FEATURE_DEDICATED_ONLY_BIT
	EXTERNAL_MEMORY_FEATURE_EXPORTABLE_BIT     ExternalMemoryFeatureFlags = C.VK_EXTERNAL_MEMORY_FEATURE_EXPORTABLE_BIT
	EXTERNAL_MEMORY_FEATURE_IMPORTABLE_BIT     ExternalMemoryFeatureFlags = C.VK_EXTERNAL_MEMORY_FEATURE_IMPORTABLE_BIT
)

// ImportMemoryFdInfo hands an fd to vkAllocateMemory. On success the
// driver owns Fd and the caller must not close it.
type ImportMemoryFdInfo struct {
	HandleType ExternalMemoryHandleTypeFlags
	Fd         int
}

type externalMemoryChain struct {
	head      unsafe.Pointer
	export    *C.VkExportMemoryAllocateInfo
	importFd  *C.VkImportMemoryFdInfoKHR
	dedicated *C.VkMemoryDedicatedAllocateInfo
}

func (info *MemoryAllocateInfo) externalChain() *externalMemoryChain {
	chain := &externalMemoryChain{}

	if info.DedicatedImage.handle != nil {
		chain.dedicated = (*C.VkMemoryDedicatedAllocateInfo)(C.calloc(1, C.sizeof_VkMemoryDedicatedAllocateInfo))
		chain.dedicated.sType = C.VK_STRUCTURE_TYPE_MEMORY_DEDICATED_ALLOCATE_INFO
		chain.dedicated.pNext = chain.head
		chain.dedicated.image = info.DedicatedImage.handle
		chain.head = unsafe.Pointer(chain.dedicated)
	}

	if info.Export != 0 {
		chain.export = (*C.VkExportMemoryAllocateInfo)(C.calloc(1, C.sizeof_VkExportMemoryAllocateInfo))
		chain.export.sType = C.VK_STRUCTURE_TYPE_EXPORT_MEMORY_ALLOCATE_INFO
		chain.export.pNext = chain.head
		chain.export.handleTypes = C.VkExternalMemoryHandleTypeFlags(info.Export)
		chain.head = unsafe.Pointer(chain.export)
	}

	if info.Import != nil {
		chain.importFd = (*C.VkImportMemoryFdInfoKHR)(C.calloc(1, C.sizeof_VkImportMemoryFdInfoKHR))
		chain.importFd.sType = C.VK_STRUCTURE_TYPE_IMPORT_MEMORY_FD_INFO_KHR
		chain.importFd.pNext = chain.head
		chain.importFd.handleType = C.VkExternalMemoryHandleTypeFlagBits(info.Import.HandleType)
		chain.importFd.fd = C.int(info.Import.Fd)
		chain.head = unsafe.Pointer(chain.importFd)
	}

	return chain
}

func (chain *externalMemoryChain) free() {
	if chain.dedicated != nil {
		C.free(unsafe.Pointer(chain.dedicated))
	}
	if chain.export != nil {
		C.free(unsafe.Pointer(chain.export))
	}
	if chain.importFd != nil {
		C.free(unsafe.Pointer(chain.importFd))
	}
}

// GetMemoryFdKHR exports memory allocated with a matching Export handle type.
// Each call returns a new fd owned by the caller.
func (device Device) GetMemoryFdKHR(memory DeviceMemory, handleType ExternalMemoryHandleTypeFlags) (int, error) {
	cInfo := (*C.VkMemoryGetFdInfoKHR)(C.calloc(1, C.sizeof_VkMemoryGetFdInfoKHR))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_MEMORY_GET_FD_INFO_KHR
	cInfo.memory = memory.handle
	cInfo.handleType = C.VkExternalMemoryHandleTypeFlagBits(handleType)

	var fd C.int
	result := C.callGetMemoryFdKHR(device.handle, cInfo, &fd)
	if result != C.VK_SUCCESS {
		return -1, Result(result)
	}
	return int(fd), nil
}

// GetExternalImageFormatFeatures reports whether a 2D optimal-tiled image of
// the given format and usage can be exported or imported with handleType.
func (physicalDevice PhysicalDevice) GetExternalImageFormatFeatures(
	format Format,
	usage ImageUsageFlags,
	handleType ExternalMemoryHandleTypeFlags,
) (ExternalMemoryFeatureFlags, error) {
	extInfo := (*C.VkPhysicalDeviceExternalImageFormatInfo)(C.calloc(1, C.sizeof_VkPhysicalDeviceExternalImageFormatInfo))
	defer C.free(unsafe.Pointer(extInfo))
	extInfo.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_EXTERNAL_IMAGE_FORMAT_INFO
	extInfo.handleType = C.VkExternalMemoryHandleTypeFlagBits(handleType)

	formatInfo := (*C.VkPhysicalDeviceImageFormatInfo2)(C.calloc(1, C.sizeof_VkPhysicalDeviceImageFormatInfo2))
	defer C.free(unsafe.Pointer(formatInfo))
	formatInfo.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_IMAGE_FORMAT_INFO_2
	formatInfo.pNext = unsafe.Pointer(extInfo)
	formatInfo.format = C.VkFormat(format)
	formatInfo._type = C.VK_IMAGE_TYPE_2D
	formatInfo.tiling = C.VK_IMAGE_TILING_OPTIMAL
	formatInfo.usage = C.VkImageUsageFlags(usage)

	extProps := (*C.VkExternalImageFormatProperties)(C.calloc(1, C.sizeof_VkExternalImageFormatProperties))
	defer C.free(unsafe.Pointer(extProps))
	extProps.sType = C.VK_STRUCTURE_TYPE_EXTERNAL_IMAGE_FORMAT_PROPERTIES

	props := (*C.VkImageFormatProperties2)(C.calloc(1, C.sizeof_VkImageFormatProperties2))
	defer C.free(unsafe.Pointer(props))
	props.sType = C.VK_STRUCTURE_TYPE_IMAGE_FORMAT_PROPERTIES_2
	props.pNext = unsafe.Pointer(extProps)

	result := C.vkGetPhysicalDeviceImageFormatProperties2(physicalDevice.handle, formatInfo, props)
	if result != C.VK_SUCCESS {
		return 0, Result(result)
	}

	return ExternalMemoryFeatureFlags(extProps.externalMemoryProperties.externalMemoryFeatures), nil
}
