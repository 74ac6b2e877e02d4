package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"
)

func cCalloc(n int, size uintptr) unsafe.Pointer {
	return C.calloc(C.size_t(n), C.size_t(size))
}

// cArray allocates a zeroed C array of n elements. Release it with C.free(&array[0]).
func cArray[T any](n int) []T {
	var zero T
	return unsafe.Slice((*T)(cCalloc(n, unsafe.Sizeof(zero))), n)
}

// cStringArray copies names into a C-allocated array of C strings.
// The returned pointer is nil when names is empty.
func cStringArray(names []string) **C.char {
	if len(names) == 0 {
		return nil
	}
	array := (*[1 << 20]*C.char)(C.calloc(C.size_t(len(names)), C.size_t(unsafe.Sizeof((*C.char)(nil)))))[:len(names):len(names)]
	for i, name := range names {
		array[i] = C.CString(name)
	}
	return &array[0]
}

func freeCStringArray(array **C.char, count int) {
	if array == nil {
		return
	}
	strs := unsafe.Slice(array, count)
	for _, s := range strs {
		C.free(unsafe.Pointer(s))
	}
	C.free(unsafe.Pointer(array))
}

type instanceCreateData struct {
	cInfo   *C.VkInstanceCreateInfo
	appInfo *C.VkApplicationInfo
}

func (info *ApplicationInfo) vulkanize() *C.VkApplicationInfo {
	cInfo := (*C.VkApplicationInfo)(C.calloc(1, C.sizeof_VkApplicationInfo))
	cInfo.sType = C.VK_STRUCTURE_TYPE_APPLICATION_INFO
	cInfo.pNext = nil

	if info.ApplicationName != "" {
		cInfo.pApplicationName = C.CString(info.ApplicationName)
	}
	cInfo.applicationVersion = C.uint32_t(info.ApplicationVersion)

	if info.EngineName != "" {
		cInfo.pEngineName = C.CString(info.EngineName)
	}
	cInfo.engineVersion = C.uint32_t(info.EngineVersion)
	cInfo.apiVersion = C.uint32_t(info.ApiVersion)

	return cInfo
}

func (info *InstanceCreateInfo) vulkanize() *instanceCreateData {
	data := &instanceCreateData{}

	data.cInfo = (*C.VkInstanceCreateInfo)(C.calloc(1, C.sizeof_VkInstanceCreateInfo))
	data.cInfo.sType = C.VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO
	data.cInfo.pNext = nil
	data.cInfo.flags = C.VkInstanceCreateFlags(info.Flags)

	if info.ApplicationInfo != nil {
		data.appInfo = info.ApplicationInfo.vulkanize()
		data.cInfo.pApplicationInfo = data.appInfo
	}

	data.cInfo.enabledLayerCount = C.uint32_t(len(info.EnabledLayerNames))
	data.cInfo.ppEnabledLayerNames = cStringArray(info.EnabledLayerNames)

	data.cInfo.enabledExtensionCount = C.uint32_t(len(info.EnabledExtensionNames))
	data.cInfo.ppEnabledExtensionNames = cStringArray(info.EnabledExtensionNames)

	return data
}

func (data *instanceCreateData) free() {
	if data.appInfo != nil {
		if data.appInfo.pApplicationName != nil {
			C.free(unsafe.Pointer(data.appInfo.pApplicationName))
		}
		if data.appInfo.pEngineName != nil {
			C.free(unsafe.Pointer(data.appInfo.pEngineName))
		}
		C.free(unsafe.Pointer(data.appInfo))
	}

	freeCStringArray(data.cInfo.ppEnabledLayerNames, int(data.cInfo.enabledLayerCount))
	freeCStringArray(data.cInfo.ppEnabledExtensionNames, int(data.cInfo.enabledExtensionCount))

	C.free(unsafe.Pointer(data.cInfo))
}
