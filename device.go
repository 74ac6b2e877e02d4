// device.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type PhysicalDeviceType int32

const (
	PHYSICAL_DEVICE_TYPE_OTHER          PhysicalDeviceType = C.VK_PHYSICAL_DEVICE_TYPE_OTHER
	PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU PhysicalDeviceType = C.VK_PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU
	PHYSICAL_DEVICE_TYPE_DISCRETE_GPU   PhysicalDeviceType = C.VK_PHYSICAL_DEVICE_TYPE_DISCRETE_GPU
	PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU    PhysicalDeviceType = C.VK_PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU
	PHYSICAL_DEVICE_TYPE_CPU            PhysicalDeviceType = C.VK_PHYSICAL_DEVICE_TYPE_CPU
)

func (t PhysicalDeviceType) String() string {
	switch t {
	case PHYSICAL_DEVICE_TYPE_INTEGRATED_GPU:
		return "integrated"
	case PHYSICAL_DEVICE_TYPE_DISCRETE_GPU:
		return "discrete"
	case PHYSICAL_DEVICE_TYPE_VIRTUAL_GPU:
		return "virtual"
	case PHYSICAL_DEVICE_TYPE_CPU:
		return "cpu"
	default:
		return "other"
	}
}

type PhysicalDeviceProperties struct {
	ApiVersion    uint32
	DriverVersion uint32
	VendorID      uint32
	DeviceID      uint32
	DeviceType    PhysicalDeviceType
	DeviceName    string
}

// PhysicalDeviceIDProperties identifies a device and its driver across
// instances and processes. Memory exported as an opaque fd can only be
// imported where both UUIDs match.
type PhysicalDeviceIDProperties struct {
	DeviceUUID [16]byte
	DriverUUID [16]byte
}

type QueueFamilyProperties struct {
	QueueFlags                  QueueFlags
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity Extent3D
}

func (physicalDevice PhysicalDevice) GetProperties() PhysicalDeviceProperties {
	var props C.VkPhysicalDeviceProperties
	C.vkGetPhysicalDeviceProperties(physicalDevice.handle, &props)

	return PhysicalDeviceProperties{
		ApiVersion:    uint32(props.apiVersion),
		DriverVersion: uint32(props.driverVersion),
		VendorID:      uint32(props.vendorID),
		DeviceID:      uint32(props.deviceID),
		DeviceType:    PhysicalDeviceType(props.deviceType),
		DeviceName:    C.GoString(&props.deviceName[0]),
	}
}

func (physicalDevice PhysicalDevice) GetIDProperties() PhysicalDeviceIDProperties {
	idProps := (*C.VkPhysicalDeviceIDProperties)(C.calloc(1, C.sizeof_VkPhysicalDeviceIDProperties))
	defer C.free(unsafe.Pointer(idProps))
	idProps.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_ID_PROPERTIES

	props2 := (*C.VkPhysicalDeviceProperties2)(C.calloc(1, C.sizeof_VkPhysicalDeviceProperties2))
	defer C.free(unsafe.Pointer(props2))
	props2.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2
	props2.pNext = unsafe.Pointer(idProps)

	C.vkGetPhysicalDeviceProperties2(physicalDevice.handle, props2)

	var out PhysicalDeviceIDProperties
	for i := range out.DeviceUUID {
		out.DeviceUUID[i] = byte(idProps.deviceUUID[i])
		out.DriverUUID[i] = byte(idProps.driverUUID[i])
	}
	return out
}

func (physicalDevice PhysicalDevice) GetQueueFamilyProperties() []QueueFamilyProperties {
	var count C.uint32_t
	C.vkGetPhysicalDeviceQueueFamilyProperties(physicalDevice.handle, &count, nil)

	if count == 0 {
		return nil
	}

	props := make([]C.VkQueueFamilyProperties, count)
	C.vkGetPhysicalDeviceQueueFamilyProperties(physicalDevice.handle, &count, &props[0])

	goProps := make([]QueueFamilyProperties, count)
	for i := range goProps {
		goProps[i] = QueueFamilyProperties{
			QueueFlags:         QueueFlags(props[i].queueFlags),
			QueueCount:         uint32(props[i].queueCount),
			TimestampValidBits: uint32(props[i].timestampValidBits),
			MinImageTransferGranularity: Extent3D{
				Width:  uint32(props[i].minImageTransferGranularity.width),
				Height: uint32(props[i].minImageTransferGranularity.height),
				Depth:  uint32(props[i].minImageTransferGranularity.depth),
			},
		}
	}

	return goProps
}

// EnumerateDeviceExtensionNames lists the device-level extensions the driver exposes.
func (physicalDevice PhysicalDevice) EnumerateDeviceExtensionNames() ([]string, error) {
	var count C.uint32_t
	result := C.vkEnumerateDeviceExtensionProperties(physicalDevice.handle, nil, &count, nil)
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}
	if count == 0 {
		return nil, nil
	}

	props := make([]C.VkExtensionProperties, count)
	result = C.vkEnumerateDeviceExtensionProperties(physicalDevice.handle, nil, &count, &props[0])
	if result != C.VK_SUCCESS && result != C.VK_INCOMPLETE {
		return nil, Result(result)
	}

	names := make([]string, count)
	for i := range names {
		names[i] = C.GoString(&props[i].extensionName[0])
	}
	return names, nil
}

func (physicalDevice PhysicalDevice) GetSurfaceSupportKHR(queueFamilyIndex uint32, surface SurfaceKHR) (bool, error) {
	var supported C.VkBool32
	result := C.vkGetPhysicalDeviceSurfaceSupportKHR(
		physicalDevice.handle,
		C.uint32_t(queueFamilyIndex),
		surface.handle,
		&supported,
	)

	if result != C.VK_SUCCESS {
		return false, Result(result)
	}

	return supported == C.VK_TRUE, nil
}

type DeviceQueueCreateInfo struct {
	QueueFamilyIndex uint32
	QueuePriorities  []float32
}

type PhysicalDeviceVulkan13Features struct {
	DynamicRendering bool
	Synchronization2 bool
}

type DeviceCreateInfo struct {
	QueueCreateInfos      []DeviceQueueCreateInfo
	EnabledLayerNames     []string
	EnabledExtensionNames []string
	Vulkan13Features      *PhysicalDeviceVulkan13Features
}

type deviceCreateData struct {
	cInfo            *C.VkDeviceCreateInfo
	queueCreateInfos *C.VkDeviceQueueCreateInfo
	queuePriorities  []*C.float
	features13       *C.VkPhysicalDeviceVulkan13Features
}

func (info *DeviceCreateInfo) vulkanize() *deviceCreateData {
	data := &deviceCreateData{}

	data.cInfo = (*C.VkDeviceCreateInfo)(C.calloc(1, C.sizeof_VkDeviceCreateInfo))
	data.cInfo.sType = C.VK_STRUCTURE_TYPE_DEVICE_CREATE_INFO
	data.cInfo.pNext = nil

	// Queue create infos
	if len(info.QueueCreateInfos) > 0 {
		data.queueCreateInfos = (*C.VkDeviceQueueCreateInfo)(C.calloc(C.size_t(len(info.QueueCreateInfos)), C.sizeof_VkDeviceQueueCreateInfo))
		queueInfos := unsafe.Slice(data.queueCreateInfos, len(info.QueueCreateInfos))

		for i, queueInfo := range info.QueueCreateInfos {
			queueInfos[i].sType = C.VK_STRUCTURE_TYPE_DEVICE_QUEUE_CREATE_INFO
			queueInfos[i].queueFamilyIndex = C.uint32_t(queueInfo.QueueFamilyIndex)
			queueInfos[i].queueCount = C.uint32_t(len(queueInfo.QueuePriorities))

			priorities := (*C.float)(C.calloc(C.size_t(len(queueInfo.QueuePriorities)), C.size_t(unsafe.Sizeof(C.float(0)))))
			for j, priority := range queueInfo.QueuePriorities {
				unsafe.Slice(priorities, len(queueInfo.QueuePriorities))[j] = C.float(priority)
			}
			data.queuePriorities = append(data.queuePriorities, priorities)
			queueInfos[i].pQueuePriorities = priorities
		}

		data.cInfo.queueCreateInfoCount = C.uint32_t(len(info.QueueCreateInfos))
		data.cInfo.pQueueCreateInfos = data.queueCreateInfos
	}

	data.cInfo.enabledLayerCount = C.uint32_t(len(info.EnabledLayerNames))
	data.cInfo.ppEnabledLayerNames = cStringArray(info.EnabledLayerNames)

	data.cInfo.enabledExtensionCount = C.uint32_t(len(info.EnabledExtensionNames))
	data.cInfo.ppEnabledExtensionNames = cStringArray(info.EnabledExtensionNames)

	// Setup Vulkan 1.3 features
	if info.Vulkan13Features != nil {
		data.features13 = (*C.VkPhysicalDeviceVulkan13Features)(C.calloc(1, C.sizeof_VkPhysicalDeviceVulkan13Features))
		data.features13.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_3_FEATURES
		if info.Vulkan13Features.DynamicRendering {
			data.features13.dynamicRendering = C.VK_TRUE
		}
		if info.Vulkan13Features.Synchronization2 {
			data.features13.synchronization2 = C.VK_TRUE
		}
		data.cInfo.pNext = unsafe.Pointer(data.features13)
	}

	return data
}

func (data *deviceCreateData) free() {
	freeCStringArray(data.cInfo.ppEnabledLayerNames, int(data.cInfo.enabledLayerCount))
	freeCStringArray(data.cInfo.ppEnabledExtensionNames, int(data.cInfo.enabledExtensionCount))

	for _, priorities := range data.queuePriorities {
		C.free(unsafe.Pointer(priorities))
	}
	if data.queueCreateInfos != nil {
		C.free(unsafe.Pointer(data.queueCreateInfos))
	}
	if data.features13 != nil {
		C.free(unsafe.Pointer(data.features13))
	}

	C.free(unsafe.Pointer(data.cInfo))
}

func (physicalDevice PhysicalDevice) CreateDevice(createInfo *DeviceCreateInfo) (Device, error) {
	data := createInfo.vulkanize()
	defer data.free()

	var device C.VkDevice
	result := C.vkCreateDevice(physicalDevice.handle, data.cInfo, nil, &device)

	if result != C.VK_SUCCESS {
		return Device{}, Result(result)
	}

	return Device{handle: device}, nil
}

func (device Device) Destroy() {
	C.vkDestroyDevice(device.handle, nil)
}

func (device Device) WaitIdle() error {
	result := C.vkDeviceWaitIdle(device.handle)
	if result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

func (device Device) GetQueue(queueFamilyIndex, queueIndex uint32) Queue {
	var queue C.VkQueue
	C.vkGetDeviceQueue(device.handle, C.uint32_t(queueFamilyIndex), C.uint32_t(queueIndex), &queue)
	return Queue{handle: queue}
}
