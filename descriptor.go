// descriptor.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type DescriptorPool struct {
	handle C.VkDescriptorPool
}

type DescriptorSet struct {
	handle C.VkDescriptorSet
}

// Descriptor Set Layout
type DescriptorSetLayoutCreateInfo struct {
	Bindings []DescriptorSetLayoutBinding
}

type DescriptorSetLayoutBinding struct {
	Binding         uint32
	DescriptorType  DescriptorType
	DescriptorCount uint32
	StageFlags      ShaderStageFlags
}

type DescriptorType int32

const DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER DescriptorType = C.VK_DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER

func (device Device) CreateDescriptorSetLayout(createInfo *DescriptorSetLayoutCreateInfo) (DescriptorSetLayout, error) {
	cInfo := (*C.VkDescriptorSetLayoutCreateInfo)(C.calloc(1, C.sizeof_VkDescriptorSetLayoutCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO

	if len(createInfo.Bindings) > 0 {
		bindings := cArray[C.VkDescriptorSetLayoutBinding](len(createInfo.Bindings))
		defer C.free(unsafe.Pointer(&bindings[0]))
		for i, binding := range createInfo.Bindings {
			bindings[i].binding = C.uint32_t(binding.Binding)
			bindings[i].descriptorType = C.VkDescriptorType(binding.DescriptorType)
			bindings[i].descriptorCount = C.uint32_t(binding.DescriptorCount)
			bindings[i].stageFlags = C.VkShaderStageFlags(binding.StageFlags)
		}
		cInfo.bindingCount = C.uint32_t(len(bindings))
		cInfo.pBindings = &bindings[0]
	}

	var layout C.VkDescriptorSetLayout
	result := C.vkCreateDescriptorSetLayout(device.handle, cInfo, nil, &layout)

	if result != C.VK_SUCCESS {
		return DescriptorSetLayout{}, Result(result)
	}

	return DescriptorSetLayout{handle: layout}, nil
}

func (device Device) DestroyDescriptorSetLayout(layout DescriptorSetLayout) {
	C.vkDestroyDescriptorSetLayout(device.handle, layout.handle, nil)
}

// Descriptor Pool
type DescriptorPoolCreateInfo struct {
	MaxSets   uint32
	PoolSizes []DescriptorPoolSize
}

type DescriptorPoolSize struct {
	Type            DescriptorType
	DescriptorCount uint32
}

func (device Device) CreateDescriptorPool(createInfo *DescriptorPoolCreateInfo) (DescriptorPool, error) {
	cInfo := (*C.VkDescriptorPoolCreateInfo)(C.calloc(1, C.sizeof_VkDescriptorPoolCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO
	cInfo.maxSets = C.uint32_t(createInfo.MaxSets)

	if len(createInfo.PoolSizes) > 0 {
		poolSizes := cArray[C.VkDescriptorPoolSize](len(createInfo.PoolSizes))
		defer C.free(unsafe.Pointer(&poolSizes[0]))
		for i, size := range createInfo.PoolSizes {
			poolSizes[i]._type = C.VkDescriptorType(size.Type)
			poolSizes[i].descriptorCount = C.uint32_t(size.DescriptorCount)
		}
		cInfo.poolSizeCount = C.uint32_t(len(poolSizes))
		cInfo.pPoolSizes = &poolSizes[0]
	}

	var pool C.VkDescriptorPool
	result := C.vkCreateDescriptorPool(device.handle, cInfo, nil, &pool)

	if result != C.VK_SUCCESS {
		return DescriptorPool{}, Result(result)
	}

	return DescriptorPool{handle: pool}, nil
}

func (device Device) DestroyDescriptorPool(pool DescriptorPool) {
	C.vkDestroyDescriptorPool(device.handle, pool.handle, nil)
}

// Descriptor Set Allocation
type DescriptorSetAllocateInfo struct {
	DescriptorPool DescriptorPool
	SetLayouts     []DescriptorSetLayout
}

func (device Device) AllocateDescriptorSets(allocInfo *DescriptorSetAllocateInfo) ([]DescriptorSet, error) {
	if len(allocInfo.SetLayouts) == 0 {
		return nil, nil
	}

	cInfo := (*C.VkDescriptorSetAllocateInfo)(C.calloc(1, C.sizeof_VkDescriptorSetAllocateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO
	cInfo.descriptorPool = allocInfo.DescriptorPool.handle

	layouts := cArray[C.VkDescriptorSetLayout](len(allocInfo.SetLayouts))
	defer C.free(unsafe.Pointer(&layouts[0]))
	for i, layout := range allocInfo.SetLayouts {
		layouts[i] = layout.handle
	}
	cInfo.descriptorSetCount = C.uint32_t(len(layouts))
	cInfo.pSetLayouts = &layouts[0]

	sets := make([]C.VkDescriptorSet, len(allocInfo.SetLayouts))
	result := C.vkAllocateDescriptorSets(device.handle, cInfo, &sets[0])

	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}

	descriptorSets := make([]DescriptorSet, len(sets))
	for i, set := range sets {
		descriptorSets[i] = DescriptorSet{handle: set}
	}

	return descriptorSets, nil
}

// Descriptor Set Updates
type WriteDescriptorSet struct {
	DstSet         DescriptorSet
	DstBinding     uint32
	DescriptorType DescriptorType
	ImageInfo      []DescriptorImageInfo
}

type DescriptorImageInfo struct {
	Sampler     Sampler
	ImageView   ImageView
	ImageLayout ImageLayout
}

func (device Device) UpdateDescriptorSets(writes []WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}

	cWrites := cArray[C.VkWriteDescriptorSet](len(writes))
	defer C.free(unsafe.Pointer(&cWrites[0]))

	var imageInfos []unsafe.Pointer
	defer func() {
		for _, ptr := range imageInfos {
			C.free(ptr)
		}
	}()

	for i, write := range writes {
		cWrites[i].sType = C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET
		cWrites[i].dstSet = write.DstSet.handle
		cWrites[i].dstBinding = C.uint32_t(write.DstBinding)
		cWrites[i].descriptorType = C.VkDescriptorType(write.DescriptorType)

		if len(write.ImageInfo) > 0 {
			imgInfo := cArray[C.VkDescriptorImageInfo](len(write.ImageInfo))
			imageInfos = append(imageInfos, unsafe.Pointer(&imgInfo[0]))
			for j, info := range write.ImageInfo {
				imgInfo[j].sampler = info.Sampler.handle
				imgInfo[j].imageView = info.ImageView.handle
				imgInfo[j].imageLayout = C.VkImageLayout(info.ImageLayout)
			}

			cWrites[i].descriptorCount = C.uint32_t(len(imgInfo))
			cWrites[i].pImageInfo = &imgInfo[0]
		}
	}

	C.vkUpdateDescriptorSets(device.handle, C.uint32_t(len(cWrites)), &cWrites[0], 0, nil)
}
