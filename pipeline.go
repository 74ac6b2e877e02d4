// pipeline.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type PipelineLayoutCreateInfo struct {
	SetLayouts []DescriptorSetLayout
}

type PipelineShaderStageCreateInfo struct {
	Stage  ShaderStageFlags
	Module ShaderModule
	Name   string
}

type PrimitiveTopology int32

const (
	PRIMITIVE_TOPOLOGY_TRIANGLE_LIST PrimitiveTopology = C.VK_PRIMITIVE_TOPOLOGY_TRIANGLE_LIST
)

type PolygonMode int32

const (
	POLYGON_MODE_FILL PolygonMode = C.VK_POLYGON_MODE_FILL
)

type CullModeFlags uint32

const (
	CULL_MODE_NONE     CullModeFlags = C.VK_CULL_MODE_NONE
	CULL_MODE_BACK_BIT CullModeFlags = C.VK_CULL_MODE_BACK_BIT
)

type FrontFace int32

const (
	FRONT_FACE_COUNTER_CLOCKWISE FrontFace = C.VK_FRONT_FACE_COUNTER_CLOCKWISE
	FRONT_FACE_CLOCKWISE         FrontFace = C.VK_FRONT_FACE_CLOCKWISE
)

type ColorComponentFlags uint32

const (
	COLOR_COMPONENT_ALL ColorComponentFlags = C.VK_COLOR_COMPONENT_R_BIT | C.VK_COLOR_COMPONENT_G_BIT |
		C.VK_COLOR_COMPONENT_B_BIT | C.VK_COLOR_COMPONENT_A_BIT
)

type DynamicState int32

const (
	DYNAMIC_STATE_VIEWPORT DynamicState = C.VK_DYNAMIC_STATE_VIEWPORT
	DYNAMIC_STATE_SCISSOR  DynamicState = C.VK_DYNAMIC_STATE_SCISSOR
)

type PipelineInputAssemblyStateCreateInfo struct {
	Topology PrimitiveTopology
}

type PipelineRasterizationStateCreateInfo struct {
	PolygonMode PolygonMode
	CullMode    CullModeFlags
	FrontFace   FrontFace
	LineWidth   float32
}

type PipelineColorBlendAttachmentState struct {
	BlendEnable    bool
	ColorWriteMask ColorComponentFlags
}

type PipelineRenderingCreateInfo struct {
	ColorAttachmentFormats []Format
}

// GraphicsPipelineCreateInfo covers pipelines that draw without vertex
// buffers into dynamic-rendering colour attachments. Viewport and scissor
// counts are one each; their values are set dynamically when listed in
// DynamicStates.
type GraphicsPipelineCreateInfo struct {
	Stages               []PipelineShaderStageCreateInfo
	InputAssemblyState   PipelineInputAssemblyStateCreateInfo
	RasterizationState   PipelineRasterizationStateCreateInfo
	RasterizationSamples SampleCountFlags
	ColorBlendAttachment PipelineColorBlendAttachmentState
	DynamicStates        []DynamicState
	RenderingInfo        PipelineRenderingCreateInfo
	Layout               PipelineLayout
}

// Pipeline Layout
func (device Device) CreatePipelineLayout(createInfo *PipelineLayoutCreateInfo) (PipelineLayout, error) {
	cInfo := (*C.VkPipelineLayoutCreateInfo)(C.calloc(1, C.sizeof_VkPipelineLayoutCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO

	if len(createInfo.SetLayouts) > 0 {
		setLayouts := cArray[C.VkDescriptorSetLayout](len(createInfo.SetLayouts))
		defer C.free(unsafe.Pointer(&setLayouts[0]))
		for i, layout := range createInfo.SetLayouts {
			setLayouts[i] = layout.handle
		}
		cInfo.setLayoutCount = C.uint32_t(len(setLayouts))
		cInfo.pSetLayouts = &setLayouts[0]
	}

	var layout C.VkPipelineLayout
	result := C.vkCreatePipelineLayout(device.handle, cInfo, nil, &layout)

	if result != C.VK_SUCCESS {
		return PipelineLayout{}, Result(result)
	}

	return PipelineLayout{handle: layout}, nil
}

func (device Device) DestroyPipelineLayout(layout PipelineLayout) {
	C.vkDestroyPipelineLayout(device.handle, layout.handle, nil)
}

func (device Device) DestroyPipeline(pipeline Pipeline) {
	C.vkDestroyPipeline(device.handle, pipeline.handle, nil)
}

// Graphics Pipeline
type graphicsPipelineData struct {
	cInfo            *C.VkGraphicsPipelineCreateInfo
	allocations      []unsafe.Pointer
	shaderEntryNames []*C.char
}

func (data *graphicsPipelineData) calloc(size C.size_t) unsafe.Pointer {
	ptr := C.calloc(1, size)
	data.allocations = append(data.allocations, ptr)
	return ptr
}

func (info *GraphicsPipelineCreateInfo) vulkanize() *graphicsPipelineData {
	data := &graphicsPipelineData{}

	data.cInfo = (*C.VkGraphicsPipelineCreateInfo)(data.calloc(C.sizeof_VkGraphicsPipelineCreateInfo))
	data.cInfo.sType = C.VK_STRUCTURE_TYPE_GRAPHICS_PIPELINE_CREATE_INFO

	// Shader stages
	if len(info.Stages) > 0 {
		stages := cArray[C.VkPipelineShaderStageCreateInfo](len(info.Stages))
		data.allocations = append(data.allocations, unsafe.Pointer(&stages[0]))

		for i, stage := range info.Stages {
			name := C.CString(stage.Name)
			data.shaderEntryNames = append(data.shaderEntryNames, name)

			stages[i].sType = C.VK_STRUCTURE_TYPE_PIPELINE_SHADER_STAGE_CREATE_INFO
			stages[i].stage = C.VkShaderStageFlagBits(stage.Stage)
			stages[i].module = stage.Module.handle
			stages[i].pName = name
		}

		data.cInfo.stageCount = C.uint32_t(len(stages))
		data.cInfo.pStages = &stages[0]
	}

	// No vertex buffers: geometry comes from gl_VertexIndex.
	vertexInput := (*C.VkPipelineVertexInputStateCreateInfo)(data.calloc(C.sizeof_VkPipelineVertexInputStateCreateInfo))
	vertexInput.sType = C.VK_STRUCTURE_TYPE_PIPELINE_VERTEX_INPUT_STATE_CREATE_INFO
	data.cInfo.pVertexInputState = vertexInput

	inputAssembly := (*C.VkPipelineInputAssemblyStateCreateInfo)(data.calloc(C.sizeof_VkPipelineInputAssemblyStateCreateInfo))
	inputAssembly.sType = C.VK_STRUCTURE_TYPE_PIPELINE_INPUT_ASSEMBLY_STATE_CREATE_INFO
	inputAssembly.topology = C.VkPrimitiveTopology(info.InputAssemblyState.Topology)
	inputAssembly.primitiveRestartEnable = C.VK_FALSE
	data.cInfo.pInputAssemblyState = inputAssembly

	viewportState := (*C.VkPipelineViewportStateCreateInfo)(data.calloc(C.sizeof_VkPipelineViewportStateCreateInfo))
	viewportState.sType = C.VK_STRUCTURE_TYPE_PIPELINE_VIEWPORT_STATE_CREATE_INFO
	viewportState.viewportCount = 1
	viewportState.scissorCount = 1
	data.cInfo.pViewportState = viewportState

	rasterization := (*C.VkPipelineRasterizationStateCreateInfo)(data.calloc(C.sizeof_VkPipelineRasterizationStateCreateInfo))
	rasterization.sType = C.VK_STRUCTURE_TYPE_PIPELINE_RASTERIZATION_STATE_CREATE_INFO
	rasterization.depthClampEnable = C.VK_FALSE
	rasterization.rasterizerDiscardEnable = C.VK_FALSE
	rasterization.polygonMode = C.VkPolygonMode(info.RasterizationState.PolygonMode)
	rasterization.cullMode = C.VkCullModeFlags(info.RasterizationState.CullMode)
	rasterization.frontFace = C.VkFrontFace(info.RasterizationState.FrontFace)
	rasterization.depthBiasEnable = C.VK_FALSE
	rasterization.lineWidth = C.float(info.RasterizationState.LineWidth)
	data.cInfo.pRasterizationState = rasterization

	multisample := (*C.VkPipelineMultisampleStateCreateInfo)(data.calloc(C.sizeof_VkPipelineMultisampleStateCreateInfo))
	multisample.sType = C.VK_STRUCTURE_TYPE_PIPELINE_MULTISAMPLE_STATE_CREATE_INFO
	multisample.rasterizationSamples = C.VkSampleCountFlagBits(info.RasterizationSamples)
	data.cInfo.pMultisampleState = multisample

	blendAttachment := (*C.VkPipelineColorBlendAttachmentState)(data.calloc(C.sizeof_VkPipelineColorBlendAttachmentState))
	if info.ColorBlendAttachment.BlendEnable {
		blendAttachment.blendEnable = C.VK_TRUE
	}
	blendAttachment.colorWriteMask = C.VkColorComponentFlags(info.ColorBlendAttachment.ColorWriteMask)

	colorBlend := (*C.VkPipelineColorBlendStateCreateInfo)(data.calloc(C.sizeof_VkPipelineColorBlendStateCreateInfo))
	colorBlend.sType = C.VK_STRUCTURE_TYPE_PIPELINE_COLOR_BLEND_STATE_CREATE_INFO
	colorBlend.logicOpEnable = C.VK_FALSE
	colorBlend.logicOp = C.VK_LOGIC_OP_COPY
	colorBlend.attachmentCount = 1
	colorBlend.pAttachments = blendAttachment
	data.cInfo.pColorBlendState = colorBlend

	if len(info.DynamicStates) > 0 {
		states := cArray[C.VkDynamicState](len(info.DynamicStates))
		data.allocations = append(data.allocations, unsafe.Pointer(&states[0]))
		for i, state := range info.DynamicStates {
			states[i] = C.VkDynamicState(state)
		}

		dynamic := (*C.VkPipelineDynamicStateCreateInfo)(data.calloc(C.sizeof_VkPipelineDynamicStateCreateInfo))
		dynamic.sType = C.VK_STRUCTURE_TYPE_PIPELINE_DYNAMIC_STATE_CREATE_INFO
		dynamic.dynamicStateCount = C.uint32_t(len(states))
		dynamic.pDynamicStates = &states[0]
		data.cInfo.pDynamicState = dynamic
	}

	// Pipeline rendering create info (for dynamic rendering)
	rendering := (*C.VkPipelineRenderingCreateInfo)(data.calloc(C.sizeof_VkPipelineRenderingCreateInfo))
	rendering.sType = C.VK_STRUCTURE_TYPE_PIPELINE_RENDERING_CREATE_INFO
	if formats := info.RenderingInfo.ColorAttachmentFormats; len(formats) > 0 {
		cFormats := cArray[C.VkFormat](len(formats))
		data.allocations = append(data.allocations, unsafe.Pointer(&cFormats[0]))
		for i, format := range formats {
			cFormats[i] = C.VkFormat(format)
		}
		rendering.colorAttachmentCount = C.uint32_t(len(cFormats))
		rendering.pColorAttachmentFormats = &cFormats[0]
	}
	rendering.depthAttachmentFormat = C.VK_FORMAT_UNDEFINED
	rendering.stencilAttachmentFormat = C.VK_FORMAT_UNDEFINED
	data.cInfo.pNext = unsafe.Pointer(rendering)

	data.cInfo.layout = info.Layout.handle
	data.cInfo.renderPass = nil // Must be NULL for dynamic rendering
	data.cInfo.basePipelineIndex = -1

	return data
}

func (data *graphicsPipelineData) free() {
	for _, name := range data.shaderEntryNames {
		C.free(unsafe.Pointer(name))
	}
	for _, ptr := range data.allocations {
		C.free(ptr)
	}
}

func (device Device) CreateGraphicsPipeline(createInfo *GraphicsPipelineCreateInfo) (Pipeline, error) {
	data := createInfo.vulkanize()
	defer data.free()

	var pipeline C.VkPipeline
	result := C.vkCreateGraphicsPipelines(device.handle, nil, 1, data.cInfo, nil, &pipeline)

	if result != C.VK_SUCCESS {
		return Pipeline{}, Result(result)
	}

	return Pipeline{handle: pipeline}, nil
}
