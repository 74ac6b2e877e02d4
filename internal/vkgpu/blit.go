package vkgpu

import (
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
	"github.com/NOT-REAL-GAMES/vkbridge/present"
	"github.com/NOT-REAL-GAMES/vkbridge/shaderc"
)

const blitVertexShader = `
#version 450

layout(location = 0) out vec2 uv;

void main() {
    uv = vec2((gl_VertexIndex << 1) & 2, gl_VertexIndex & 2);
    gl_Position = vec4(uv * 2.0 - 1.0, 0.0, 1.0);
}
`

const blitFragmentShader = `
#version 450

layout(set = 0, binding = 0) uniform sampler2D bridgeImage;

layout(location = 0) in vec2 uv;
layout(location = 0) out vec4 outColor;

void main() {
    outColor = texture(bridgeImage, uv);
}
`

// Blitter samples the imported bridge image in GENERAL layout and draws it
// over the whole swapchain image with one full-screen triangle. It
// implements present.Renderer.
type Blitter struct {
	c   *Context
	cmd vk.CommandBuffer

	pool      vk.CommandPool
	view      vk.ImageView
	sampler   vk.Sampler
	setLayout vk.DescriptorSetLayout
	descPool  vk.DescriptorPool
	set       vk.DescriptorSet
	layout    vk.PipelineLayout
	vert      vk.ShaderModule
	frag      vk.ShaderModule

	cleanup []func()
}

func NewBlitter(c *Context, src bridge.Image) (b *Blitter, err error) {
	img, err := asImage(src)
	if err != nil {
		return nil, err
	}
	b = &Blitter{c: c}
	defer func() {
		if err != nil {
			b.Destroy()
		}
	}()
	dev := c.Device

	if b.view, err = dev.CreateImageViewForTexture(img, vk.FORMAT_R8G8B8A8_SRGB); err != nil {
		return nil, fmt.Errorf("bridge image view: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyImageView(b.view) })

	if b.sampler, err = dev.CreateSampler(&vk.SamplerCreateInfo{
		MagFilter:    vk.FILTER_LINEAR,
		MinFilter:    vk.FILTER_LINEAR,
		MipmapMode:   vk.SAMPLER_MIPMAP_MODE_NEAREST,
		AddressModeU: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		AddressModeV: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		AddressModeW: vk.SAMPLER_ADDRESS_MODE_CLAMP_TO_EDGE,
		BorderColor:  vk.BORDER_COLOR_FLOAT_OPAQUE_BLACK,
	}); err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroySampler(b.sampler) })

	if b.setLayout, err = dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutCreateInfo{
		Bindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER,
			DescriptorCount: 1,
			StageFlags:      vk.SHADER_STAGE_FRAGMENT_BIT,
		}},
	}); err != nil {
		return nil, fmt.Errorf("descriptor set layout: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyDescriptorSetLayout(b.setLayout) })

	if b.descPool, err = dev.CreateDescriptorPool(&vk.DescriptorPoolCreateInfo{
		MaxSets:   1,
		PoolSizes: []vk.DescriptorPoolSize{{Type: vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER, DescriptorCount: 1}},
	}); err != nil {
		return nil, fmt.Errorf("descriptor pool: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyDescriptorPool(b.descPool) })

	sets, err := dev.AllocateDescriptorSets(&vk.DescriptorSetAllocateInfo{
		DescriptorPool: b.descPool,
		SetLayouts:     []vk.DescriptorSetLayout{b.setLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("descriptor set: %w", err)
	}
	b.set = sets[0]
	dev.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		DstSet:         b.set,
		DstBinding:     0,
		DescriptorType: vk.DESCRIPTOR_TYPE_COMBINED_IMAGE_SAMPLER,
		ImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     b.sampler,
			ImageView:   b.view,
			ImageLayout: vk.IMAGE_LAYOUT_GENERAL,
		}},
	}})

	if b.layout, err = dev.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{
		SetLayouts: []vk.DescriptorSetLayout{b.setLayout},
	}); err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyPipelineLayout(b.layout) })

	if b.vert, err = compileModule(dev, blitVertexShader, "blit.vert", shaderc.VertexShader); err != nil {
		return nil, err
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyShaderModule(b.vert) })
	if b.frag, err = compileModule(dev, blitFragmentShader, "blit.frag", shaderc.FragmentShader); err != nil {
		return nil, err
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyShaderModule(b.frag) })

	if b.pool, err = dev.CreateCommandPool(&vk.CommandPoolCreateInfo{
		Flags:            vk.COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		QueueFamilyIndex: c.QueueFamily,
	}); err != nil {
		return nil, fmt.Errorf("command pool: %w", err)
	}
	b.cleanup = append(b.cleanup, func() { dev.DestroyCommandPool(b.pool) })

	buffers, err := dev.AllocateCommandBuffers(&vk.CommandBufferAllocateInfo{
		CommandPool:        b.pool,
		Level:              vk.COMMAND_BUFFER_LEVEL_PRIMARY,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("command buffer: %w", err)
	}
	b.cmd = buffers[0]

	return b, nil
}

func compileModule(dev vk.Device, source, name string, kind shaderc.ShaderKind) (vk.ShaderModule, error) {
	spirv, err := shaderc.Compile(source, name, kind)
	if err != nil {
		return vk.ShaderModule{}, err
	}
	module, err := dev.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: spirv})
	if err != nil {
		return vk.ShaderModule{}, fmt.Errorf("shader module %s: %w", name, err)
	}
	return module, nil
}

func (b *Blitter) BuildPipeline(format present.SurfaceFormat) (present.Pipeline, error) {
	pipeline, err := b.c.Device.CreateGraphicsPipeline(&vk.GraphicsPipelineCreateInfo{
		Stages: []vk.PipelineShaderStageCreateInfo{
			{Stage: vk.SHADER_STAGE_VERTEX_BIT, Module: b.vert, Name: "main"},
			{Stage: vk.SHADER_STAGE_FRAGMENT_BIT, Module: b.frag, Name: "main"},
		},
		InputAssemblyState: vk.PipelineInputAssemblyStateCreateInfo{
			Topology: vk.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST,
		},
		RasterizationState: vk.PipelineRasterizationStateCreateInfo{
			PolygonMode: vk.POLYGON_MODE_FILL,
			CullMode:    vk.CULL_MODE_NONE,
			FrontFace:   vk.FRONT_FACE_COUNTER_CLOCKWISE,
			LineWidth:   1.0,
		},
		RasterizationSamples: vk.SAMPLE_COUNT_1_BIT,
		ColorBlendAttachment: vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.COLOR_COMPONENT_ALL,
		},
		DynamicStates: []vk.DynamicState{vk.DYNAMIC_STATE_VIEWPORT, vk.DYNAMIC_STATE_SCISSOR},
		RenderingInfo: vk.PipelineRenderingCreateInfo{
			ColorAttachmentFormats: []vk.Format{vk.Format(format.Code)},
		},
		Layout: b.layout,
	})
	if err != nil {
		return nil, b.c.check("create blit pipeline", err)
	}
	return pipeline, nil
}

func (b *Blitter) DestroyPipeline(p present.Pipeline) {
	pipeline, ok := p.(vk.Pipeline)
	if !ok {
		return
	}
	if err := b.c.WaitIdle(); err != nil {
		b.c.log.Warn("destroy blit pipeline", "err", err)
	}
	b.c.Device.DestroyPipeline(pipeline)
}

// Blit records and submits the draw into t. The submission waits for the
// acquire semaphore, signals t's render semaphore and the frame fence.
func (b *Blitter) Blit(pt present.Target, p present.Pipeline) error {
	t, ok := pt.(*target)
	if !ok {
		return fmt.Errorf("blit: foreign target %T", pt)
	}
	pipeline, ok := p.(vk.Pipeline)
	if !ok {
		return fmt.Errorf("blit: foreign pipeline %T", p)
	}

	cmd := b.cmd
	if err := cmd.Reset(0); err != nil {
		return b.c.check("blit", err)
	}
	if err := cmd.Begin(&vk.CommandBufferBeginInfo{Flags: vk.COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT}); err != nil {
		return b.c.check("blit", err)
	}

	cmd.TransitionImage(t.image,
		vk.IMAGE_LAYOUT_UNDEFINED, vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL,
		vk.ACCESS_NONE, vk.ACCESS_COLOR_ATTACHMENT_WRITE_BIT,
		vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT, vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT)

	area := vk.Rect2D{Extent: t.extent}
	cmd.BeginRendering(&vk.RenderingInfo{
		RenderArea: area,
		LayerCount: 1,
		ColorAttachments: []vk.RenderingAttachmentInfo{{
			ImageView:   t.view,
			ImageLayout: vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL,
			LoadOp:      vk.ATTACHMENT_LOAD_OP_CLEAR,
			StoreOp:     vk.ATTACHMENT_STORE_OP_STORE,
			ClearValue:  vk.ClearValue{Color: vk.ClearColorValue{Float32: [4]float32{0, 0, 0, 1}}},
		}},
	})
	cmd.BindPipeline(vk.PIPELINE_BIND_POINT_GRAPHICS, pipeline)
	cmd.BindDescriptorSets(vk.PIPELINE_BIND_POINT_GRAPHICS, b.layout, 0, []vk.DescriptorSet{b.set})
	cmd.SetViewport(0, []vk.Viewport{{
		Width:    float32(t.extent.Width),
		Height:   float32(t.extent.Height),
		MaxDepth: 1,
	}})
	cmd.SetScissor(0, []vk.Rect2D{area})
	cmd.Draw(3, 1, 0, 0)
	cmd.EndRendering()

	cmd.TransitionImage(t.image,
		vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL, vk.IMAGE_LAYOUT_PRESENT_SRC_KHR,
		vk.ACCESS_COLOR_ATTACHMENT_WRITE_BIT, vk.ACCESS_NONE,
		vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT, vk.PIPELINE_STAGE_BOTTOM_OF_PIPE_BIT)

	if err := cmd.End(); err != nil {
		return b.c.check("blit", err)
	}

	if err := b.c.Device.ResetFences([]vk.Fence{t.fence}); err != nil {
		return b.c.check("blit: reset fence", err)
	}
	err := b.c.submit(vk.SubmitInfo{
		WaitSemaphores:   []vk.Semaphore{t.acquired},
		WaitDstStageMask: []vk.PipelineStageFlags{vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT},
		CommandBuffers:   []vk.CommandBuffer{cmd},
		SignalSemaphores: []vk.Semaphore{t.renderDone},
	}, t.fence)
	return b.c.check("blit: submit", err)
}

// Destroy releases the blit resources in reverse creation order. Pipelines
// are destroyed separately through DestroyPipeline.
func (b *Blitter) Destroy() {
	if err := b.c.WaitIdle(); err != nil {
		b.c.log.Warn("destroy blitter", "err", err)
	}
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		b.cleanup[i]()
	}
	b.cleanup = nil
}
