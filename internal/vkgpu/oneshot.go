package vkgpu

import (
	"fmt"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
)

// oneShot is a command buffer that is recorded, submitted and waited for
// synchronously. It is not safe for concurrent use.
type oneShot struct {
	c     *Context
	pool  vk.CommandPool
	cmd   vk.CommandBuffer
	fence vk.Fence
}

func newOneShot(c *Context) (*oneShot, error) {
	pool, err := c.Device.CreateCommandPool(&vk.CommandPoolCreateInfo{
		Flags:            vk.COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		QueueFamilyIndex: c.QueueFamily,
	})
	if err != nil {
		return nil, fmt.Errorf("create command pool: %w", err)
	}

	buffers, err := c.Device.AllocateCommandBuffers(&vk.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              vk.COMMAND_BUFFER_LEVEL_PRIMARY,
		CommandBufferCount: 1,
	})
	if err != nil {
		c.Device.DestroyCommandPool(pool)
		return nil, fmt.Errorf("allocate command buffer: %w", err)
	}

	fence, err := c.Device.CreateFence(&vk.FenceCreateInfo{})
	if err != nil {
		c.Device.DestroyCommandPool(pool)
		return nil, fmt.Errorf("create fence: %w", err)
	}

	return &oneShot{c: c, pool: pool, cmd: buffers[0], fence: fence}, nil
}

// run records commands with record, submits them and waits for the fence.
func (s *oneShot) run(op string, record func(cmd vk.CommandBuffer)) error {
	if s.c.Lost() {
		return s.c.check(op, vk.DEVICE_LOST)
	}
	if err := s.cmd.Reset(0); err != nil {
		return s.c.check(op, err)
	}
	if err := s.cmd.Begin(&vk.CommandBufferBeginInfo{Flags: vk.COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT}); err != nil {
		return s.c.check(op, err)
	}
	record(s.cmd)
	if err := s.cmd.End(); err != nil {
		return s.c.check(op, err)
	}

	if err := s.c.submit(vk.SubmitInfo{CommandBuffers: []vk.CommandBuffer{s.cmd}}, s.fence); err != nil {
		return s.c.check(op+": submit", err)
	}
	fences := []vk.Fence{s.fence}
	if err := s.c.Device.WaitForFences(fences, true, vk.WAIT_FOREVER); err != nil {
		return s.c.check(op+": wait", err)
	}
	return s.c.check(op, s.c.Device.ResetFences(fences))
}

func (s *oneShot) destroy() {
	s.c.Device.DestroyFence(s.fence)
	s.c.Device.FreeCommandBuffers(s.pool, []vk.CommandBuffer{s.cmd})
	s.c.Device.DestroyCommandPool(s.pool)
}
