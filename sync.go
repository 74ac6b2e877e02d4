// sync.go
package vkbridge

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type Semaphore struct {
	handle C.VkSemaphore
}

type Fence struct {
	handle C.VkFence
}

type FenceCreateInfo struct {
	Flags FenceCreateFlags
}

type FenceCreateFlags uint32

const (
	FENCE_CREATE_SIGNALED_BIT FenceCreateFlags = C.VK_FENCE_CREATE_SIGNALED_BIT
)

// Semaphore
func (device Device) CreateSemaphore() (Semaphore, error) {
	cInfo := (*C.VkSemaphoreCreateInfo)(C.calloc(1, C.sizeof_VkSemaphoreCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_SEMAPHORE_CREATE_INFO

	var semaphore C.VkSemaphore
	result := C.vkCreateSemaphore(device.handle, cInfo, nil, &semaphore)

	if result != C.VK_SUCCESS {
		return Semaphore{}, Result(result)
	}

	return Semaphore{handle: semaphore}, nil
}

func (device Device) DestroySemaphore(semaphore Semaphore) {
	C.vkDestroySemaphore(device.handle, semaphore.handle, nil)
}

// Fence
func (device Device) CreateFence(createInfo *FenceCreateInfo) (Fence, error) {
	cInfo := (*C.VkFenceCreateInfo)(C.calloc(1, C.sizeof_VkFenceCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_FENCE_CREATE_INFO
	cInfo.flags = C.VkFenceCreateFlags(createInfo.Flags)

	var fence C.VkFence
	result := C.vkCreateFence(device.handle, cInfo, nil, &fence)

	if result != C.VK_SUCCESS {
		return Fence{}, Result(result)
	}

	return Fence{handle: fence}, nil
}

func (device Device) DestroyFence(fence Fence) {
	C.vkDestroyFence(device.handle, fence.handle, nil)
}

func fenceHandles(fences []Fence) []C.VkFence {
	handles := make([]C.VkFence, len(fences))
	for i, f := range fences {
		handles[i] = f.handle
	}
	return handles
}

// WaitForFences returns TIMEOUT as an error when the timeout elapses first.
func (device Device) WaitForFences(fences []Fence, waitAll bool, timeout uint64) error {
	if len(fences) == 0 {
		return nil
	}
	handles := fenceHandles(fences)
	all := C.VkBool32(C.VK_FALSE)
	if waitAll {
		all = C.VK_TRUE
	}
	if result := C.vkWaitForFences(device.handle, C.uint32_t(len(handles)), &handles[0], all, C.uint64_t(timeout)); result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

func (device Device) ResetFences(fences []Fence) error {
	if len(fences) == 0 {
		return nil
	}
	handles := fenceHandles(fences)
	if result := C.vkResetFences(device.handle, C.uint32_t(len(handles)), &handles[0]); result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

// SubmitInfo is one batch. WaitDstStageMask pairs with WaitSemaphores by
// index; missing entries wait at the top of the pipe.
type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitDstStageMask []PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

// cArena collects C allocations for one call and frees them together.
type cArena []unsafe.Pointer

func (a *cArena) semaphores(sems []Semaphore) *C.VkSemaphore {
	if len(sems) == 0 {
		return nil
	}
	out := cArray[C.VkSemaphore](len(sems))
	*a = append(*a, unsafe.Pointer(&out[0]))
	for i, s := range sems {
		out[i] = s.handle
	}
	return &out[0]
}

func (a *cArena) free() {
	for _, p := range *a {
		C.free(p)
	}
	*a = nil
}

// Submit queues the batches. The zero Fence submits without a fence.
func (queue Queue) Submit(submits []SubmitInfo, fence Fence) error {
	if len(submits) == 0 {
		return nil
	}

	var arena cArena
	defer arena.free()

	batches := cArray[C.VkSubmitInfo](len(submits))
	arena = append(arena, unsafe.Pointer(&batches[0]))

	for i, s := range submits {
		b := &batches[i]
		b.sType = C.VK_STRUCTURE_TYPE_SUBMIT_INFO

		if n := len(s.WaitSemaphores); n > 0 {
			stages := cArray[C.VkPipelineStageFlags](n)
			arena = append(arena, unsafe.Pointer(&stages[0]))
			for j := range stages {
				stages[j] = C.VK_PIPELINE_STAGE_TOP_OF_PIPE_BIT
				if j < len(s.WaitDstStageMask) {
					stages[j] = C.VkPipelineStageFlags(s.WaitDstStageMask[j])
				}
			}
			b.waitSemaphoreCount = C.uint32_t(n)
			b.pWaitSemaphores = arena.semaphores(s.WaitSemaphores)
			b.pWaitDstStageMask = &stages[0]
		}

		if n := len(s.CommandBuffers); n > 0 {
			cmds := cArray[C.VkCommandBuffer](n)
			arena = append(arena, unsafe.Pointer(&cmds[0]))
			for j, cmd := range s.CommandBuffers {
				cmds[j] = cmd.handle
			}
			b.commandBufferCount = C.uint32_t(n)
			b.pCommandBuffers = &cmds[0]
		}

		b.signalSemaphoreCount = C.uint32_t(len(s.SignalSemaphores))
		b.pSignalSemaphores = arena.semaphores(s.SignalSemaphores)
	}

	if result := C.vkQueueSubmit(queue.handle, C.uint32_t(len(submits)), &batches[0], fence.handle); result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

func (queue Queue) WaitIdle() error {
	if result := C.vkQueueWaitIdle(queue.handle); result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

// Swapchain Present
type PresentInfoKHR struct {
	WaitSemaphores []Semaphore
	Swapchain      SwapchainKHR
	ImageIndex     uint32
}

// PresentKHR queues one swapchain image. suboptimal is true when the
// image was presented but the swapchain no longer matches the surface.
func (queue Queue) PresentKHR(presentInfo *PresentInfoKHR) (suboptimal bool, err error) {
	cInfo := (*C.VkPresentInfoKHR)(C.calloc(1, C.sizeof_VkPresentInfoKHR))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_PRESENT_INFO_KHR

	var arena cArena
	defer arena.free()
	cInfo.waitSemaphoreCount = C.uint32_t(len(presentInfo.WaitSemaphores))
	cInfo.pWaitSemaphores = arena.semaphores(presentInfo.WaitSemaphores)

	swapchains := cArray[C.VkSwapchainKHR](1)
	defer C.free(unsafe.Pointer(&swapchains[0]))
	swapchains[0] = presentInfo.Swapchain.handle

	indices := cArray[C.uint32_t](1)
	defer C.free(unsafe.Pointer(&indices[0]))
	indices[0] = C.uint32_t(presentInfo.ImageIndex)

	cInfo.swapchainCount = 1
	cInfo.pSwapchains = &swapchains[0]
	cInfo.pImageIndices = &indices[0]

	result := C.vkQueuePresentKHR(queue.handle, cInfo)

	switch result {
	case C.VK_SUCCESS:
		return false, nil
	case C.VK_SUBOPTIMAL_KHR:
		return true, nil
	default:
		return false, Result(result)
	}
}

// AcquireNextImageKHR returns the index of the next presentable image.
// OUT_OF_DATE and SURFACE_LOST come back as errors; SUBOPTIMAL is reported
// through the suboptimal flag alongside a usable index.
func (device Device) AcquireNextImageKHR(swapchain SwapchainKHR, timeout uint64, semaphore Semaphore, fence Fence) (index uint32, suboptimal bool, err error) {
	var imageIndex C.uint32_t

	result := C.vkAcquireNextImageKHR(device.handle, swapchain.handle, C.uint64_t(timeout), semaphore.handle, fence.handle, &imageIndex)

	switch result {
	case C.VK_SUCCESS:
		return uint32(imageIndex), false, nil
	case C.VK_SUBOPTIMAL_KHR:
		return uint32(imageIndex), true, nil
	default:
		return 0, false, Result(result)
	}
}
