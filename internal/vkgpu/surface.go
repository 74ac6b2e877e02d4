package vkgpu

import (
	"errors"
	"fmt"
	"log/slog"

	sdl "github.com/NOT-REAL-GAMES/sdl3go"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
	"github.com/NOT-REAL-GAMES/vkbridge/present"
)

type WindowOptions struct {
	Title  string
	Width  uint32
	Height uint32
	VSync  bool
}

// Window is an SDL window with a Vulkan surface and swapchain. It
// implements present.Surface and must be used from the thread that created
// it.
type Window struct {
	opts WindowOptions
	win  *sdl.Window
	c    *Context
	log  *slog.Logger

	surface    vk.SurfaceKHR
	hasSurface bool

	swapchain  vk.SwapchainKHR
	format     vk.SurfaceFormatKHR
	extent     vk.Extent2D
	images     []vk.Image
	views      []vk.ImageView
	renderDone []vk.Semaphore

	acquired vk.Semaphore
	inFlight vk.Fence
	hasSync  bool
	// pending is set while acquired holds a signal no submission waits on.
	pending bool

	quit    bool
	resized bool
}

// target is an acquired swapchain image together with the semaphores and
// fence that order its blit and present.
type target struct {
	index      uint32
	image      vk.Image
	view       vk.ImageView
	extent     vk.Extent2D
	acquired   vk.Semaphore
	renderDone vk.Semaphore
	fence      vk.Fence
}

// OpenWindow initialises SDL video and creates a Vulkan-capable window.
func OpenWindow(opts WindowOptions) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("init SDL: %w", err)
	}
	win, err := sdl.CreateWindow(opts.Title, int(opts.Width), int(opts.Height), sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{opts: opts, win: win, log: logging.Logger()}, nil
}

// InstanceExtensions lists the instance extensions SDL needs for surfaces.
func (w *Window) InstanceExtensions() ([]string, error) {
	return sdl.VulkanGetInstanceExtensions()
}

// Attach binds the window to the consumer context. It must precede Open.
func (w *Window) Attach(c *Context) {
	w.c = c
	w.log = c.log
}

func (w *Window) Open() error {
	if w.c == nil {
		return errors.New("window has no device context")
	}
	handle, err := w.win.VulkanCreateSurface(w.c.Instance.Handle())
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	surface := vk.NewSurfaceKHR(handle)

	ok, err := w.c.Physical.GetSurfaceSupportKHR(w.c.QueueFamily, surface)
	if err == nil && !ok {
		err = fmt.Errorf("queue family %d cannot present to the window", w.c.QueueFamily)
	}
	if err != nil {
		w.c.Instance.DestroySurfaceKHR(surface)
		return fmt.Errorf("surface support: %w", err)
	}

	w.surface = surface
	w.hasSurface = true
	return nil
}

func describeFormat(f vk.SurfaceFormatKHR) present.SurfaceFormat {
	kind := present.FormatOther
	switch f.Format {
	case vk.FORMAT_R8G8B8A8_SRGB:
		kind = present.FormatRGBA8SRGB
	case vk.FORMAT_B8G8R8A8_SRGB:
		kind = present.FormatBGRA8SRGB
	}
	return present.SurfaceFormat{
		Kind: kind,
		SRGB: f.Format.IsSRGB(),
		Code: int32(f.Format),
		Name: f.Format.String(),
	}
}

var presentModes = map[vk.PresentModeKHR]present.PresentMode{
	vk.PRESENT_MODE_FIFO_KHR:      present.PresentModeFIFO,
	vk.PRESENT_MODE_MAILBOX_KHR:   present.PresentModeMailbox,
	vk.PRESENT_MODE_IMMEDIATE_KHR: present.PresentModeImmediate,
}

func vkPresentMode(m present.PresentMode) vk.PresentModeKHR {
	for native, mode := range presentModes {
		if mode == m {
			return native
		}
	}
	return vk.PRESENT_MODE_FIFO_KHR
}

// surfaceError classifies a swapchain result for the presenter.
func (w *Window) surfaceError(op string, err error) error {
	switch {
	case errors.Is(err, vk.OUT_OF_DATE):
		return &present.SurfaceError{Op: op, Kind: present.SurfaceOutOfDate, Err: err}
	case errors.Is(err, vk.SURFACE_LOST):
		return &present.SurfaceError{Op: op, Kind: present.SurfaceLost, Err: err}
	}
	return &present.SurfaceError{Op: op, Kind: present.SurfaceFatal, Err: w.c.check(op, err)}
}

// pixelSize is the window's drawable size, used when the surface leaves the
// swapchain extent to the application.
func (w *Window) pixelSize() (uint32, uint32) {
	if width, height, ok := windowPixelSize(); ok {
		return width, height
	}
	return w.opts.Width, w.opts.Height
}

// releaseAcquire consumes the signal of an acquire that was never drawn,
// so the semaphore can be destroyed with the swapchain.
func (w *Window) releaseAcquire() error {
	if !w.pending {
		return nil
	}
	w.pending = false
	fences := []vk.Fence{w.inFlight}
	if err := w.c.Device.ResetFences(fences); err != nil {
		return w.c.check("release acquire: reset fence", err)
	}
	err := w.c.submit(vk.SubmitInfo{
		WaitSemaphores:   []vk.Semaphore{w.acquired},
		WaitDstStageMask: []vk.PipelineStageFlags{vk.PIPELINE_STAGE_ALL_COMMANDS_BIT},
	}, w.inFlight)
	if err != nil {
		return w.c.check("release acquire: submit", err)
	}
	return w.c.check("release acquire: wait", w.c.Device.WaitForFences(fences, true, vk.WAIT_FOREVER))
}

func (w *Window) Configure(recreate bool) (present.SurfaceFormat, error) {
	if err := w.releaseAcquire(); err != nil {
		return present.SurfaceFormat{}, err
	}
	if err := w.c.WaitIdle(); err != nil {
		return present.SurfaceFormat{}, err
	}
	if recreate || !w.hasSurface {
		w.destroySwapchain()
		if w.hasSurface {
			w.c.Instance.DestroySurfaceKHR(w.surface)
			w.hasSurface = false
		}
		if err := w.Open(); err != nil {
			return present.SurfaceFormat{}, err
		}
	}

	support, err := w.c.Physical.QuerySwapchainSupport(w.surface)
	if err != nil {
		return present.SurfaceFormat{}, w.surfaceError("query surface", err)
	}
	width, height := w.pixelSize()
	extent := vk.ChooseSwapExtent(support.Capabilities, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return present.SurfaceFormat{}, present.ErrSurfaceHidden
	}

	formats := make([]present.SurfaceFormat, len(support.Formats))
	for i, f := range support.Formats {
		formats[i] = describeFormat(f)
	}
	chosen, ok := present.ChooseSurfaceFormat(formats)
	if !ok {
		return present.SurfaceFormat{}, errors.New("surface reports no formats")
	}
	var native vk.SurfaceFormatKHR
	for _, f := range support.Formats {
		if int32(f.Format) == chosen.Code {
			native = f
			break
		}
	}

	var modes []present.PresentMode
	for _, m := range support.PresentModes {
		if mode, ok := presentModes[m]; ok {
			modes = append(modes, mode)
		}
	}
	mode := present.ChoosePresentMode(modes, w.opts.VSync)

	swapchain, extent, err := vk.CreateSwapchain(w.c.Device, w.c.Physical, w.surface, vk.SwapchainOptions{
		Format:       native,
		PresentMode:  vkPresentMode(mode),
		Width:        width,
		Height:       height,
		OldSwapchain: w.swapchain,
	})
	if err != nil {
		if extent.Width == 0 || extent.Height == 0 {
			return present.SurfaceFormat{}, present.ErrSurfaceHidden
		}
		return present.SurfaceFormat{}, w.surfaceError("create swapchain", err)
	}

	// The retired swapchain is only needed as OldSwapchain above.
	w.destroySwapchain()
	w.swapchain, w.format, w.extent = swapchain, native, extent

	if err := w.createImages(); err != nil {
		w.destroySwapchain()
		return present.SurfaceFormat{}, err
	}

	w.log.Info("swapchain configured",
		"width", extent.Width,
		"height", extent.Height,
		"format", chosen.Name,
		"present_mode", mode.String(),
		"images", len(w.images))
	return chosen, nil
}

func (w *Window) createImages() error {
	images, err := w.c.Device.GetSwapchainImagesKHR(w.swapchain)
	if err != nil {
		return fmt.Errorf("swapchain images: %w", err)
	}
	views, err := vk.CreateSwapchainImageViews(w.c.Device, images, w.format.Format)
	if err != nil {
		return fmt.Errorf("swapchain image views: %w", err)
	}
	w.images, w.views = images, views

	if w.acquired, err = w.c.Device.CreateSemaphore(); err != nil {
		return fmt.Errorf("create semaphore: %w", err)
	}
	if w.inFlight, err = w.c.Device.CreateFence(&vk.FenceCreateInfo{Flags: vk.FENCE_CREATE_SIGNALED_BIT}); err != nil {
		w.c.Device.DestroySemaphore(w.acquired)
		return fmt.Errorf("create fence: %w", err)
	}
	w.hasSync = true

	for range images {
		sem, err := w.c.Device.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("create semaphore: %w", err)
		}
		w.renderDone = append(w.renderDone, sem)
	}
	return nil
}

// destroySwapchain releases the swapchain and everything sized by it. The
// device must be idle.
func (w *Window) destroySwapchain() {
	for _, sem := range w.renderDone {
		w.c.Device.DestroySemaphore(sem)
	}
	w.renderDone = nil
	if w.hasSync {
		w.c.Device.DestroySemaphore(w.acquired)
		w.c.Device.DestroyFence(w.inFlight)
		w.hasSync = false
	}
	for _, v := range w.views {
		w.c.Device.DestroyImageView(v)
	}
	w.views, w.images = nil, nil
	if !w.swapchain.IsNull() {
		w.c.Device.DestroySwapchainKHR(w.swapchain)
		w.swapchain = vk.SwapchainKHR{}
	}
}

func (w *Window) Acquire() (present.Target, error) {
	if w.swapchain.IsNull() {
		return nil, &present.SurfaceError{Op: "acquire", Kind: present.SurfaceOutOfDate}
	}
	if err := w.c.Device.WaitForFences([]vk.Fence{w.inFlight}, true, vk.WAIT_FOREVER); err != nil {
		return nil, &present.SurfaceError{Op: "acquire", Kind: present.SurfaceFatal, Err: w.c.check("wait frame fence", err)}
	}

	index, suboptimal, err := w.c.Device.AcquireNextImageKHR(w.swapchain, vk.WAIT_FOREVER, w.acquired, vk.Fence{})
	if err != nil {
		return nil, w.surfaceError("acquire", err)
	}
	w.pending = true
	t := &target{
		index:      index,
		image:      w.images[index],
		view:       w.views[index],
		extent:     w.extent,
		acquired:   w.acquired,
		renderDone: w.renderDone[index],
		fence:      w.inFlight,
	}
	if suboptimal {
		return t, &present.SurfaceError{Op: "acquire", Kind: present.SurfaceSuboptimal}
	}
	return t, nil
}

func (w *Window) Present(pt present.Target) error {
	t, ok := pt.(*target)
	if !ok {
		return fmt.Errorf("present: foreign target %T", pt)
	}
	// The blit waited on the acquire semaphore.
	w.pending = false
	suboptimal, err := w.c.present(&vk.PresentInfoKHR{
		WaitSemaphores: []vk.Semaphore{t.renderDone},
		Swapchain:      w.swapchain,
		ImageIndex:     t.index,
	})
	if err != nil {
		return w.surfaceError("present", err)
	}
	if suboptimal {
		return &present.SurfaceError{Op: "present", Kind: present.SurfaceSuboptimal}
	}
	return nil
}

func (w *Window) ShouldClose() bool {
	ev := pollEvents()
	w.quit = w.quit || ev.quit
	w.resized = w.resized || ev.resized
	return w.quit
}

// Resized reports a pixel-size change seen by ShouldClose since the last
// call.
func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// Close tears down the swapchain, surface and window and shuts SDL down.
func (w *Window) Close() {
	if w.c != nil {
		if err := w.releaseAcquire(); err != nil {
			w.log.Warn("close window", "err", err)
		}
		if err := w.c.WaitIdle(); err != nil {
			w.log.Warn("close window", "err", err)
		}
		w.destroySwapchain()
		if w.hasSurface {
			w.c.Instance.DestroySurfaceKHR(w.surface)
			w.hasSurface = false
		}
		w.c = nil
	}
	if w.win != nil {
		w.win.Destroy()
		w.win = nil
		sdl.Quit()
	}
}
