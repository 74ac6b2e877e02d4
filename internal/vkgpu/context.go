// Package vkgpu implements the bridge, transfer, engine and present device
// interfaces on top of the vkbridge cgo binding.
package vkgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
	"github.com/NOT-REAL-GAMES/vkbridge/internal/logging"
)

// FatalFunc receives errors the context cannot recover from, such as a
// lost device. It may be called from any goroutine.
type FatalFunc func(source string, err error)

type Options struct {
	// Name labels the context in logs and fatal reports.
	Name string
	// InstanceExtensions are enabled on the instance, e.g. the window
	// system's surface extensions.
	InstanceExtensions []string
	// Present requests VK_KHR_swapchain and dynamic rendering.
	Present    bool
	Validation bool
	// DeviceIndex selects a physical device; negative picks the first
	// suitable one.
	DeviceIndex int
	OnFatal     FatalFunc
}

// Context is one Vulkan instance with one logical device and its graphics
// queue. The queue may be shared by several goroutines.
type Context struct {
	Name        string
	Instance    vk.Instance
	Physical    vk.PhysicalDevice
	Device      vk.Device
	Queue       vk.Queue
	QueueFamily uint32

	props  vk.PhysicalDeviceProperties
	ids    vk.PhysicalDeviceIDProperties
	memory vk.PhysicalDeviceMemoryProperties

	onFatal FatalFunc
	lost    atomic.Bool
	queueMu sync.Mutex
	log     *slog.Logger
}

// NewContext creates the instance, picks a physical device that can export
// and import OPAQUE_FD memory and creates a logical device on it.
func NewContext(opts Options) (*Context, error) {
	if opts.Name == "" {
		opts.Name = "gpu"
	}
	c := &Context{
		Name:    opts.Name,
		onFatal: opts.OnFatal,
		log:     logging.Logger().With("device", opts.Name),
	}

	var layers []string
	if opts.Validation {
		layers = append(layers, vk.LAYER_KHRONOS_VALIDATION)
	}

	instance, err := vk.CreateInstance(&vk.InstanceCreateInfo{
		ApplicationInfo: &vk.ApplicationInfo{
			ApplicationName:    "vkbridge",
			ApplicationVersion: vk.MakeApiVersion(0, 1, 0, 0),
			EngineName:         "vkbridge",
			EngineVersion:      vk.MakeApiVersion(0, 1, 0, 0),
			ApiVersion:         vk.ApiVersion_1_3,
		},
		EnabledLayerNames:     layers,
		EnabledExtensionNames: opts.InstanceExtensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", opts.Name, err)
	}
	c.Instance = instance

	extensions := []string{
		vk.KHR_EXTERNAL_MEMORY_EXTENSION_NAME,
		vk.KHR_EXTERNAL_MEMORY_FD_EXTENSION_NAME,
	}
	if opts.Present {
		extensions = append(extensions, vk.KHR_SWAPCHAIN_EXTENSION_NAME)
	}

	physical, family, err := pickPhysicalDevice(instance, opts.DeviceIndex, extensions)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%s: %w", opts.Name, err)
	}
	c.Physical = physical
	c.QueueFamily = family
	c.props = physical.GetProperties()
	c.ids = physical.GetIDProperties()
	c.memory = physical.GetMemoryProperties()

	info := &vk.DeviceCreateInfo{
		QueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		}},
		EnabledLayerNames:     layers,
		EnabledExtensionNames: extensions,
	}
	if opts.Present {
		info.Vulkan13Features = &vk.PhysicalDeviceVulkan13Features{DynamicRendering: true}
	}

	device, err := physical.CreateDevice(info)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%s: create device: %w", opts.Name, err)
	}
	c.Device = device
	c.Queue = device.GetQueue(family, 0)

	c.log.Info("gpu selected",
		"name", c.props.DeviceName,
		"type", c.props.DeviceType.String(),
		"api", fmt.Sprintf("%d.%d.%d",
			vk.ApiVersionMajor(c.props.ApiVersion),
			vk.ApiVersionMinor(c.props.ApiVersion),
			vk.ApiVersionPatch(c.props.ApiVersion)),
		"queue_family", family)

	return c, nil
}

func pickPhysicalDevice(instance vk.Instance, index int, extensions []string) (vk.PhysicalDevice, uint32, error) {
	devices, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		return vk.PhysicalDevice{}, 0, fmt.Errorf("enumerate physical devices: %w", err)
	}
	if len(devices) == 0 {
		return vk.PhysicalDevice{}, 0, errors.New("no Vulkan physical devices")
	}

	if index >= 0 {
		if index >= len(devices) {
			return vk.PhysicalDevice{}, 0, fmt.Errorf("device index %d out of range, %d devices", index, len(devices))
		}
		family, err := suitable(devices[index], extensions)
		if err != nil {
			return vk.PhysicalDevice{}, 0, fmt.Errorf("device %d: %w", index, err)
		}
		return devices[index], family, nil
	}

	var errs []error
	for i, d := range devices {
		family, err := suitable(d, extensions)
		if err == nil {
			return d, family, nil
		}
		errs = append(errs, fmt.Errorf("device %d (%s): %w", i, d.GetProperties().DeviceName, err))
	}
	return vk.PhysicalDevice{}, 0, fmt.Errorf("no suitable physical device: %w", errors.Join(errs...))
}

// suitable returns the first graphics queue family of d if it supports
// every extension in required.
func suitable(d vk.PhysicalDevice, required []string) (uint32, error) {
	available, err := d.EnumerateDeviceExtensionNames()
	if err != nil {
		return 0, fmt.Errorf("enumerate extensions: %w", err)
	}
	for _, ext := range required {
		if !slices.Contains(available, ext) {
			return 0, fmt.Errorf("missing extension %s", ext)
		}
	}
	for i, q := range d.GetQueueFamilyProperties() {
		if q.QueueFlags&vk.QUEUE_GRAPHICS_BIT != 0 && q.QueueCount > 0 {
			return uint32(i), nil
		}
	}
	return 0, errors.New("no graphics queue family")
}

// DeviceName is the driver-reported name of the physical device.
func (c *Context) DeviceName() string { return c.props.DeviceName }

// MemoryProperties returns the memory types and heaps of the physical device.
func (c *Context) MemoryProperties() vk.PhysicalDeviceMemoryProperties { return c.memory }

// Lost reports whether the device has been lost.
func (c *Context) Lost() bool { return c.lost.Load() }

// check reports DEVICE_LOST to the fatal callback once and returns err
// wrapped with op.
func (c *Context) check(op string, err error) error {
	if err == nil {
		return nil
	}
	err = fmt.Errorf("%s: %w", op, err)
	if errors.Is(err, vk.DEVICE_LOST) && c.lost.CompareAndSwap(false, true) {
		c.log.Error("device lost", "op", op)
		if c.onFatal != nil {
			c.onFatal(c.Name, err)
		}
	}
	return err
}

func (c *Context) submit(info vk.SubmitInfo, fence vk.Fence) error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.Queue.Submit([]vk.SubmitInfo{info}, fence)
}

func (c *Context) present(info *vk.PresentInfoKHR) (bool, error) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.Queue.PresentKHR(info)
}

// WaitIdle blocks until the device has finished all submitted work. A lost
// device is idle.
func (c *Context) WaitIdle() error {
	if c.lost.Load() {
		return nil
	}
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.check("wait idle", c.Device.WaitIdle())
}

// Destroy waits for the device and destroys it together with the instance.
// Every object created from the context must already be destroyed.
func (c *Context) Destroy() {
	if err := c.WaitIdle(); err != nil {
		c.log.Warn("destroy context", "err", err)
	}
	c.Device.Destroy()
	c.Instance.Destroy()
}
