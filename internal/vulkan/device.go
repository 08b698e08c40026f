// Package vulkan implements the renderer backend on top of vkngwrapper and
// an SDL2 window.
package vulkan

import (
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

type swapchainSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// Device owns everything created once per process: instance, surface,
// logical device and the single graphics+present queue.
type Device struct {
	window *sdl.Window
	loader core.Loader
	log    *log.Logger

	validation     bool
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device
	queue          core1_0.Queue
	queueFamily    int

	swapchainExtension khr_swapchain.Extension
	commandPool        core1_0.CommandPool

	depthFormat      core1_0.Format
	uniformAlignment int
}

func NewDevice(window *sdl.Window, appName string, validation bool, logger *log.Logger) (*Device, error) {
	d := &Device{window: window, validation: validation, log: logger}

	var err error
	d.loader, err = core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "create vulkan loader")
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"create instance", func() error { return d.createInstance(appName) }},
		{"set up debug messenger", d.setupDebugMessenger},
		{"create surface", d.createSurface},
		{"pick physical device", d.pickPhysicalDevice},
		{"create logical device", d.createLogicalDevice},
		{"create command pool", d.createCommandPool},
		{"find depth format", d.findDepthFormat},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			d.Destroy()
			return nil, errors.Wrap(err, step.name)
		}
	}
	return d, nil
}

func (d *Device) createInstance(appName string) error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    appName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "incipisphere",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := d.window.VulkanGetInstanceExtensions()
	extensions, _, err := d.loader.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range sdlExtensions {
		if _, hasExt := extensions[ext]; !hasExt {
			return errors.Newf("missing instance extension %s required by sdl", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if d.validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if d.validation {
		layers, _, err := d.loader.AvailableLayers()
		if err != nil {
			return err
		}
		for _, layer := range validationLayers {
			if _, ok := layers[layer]; !ok {
				return errors.Newf("validation layer %s not available, install the Vulkan SDK or disable renderer.validation", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}
		instanceOptions.Next = d.debugMessengerOptions()
	}

	d.instance, _, err = d.loader.CreateInstance(nil, instanceOptions)
	return err
}

func (d *Device) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    d.logDebug,
	}
}

func (d *Device) setupDebugMessenger() error {
	if !d.validation {
		return nil
	}

	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(d.instance)
	d.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(d.instance, nil, d.debugMessengerOptions())
	return err
}

func (d *Device) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	if severity&ext_debug_utils.SeverityError != 0 {
		d.log.Error(data.Message, "type", msgType)
	} else {
		d.log.Warn(data.Message, "type", msgType)
	}
	return false
}

func (d *Device) createSurface() error {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(d.instance)

	surface, err := vkng_sdl2.CreateSurface(d.instance, surfaceLoader, d.window)
	if err != nil {
		return err
	}
	d.surface = surface
	return nil
}

func (d *Device) pickPhysicalDevice() error {
	physicalDevices, _, err := d.instance.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}

	for _, device := range physicalDevices {
		family, ok := d.isDeviceSuitable(device)
		if ok {
			d.physicalDevice = device
			d.queueFamily = family
			break
		}
	}
	if d.physicalDevice == nil {
		return errors.New("no GPU with a graphics+present queue, swapchain support and non-solid fill")
	}

	properties, err := d.physicalDevice.Properties()
	if err != nil {
		return err
	}
	d.uniformAlignment = int(properties.Limits.MinUniformBufferOffsetAlignment)
	d.log.Info("picked physical device", "name", properties.DeviceName, "queue_family", d.queueFamily)
	return nil
}

func (d *Device) isDeviceSuitable(device core1_0.PhysicalDevice) (int, bool) {
	family, found, err := d.findQueueFamily(device)
	if err != nil || !found {
		return 0, false
	}
	if !checkDeviceExtensionSupport(device) {
		return 0, false
	}

	support, err := d.querySwapchainSupport(device)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return 0, false
	}

	return family, device.Features().FillModeNonSolid
}

func checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := device.EnumerateDeviceExtensionProperties()
	if err != nil {
		return false
	}
	for _, extension := range deviceExtensions {
		if _, ok := extensions[extension]; !ok {
			return false
		}
	}
	return true
}

// findQueueFamily returns the first family that can both draw and present.
func (d *Device) findQueueFamily(device core1_0.PhysicalDevice) (int, bool, error) {
	for idx, family := range device.QueueFamilyProperties() {
		if family.QueueFlags&core1_0.QueueGraphics == 0 {
			continue
		}
		supported, _, err := d.surface.PhysicalDeviceSurfaceSupport(device, idx)
		if err != nil {
			return 0, false, err
		}
		if supported {
			return idx, true, nil
		}
	}
	return 0, false, nil
}

func (d *Device) querySwapchainSupport(device core1_0.PhysicalDevice) (swapchainSupport, error) {
	var details swapchainSupport
	var err error

	details.Capabilities, _, err = d.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return details, err
	}
	details.Formats, _, err = d.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return details, err
	}
	details.PresentModes, _, err = d.surface.PhysicalDeviceSurfacePresentModes(device)
	return details, err
}

func (d *Device) createLogicalDevice() error {
	extensionNames := append([]string(nil), deviceExtensions...)

	extensions, _, err := d.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return err
	}
	if _, ok := extensions[khr_portability_subset.ExtensionName]; ok {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	d.device, _, err = d.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: d.queueFamily,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			FillModeNonSolid: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	d.queue = d.device.GetQueue(d.queueFamily, 0)
	d.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(d.device)
	return nil
}

func (d *Device) createCommandPool() error {
	pool, _, err := d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: d.queueFamily,
	})
	if err != nil {
		return err
	}
	d.commandPool = pool
	return nil
}

func (d *Device) findDepthFormat() error {
	format, err := d.findSupportedFormat(
		[]core1_0.Format{core1_0.FormatD32SignedFloat, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, core1_0.FormatD16UnsignedNormalized},
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
	if err != nil {
		return err
	}
	d.depthFormat = format
	return nil
}

func (d *Device) findSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := d.physicalDevice.FormatProperties(format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}
	return 0, errors.Newf("no supported format for tiling %s, features %s", tiling, features)
}

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := d.physicalDevice.MemoryProperties()
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)
		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}
	return 0, errors.Newf("no memory type matches filter %b with properties %s", typeFilter, properties)
}

func (d *Device) WaitIdle() error {
	if d.device == nil {
		return nil
	}
	_, err := d.device.WaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

// Destroy tears down in reverse creation order. Safe on a partly built Device.
func (d *Device) Destroy() {
	if d.commandPool != nil {
		d.commandPool.Destroy(nil)
		d.commandPool = nil
	}
	if d.device != nil {
		d.device.Destroy(nil)
		d.device = nil
	}
	if d.debugMessenger != nil {
		d.debugMessenger.Destroy(nil)
		d.debugMessenger = nil
	}
	if d.surface != nil {
		d.surface.Destroy(nil)
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Destroy(nil)
		d.instance = nil
	}
}
