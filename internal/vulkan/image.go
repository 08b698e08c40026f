package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// attachment is an image the device owns outright, with its memory and view.
type attachment struct {
	image  core1_0.Image
	memory core1_0.DeviceMemory
	view   core1_0.ImageView
}

func (d *Device) createImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error) {
	imageView, _, err := d.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return imageView, err
}

func (d *Device) createImage(width, height int, format core1_0.Format, tiling core1_0.ImageTiling, usage core1_0.ImageUsageFlags, memoryProperties core1_0.MemoryPropertyFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	image, _, err := d.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, nil, err
	}

	memReqs := image.MemoryRequirements()
	memoryIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, memoryProperties)
	if err != nil {
		image.Destroy(nil)
		return nil, nil, err
	}

	imageMemory, _, err := d.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		image.Destroy(nil)
		return nil, nil, err
	}

	if _, err = image.BindImageMemory(imageMemory, 0); err != nil {
		image.Destroy(nil)
		imageMemory.Free(nil)
		return nil, nil, err
	}
	return image, imageMemory, nil
}

func (d *Device) createDepthAttachment(extent core1_0.Extent2D) (*attachment, error) {
	image, memory, err := d.createImage(extent.Width, extent.Height,
		d.depthFormat,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "create depth image")
	}

	view, err := d.createImageView(image, d.depthFormat, core1_0.ImageAspectDepth)
	if err != nil {
		image.Destroy(nil)
		memory.Free(nil)
		return nil, errors.Wrap(err, "create depth view")
	}
	return &attachment{image: image, memory: memory, view: view}, nil
}

func (a *attachment) destroy() {
	if a == nil {
		return
	}
	if a.view != nil {
		a.view.Destroy(nil)
	}
	if a.image != nil {
		a.image.Destroy(nil)
	}
	if a.memory != nil {
		a.memory.Free(nil)
	}
}
