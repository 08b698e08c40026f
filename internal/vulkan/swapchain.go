package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/incipisphere/internal/future"
	"github.com/vkngwrapper/incipisphere/internal/render"
)

// Swapchain is one generation of presentation state: the swapchain, its
// image views, the shared depth attachment, the render pass, and per image a
// framebuffer and the semaphore its present waits on. It is always built and
// destroyed as a unit.
type Swapchain struct {
	dev        *Device
	semaphores *semaphorePool

	swapchain    khr_swapchain.Swapchain
	format       khr_surface.SurfaceFormat
	extent       core1_0.Extent2D
	images       []core1_0.Image
	views        []core1_0.ImageView
	depth        *attachment
	renderPass   core1_0.RenderPass
	framebuffers []core1_0.Framebuffer

	renderFinished []core1_0.Semaphore
}

// newSwapchain builds a complete generation. old, when set, is handed to
// the driver for resource reuse but left for the caller to destroy. On
// error nothing new survives.
func newSwapchain(dev *Device, semaphores *semaphorePool, drawable, fallback render.Extent, old *Swapchain) (*Swapchain, error) {
	s := &Swapchain{dev: dev, semaphores: semaphores}
	if err := s.build(drawable, fallback, old); err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *Swapchain) build(drawable, fallback render.Extent, old *Swapchain) error {
	support, err := s.dev.querySwapchainSupport(s.dev.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface support")
	}
	if len(support.Formats) == 0 {
		return errors.New("surface reports no formats")
	}

	s.format = support.Formats[0]
	s.extent = chooseSwapExtent(support.Capabilities, drawable, fallback)

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && support.Capabilities.MaxImageCount < imageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	var oldSwapchain khr_swapchain.Swapchain
	if old != nil {
		oldSwapchain = old.swapchain
	}

	s.swapchain, _, err = s.dev.swapchainExtension.CreateSwapchain(s.dev.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: s.dev.surface,

		MinImageCount:    imageCount,
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
		OldSwapchain:   oldSwapchain,
	})
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}

	s.images, _, err = s.swapchain.SwapchainImages()
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}
	for _, image := range s.images {
		view, err := s.dev.createImageView(image, s.format.Format, core1_0.ImageAspectColor)
		if err != nil {
			return errors.Wrap(err, "create swapchain image view")
		}
		s.views = append(s.views, view)
	}

	s.depth, err = s.dev.createDepthAttachment(s.extent)
	if err != nil {
		return err
	}

	s.renderPass, err = s.dev.createRenderPass(s.format.Format)
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	for _, view := range s.views {
		framebuffer, _, err := s.dev.device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: s.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				view,
				s.depth.view,
			},
			Width:  s.extent.Width,
			Height: s.extent.Height,
		})
		if err != nil {
			return errors.Wrap(err, "create framebuffer")
		}
		s.framebuffers = append(s.framebuffers, framebuffer)
	}

	for range s.images {
		semaphore, _, err := s.dev.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "create present semaphore")
		}
		s.renderFinished = append(s.renderFinished, semaphore)
	}

	s.dev.log.Debug("swapchain created",
		"format", s.format.Format,
		"extent", render.Extent{Width: s.extent.Width, Height: s.extent.Height},
		"images", len(s.images))
	return nil
}

// chooseSwapExtent uses the surface's extent when it reports one. Otherwise
// it takes the drawable size, or the fallback when that is empty, clamped
// to what the surface allows.
func chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities, drawable, fallback render.Extent) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	want := drawable
	if want.IsZero() {
		want = fallback
	}
	return core1_0.Extent2D{
		Width:  clamp(want.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(want.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Swapchain) Extent() render.Extent {
	return render.Extent{Width: s.extent.Width, Height: s.extent.Height}
}

func (s *Swapchain) ImageCount() int { return len(s.images) }

func (s *Swapchain) FramebufferCount() int { return len(s.framebuffers) }

func (s *Swapchain) AcquireNextImage() (int, *future.Token, error) {
	semaphore, err := s.semaphores.get()
	if err != nil {
		return 0, nil, err
	}

	imageIndex, res, err := s.swapchain.AcquireNextImage(common.NoTimeout, semaphore, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		s.semaphores.put(semaphore)
		return 0, nil, render.MarkOutOfDate(errors.New("acquire next image: swapchain out of date"))
	} else if err != nil {
		s.semaphores.put(semaphore)
		return 0, nil, errors.Wrap(err, "acquire next image")
	}

	return imageIndex, future.Acquired(semaphore, func() { s.semaphores.put(semaphore) }), nil
}

// presentSemaphore is signaled by the frame rendering into imageIndex and
// waited on by that image's present. The image is not acquired again until
// the present has consumed it, so each image can keep one semaphore.
func (s *Swapchain) presentSemaphore(imageIndex int) (core1_0.Semaphore, error) {
	if imageIndex < 0 || imageIndex >= len(s.renderFinished) {
		return nil, errors.Newf("image index %d outside %d present semaphores", imageIndex, len(s.renderFinished))
	}
	return s.renderFinished[imageIndex], nil
}

func (s *Swapchain) destroy() {
	for _, semaphore := range s.renderFinished {
		semaphore.Destroy(nil)
	}
	s.renderFinished = nil

	for _, framebuffer := range s.framebuffers {
		framebuffer.Destroy(nil)
	}
	s.framebuffers = nil

	if s.renderPass != nil {
		s.renderPass.Destroy(nil)
		s.renderPass = nil
	}

	s.depth.destroy()
	s.depth = nil

	for _, view := range s.views {
		view.Destroy(nil)
	}
	s.views = nil
	s.images = nil

	if s.swapchain != nil {
		s.swapchain.Destroy(nil)
		s.swapchain = nil
	}
}
