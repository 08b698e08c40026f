package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

// semaphorePool recycles binary semaphores once the work that waited on
// them has completed.
type semaphorePool struct {
	device core1_0.Device
	free   []core1_0.Semaphore
	all    []core1_0.Semaphore
}

func (p *semaphorePool) get() (core1_0.Semaphore, error) {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		return s, nil
	}
	s, _, err := p.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return nil, errors.Wrap(err, "create semaphore")
	}
	p.all = append(p.all, s)
	return s, nil
}

func (p *semaphorePool) put(s core1_0.Semaphore) {
	p.free = append(p.free, s)
}

func (p *semaphorePool) destroy() {
	for _, s := range p.all {
		s.Destroy(nil)
	}
	p.all = nil
	p.free = nil
}

// fence adapts a Vulkan fence to future.Fence.
type fence struct {
	fence core1_0.Fence
}

func (f *fence) Signaled() (bool, error) {
	res, err := f.fence.Status()
	if err != nil {
		return false, errors.Wrap(err, "fence status")
	}
	return res == core1_0.VKSuccess, nil
}

func (f *fence) Wait() error {
	_, err := f.fence.Wait(common.NoTimeout)
	return errors.Wrap(err, "wait for fence")
}

type fencePool struct {
	device core1_0.Device
	free   []*fence
	all    []*fence
}

func (p *fencePool) get() (*fence, error) {
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		return f, nil
	}
	vkFence, _, err := p.device.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return nil, errors.Wrap(err, "create fence")
	}
	f := &fence{fence: vkFence}
	p.all = append(p.all, f)
	return f, nil
}

// put resets a signaled fence and makes it available again.
func (p *fencePool) put(f *fence) error {
	if _, err := p.device.ResetFences([]core1_0.Fence{f.fence}); err != nil {
		return errors.Wrap(err, "reset fence")
	}
	p.free = append(p.free, f)
	return nil
}

// discard returns an unsubmitted fence.
func (p *fencePool) discard(f *fence) {
	p.free = append(p.free, f)
}

func (p *fencePool) destroy() {
	for _, f := range p.all {
		f.fence.Destroy(nil)
	}
	p.all = nil
	p.free = nil
}
