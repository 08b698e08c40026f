package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/incipisphere/internal/binding"
	"github.com/vkngwrapper/incipisphere/internal/uniform"
)

const setsPerPool = 64

type descriptorPool struct {
	pool core1_0.DescriptorPool
	live int
}

type descriptorSet struct {
	set  core1_0.DescriptorSet
	pool *descriptorPool
}

// bindingAllocator hands out sets from a growing list of pools. Sets are
// freed individually, so pools are created with the free flag.
type bindingAllocator struct {
	dev           *Device
	layout        *pipelineLayout
	transformSize int
	colorSize     int
	pools         []*descriptorPool
}

func (a *bindingAllocator) poolWithRoom() (*descriptorPool, error) {
	for _, p := range a.pools {
		if p.live < setsPerPool {
			return p, nil
		}
	}

	pool, _, err := a.dev.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		Flags:   core1_0.DescriptorPoolCreateFreeDescriptorSet,
		MaxSets: setsPerPool,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeUniformBufferDynamic,
				DescriptorCount: setsPerPool * 2,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor pool")
	}
	p := &descriptorPool{pool: pool}
	a.pools = append(a.pools, p)
	return p, nil
}

func (a *bindingAllocator) Allocate(transform, color uniform.Block) (binding.Set, error) {
	tb, ok := transform.(*uniformBlock)
	if !ok {
		return nil, errors.Newf("transform block %T was not allocated by this device", transform)
	}
	cb, ok := color.(*uniformBlock)
	if !ok {
		return nil, errors.Newf("color block %T was not allocated by this device", color)
	}

	pool, err := a.poolWithRoom()
	if err != nil {
		return nil, err
	}

	sets, _, err := a.dev.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool.pool,
		SetLayouts:     []core1_0.DescriptorSetLayout{a.layout.setLayout},
	})
	if err != nil {
		return nil, errors.Wrap(err, "allocate descriptor set")
	}
	pool.live++
	set := &descriptorSet{set: sets[0], pool: pool}

	err = a.dev.device.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          set.set,
			DstBinding:      0,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBufferDynamic,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: tb.buffer,
					Offset: 0,
					Range:  a.transformSize,
				},
			},
		},
		{
			DstSet:          set.set,
			DstBinding:      1,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBufferDynamic,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: cb.buffer,
					Offset: 0,
					Range:  a.colorSize,
				},
			},
		},
	}, nil)
	if err != nil {
		a.Free([]binding.Set{set})
		return nil, errors.Wrap(err, "update descriptor set")
	}
	return set, nil
}

func (a *bindingAllocator) Free(sets []binding.Set) {
	byPool := make(map[*descriptorPool][]core1_0.DescriptorSet)
	for _, s := range sets {
		ds := s.(*descriptorSet)
		byPool[ds.pool] = append(byPool[ds.pool], ds.set)
	}
	for pool, vkSets := range byPool {
		if _, err := a.dev.device.FreeDescriptorSets(vkSets); err != nil {
			a.dev.log.Error("free descriptor sets", "err", err)
			continue
		}
		pool.live -= len(vkSets)
	}
}

func (a *bindingAllocator) destroy() {
	for _, p := range a.pools {
		p.pool.Destroy(nil)
	}
	a.pools = nil
}
