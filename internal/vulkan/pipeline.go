package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/vkngwrapper/incipisphere/internal/mesh"
)

// Pipeline is a graphics pipeline built for one swapchain generation.
type Pipeline struct {
	pipeline  core1_0.Pipeline
	wireframe bool
}

// pipelineLayout is shared by every pipeline: one set with a dynamic
// transform buffer for the vertex stage and a dynamic color buffer for the
// fragment stage.
type pipelineLayout struct {
	setLayout core1_0.DescriptorSetLayout
	layout    core1_0.PipelineLayout
}

func (d *Device) createPipelineLayout() (*pipelineLayout, error) {
	setLayout, _, err := d.device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBufferDynamic,
				DescriptorCount: 1,

				StageFlags: core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeUniformBufferDynamic,
				DescriptorCount: 1,

				StageFlags: core1_0.StageFragment,
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create descriptor set layout")
	}

	layout, _, err := d.device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{setLayout},
	})
	if err != nil {
		setLayout.Destroy(nil)
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	return &pipelineLayout{setLayout: setLayout, layout: layout}, nil
}

func (l *pipelineLayout) destroy() {
	if l == nil {
		return
	}
	l.layout.Destroy(nil)
	l.setLayout.Destroy(nil)
}

func vertexBindingDescription() []core1_0.VertexInputBindingDescription {
	v := mesh.Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func vertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := mesh.Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
	}
}

// createPipeline builds a planet pipeline against chain's render pass. The
// two variants differ only in polygon mode.
func (d *Device) createPipeline(chain *Swapchain, layout *pipelineLayout, code *shaderCode, wireframe bool) (*Pipeline, error) {
	vertShader, err := d.createShaderModule(code.vertex)
	if err != nil {
		return nil, errors.Wrap(err, "create vertex shader module")
	}
	defer vertShader.Destroy(nil)

	fragShader, err := d.createShaderModule(code.fragment)
	if err != nil {
		return nil, errors.Wrap(err, "create fragment shader module")
	}
	defer fragShader.Destroy(nil)

	polygonMode := core1_0.PolygonModeFill
	if wireframe {
		polygonMode = core1_0.PolygonModeLine
	}

	pipelines, _, err := d.device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: vertShader,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: fragShader,
					Name:   "main",
				},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   vertexBindingDescription(),
				VertexAttributeDescriptions: vertexAttributeDescriptions(),
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{fullViewport(chain.extent)},
				Scissors: []core1_0.Rect2D{
					{
						Offset: core1_0.Offset2D{X: 0, Y: 0},
						Extent: chain.extent,
					},
				},
			},
			// no culling: the wireframe shows back faces too
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        false,
				RasterizerDiscardEnable: false,

				PolygonMode: polygonMode,
				FrontFace:   core1_0.FrontFaceCounterClockwise,

				DepthBiasEnable: false,

				LineWidth: 1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
				DepthTestEnable:  true,
				DepthWriteEnable: true,
				DepthCompareOp:   core1_0.CompareOpLess,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:   false,
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
				DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport},
			},
			Layout:            layout.layout,
			RenderPass:        chain.renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Pipeline{pipeline: pipelines[0], wireframe: wireframe}, nil
}

func fullViewport(extent core1_0.Extent2D) core1_0.Viewport {
	return core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func (p *Pipeline) destroy() {
	if p != nil && p.pipeline != nil {
		p.pipeline.Destroy(nil)
	}
}
