package vulkan

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

const spirvMagic = 0x07230203

// shaderCode is the SPIR-V for the planet vertex and fragment stages.
type shaderCode struct {
	vertex   []uint32
	fragment []uint32
}

func loadShaderCode(vertexPath, fragmentPath string) (*shaderCode, error) {
	vertex, err := loadSPIRV(vertexPath)
	if err != nil {
		return nil, err
	}
	fragment, err := loadSPIRV(fragmentPath)
	if err != nil {
		return nil, err
	}
	return &shaderCode{vertex: vertex, fragment: fragment}, nil
}

func loadSPIRV(path string) ([]uint32, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}
	code, err := bytesToBytecode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	return code, nil
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}
	return byteCode, nil
}

func (d *Device) createShaderModule(code []uint32) (core1_0.ShaderModule, error) {
	module, _, err := d.device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}
