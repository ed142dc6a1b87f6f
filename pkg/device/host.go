package device

import (
	"encoding/binary"
	"math"

	"golang.org/x/image/math/f32"
)

// HostKernel runs one dispatch of a kernel on the CPU. buffers are the
// bound buffers in binding order; workgroups is the dispatch grid.
type HostKernel func(buffers []*HostBuffer, workgroups [3]uint32) error

// Element strides of the data layouts shared by kernels and host twins.
const (
	F32Size    = 4
	U32Size    = 4
	Vec4Size   = 16
	Mat4Size   = 64
	VertexSize = 48
)

// Vertex is one mesh vertex as laid out in device memory: three vec4s.
// Position has w = 1, Normal has w = 0, UV holds (u, v, 0, 0).
type Vertex struct {
	Position f32.Vec4
	Normal   f32.Vec4
	UV       f32.Vec4
}

// HostBuffer is the CPU image of a device buffer. All accessors take
// element indices, not byte offsets, and use little-endian layout like
// the device does.
type HostBuffer struct {
	Label string
	Data  []byte
}

// NewHostBuffer returns a zeroed buffer of size bytes.
func NewHostBuffer(label string, size uint64) *HostBuffer {
	return &HostBuffer{Label: label, Data: make([]byte, size)}
}

// Size is the buffer length in bytes.
func (b *HostBuffer) Size() uint64 { return uint64(len(b.Data)) }

// F32 returns the i-th f32.
func (b *HostBuffer) F32(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.Data[i*F32Size:]))
}

// SetF32 stores the i-th f32.
func (b *HostBuffer) SetF32(i int, v float32) {
	binary.LittleEndian.PutUint32(b.Data[i*F32Size:], math.Float32bits(v))
}

// U32 returns the i-th u32.
func (b *HostBuffer) U32(i int) uint32 {
	return binary.LittleEndian.Uint32(b.Data[i*F32Size:])
}

// SetU32 stores the i-th u32.
func (b *HostBuffer) SetU32(i int, v uint32) {
	binary.LittleEndian.PutUint32(b.Data[i*F32Size:], v)
}

// Vec4 returns the i-th vec4<f32>.
func (b *HostBuffer) Vec4(i int) f32.Vec4 {
	var v f32.Vec4
	for k := range v {
		v[k] = b.F32(i*4 + k)
	}
	return v
}

// SetVec4 stores the i-th vec4<f32>.
func (b *HostBuffer) SetVec4(i int, v f32.Vec4) {
	for k := range v {
		b.SetF32(i*4+k, v[k])
	}
}

// Mat4 returns the i-th mat4x4<f32>. Device memory is column-major; the
// result is row-major like every f32.Mat4.
func (b *HostBuffer) Mat4(i int) f32.Mat4 {
	var m f32.Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[row*4+col] = b.F32(i*16 + col*4 + row)
		}
	}
	return m
}

// SetMat4 stores the i-th mat4x4<f32>.
func (b *HostBuffer) SetMat4(i int, m f32.Mat4) {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			b.SetF32(i*16+col*4+row, m[row*4+col])
		}
	}
}

// Vertex returns the i-th mesh vertex.
func (b *HostBuffer) Vertex(i int) Vertex {
	return Vertex{
		Position: b.Vec4(i * 3),
		Normal:   b.Vec4(i*3 + 1),
		UV:       b.Vec4(i*3 + 2),
	}
}

// SetVertex stores the i-th mesh vertex.
func (b *HostBuffer) SetVertex(i int, v Vertex) {
	b.SetVec4(i*3, v.Position)
	b.SetVec4(i*3+1, v.Normal)
	b.SetVec4(i*3+2, v.UV)
}

// EncodeF32 packs values as little-endian f32s.
func EncodeF32(values ...float32) []byte {
	out := make([]byte, len(values)*F32Size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*F32Size:], math.Float32bits(v))
	}
	return out
}

// EncodeU32 packs values as little-endian u32s.
func EncodeU32(values []uint32) []byte {
	out := make([]byte, len(values)*U32Size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*U32Size:], v)
	}
	return out
}

// EncodeVertices packs vertices in device layout.
func EncodeVertices(vs []Vertex) []byte {
	hb := NewHostBuffer("", uint64(len(vs)*VertexSize))
	for i, v := range vs {
		hb.SetVertex(i, v)
	}
	return hb.Data
}

// DecodeF32 unpacks little-endian f32s.
func DecodeF32(data []byte) []float32 {
	out := make([]float32, len(data)/F32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*F32Size:]))
	}
	return out
}

// DecodeU32 unpacks little-endian u32s.
func DecodeU32(data []byte) []uint32 {
	out := make([]uint32, len(data)/U32Size)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*U32Size:])
	}
	return out
}

// DecodeVec4 unpacks vec4<f32>s.
func DecodeVec4(data []byte) []f32.Vec4 {
	hb := &HostBuffer{Data: data}
	out := make([]f32.Vec4, len(data)/Vec4Size)
	for i := range out {
		out[i] = hb.Vec4(i)
	}
	return out
}

// DecodeVertices unpacks mesh vertices.
func DecodeVertices(data []byte) []Vertex {
	hb := &HostBuffer{Data: data}
	out := make([]Vertex, len(data)/VertexSize)
	for i := range out {
		out[i] = hb.Vertex(i)
	}
	return out
}

// Invocations calls fn for every global invocation ID of a dispatch with
// the given workgroup size and count, in x-fastest order.
func Invocations(size, count [3]uint32, fn func(id [3]uint32) error) error {
	total := [3]uint32{size[0] * count[0], size[1] * count[1], size[2] * count[2]}
	for z := uint32(0); z < total[2]; z++ {
		for y := uint32(0); y < total[1]; y++ {
			for x := uint32(0); x < total[0]; x++ {
				if err := fn([3]uint32{x, y, z}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
