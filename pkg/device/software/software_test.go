package software

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/isocurve/pkg/device"
)

// doubler writes twice binding 0 into binding 1.
func doubler(bufs []*device.HostBuffer, grid [3]uint32) error {
	return device.Invocations([3]uint32{4, 1, 1}, grid, func(id [3]uint32) error {
		i := int(id[0])
		bufs[1].SetF32(i, 2*bufs[0].F32(i))
		return nil
	})
}

func TestBufferReadWrite(t *testing.T) {
	d := New()
	id, err := d.CreateBuffer("b", 16, device.BufferUsageStorage)
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(id, 4, device.EncodeF32(1.5, 2.5)))
	data, err := d.ReadBuffer(id, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1.5, 2.5, 0}, device.DecodeF32(data))

	err = d.WriteBuffer(id, 12, device.EncodeF32(1, 2))
	assert.ErrorIs(t, err, device.ErrOutOfRange)
	_, err = d.ReadBuffer(id, 8, 16)
	assert.ErrorIs(t, err, device.ErrOutOfRange)

	s := d.Stats()
	assert.Equal(t, 1, s.BufferWrites)
	assert.Equal(t, 8, s.BytesWritten)
}

func TestSubmitRunsInOrder(t *testing.T) {
	d := New()
	ctx := context.Background()

	a, _ := d.CreateBuffer("a", 16, device.BufferUsageStorage)
	b, _ := d.CreateBuffer("b", 16, device.BufferUsageStorage)
	c, _ := d.CreateBuffer("c", 16, device.BufferUsageStorage)
	require.NoError(t, d.WriteBuffer(a, 0, device.EncodeF32(1, 2, 3, 4)))

	k, err := d.CreateKernel(&device.KernelDesc{
		Label:    "double",
		Bindings: []device.BindingKind{device.BindingReadOnly, device.BindingReadWrite},
		Host:     doubler,
	})
	require.NoError(t, err)
	ab, err := d.CreateBindGroup(k, []device.BufferID{a, b})
	require.NoError(t, err)
	bc, err := d.CreateBindGroup(k, []device.BufferID{b, c})
	require.NoError(t, err)

	grid := [3]uint32{1, 1, 1}
	require.NoError(t, d.Submit(ctx, []device.Dispatch{
		{Kernel: k, BindGroup: ab, Workgroups: grid},
		{Kernel: k, BindGroup: bc, Workgroups: grid},
	}))

	data, err := d.ReadBuffer(c, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 8, 12, 16}, device.DecodeF32(data))

	s := d.Stats()
	assert.Equal(t, 1, s.Submits)
	assert.Equal(t, 2, s.Dispatches)
	assert.Equal(t, 3, s.LiveBuffers)
	assert.Equal(t, 1, s.LiveKernels)
	assert.Equal(t, 2, s.LiveBindGroups)
}

func TestKernelRequiresHostTwin(t *testing.T) {
	d := New()
	_, err := d.CreateKernel(&device.KernelDesc{Label: "gpu-only", Source: "@compute fn main() {}"})
	assert.ErrorIs(t, err, device.ErrNoHostKernel)
}

func TestBindGroupValidation(t *testing.T) {
	d := New()
	a, _ := d.CreateBuffer("a", 4, device.BufferUsageStorage)
	k, err := d.CreateKernel(&device.KernelDesc{
		Label:    "k",
		Bindings: []device.BindingKind{device.BindingReadOnly, device.BindingReadWrite},
		Host:     doubler,
	})
	require.NoError(t, err)

	_, err = d.CreateBindGroup(k, []device.BufferID{a})
	assert.ErrorIs(t, err, device.ErrBindingMismatch)
	_, err = d.CreateBindGroup(k, []device.BufferID{a, 99})
	assert.ErrorIs(t, err, device.ErrUnknownResource)
	_, err = d.CreateBindGroup(42, []device.BufferID{a, a})
	assert.ErrorIs(t, err, device.ErrUnknownResource)
}

func TestSubmitValidatesWholeBatchFirst(t *testing.T) {
	d := New()
	a, _ := d.CreateBuffer("a", 16, device.BufferUsageStorage)
	b, _ := d.CreateBuffer("b", 16, device.BufferUsageStorage)
	k, _ := d.CreateKernel(&device.KernelDesc{
		Label:    "k",
		Bindings: []device.BindingKind{device.BindingReadOnly, device.BindingReadWrite},
		Host:     doubler,
	})
	bg, _ := d.CreateBindGroup(k, []device.BufferID{a, b})

	err := d.Submit(context.Background(), []device.Dispatch{
		{Kernel: k, BindGroup: bg, Workgroups: [3]uint32{1, 1, 1}},
		{Kernel: k, BindGroup: 1234, Workgroups: [3]uint32{1, 1, 1}},
	})
	assert.ErrorIs(t, err, device.ErrUnknownResource)
	assert.Zero(t, d.Stats().Dispatches)
}

func TestCloseRejectsCalls(t *testing.T) {
	d := New()
	a, _ := d.CreateBuffer("a", 4, device.BufferUsageStorage)
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.WriteBuffer(a, 0, []byte{0, 0, 0, 0}), device.ErrClosed)
	_, err := d.CreateBuffer("b", 4, device.BufferUsageStorage)
	assert.ErrorIs(t, err, device.ErrClosed)
	assert.Zero(t, d.Stats().LiveBuffers)
}

func TestSubmitHonoursContext(t *testing.T) {
	d := New()
	a, _ := d.CreateBuffer("a", 16, device.BufferUsageStorage)
	b, _ := d.CreateBuffer("b", 16, device.BufferUsageStorage)
	k, _ := d.CreateKernel(&device.KernelDesc{
		Label:    "k",
		Bindings: []device.BindingKind{device.BindingReadOnly, device.BindingReadWrite},
		Host:     doubler,
	})
	bg, _ := d.CreateBindGroup(k, []device.BufferID{a, b})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Submit(ctx, []device.Dispatch{{Kernel: k, BindGroup: bg, Workgroups: [3]uint32{1, 1, 1}}})
	assert.ErrorIs(t, err, context.Canceled)
}
