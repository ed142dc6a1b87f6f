// Package software is a CPU implementation of device.Device. It executes
// the host twin of each kernel instead of its WGSL, so it needs no GPU and
// is deterministic. It is the default device of the CLI and of the tests.
package software

import (
	"context"
	"fmt"
	"sync"

	"github.com/chazu/isocurve/pkg/device"
)

type kernel struct {
	desc device.KernelDesc
}

type bindGroup struct {
	kernel  device.KernelID
	buffers []device.BufferID
}

// Device is a CPU device.
type Device struct {
	mu sync.Mutex

	next       uint64
	buffers    map[device.BufferID]*device.HostBuffer
	kernels    map[device.KernelID]*kernel
	bindGroups map[device.BindGroupID]*bindGroup
	stats      device.Stats
	closed     bool
}

var _ device.Device = (*Device)(nil)

// New creates an empty CPU device.
func New() *Device {
	return &Device{
		buffers:    make(map[device.BufferID]*device.HostBuffer),
		kernels:    make(map[device.KernelID]*kernel),
		bindGroups: make(map[device.BindGroupID]*bindGroup),
	}
}

// Name implements device.Device.
func (d *Device) Name() string { return "software" }

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

// CreateBuffer implements device.Device.
func (d *Device) CreateBuffer(label string, size uint64, _ device.BufferUsage) (device.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}
	id := device.BufferID(d.id())
	d.buffers[id] = device.NewHostBuffer(label, size)
	return id, nil
}

// DestroyBuffer implements device.Device.
func (d *Device) DestroyBuffer(id device.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// WriteBuffer implements device.Device.
func (d *Device) WriteBuffer(id device.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.ErrClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, device.ErrUnknownResource)
	}
	if offset+uint64(len(data)) > b.Size() {
		return fmt.Errorf("write %d bytes at %d into %q (%d bytes): %w",
			len(data), offset, b.Label, b.Size(), device.ErrOutOfRange)
	}
	copy(b.Data[offset:], data)
	d.stats.BufferWrites++
	d.stats.BytesWritten += len(data)
	return nil
}

// ReadBuffer implements device.Device.
func (d *Device) ReadBuffer(id device.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, device.ErrClosed
	}
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("read buffer %d: %w", id, device.ErrUnknownResource)
	}
	if offset+size > b.Size() {
		return nil, fmt.Errorf("read %d bytes at %d from %q (%d bytes): %w",
			size, offset, b.Label, b.Size(), device.ErrOutOfRange)
	}
	out := make([]byte, size)
	copy(out, b.Data[offset:offset+size])
	return out, nil
}

// CreateKernel implements device.Device. The WGSL text is kept but never
// compiled; the host twin is required.
func (d *Device) CreateKernel(desc *device.KernelDesc) (device.KernelID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}
	if desc.Host == nil {
		return device.InvalidID, fmt.Errorf("kernel %q: %w", desc.Label, device.ErrNoHostKernel)
	}
	id := device.KernelID(d.id())
	d.kernels[id] = &kernel{desc: *desc}
	return id, nil
}

// DestroyKernel implements device.Device.
func (d *Device) DestroyKernel(id device.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.kernels, id)
}

// CreateBindGroup implements device.Device.
func (d *Device) CreateBindGroup(k device.KernelID, buffers []device.BufferID) (device.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}
	kn, ok := d.kernels[k]
	if !ok {
		return device.InvalidID, fmt.Errorf("bind group for kernel %d: %w", k, device.ErrUnknownResource)
	}
	if len(buffers) != len(kn.desc.Bindings) {
		return device.InvalidID, fmt.Errorf("kernel %q takes %d bindings, got %d: %w",
			kn.desc.Label, len(kn.desc.Bindings), len(buffers), device.ErrBindingMismatch)
	}
	for _, b := range buffers {
		if _, ok := d.buffers[b]; !ok {
			return device.InvalidID, fmt.Errorf("bind buffer %d: %w", b, device.ErrUnknownResource)
		}
	}
	id := device.BindGroupID(d.id())
	d.bindGroups[id] = &bindGroup{kernel: k, buffers: append([]device.BufferID(nil), buffers...)}
	return id, nil
}

// DestroyBindGroup implements device.Device.
func (d *Device) DestroyBindGroup(id device.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroups, id)
}

// Submit implements device.Device. Dispatches run sequentially in batch
// order; the batch is validated before anything runs.
func (d *Device) Submit(ctx context.Context, batch []device.Dispatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.ErrClosed
	}

	type job struct {
		kernel  *kernel
		buffers []*device.HostBuffer
		grid    [3]uint32
	}
	jobs := make([]job, 0, len(batch))
	for _, disp := range batch {
		kn, ok := d.kernels[disp.Kernel]
		if !ok {
			return fmt.Errorf("dispatch kernel %d: %w", disp.Kernel, device.ErrUnknownResource)
		}
		bg, ok := d.bindGroups[disp.BindGroup]
		if !ok {
			return fmt.Errorf("dispatch bind group %d: %w", disp.BindGroup, device.ErrUnknownResource)
		}
		if bg.kernel != disp.Kernel {
			return fmt.Errorf("bind group %d belongs to kernel %d, not %d: %w",
				disp.BindGroup, bg.kernel, disp.Kernel, device.ErrBindingMismatch)
		}
		bufs := make([]*device.HostBuffer, len(bg.buffers))
		for i, id := range bg.buffers {
			b, ok := d.buffers[id]
			if !ok {
				return fmt.Errorf("dispatch %q binding %d: %w", kn.desc.Label, i, device.ErrUnknownResource)
			}
			bufs[i] = b
		}
		jobs = append(jobs, job{kernel: kn, buffers: bufs, grid: disp.Workgroups})
	}

	d.stats.Submits++
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.kernel.desc.Host(j.buffers, j.grid); err != nil {
			return fmt.Errorf("kernel %q: %w", j.kernel.desc.Label, err)
		}
		d.stats.Dispatches++
	}
	return nil
}

// Stats implements device.Device.
func (d *Device) Stats() device.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.LiveBuffers = len(d.buffers)
	s.LiveKernels = len(d.kernels)
	s.LiveBindGroups = len(d.bindGroups)
	return s
}

// Close implements device.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.buffers = map[device.BufferID]*device.HostBuffer{}
	d.kernels = map[device.KernelID]*kernel{}
	d.bindGroups = map[device.BindGroupID]*bindGroup{}
	return nil
}

// Source returns the WGSL text a kernel was created with.
func (d *Device) Source(id device.KernelID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, ok := d.kernels[id]
	if !ok {
		return "", false
	}
	return k.desc.Source, true
}
