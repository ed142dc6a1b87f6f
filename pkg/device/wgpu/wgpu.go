// Package wgpu implements device.Device on a real GPU through the gogpu
// HAL. Kernels are compiled from their WGSL text; host twins are ignored.
package wgpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/chazu/isocurve/pkg/device"
)

// SubmitTimeout bounds the fence wait of one submission.
const SubmitTimeout = 5 * time.Second

type buffer struct {
	label string
	raw   hal.Buffer
	size  uint64
}

type kernel struct {
	label      string
	bindings   []device.BindingKind
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

type bindGroup struct {
	kernel device.KernelID
	raw    hal.BindGroup
}

// Device is a GPU device.
type Device struct {
	mu sync.Mutex

	name     string
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	next       uint64
	buffers    map[device.BufferID]*buffer
	kernels    map[device.KernelID]*kernel
	bindGroups map[device.BindGroupID]*bindGroup
	stats      device.Stats
	closed     bool
}

var _ device.Device = (*Device)(nil)

// Open opens the first discrete or integrated GPU found on the Vulkan
// backend, falling back to the first adapter of any type.
func Open() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	d, err := OpenInstance(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	d.external = false
	return d, nil
}

// OpenInstance opens an adapter of an existing HAL instance. The instance
// stays owned by the caller.
func OpenInstance(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	d := newDevice(selected.Info.Name, openDev.Device, openDev.Queue)
	d.instance = instance
	d.external = true
	slogger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return d, nil
}

func newDevice(name string, dev hal.Device, queue hal.Queue) *Device {
	return &Device{
		name:       name,
		device:     dev,
		queue:      queue,
		buffers:    make(map[device.BufferID]*buffer),
		kernels:    make(map[device.KernelID]*kernel),
		bindGroups: make(map[device.BindGroupID]*bindGroup),
	}
}

// Name implements device.Device.
func (d *Device) Name() string { return "wgpu:" + d.name }

func (d *Device) id() uint64 {
	d.next++
	return d.next
}

func halUsage(u device.BufferUsage) gputypes.BufferUsage {
	// Every buffer can be read back and written from the host.
	out := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if u&device.BufferUsageUniform != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&device.BufferUsageStorage != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&device.BufferUsageVertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	if u&device.BufferUsageIndex != 0 {
		out |= gputypes.BufferUsageIndex
	}
	return out
}

func halBindingType(k device.BindingKind) gputypes.BufferBindingType {
	switch k {
	case device.BindingUniform:
		return gputypes.BufferBindingTypeUniform
	case device.BindingReadOnly:
		return gputypes.BufferBindingTypeReadOnlyStorage
	default:
		return gputypes.BufferBindingTypeStorage
	}
}

// CreateBuffer implements device.Device.
func (d *Device) CreateBuffer(label string, size uint64, usage device.BufferUsage) (device.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label, Size: size, Usage: halUsage(usage),
	})
	if err != nil {
		return device.InvalidID, fmt.Errorf("create buffer %q: %w", label, err)
	}
	id := device.BufferID(d.id())
	d.buffers[id] = &buffer{label: label, raw: raw, size: size}
	return id, nil
}

// DestroyBuffer implements device.Device.
func (d *Device) DestroyBuffer(id device.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, id)
	}
}

// WriteBuffer implements device.Device. Queue writes are ordered before
// any later submission.
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
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write %d bytes at %d into %q (%d bytes): %w",
			len(data), offset, b.label, b.size, device.ErrOutOfRange)
	}
	d.queue.WriteBuffer(b.raw, offset, data)
	d.stats.BufferWrites++
	d.stats.BytesWritten += len(data)
	return nil
}

// ReadBuffer implements device.Device. It copies the range into a staging
// buffer and waits for the copy.
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
	if offset+size > b.size {
		return nil, fmt.Errorf("read %d bytes at %d from %q (%d bytes): %w",
			size, offset, b.label, b.size, device.ErrOutOfRange)
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label + "_staging", Size: size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	err = d.submitLocked("readback", func(encoder hal.CommandEncoder) {
		encoder.CopyBufferToBuffer(b.raw, staging, []hal.BufferCopy{
			{SrcOffset: offset, DstOffset: 0, Size: size},
		})
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return out, nil
}

// CreateKernel implements device.Device.
func (d *Device) CreateKernel(desc *device.KernelDesc) (device.KernelID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}

	k := &kernel{label: desc.Label, bindings: append([]device.BindingKind(nil), desc.Bindings...)}
	if err := d.createPipeline(k, desc.Source); err != nil {
		d.destroyKernel(k)
		return device.InvalidID, err
	}
	id := device.KernelID(d.id())
	d.kernels[id] = k
	slogger().Debug("wgpu: kernel created", "label", desc.Label, "bindings", len(desc.Bindings))
	return id, nil
}

func (d *Device) createPipeline(k *kernel, source string) error {
	var err error
	k.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", k.label, err)
	}

	entries := make([]gputypes.BindGroupLayoutEntry, len(k.bindings))
	for i, b := range k.bindings {
		entries[i] = gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: halBindingType(b)},
		}
	}
	k.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: k.label + "_bind_layout", Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create %s bind group layout: %w", k.label, err)
	}

	k.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: k.label + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline layout: %w", k.label, err)
	}

	k.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  k.label,
		Layout: k.pipeLayout,
		Compute: hal.ComputeState{
			Module:     k.module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline: %w", k.label, err)
	}
	return nil
}

// destroyKernel releases pipeline objects in reverse creation order.
func (d *Device) destroyKernel(k *kernel) {
	if k.pipeline != nil {
		d.device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		d.device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		d.device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.module != nil {
		d.device.DestroyShaderModule(k.module)
	}
}

// DestroyKernel implements device.Device.
func (d *Device) DestroyKernel(id device.KernelID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.kernels[id]; ok {
		d.destroyKernel(k)
		delete(d.kernels, id)
	}
}

// CreateBindGroup implements device.Device.
func (d *Device) CreateBindGroup(kid device.KernelID, buffers []device.BufferID) (device.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.InvalidID, device.ErrClosed
	}
	k, ok := d.kernels[kid]
	if !ok {
		return device.InvalidID, fmt.Errorf("bind group for kernel %d: %w", kid, device.ErrUnknownResource)
	}
	if len(buffers) != len(k.bindings) {
		return device.InvalidID, fmt.Errorf("kernel %q takes %d bindings, got %d: %w",
			k.label, len(k.bindings), len(buffers), device.ErrBindingMismatch)
	}
	entries := make([]gputypes.BindGroupEntry, len(buffers))
	for i, id := range buffers {
		b, ok := d.buffers[id]
		if !ok {
			return device.InvalidID, fmt.Errorf("bind buffer %d: %w", id, device.ErrUnknownResource)
		}
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: 0, Size: b.size},
		}
	}
	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: k.label + "_bind", Layout: k.bindLayout, Entries: entries,
	})
	if err != nil {
		return device.InvalidID, fmt.Errorf("create %s bind group: %w", k.label, err)
	}
	id := device.BindGroupID(d.id())
	d.bindGroups[id] = &bindGroup{kernel: kid, raw: raw}
	return id, nil
}

// DestroyBindGroup implements device.Device.
func (d *Device) DestroyBindGroup(id device.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bg, ok := d.bindGroups[id]; ok {
		d.device.DestroyBindGroup(bg.raw)
		delete(d.bindGroups, id)
	}
}

// Submit implements device.Device. Every dispatch gets its own compute
// pass in a single command encoder, so storage writes of one pass are
// visible to the next. One submit and one fence wait cover the batch.
func (d *Device) Submit(ctx context.Context, batch []device.Dispatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return device.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	type pass struct {
		pipeline hal.ComputePipeline
		group    hal.BindGroup
		grid     [3]uint32
	}
	passes := make([]pass, 0, len(batch))
	for _, disp := range batch {
		k, ok := d.kernels[disp.Kernel]
		if !ok {
			return fmt.Errorf("dispatch kernel %d: %w", disp.Kernel, device.ErrUnknownResource)
		}
		bg, ok := d.bindGroups[disp.BindGroup]
		if !ok || bg.kernel != disp.Kernel {
			return fmt.Errorf("dispatch bind group %d: %w", disp.BindGroup, device.ErrBindingMismatch)
		}
		passes = append(passes, pass{pipeline: k.pipeline, group: bg.raw, grid: disp.Workgroups})
	}

	err := d.submitLocked("compute", func(encoder hal.CommandEncoder) {
		for _, p := range passes {
			cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "compute_pass"})
			cp.SetPipeline(p.pipeline)
			cp.SetBindGroup(0, p.group, nil)
			cp.Dispatch(p.grid[0], p.grid[1], p.grid[2])
			cp.End()
		}
	})
	if err != nil {
		return err
	}
	d.stats.Submits++
	d.stats.Dispatches += len(passes)
	slogger().Debug("wgpu: batch submitted", "dispatches", len(passes))
	return nil
}

// submitLocked records commands through record, submits them and waits
// for completion.
func (d *Device) submitLocked(label string, record func(hal.CommandEncoder)) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	record(encoder)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, SubmitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
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

// Close implements device.Device. Resources are released bind groups
// first, then kernels, then buffers.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for id, bg := range d.bindGroups {
		d.device.DestroyBindGroup(bg.raw)
		delete(d.bindGroups, id)
	}
	for id, k := range d.kernels {
		d.destroyKernel(k)
		delete(d.kernels, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, id)
	}
	d.device.Destroy()
	if !d.external && d.instance != nil {
		d.instance.Destroy()
	}
	return nil
}
