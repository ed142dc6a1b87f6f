// Package device abstracts the GPU primitives the compiler needs: allocate
// buffers, compile kernels, bind resources, dispatch and submit.
//
// Two implementations ship with the module. Package software runs each
// kernel's host twin on the CPU and is what the tests and the CLI use by
// default. Package wgpu drives a real adapter through the gogpu HAL.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and are never reused
package device

import (
	"context"
	"errors"
)

// BufferID is an opaque handle to a device buffer.
type BufferID uint64

// KernelID is an opaque handle to a compiled compute kernel and its
// pipeline.
type KernelID uint64

// BindGroupID is an opaque handle to a set of buffers bound to a kernel.
type BindGroupID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageCopySrc BufferUsage = 1 << iota
	BufferUsageCopyDst
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageUniform
	BufferUsageStorage
)

// BindingKind is the access a kernel has to one of its bindings.
type BindingKind int

const (
	// BindingUniform is the read-only globals block.
	BindingUniform BindingKind = iota
	// BindingReadOnly is an upstream result.
	BindingReadOnly
	// BindingReadWrite is the kernel's output.
	BindingReadWrite
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingReadOnly:
		return "read"
	case BindingReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}

// KernelDesc describes a compute kernel. Binding i of group 0 has access
// Bindings[i].
type KernelDesc struct {
	Label string
	// Source is the WGSL text. Its entry point is "main".
	Source   string
	Bindings []BindingKind
	// Host executes the same computation on the CPU. Devices that cannot
	// run WGSL require it; GPU devices ignore it.
	Host HostKernel
}

// Dispatch is one kernel invocation grid.
type Dispatch struct {
	Kernel     KernelID
	BindGroup  BindGroupID
	Workgroups [3]uint32
}

// Stats are cumulative counters kept by a device.
type Stats struct {
	BufferWrites   int
	BytesWritten   int
	Submits        int
	Dispatches     int
	LiveBuffers    int
	LiveKernels    int
	LiveBindGroups int
}

var (
	// ErrUnknownResource is an ID that was never created or already
	// destroyed.
	ErrUnknownResource = errors.New("device: unknown resource")
	// ErrOutOfRange is a buffer access past the end of the buffer.
	ErrOutOfRange = errors.New("device: buffer access out of range")
	// ErrBindingMismatch is a bind group whose buffers do not match the
	// kernel's bindings.
	ErrBindingMismatch = errors.New("device: bind group does not match kernel bindings")
	// ErrNoHostKernel is a kernel without a host twin submitted to a CPU
	// device.
	ErrNoHostKernel = errors.New("device: kernel has no host implementation")
	// ErrClosed is any call on a closed device.
	ErrClosed = errors.New("device: closed")
)

// Device is the set of primitives the compiler consumes.
// Implementations must be safe for concurrent use.
type Device interface {
	// Name identifies the device for diagnostics.
	Name() string

	// CreateBuffer allocates a zeroed buffer of size bytes.
	CreateBuffer(label string, size uint64, usage BufferUsage) (BufferID, error)
	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)
	// WriteBuffer copies data into a buffer at offset. The write is
	// complete before any later Submit executes.
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	// ReadBuffer reads size bytes starting at offset. It waits for all
	// submitted work.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// CreateKernel compiles a kernel.
	CreateKernel(desc *KernelDesc) (KernelID, error)
	// DestroyKernel releases a kernel.
	DestroyKernel(id KernelID)

	// CreateBindGroup binds buffers[i] to binding i of kernel.
	CreateBindGroup(kernel KernelID, buffers []BufferID) (BindGroupID, error)
	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// Submit records every dispatch into one batch and executes it in
	// order. A dispatch observes the writes of every dispatch before it.
	Submit(ctx context.Context, batch []Dispatch) error

	// Stats returns the device counters.
	Stats() Stats

	// Close releases the device and every resource still alive.
	Close() error
}
