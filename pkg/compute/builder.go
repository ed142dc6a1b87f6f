package compute

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/expr"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/param"
	"github.com/chazu/isocurve/pkg/prefab"
	"github.com/chazu/isocurve/pkg/shader"
)

// arena owns every device resource of one build. Operations and Data only
// hold handles into it.
type arena struct {
	dev     device.Device
	buffers []device.BufferID
	kernels []device.KernelID
	groups  []device.BindGroupID
}

func (a *arena) buffer(label string, size uint64, usage device.BufferUsage) (device.BufferID, error) {
	id, err := a.dev.CreateBuffer(label, size, usage)
	if err != nil {
		return device.InvalidID, err
	}
	a.buffers = append(a.buffers, id)
	return id, nil
}

func (a *arena) kernel(desc *device.KernelDesc) (device.KernelID, error) {
	id, err := a.dev.CreateKernel(desc)
	if err != nil {
		return device.InvalidID, err
	}
	a.kernels = append(a.kernels, id)
	return id, nil
}

func (a *arena) bindGroup(k device.KernelID, buffers []device.BufferID) (device.BindGroupID, error) {
	id, err := a.dev.CreateBindGroup(k, buffers)
	if err != nil {
		return device.InvalidID, err
	}
	a.groups = append(a.groups, id)
	return id, nil
}

// release destroys everything in reverse order of dependency.
func (a *arena) release() {
	if a == nil {
		return
	}
	for _, id := range a.groups {
		a.dev.DestroyBindGroup(id)
	}
	for _, id := range a.kernels {
		a.dev.DestroyKernel(id)
	}
	for _, id := range a.buffers {
		a.dev.DestroyBuffer(id)
	}
	a.groups, a.kernels, a.buffers = nil, nil, nil
}

// pipeline is a cached kernel.
type pipeline struct {
	id     device.KernelID
	source string
	node   graph.NodeID
}

// builder is the context handed to every node handler. Globals are passed
// explicitly through it and are read-only during a build.
type builder struct {
	dev        device.Device
	graph      graph.NodeGraph
	globals    *Globals
	globalsBuf device.BufferID
	assets     *prefab.Library
	arena      *arena
	build      uint64
	validate   bool
	metrics    *Metrics
	log        *slog.Logger

	data      map[graph.NodeID]*Data
	failed    map[graph.NodeID]bool
	pipelines map[shader.Key]*pipeline
	keys      []shader.Key
	meshes    map[string]device.BufferID
	order     []graph.NodeID
	ops       []*Operation
	outputs   []RenderOutput
	errs      []RecoverableError

	// node is the node being built.
	node *graph.Node
}

// header is the kernel header for the current node producing dim.
func (b *builder) header(dim param.Dimension) shader.Header {
	return shader.Header{
		Label:   fmt.Sprintf("%s kernel", b.node.Kind()),
		Globals: b.globals.Fields(),
		Size:    dim.WorkgroupSize(),
	}
}

// scope is the global expression scope plus locals.
func (b *builder) scope(locals ...string) expr.Scope {
	return b.globals.Scope().WithLocals(locals...)
}

// sanitize validates one attribute expression.
func (b *builder) sanitize(attr, src string, scope expr.Scope) (expr.Expression, error) {
	e, err := expr.Sanitize(src, scope)
	if err != nil {
		return expr.Expression{}, failf(IncorrectExpression, err, "%s %q", attr, src)
	}
	return e, nil
}

// sanitizeXYZ validates three coordinate expressions.
func (b *builder) sanitizeXYZ(x, y, z string, scope expr.Scope) ([]expr.Expression, error) {
	out := make([]expr.Expression, 3)
	for i, src := range []string{x, y, z} {
		e, err := b.sanitize(string(rune('x'+i)), src, scope)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// input resolves the data linked to pin of the current node.
func (b *builder) input(pin int, what string) (*Data, error) {
	id := b.node.Input(pin)
	if id.IsZero() {
		return nil, fail(InputMissing, what+" is not linked")
	}
	if b.failed[id] {
		return nil, fail(BlockedByUpstream, fmt.Sprintf("%s %s failed to build", what, id))
	}
	if b.graph.Node(id) == nil {
		return nil, fail(NoInputData, fmt.Sprintf("%s %s does not exist", what, id))
	}
	d, ok := b.data[id]
	if !ok {
		return nil, fail(InternalError, fmt.Sprintf("%s %s has not been built", what, id))
	}
	return d, nil
}

// inputOf is input restricted to the given kinds.
func (b *builder) inputOf(pin int, what string, kinds ...DataKind) (*Data, error) {
	d, err := b.input(pin, what)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if d.Kind == k {
			return d, nil
		}
	}
	return nil, fail(IncorrectInput, fmt.Sprintf("%s is a %s result", what, d.Kind))
}

// output allocates the result buffer of the current node.
func (b *builder) output(kind DataKind, dim param.Dimension) (*Data, error) {
	size := kind.Stride() * uint64(dim.Len())
	label := fmt.Sprintf("%s %s", b.node.Kind(), b.node.ID)
	buf, err := b.arena.buffer(label, size, device.BufferUsageStorage|device.BufferUsageCopySrc|device.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	return &Data{
		ID:     DataID{Build: b.build, Node: b.node.ID},
		Kind:   kind,
		Dim:    dim,
		Buffer: buf,
		Bytes:  size,
	}, nil
}

// kernel generates the kernel text for t and returns a kernel for it.
// Identical text within a build shares one kernel. host must depend only
// on what the text encodes.
func (b *builder) kernel(t shader.Template, dim param.Dimension, bindings []device.BindingKind, host device.HostKernel) (*pipeline, shader.Key, error) {
	src, err := shader.Generate(t, dim.String())
	if err != nil {
		return nil, shader.Key{}, failf(InternalError, err, "generating %s kernel", t.Kind())
	}
	if p, ok := b.pipelines[src.Key]; ok {
		b.log.Debug("kernel cache hit", "node", b.node.ID, "key", src.Key.String())
		b.metrics.kernelCreated(true)
		return p, src.Key, nil
	}
	if b.validate {
		if _, err := shader.Compile(src.Text); err != nil {
			return nil, shader.Key{}, failf(InternalError, err, "%s kernel does not compile", t.Kind())
		}
	}
	id, err := b.arena.kernel(&device.KernelDesc{
		Label:    src.Key.String(),
		Source:   src.Text,
		Bindings: bindings,
		Host:     host,
	})
	if err != nil {
		return nil, shader.Key{}, err
	}
	p := &pipeline{id: id, source: src.Text, node: b.node.ID}
	b.pipelines[src.Key] = p
	b.keys = append(b.keys, src.Key)
	b.metrics.kernelCreated(false)
	return p, src.Key, nil
}

// operation binds the globals buffer, inputs and out to the kernel.
func (b *builder) operation(t shader.Template, dim param.Dimension, host device.HostKernel, out *Data, inputs ...device.BufferID) (*Operation, error) {
	bindings := make([]device.BindingKind, 0, len(inputs)+2)
	buffers := make([]device.BufferID, 0, len(inputs)+2)
	bindings = append(bindings, device.BindingUniform)
	buffers = append(buffers, b.globalsBuf)
	for _, in := range inputs {
		bindings = append(bindings, device.BindingReadOnly)
		buffers = append(buffers, in)
	}
	bindings = append(bindings, device.BindingReadWrite)
	buffers = append(buffers, out.Buffer)

	p, key, err := b.kernel(t, dim, bindings, host)
	if err != nil {
		return nil, err
	}
	group, err := b.arena.bindGroup(p.id, buffers)
	if err != nil {
		return nil, err
	}
	return &Operation{
		Node:       b.node.ID,
		Kernel:     p.id,
		Key:        key,
		Bindings:   buffers,
		BindGroup:  group,
		Workgroups: dim.Workgroups(),
	}, nil
}

// asset returns the asset called name and its vertex buffer, uploading it
// on first use in this build.
func (b *builder) asset(name string) (*prefab.Asset, device.BufferID, error) {
	a, ok := b.assets.Get(name)
	if !ok {
		return nil, device.InvalidID, fail(IncorrectAttributes, fmt.Sprintf("unknown prefab %q", name))
	}
	if buf, ok := b.meshes[name]; ok {
		return a, buf, nil
	}
	data := device.EncodeVertices(a.Vertices)
	buf, err := b.arena.buffer("prefab "+name, uint64(len(data)), device.BufferUsageStorage|device.BufferUsageCopyDst)
	if err != nil {
		return nil, device.InvalidID, err
	}
	if err := b.dev.WriteBuffer(buf, 0, data); err != nil {
		return nil, device.InvalidID, err
	}
	b.meshes[name] = buf
	return a, buf, nil
}

// indices uploads an index buffer for the current render node.
func (b *builder) indices(idx []uint32) (device.BufferID, error) {
	if len(idx) == 0 {
		return device.InvalidID, fail(IncorrectInput, "geometry is too small to triangulate")
	}
	data := device.EncodeU32(idx)
	label := fmt.Sprintf("indices %s", b.node.ID)
	buf, err := b.arena.buffer(label, uint64(len(data)), device.BufferUsageIndex|device.BufferUsageCopyDst|device.BufferUsageCopySrc)
	if err != nil {
		return device.InvalidID, err
	}
	if err := b.dev.WriteBuffer(buf, 0, data); err != nil {
		return device.InvalidID, err
	}
	return buf, nil
}

// render records a render output for the current node.
func (b *builder) render(vertices *Data, indices device.BufferID, count, mask, material int, op *Operation) {
	b.outputs = append(b.outputs, RenderOutput{
		Node:       b.node.ID,
		Vertices:   vertices.Buffer,
		Indices:    indices,
		IndexCount: count,
		Mask:       mask,
		Material:   material,
		Operation:  op,
	})
}

// classify turns any handler error into a ProcessingError for the node.
func classify(id graph.NodeID, err error) *ProcessingError {
	var p *ProcessingError
	if errors.As(err, &p) {
		p.Node = id
		return p
	}
	return &ProcessingError{Kind: InternalError, Node: id, Detail: "device", Err: err}
}

// paramError maps a parameter algebra error onto an error kind.
func paramError(err error, what string) error {
	var incompatible *param.IncompatibleError
	var noAxis *param.NoAxisError
	switch {
	case errors.As(err, &incompatible):
		return failf(IncorrectInput, err, "%s", what)
	case errors.As(err, &noAxis):
		return failf(IncorrectAttributes, err, "%s", what)
	case errors.Is(err, param.ErrMatrixShape):
		return failf(InternalError, err, "%s", what)
	default:
		return failf(IncorrectInput, err, "%s", what)
	}
}
