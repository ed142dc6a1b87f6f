// Package compute compiles a node graph into an ordered list of GPU
// compute operations and runs them.
//
// A ComputeGraph owns every device resource of its current build: the
// globals buffer, one result buffer per node, uploaded prefab meshes,
// index buffers, kernels and bind groups. Build replaces all of them.
// Run submits every operation in dependency order as one batch.
// UpdateGlobals rewrites only the changed globals and runs again; shapes
// never depend on global values, so no rebuild is needed.
package compute

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/prefab"
	"github.com/chazu/isocurve/pkg/shader"
)

// State is the lifecycle state of a ComputeGraph.
type State int

const (
	// StateEmpty has no build.
	StateEmpty State = iota
	// StateBuilt has a build whose results match the globals.
	StateBuilt
	// StateDirty has globals written since the last successful run.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilt:
		return "built"
	case StateDirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNotBuilt is returned by Run and UpdateGlobals before the first
// successful build.
var ErrNotBuilt = errors.New("compute: graph has not been built")

// ErrClosed is returned by any call on a closed ComputeGraph.
var ErrClosed = errors.New("compute: graph is closed")

// UserState is everything a build reads: the node graph and the global
// variables with their initial values.
type UserState struct {
	Graph   graph.NodeGraph
	Globals []Variable
}

// Option configures a ComputeGraph.
type Option func(*options)

type options struct {
	metrics  *Metrics
	logger   *slog.Logger
	validate bool
}

// WithMetrics records builds and runs into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger overrides the package logger for one graph.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKernelValidation compiles every generated kernel with naga during
// the build. Kernels that fail become InternalError node failures.
func WithKernelValidation(enabled bool) Option {
	return func(o *options) { o.validate = enabled }
}

// Kernel is the generated source of one kernel in the current build.
type Kernel struct {
	Key shader.Key
	// Node is the first node that generated this text.
	Node   graph.NodeID
	Source string
}

// ComputeGraph is a compiled node graph. It is safe for concurrent use;
// Run and UpdateGlobals never overlap a Build.
type ComputeGraph struct {
	mu     sync.Mutex
	dev    device.Device
	assets *prefab.Library
	opts   options

	state      State
	closed     bool
	generation uint64
	globals    *Globals
	globalsBuf device.BufferID
	arena      *arena
	order      []graph.NodeID
	data       map[graph.NodeID]*Data
	ops        []*Operation
	outputs    []RenderOutput
	kernels    []Kernel
	errs       []RecoverableError
}

// New builds state on dev. The returned errors are the per-node failures
// of the build; the error is an *UnrecoverableError for a dependency cycle
// or a plain error for invalid globals or a device failure. assets may be
// nil for a library with only the built-in meshes.
func New(dev device.Device, assets *prefab.Library, state UserState, opts ...Option) (*ComputeGraph, []RecoverableError, error) {
	if assets == nil {
		assets = prefab.NewLibrary()
	}
	cg := &ComputeGraph{dev: dev, assets: assets}
	for _, o := range opts {
		o(&cg.opts)
	}
	errs, err := cg.Build(state)
	if err != nil {
		return nil, nil, err
	}
	return cg, errs, nil
}

func (cg *ComputeGraph) log() *slog.Logger {
	if cg.opts.logger != nil {
		return cg.opts.logger
	}
	return Logger()
}

// Build discards the current build and compiles state from scratch. A
// failed build leaves the previous build in place.
func (cg *ComputeGraph) Build(state UserState) ([]RecoverableError, error) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	b, err := cg.build(state)
	cg.opts.metrics.observeBuild(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	cg.arena.release()
	cg.arena = b.arena
	cg.generation = b.build
	cg.globals = b.globals
	cg.globalsBuf = b.globalsBuf
	cg.order = b.order
	cg.data = b.data
	cg.ops = b.ops
	cg.outputs = b.outputs
	cg.errs = b.errs
	cg.kernels = cg.kernels[:0]
	for _, key := range b.keys {
		p := b.pipelines[key]
		cg.kernels = append(cg.kernels, Kernel{Key: key, Node: p.node, Source: p.source})
	}
	cg.state = StateBuilt

	cg.log().Info("compute graph built",
		"nodes", len(cg.order),
		"operations", len(cg.ops),
		"kernels", len(cg.kernels),
		"failures", len(cg.errs),
		"duration", time.Since(start))
	return append([]RecoverableError(nil), cg.errs...), nil
}

// build runs the resolver and every handler into a fresh builder.
func (cg *ComputeGraph) build(state UserState) (*builder, error) {
	if state.Graph == nil {
		state.Graph = graph.New()
	}
	order, err := graph.Resolve(state.Graph)
	if err != nil {
		if cycle, ok := graph.AsCycleError(err); ok {
			cg.log().Warn("dependency cycle", "node", cycle.Node)
			return nil, &UnrecoverableError{Cycle: cycle}
		}
		return nil, err
	}
	globals, err := NewGlobals(state.Globals)
	if err != nil {
		return nil, err
	}

	a := &arena{dev: cg.dev}
	globalsBuf, err := a.buffer("globals", globals.Size(), device.BufferUsageUniform|device.BufferUsageCopyDst)
	if err != nil {
		a.release()
		return nil, fmt.Errorf("compute: allocating globals: %w", err)
	}
	if err := cg.dev.WriteBuffer(globalsBuf, 0, globals.Bytes()); err != nil {
		a.release()
		return nil, fmt.Errorf("compute: writing globals: %w", err)
	}

	b := &builder{
		dev:        cg.dev,
		graph:      state.Graph,
		globals:    globals,
		globalsBuf: globalsBuf,
		assets:     cg.assets,
		arena:      a,
		build:      cg.generation + 1,
		validate:   cg.opts.validate,
		metrics:    cg.opts.metrics,
		log:        cg.log(),
		data:       make(map[graph.NodeID]*Data),
		failed:     make(map[graph.NodeID]bool),
		pipelines:  make(map[shader.Key]*pipeline),
		meshes:     make(map[string]device.BufferID),
	}

	b.order = order
	for _, id := range order {
		n := state.Graph.Node(id)
		b.node = n
		d, op, err := cg.buildNode(b, n)
		if err != nil {
			perr := classify(id, err)
			b.failed[id] = true
			b.errs = append(b.errs, RecoverableError{perr})
			cg.opts.metrics.nodeFailed(perr.Kind)
			b.log.Warn("node failed", "node", id, "kind", perr.Kind.String(), "error", perr.Error())
			continue
		}
		b.data[id] = d
		b.ops = append(b.ops, op)
		b.log.Debug("node built", "node", id, "kind", n.Kind().String(), "dim", d.Dim.String())
	}
	return b, nil
}

func (cg *ComputeGraph) buildNode(b *builder, n *graph.Node) (*Data, *Operation, error) {
	if n == nil || n.Content == nil {
		return nil, nil, fail(IncorrectAttributes, "node has no content")
	}
	h, ok := handlers[n.Kind()]
	if !ok {
		return nil, nil, fail(InternalError, fmt.Sprintf("no builder for %s nodes", n.Kind()))
	}
	return h(b, n)
}

// State returns the lifecycle state.
func (cg *ComputeGraph) State() State {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return cg.state
}

// Device returns the device the graph runs on.
func (cg *ComputeGraph) Device() device.Device { return cg.dev }

// Errors returns the per-node failures of the current build.
func (cg *ComputeGraph) Errors() []RecoverableError {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return append([]RecoverableError(nil), cg.errs...)
}

// Order returns the node IDs in build order.
func (cg *ComputeGraph) Order() []graph.NodeID {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return append([]graph.NodeID(nil), cg.order...)
}

// Data returns the result of node id.
func (cg *ComputeGraph) Data(id graph.NodeID) (*Data, bool) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	d, ok := cg.data[id]
	return d, ok
}

// Operations returns the operations in submission order.
func (cg *ComputeGraph) Operations() []*Operation {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return append([]*Operation(nil), cg.ops...)
}

// Outputs returns the render records in build order.
func (cg *ComputeGraph) Outputs() []RenderOutput {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return append([]RenderOutput(nil), cg.outputs...)
}

// Kernels returns the distinct kernels of the current build, ordered by
// key.
func (cg *ComputeGraph) Kernels() []Kernel {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	out := append([]Kernel(nil), cg.kernels...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Globals returns the user variables with their current values.
func (cg *ComputeGraph) Globals() []Variable {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.globals == nil {
		return nil
	}
	return cg.globals.Variables()
}

// Close releases every device resource. The device itself stays open.
func (cg *ComputeGraph) Close() error {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.closed {
		return nil
	}
	cg.closed = true
	cg.arena.release()
	cg.arena = nil
	cg.data = nil
	cg.ops = nil
	cg.outputs = nil
	cg.state = StateEmpty
	return nil
}
