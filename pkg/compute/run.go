package compute

import (
	"context"
	"fmt"

	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/graph"
)

// Run submits every operation of the current build as one batch, in build
// order. A node's operation always follows the operations of its inputs.
func (cg *ComputeGraph) Run(ctx context.Context) error {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return cg.runLocked(ctx)
}

func (cg *ComputeGraph) runLocked(ctx context.Context) error {
	if cg.closed {
		return ErrClosed
	}
	if cg.state == StateEmpty {
		return ErrNotBuilt
	}
	if len(cg.ops) == 0 {
		cg.state = StateBuilt
		return nil
	}
	batch := make([]device.Dispatch, len(cg.ops))
	for i, op := range cg.ops {
		batch[i] = op.dispatch()
	}
	if err := cg.dev.Submit(ctx, batch); err != nil {
		return fmt.Errorf("compute: submit: %w", err)
	}
	cg.opts.metrics.submitted(len(batch))
	cg.log().Debug("submitted", "dispatches", len(batch))
	cg.state = StateBuilt
	return nil
}

// UpdateGlobals sets global variables and runs the graph again. Only the
// scalars whose value changed are written. When nothing changed it
// performs no writes and no dispatches and returns false. An undeclared
// name fails the whole update before anything is written. When a name
// appears more than once the last value wins. A value becomes visible in
// Globals only after its device write succeeds.
func (cg *ComputeGraph) UpdateGlobals(ctx context.Context, pairs []Variable) (bool, error) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.closed {
		return false, ErrClosed
	}
	if cg.state == StateEmpty {
		return false, ErrNotBuilt
	}

	var order []string
	last := make(map[string]float32, len(pairs))
	for _, p := range pairs {
		if _, ok := cg.globals.Offset(p.Name); !ok {
			return false, &UnknownGlobalError{Name: p.Name}
		}
		if _, seen := last[p.Name]; !seen {
			order = append(order, p.Name)
		}
		last[p.Name] = p.Value
	}

	writes := 0
	for _, name := range order {
		value := last[name]
		changed, err := cg.globals.differs(name, value)
		if err != nil {
			return writes > 0, err
		}
		if !changed {
			continue
		}
		off, _ := cg.globals.Offset(name)
		if err := cg.dev.WriteBuffer(cg.globalsBuf, off, device.EncodeF32(value)); err != nil {
			return writes > 0, fmt.Errorf("compute: writing global %q: %w", name, err)
		}
		cg.globals.store(name, value)
		writes++
		cg.state = StateDirty
	}
	cg.opts.metrics.globalsUpdated(writes)
	if writes == 0 {
		return false, nil
	}
	cg.log().Debug("globals updated", "writes", writes)
	return true, cg.runLocked(ctx)
}

// Read copies the result buffer of node id back from the device.
func (cg *ComputeGraph) Read(id graph.NodeID) (*Data, []byte, error) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.closed {
		return nil, nil, ErrClosed
	}
	d, ok := cg.data[id]
	if !ok {
		return nil, nil, fmt.Errorf("compute: node %s has no result", id)
	}
	data, err := cg.dev.ReadBuffer(d.Buffer, 0, d.Bytes)
	if err != nil {
		return nil, nil, err
	}
	return d, data, nil
}

// ReadMesh copies the vertices and indices of a render output back from
// the device.
func (cg *ComputeGraph) ReadMesh(out RenderOutput) ([]device.Vertex, []uint32, error) {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	if cg.closed {
		return nil, nil, ErrClosed
	}
	d, ok := cg.data[out.Node]
	if !ok || d.Buffer != out.Vertices {
		return nil, nil, fmt.Errorf("compute: %s is not a render output of the current build", out.Node)
	}
	vdata, err := cg.dev.ReadBuffer(d.Buffer, 0, d.Bytes)
	if err != nil {
		return nil, nil, err
	}
	idata, err := cg.dev.ReadBuffer(out.Indices, 0, uint64(out.IndexCount*device.U32Size))
	if err != nil {
		return nil, nil, err
	}
	return device.DecodeVertices(vdata), device.DecodeU32(idata), nil
}
