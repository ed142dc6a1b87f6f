package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/device/software"
	"github.com/chazu/isocurve/pkg/device/wgpu"
	"github.com/chazu/isocurve/pkg/document"
	"github.com/chazu/isocurve/pkg/engine"
	"github.com/chazu/isocurve/pkg/graph"
	"github.com/chazu/isocurve/pkg/kernel/sdfx"
	"github.com/chazu/isocurve/pkg/prefab"
)

// colorPalette assigns a display color to each material index.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// paletteColor returns the display color of a material index.
func paletteColor(material int) string {
	i := material % len(colorPalette)
	if i < 0 {
		i += len(colorPalette)
	}
	return colorPalette[i]
}

// App is the backend shared by every command: it turns a source file into
// a compiled graph and reads results back.
type App struct {
	engine  *engine.Engine
	dev     device.Device
	assets  *prefab.Library
	metrics *compute.Metrics
	log     *slog.Logger
	// validate compiles every kernel with naga during builds.
	validate bool
}

// MeshData is one rendered mesh read back from the device.
type MeshData struct {
	Node     string    `json:"node"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Mask     int       `json:"mask"`
	Color    string    `json:"color"`
}

// EvalErrorData is a source error with its location.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// openDevice opens the named device: "software" or "wgpu". log receives
// the wgpu backend messages.
func openDevice(name string, log *slog.Logger) (device.Device, error) {
	switch name {
	case "", "software":
		return software.New(), nil
	case "wgpu":
		wgpu.SetLogger(log)
		dev, err := wgpu.Open()
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	return nil, fmt.Errorf("unknown device %q, expected software or wgpu", name)
}

// NewApp creates an App on dev with the standard prefab library built
// by the sdfx kernel.
func NewApp(dev device.Device, log *slog.Logger) (*App, error) {
	assets, err := prefab.Standard(sdfx.New())
	if err != nil {
		return nil, fmt.Errorf("building prefab library: %w", err)
	}
	return &App{
		engine:  engine.NewEngine(),
		dev:     dev,
		assets:  assets,
		metrics: compute.NewMetrics(),
		log:     log,
	}, nil
}

// isDocument reports whether path names a YAML or JSON graph document
// rather than Lisp source.
func isDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Load reads a graph from a document or Lisp source file. Source errors
// are returned separately from I/O errors.
func (a *App) Load(path string, source []byte) (compute.UserState, []EvalErrorData, error) {
	if isDocument(path) {
		doc, err := document.Parse(source)
		if err != nil {
			return compute.UserState{}, nil, err
		}
		state, err := doc.State()
		return state, nil, err
	}
	return a.Evaluate(string(source))
}

// Evaluate runs Lisp source through the engine.
func (a *App) Evaluate(source string) (compute.UserState, []EvalErrorData, error) {
	p, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		return compute.UserState{}, nil, err
	}
	if len(evalErrs) > 0 {
		out := make([]EvalErrorData, len(evalErrs))
		for i, e := range evalErrs {
			out[i] = EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
		}
		return compute.UserState{}, out, nil
	}
	return p.State(), nil, nil
}

// Diagnose runs the structural graph checks over state: cycles, dangling
// links, links to nodes of the wrong kind and duplicate names.
func (a *App) Diagnose(state compute.UserState) []graph.ValidationError {
	if state.Graph == nil {
		return nil
	}
	return graph.Validate(state.Graph)
}

// Compile builds state on the app's device. Structural findings are logged
// before any kernel is generated.
func (a *App) Compile(state compute.UserState) (*compute.ComputeGraph, []compute.RecoverableError, error) {
	if a.log != nil {
		for _, f := range a.Diagnose(state) {
			level := slog.LevelWarn
			if f.Severity == graph.SeverityError {
				level = slog.LevelError
			}
			a.log.Log(context.Background(), level, "graph check", "node", f.NodeID, "message", f.Message)
		}
	}
	return compute.New(a.dev, a.assets, state,
		compute.WithMetrics(a.metrics),
		compute.WithLogger(a.log),
		compute.WithKernelValidation(a.validate))
}

// Run compiles state, runs it once and applies overrides through
// UpdateGlobals.
func (a *App) Run(ctx context.Context, state compute.UserState, overrides []compute.Variable) (*compute.ComputeGraph, []compute.RecoverableError, error) {
	cg, errs, err := a.Compile(state)
	if err != nil {
		return nil, nil, err
	}
	if err := cg.Run(ctx); err != nil {
		cg.Close()
		return nil, nil, err
	}
	if len(overrides) > 0 {
		if _, err := cg.UpdateGlobals(ctx, overrides); err != nil {
			cg.Close()
			return nil, nil, err
		}
	}
	return cg, errs, nil
}

// Meshes reads every render output of cg back from the device.
func (a *App) Meshes(cg *compute.ComputeGraph) ([]MeshData, error) {
	var meshes []MeshData
	for _, out := range cg.Outputs() {
		verts, idx, err := cg.ReadMesh(out)
		if err != nil {
			return nil, err
		}
		m := MeshData{
			Node:     out.Node.String(),
			Vertices: make([]float32, 0, len(verts)*3),
			Normals:  make([]float32, 0, len(verts)*3),
			Indices:  idx,
			Mask:     out.Mask,
			Color:    paletteColor(out.Material),
		}
		for _, v := range verts {
			m.Vertices = append(m.Vertices, v.Position[0], v.Position[1], v.Position[2])
			m.Normals = append(m.Normals, v.Normal[0], v.Normal[1], v.Normal[2])
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}
