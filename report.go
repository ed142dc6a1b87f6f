package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/device"
	"github.com/chazu/isocurve/pkg/graph"
)

// NodeReport is the result of one node after a run.
type NodeReport struct {
	Node  string      `json:"node"`
	Name  string      `json:"name,omitempty"`
	Data  string      `json:"data"`
	Count int         `json:"count"`
	Bytes uint64      `json:"bytes"`
	Head  [][]float32 `json:"head,omitempty"`
}

// OutputReport summarizes one render output.
type OutputReport struct {
	Node     string `json:"node"`
	Vertices int    `json:"vertices"`
	Indices  int    `json:"indices"`
	Material int    `json:"material"`
	Mask     int    `json:"mask"`
	Color    string `json:"color"`
}

// Report is what the run command prints.
type Report struct {
	Device  string             `json:"device"`
	Globals []compute.Variable `json:"globals,omitempty"`
	Errors  []string           `json:"errors,omitempty"`
	Nodes   []NodeReport       `json:"nodes"`
	Outputs []OutputReport     `json:"outputs,omitempty"`
	Meshes  []MeshData         `json:"meshes,omitempty"`
	Stats   device.Stats       `json:"stats"`
}

// elements splits raw buffer contents into rows of floats, one per
// element of kind.
func elements(kind compute.DataKind, data []byte, limit int) [][]float32 {
	width := int(kind.Stride() / 4)
	if kind == compute.Prefab || width == 0 {
		return nil
	}
	values := device.DecodeF32(data)
	var rows [][]float32
	for i := 0; i+width <= len(values) && len(rows) < limit; i += width {
		rows = append(rows, values[i:i+width])
	}
	return rows
}

// newReport reads every node result of cg. limit bounds the number of
// elements listed per node.
func newReport(a *App, cg *compute.ComputeGraph, g graph.NodeGraph, limit int, meshes bool) (*Report, error) {
	r := &Report{
		Device:  a.dev.Name(),
		Globals: cg.Globals(),
	}
	for _, e := range cg.Errors() {
		r.Errors = append(r.Errors, e.Error())
	}
	for _, id := range cg.Order() {
		if _, ok := cg.Data(id); !ok {
			continue
		}
		d, data, err := cg.Read(id)
		if err != nil {
			return nil, err
		}
		nr := NodeReport{
			Node:  id.String(),
			Data:  d.Kind.String(),
			Count: int(d.Bytes / d.Kind.Stride()),
			Bytes: d.Bytes,
			Head:  elements(d.Kind, data, limit),
		}
		if n := g.Node(id); n != nil {
			nr.Name = n.Name
		}
		r.Nodes = append(r.Nodes, nr)
	}
	for _, out := range cg.Outputs() {
		d, _ := cg.Data(out.Node)
		verts := 0
		if d != nil {
			verts = int(d.Bytes / d.Kind.Stride())
		}
		r.Outputs = append(r.Outputs, OutputReport{
			Node:     out.Node.String(),
			Vertices: verts,
			Indices:  out.IndexCount,
			Material: out.Material,
			Mask:     out.Mask,
			Color:    paletteColor(out.Material),
		})
	}
	if meshes {
		m, err := a.Meshes(cg)
		if err != nil {
			return nil, err
		}
		r.Meshes = m
	}
	r.Stats = a.dev.Stats()
	return r, nil
}

func formatRow(row []float32) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// writeHuman prints r as aligned text.
func (r *Report) writeHuman(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", headingStyle("Device:"), r.Device)
	if len(r.Globals) > 0 {
		fmt.Fprintln(w, headingStyle("Globals:"))
		for _, v := range r.Globals {
			fmt.Fprintf(w, "  %s = %g\n", v.Name, v.Value)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, headingStyle("Errors:"))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", warnStyle(e))
		}
	}
	fmt.Fprintln(w, headingStyle("Nodes:"))
	for _, n := range r.Nodes {
		label := n.Node
		if n.Name != "" {
			label += " " + n.Name
		}
		fmt.Fprintf(w, "  %-16s %-9s %6d elements %8d bytes\n", label, n.Data, n.Count, n.Bytes)
		for _, row := range n.Head {
			fmt.Fprintf(w, "      %s\n", formatRow(row))
		}
	}
	if len(r.Outputs) > 0 {
		fmt.Fprintln(w, headingStyle("Outputs:"))
		for _, o := range r.Outputs {
			fmt.Fprintf(w, "  %-6s %6d vertices %6d indices material %d mask %d\n",
				o.Node, o.Vertices, o.Indices, o.Material, o.Mask)
		}
	}
	fmt.Fprintf(w, "%s %d writes, %d submits, %d dispatches\n",
		headingStyle("Device stats:"), r.Stats.BufferWrites, r.Stats.Submits, r.Stats.Dispatches)
}
