// Package document reads and writes node graphs as YAML files.
//
// A document lists the global variables and the nodes of a graph. Each
// node carries its kind and a spec holding the kind-specific attributes:
//
//	globals:
//	- name: radius
//	  value: 2
//	nodes:
//	- id: 1
//	  name: u
//	  kind: interval
//	  spec: {variable: u, begin: "0", end: tau, quality: 2}
//	- id: 2
//	  kind: curve
//	  spec: {interval: 1, x: radius * cos(u), y: radius * sin(u), z: "0"}
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/graph"
)

// Global is one global variable declaration.
type Global struct {
	Name  string  `json:"name"`
	Value float32 `json:"value"`
}

// Node is one serialized node.
type Node struct {
	ID   graph.NodeID    `json:"id"`
	Name string          `json:"name,omitempty"`
	Kind string          `json:"kind"`
	Spec json.RawMessage `json:"spec"`
}

// Document is the on-disk form of a graph and its globals.
type Document struct {
	Globals []Global `json:"globals,omitempty"`
	Nodes   []Node   `json:"nodes"`
}

// NodeError is a node that could not be decoded.
type NodeError struct {
	Index int
	ID    graph.NodeID
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d (id %d): %v", e.Index, int(e.ID), e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// decoders builds an empty content value for each kind.
var decoders = map[graph.NodeKind]func() any{
	graph.KindInterval:       func() any { return new(graph.Interval) },
	graph.KindPoint:          func() any { return new(graph.Point) },
	graph.KindVector:         func() any { return new(graph.Vector) },
	graph.KindCurve:          func() any { return new(graph.Curve) },
	graph.KindSurface:        func() any { return new(graph.Surface) },
	graph.KindBezier:         func() any { return new(graph.Bezier) },
	graph.KindMatrixRows:     func() any { return new(graph.MatrixRows) },
	graph.KindRotation:       func() any { return new(graph.Rotation) },
	graph.KindTranslation:    func() any { return new(graph.Translation) },
	graph.KindTransform:      func() any { return new(graph.Transform) },
	graph.KindSample:         func() any { return new(graph.Sample) },
	graph.KindPrefab:         func() any { return new(graph.Prefab) },
	graph.KindPlane:          func() any { return new(graph.Plane) },
	graph.KindGeometryRender: func() any { return new(graph.GeometryRender) },
	graph.KindVectorRender:   func() any { return new(graph.VectorRender) },
}

// content dereferences a decoded pointer back into a Content value.
func content(v any) graph.Content {
	switch c := v.(type) {
	case *graph.Interval:
		return *c
	case *graph.Point:
		return *c
	case *graph.Vector:
		return *c
	case *graph.Curve:
		return *c
	case *graph.Surface:
		return *c
	case *graph.Bezier:
		return *c
	case *graph.MatrixRows:
		return *c
	case *graph.Rotation:
		return *c
	case *graph.Translation:
		return *c
	case *graph.Transform:
		return *c
	case *graph.Sample:
		return *c
	case *graph.Prefab:
		return *c
	case *graph.Plane:
		return *c
	case *graph.GeometryRender:
		return *c
	case *graph.VectorRender:
		return *c
	}
	return nil
}

// Parse decodes YAML (or JSON) into a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return &doc, nil
}

// ReadFile parses the document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Graph builds the node graph. Node IDs are kept so links stay valid.
func (d *Document) Graph() (*graph.Graph, error) {
	g := graph.New()
	for i, n := range d.Nodes {
		kind, ok := graph.ParseKind(n.Kind)
		if !ok {
			return nil, &NodeError{Index: i, ID: n.ID, Err: fmt.Errorf("unknown kind %q", n.Kind)}
		}
		v := decoders[kind]()
		if len(n.Spec) > 0 {
			dec := json.NewDecoder(bytes.NewReader(n.Spec))
			dec.DisallowUnknownFields()
			if err := dec.Decode(v); err != nil {
				return nil, &NodeError{Index: i, ID: n.ID, Err: fmt.Errorf("%s spec: %w", n.Kind, err)}
			}
		}
		if err := g.Insert(&graph.Node{ID: n.ID, Name: n.Name, Content: content(v)}); err != nil {
			return nil, &NodeError{Index: i, ID: n.ID, Err: err}
		}
	}
	return g, nil
}

// Variables returns the globals in declaration order.
func (d *Document) Variables() []compute.Variable {
	vars := make([]compute.Variable, len(d.Globals))
	for i, g := range d.Globals {
		vars[i] = compute.Variable{Name: g.Name, Value: g.Value}
	}
	return vars
}

// State builds the input of a compute build.
func (d *Document) State() (compute.UserState, error) {
	g, err := d.Graph()
	if err != nil {
		return compute.UserState{}, err
	}
	return compute.UserState{Graph: g, Globals: d.Variables()}, nil
}

// FromState converts a graph and its globals into a Document. Nodes are
// listed in ID order.
func FromState(state compute.UserState) (*Document, error) {
	doc := &Document{}
	for _, v := range state.Globals {
		doc.Globals = append(doc.Globals, Global{Name: v.Name, Value: v.Value})
	}
	if state.Graph == nil {
		return doc, nil
	}
	for _, n := range state.Graph.Nodes() {
		if n.Content == nil {
			return nil, fmt.Errorf("document: node %s has no content", n.ID)
		}
		spec, err := json.Marshal(n.Content)
		if err != nil {
			return nil, fmt.Errorf("document: node %s: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, Node{ID: n.ID, Name: n.Name, Kind: n.Kind().String(), Spec: spec})
	}
	return doc, nil
}

// Marshal encodes d as YAML.
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// WriteFile writes d to path as YAML.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
