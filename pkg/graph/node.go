package graph

import "fmt"

// NodeID identifies a node within its graph. The zero value is the
// unlinked pin; real IDs start at 1 and are recycled only after Remove.
type NodeID int

// ZeroID is the unlinked pin.
const ZeroID NodeID = 0

// IsZero reports whether id is the unlinked pin.
func (id NodeID) IsZero() bool { return id == ZeroID }

func (id NodeID) String() string { return fmt.Sprintf("#%d", int(id)) }

// NodeKind enumerates the node content variants.
type NodeKind int

const (
	KindInterval NodeKind = iota + 1
	KindPoint
	KindVector
	KindCurve
	KindSurface
	KindBezier
	KindMatrixRows
	KindRotation
	KindTranslation
	KindTransform
	KindSample
	KindPrefab
	KindPlane
	KindGeometryRender
	KindVectorRender
)

var kindNames = map[NodeKind]string{
	KindInterval:       "interval",
	KindPoint:          "point",
	KindVector:         "vector",
	KindCurve:          "curve",
	KindSurface:        "surface",
	KindBezier:         "bezier",
	KindMatrixRows:     "matrix",
	KindRotation:       "rotation",
	KindTranslation:    "translation",
	KindTransform:      "transform",
	KindSample:         "sample",
	KindPrefab:         "prefab",
	KindPlane:          "plane",
	KindGeometryRender: "render",
	KindVectorRender:   "arrow",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind is the inverse of NodeKind.String.
func ParseKind(s string) (NodeKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Node is one element of the node graph.
type Node struct {
	ID      NodeID  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Content Content `json:"-"`
}

// Kind returns the kind of the node's content.
func (n *Node) Kind() NodeKind {
	if n.Content == nil {
		return 0
	}
	return n.Content.Kind()
}

// Input returns the node linked to the given input pin, or ZeroID.
func (n *Node) Input(pin int) NodeID {
	if n.Content == nil {
		return ZeroID
	}
	in := n.Content.Inputs()
	if pin < 0 || pin >= len(in) {
		return ZeroID
	}
	return in[pin]
}

// Dependencies returns the linked upstream nodes in pin order, without
// unlinked pins.
func (n *Node) Dependencies() []NodeID {
	if n.Content == nil {
		return nil
	}
	var deps []NodeID
	for _, id := range n.Content.Inputs() {
		if !id.IsZero() {
			deps = append(deps, id)
		}
	}
	return deps
}

func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s %s (%s)", n.Kind(), n.ID, n.Name)
	}
	return fmt.Sprintf("%s %s", n.Kind(), n.ID)
}
