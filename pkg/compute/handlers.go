package compute

import (
	"github.com/chazu/isocurve/pkg/graph"
)

// handler builds one node. It returns the node's result and the
// operation that computes it.
type handler func(b *builder, n *graph.Node) (*Data, *Operation, error)

// handlers has one entry per node kind.
var handlers = map[graph.NodeKind]handler{
	graph.KindInterval:       buildInterval,
	graph.KindPoint:          buildPoint,
	graph.KindVector:         buildVector,
	graph.KindCurve:          buildCurve,
	graph.KindSurface:        buildSurface,
	graph.KindBezier:         buildBezier,
	graph.KindMatrixRows:     buildMatrixRows,
	graph.KindRotation:       buildRotation,
	graph.KindTranslation:    buildTranslation,
	graph.KindTransform:      buildTransform,
	graph.KindSample:         buildSample,
	graph.KindPrefab:         buildPrefab,
	graph.KindPlane:          buildPlane,
	graph.KindGeometryRender: buildGeometryRender,
	graph.KindVectorRender:   buildVectorRender,
}
