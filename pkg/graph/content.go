package graph

import "fmt"

// Content is the kind-specific payload of a node. Link fields hold the
// upstream NodeID per input pin, ZeroID when unconnected.
type Content interface {
	Kind() NodeKind
	// Inputs returns the linked node per input pin, in pin order.
	Inputs() []NodeID
	content() // marker method restricting implementations to this package
}

// Axis is a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", s)
}

// MarshalText encodes a as "x", "y" or "z".
func (a Axis) MarshalText() ([]byte, error) {
	if a < AxisX || a > AxisZ {
		return nil, fmt.Errorf("invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (a *Axis) UnmarshalText(text []byte) error {
	v, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Interval is a named parameter sampled 16*Quality times over [Begin, End].
type Interval struct {
	Variable string `json:"variable"`
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Quality  int    `json:"quality"`
}

// Point is a constant position.
type Point struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

// Vector is a constant direction.
type Vector struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

// Curve evaluates (X, Y, Z) over one interval.
type Curve struct {
	Interval NodeID `json:"interval"`
	X        string `json:"x"`
	Y        string `json:"y"`
	Z        string `json:"z"`
}

// Surface evaluates (X, Y, Z) over two intervals.
type Surface struct {
	Interval1 NodeID `json:"interval1"`
	Interval2 NodeID `json:"interval2"`
	X         string `json:"x"`
	Y         string `json:"y"`
	Z         string `json:"z"`
}

// Bezier blends 2 to 4 control points.
type Bezier struct {
	Points  []NodeID `json:"points"`
	Quality int      `json:"quality"`
}

// MatrixRows is a matrix given by its top three rows. The bottom row is
// always (0, 0, 0, 1). With an Interval link the cells may reference the
// interval variable and the matrix becomes curve-shaped.
type MatrixRows struct {
	Interval NodeID       `json:"interval,omitempty"`
	Rows     [3][4]string `json:"rows"`
}

// Rotation is a rotation by Angle radians about Axis.
type Rotation struct {
	Interval NodeID `json:"interval,omitempty"`
	Axis     Axis   `json:"axis"`
	Angle    string `json:"angle"`
}

// Translation is a translation by a vector.
type Translation struct {
	Vector NodeID `json:"vector"`
}

// Transform applies a matrix to geometry.
type Transform struct {
	Geometry NodeID `json:"geometry"`
	Matrix   NodeID `json:"matrix"`
}

// Sample evaluates geometry at Value along the parameter named Parameter.
type Sample struct {
	Geometry  NodeID `json:"geometry"`
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// Prefab instantiates a reference mesh scaled by Size.
type Prefab struct {
	Prefab string `json:"prefab"`
	Size   string `json:"size"`
}

// Plane is a square of side Size centered at a point, facing a vector.
type Plane struct {
	Center NodeID `json:"center"`
	Normal NodeID `json:"normal"`
	Size   string `json:"size"`
}

// GeometryRender turns a curve, surface or mesh into a renderable mesh.
type GeometryRender struct {
	Geometry  NodeID `json:"geometry"`
	Thickness string `json:"thickness"`
	Material  int    `json:"material"`
	Mask      int    `json:"mask"`
}

// VectorRender draws an arrow for Vector anchored at Point.
type VectorRender struct {
	Point     NodeID `json:"point"`
	Vector    NodeID `json:"vector"`
	Thickness string `json:"thickness"`
	Material  int    `json:"material"`
	Mask      int    `json:"mask"`
}

func (Interval) Kind() NodeKind       { return KindInterval }
func (Point) Kind() NodeKind          { return KindPoint }
func (Vector) Kind() NodeKind         { return KindVector }
func (Curve) Kind() NodeKind          { return KindCurve }
func (Surface) Kind() NodeKind        { return KindSurface }
func (Bezier) Kind() NodeKind         { return KindBezier }
func (MatrixRows) Kind() NodeKind     { return KindMatrixRows }
func (Rotation) Kind() NodeKind       { return KindRotation }
func (Translation) Kind() NodeKind    { return KindTranslation }
func (Transform) Kind() NodeKind      { return KindTransform }
func (Sample) Kind() NodeKind         { return KindSample }
func (Prefab) Kind() NodeKind         { return KindPrefab }
func (Plane) Kind() NodeKind          { return KindPlane }
func (GeometryRender) Kind() NodeKind { return KindGeometryRender }
func (VectorRender) Kind() NodeKind   { return KindVectorRender }

func (Interval) Inputs() []NodeID         { return nil }
func (Point) Inputs() []NodeID            { return nil }
func (Vector) Inputs() []NodeID           { return nil }
func (c Curve) Inputs() []NodeID          { return []NodeID{c.Interval} }
func (c Surface) Inputs() []NodeID        { return []NodeID{c.Interval1, c.Interval2} }
func (c Bezier) Inputs() []NodeID         { return append([]NodeID(nil), c.Points...) }
func (c MatrixRows) Inputs() []NodeID     { return []NodeID{c.Interval} }
func (c Rotation) Inputs() []NodeID       { return []NodeID{c.Interval} }
func (c Translation) Inputs() []NodeID    { return []NodeID{c.Vector} }
func (c Transform) Inputs() []NodeID      { return []NodeID{c.Geometry, c.Matrix} }
func (c Sample) Inputs() []NodeID         { return []NodeID{c.Geometry} }
func (Prefab) Inputs() []NodeID           { return nil }
func (c Plane) Inputs() []NodeID          { return []NodeID{c.Center, c.Normal} }
func (c GeometryRender) Inputs() []NodeID { return []NodeID{c.Geometry} }
func (c VectorRender) Inputs() []NodeID   { return []NodeID{c.Point, c.Vector} }

func (Interval) content()       {}
func (Point) content()          {}
func (Vector) content()         {}
func (Curve) content()          {}
func (Surface) content()        {}
func (Bezier) content()         {}
func (MatrixRows) content()     {}
func (Rotation) content()       {}
func (Translation) content()    {}
func (Transform) content()      {}
func (Sample) content()         {}
func (Prefab) content()         {}
func (Plane) content()          {}
func (GeometryRender) content() {}
func (VectorRender) content()   {}
