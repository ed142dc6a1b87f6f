package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks
// compilation or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks compilation of the node
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// Validate runs structural checks over g: cycles, links to missing nodes,
// links to nodes of the wrong kind and duplicate names. It never mutates
// the graph. An empty result means the graph is well formed; kernels may
// still fail to build for reasons only the compiler can see.
func Validate(g NodeGraph) []ValidationError {
	var errs []ValidationError
	if _, err := Resolve(g); err != nil {
		var at NodeID
		if ce, ok := AsCycleError(err); ok {
			at = ce.Node
		}
		errs = append(errs, ValidationError{
			NodeID:   at,
			Message:  err.Error(),
			Severity: SeverityError,
		})
	}
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	return errs
}

// validateReferences checks that every link points to an existing node of
// an accepted kind.
func validateReferences(g NodeGraph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes() {
		if n.Content == nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "node has no content",
				Severity: SeverityError,
			})
			continue
		}
		for pin, id := range n.Content.Inputs() {
			if id.IsZero() {
				continue
			}
			up := g.Node(id)
			if up == nil {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("input %d links to missing node %s", pin, id),
					Severity: SeverityError,
				})
				continue
			}
			accepted := AcceptedKinds(n.Kind(), pin)
			if len(accepted) > 0 && !containsKind(accepted, up.Kind()) {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("input %d links to a %s node", pin, up.Kind()),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// validateNames checks that names are unique.
func validateNames(g NodeGraph) []ValidationError {
	var errs []ValidationError
	seen := map[string]NodeID{}
	for _, n := range g.Nodes() {
		if n.Name == "" {
			continue
		}
		if first, ok := seen[n.Name]; ok {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("name %q is already used by node %s", n.Name, first),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[n.Name] = n.ID
	}
	return errs
}

var geometryKinds = []NodeKind{
	KindPoint, KindCurve, KindSurface, KindBezier, KindTransform,
	KindSample, KindPrefab, KindPlane,
}

var matrixKinds = []NodeKind{KindMatrixRows, KindRotation, KindTranslation}

// AcceptedKinds lists the node kinds that can feed the given input pin of a
// node of kind k. A nil result means no restriction is known.
func AcceptedKinds(k NodeKind, pin int) []NodeKind {
	switch k {
	case KindCurve, KindSurface, KindMatrixRows, KindRotation:
		return []NodeKind{KindInterval}
	case KindBezier:
		return []NodeKind{KindPoint, KindSample, KindTransform}
	case KindTranslation:
		return []NodeKind{KindVector}
	case KindTransform:
		if pin == 0 {
			return append([]NodeKind{KindVector}, geometryKinds...)
		}
		return matrixKinds
	case KindSample, KindGeometryRender:
		return geometryKinds
	case KindPlane:
		if pin == 0 {
			return []NodeKind{KindPoint, KindSample, KindTransform}
		}
		return []NodeKind{KindVector, KindTransform}
	case KindVectorRender:
		if pin == 0 {
			return []NodeKind{KindPoint, KindSample, KindTransform}
		}
		return []NodeKind{KindVector, KindTransform}
	}
	return nil
}

func containsKind(kinds []NodeKind, k NodeKind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}
