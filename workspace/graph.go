package workspace

import (
	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps"
)

// GraphNode is one resolved package in a dependency graph: its pinned
// revision and the dependency edges its manifest declares under the graph's
// product filter.
type GraphNode struct {
	Ref   gps.PackageReference
	Pin   gps.Pin
	Edges []gps.Dependency
}

// Graph is the resolved dependency graph: every reachable package from
// root, keyed by identity.
type Graph struct {
	Root  gps.PackageReference
	Nodes map[gps.PackageIdentity]*GraphNode
}

func revisionOf(p gps.Pin) string {
	switch p.State.Kind {
	case gps.PinVersion, gps.PinBranch, gps.PinRevision:
		return p.State.Revision
	default:
		return ""
	}
}

// Graph rebuilds the dependency graph reachable from root's already-resolved
// pins, by reading each pinned revision's manifest through the workspace's
// containers and following declared dependency edges. Callers normally call
// Resolve first; Graph never invokes the Solver itself, so a workspace whose
// pins are stale with respect to root's manifest will produce a graph that
// reflects the pins, not a fresh resolution.
func (w *Workspace) Graph(root gps.PackageReference, filter gps.ProductFilter) (*Graph, error) {
	pins, err := w.LoadPins()
	if err != nil {
		return nil, errors.Wrap(err, "loading pins for graph")
	}

	byIdentity := make(map[gps.PackageIdentity]gps.Pin, len(pins))
	for _, p := range pins {
		byIdentity[p.Ref.Identity] = p
	}

	g := &Graph{Root: root, Nodes: map[gps.PackageIdentity]*GraphNode{}}

	var visit func(ref gps.PackageReference, revision string) error
	visit = func(ref gps.PackageReference, revision string) error {
		if _, done := g.Nodes[ref.Identity]; done {
			return nil
		}

		deps, err := w.DependenciesAt(ref, revision, filter)
		if err != nil {
			return errors.Wrapf(err, "reading dependencies of %s", ref.Identity)
		}

		node := &GraphNode{Ref: ref, Edges: deps}
		if pin, ok := byIdentity[ref.Identity]; ok {
			node.Pin = pin
		}
		g.Nodes[ref.Identity] = node

		for _, d := range deps {
			depPin, ok := byIdentity[d.Ref.Identity]
			if !ok {
				// Not in the pins file: the resolution this graph reflects
				// never visited it (stale pins, or a dependency admitted by
				// a different filter). Skip rather than fail the whole walk.
				continue
			}
			if err := visit(d.Ref, revisionOf(depPin)); err != nil {
				return err
			}
		}
		return nil
	}

	rootPin, ok := byIdentity[root.Identity]
	rootRevision := ""
	if ok {
		rootRevision = revisionOf(rootPin)
	}
	if err := visit(root, rootRevision); err != nil {
		return nil, err
	}

	return g, nil
}

// Walk invokes fn for every node in the graph in an unspecified order,
// stopping at the first error fn returns.
func (g *Graph) Walk(fn func(*GraphNode) error) error {
	for _, n := range g.Nodes {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}
