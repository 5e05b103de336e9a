// Package workspace binds the Repository Manager, Container Provider, and
// Plugin Script Runner into a single facade: the operations an actual tool
// (CLI, IDE integration, ...) drives to go from a root manifest to a
// resolved, on-disk working tree.
package workspace

import "github.com/kranesoft/wscore/gps"

// DependencyProvider is the oracle a Solver queries while resolving: it
// answers what versions a package advertises and what a given revision
// depends on. The workspace itself implements this interface over its
// ContainerProvider; a Solver never talks to the Repository Manager or
// Container Provider directly.
type DependencyProvider interface {
	Versions(ref gps.PackageReference) ([]gps.Version, error)
	DependenciesAt(ref gps.PackageReference, revision string, filter gps.ProductFilter) ([]gps.Dependency, error)
	Revision(ref gps.PackageReference, tagOrBranch string) (string, error)
}

// Solver is the out-of-scope dependency-resolution oracle: the actual
// dependency-resolution solver, consumed here only as an oracle. This core
// never implements SAT-style constraint solving itself; it only defines the
// seam a real solver plugs into.
type Solver interface {
	Solve(root gps.Manifest, provider DependencyProvider, filter gps.ProductFilter) ([]gps.Pin, error)
}
