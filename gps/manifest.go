package gps

import "sort"

// Dependency is a single declared dependency edge out of a manifest: a
// reference to another package plus the version/branch/revision constraint
// the manifest places on it.
type Dependency struct {
	Ref        PackageReference
	Constraint string // opaque to the core; interpreted by the solver oracle
	// Products names the consuming package's own target(s) that require this
	// dependency; an empty list means the dependency is unconditional and
	// survives every product filter.
	Products []string
}

// Target names a build unit declared by a manifest (library, executable,
// plugin, test, ...). The core treats targets opaquely beyond their name and
// declared product membership; it never builds them itself.
type Target struct {
	Name string
	Kind string
}

// Manifest is the opaque, externally-loaded description of a package at a
// particular revision. Its grammar is out of scope for this core;
// ManifestLoader is the seam where an external parser plugs in.
type Manifest struct {
	DisplayName  string
	Identity     PackageIdentity
	Location     string
	Platforms    []string
	ToolsVersion ToolsVersion
	Dependencies []Dependency
	Products     []Product
	Targets      []Target
	Version      *Version
}

// Product is an advertised build product of a package: a name plus the
// target names it bundles. ProductFilter restricts dependency resolution to
// a subset of a dependency's products.
type Product struct {
	Name    string
	Targets []string
}

// ManifestLoader is the external collaborator that parses manifest bytes
// into a Manifest. The core never interprets manifest syntax itself; it
// only asks a loader to do so for bytes it has already fetched from a
// revision.
type ManifestLoader interface {
	Load(data []byte, toolsVersion ToolsVersion) (Manifest, error)
}

// ProductFilter restricts which of a dependency's advertised products are
// in scope, which in turn restricts which of that dependency's own
// transitive dependencies participate in resolution. The zero value admits
// no product, like SpecificProducts with no names; use Everything for the
// unrestricted filter.
type ProductFilter struct {
	everything bool
	products   map[string]struct{}
}

// Everything is the filter admitting every product.
func Everything() ProductFilter { return ProductFilter{everything: true} }

// SpecificProducts restricts the filter to exactly the named products.
func SpecificProducts(names ...string) ProductFilter {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return ProductFilter{products: set}
}

// Admits reports whether product is in scope under this filter.
func (f ProductFilter) Admits(product string) bool {
	if f.everything {
		return true
	}
	_, ok := f.products[product]
	return ok
}

// key returns a stable, comparable representation suitable for use as a map
// key, so the (version, filter) cache in PackageContainer is keyed by both
// fields rather than version alone.
func (f ProductFilter) key() string {
	if f.everything {
		return "*"
	}
	names := make([]string, 0, len(f.products))
	for n := range f.products {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for _, n := range names {
		out += "\x00" + n
	}
	return out
}

// FilteredDependencies projects m's declared dependencies under filter: a
// dependency is included iff it is required by at least one product the
// filter admits, or declares no product association at all (a plain,
// unconditional dependency).
func (m Manifest) FilteredDependencies(filter ProductFilter) []Dependency {
	if filter.everything {
		out := make([]Dependency, len(m.Dependencies))
		copy(out, m.Dependencies)
		return out
	}

	admittedTargets := map[string]struct{}{}
	for _, p := range m.Products {
		if filter.Admits(p.Name) {
			for _, t := range p.Targets {
				admittedTargets[t] = struct{}{}
			}
		}
	}

	var out []Dependency
	for _, d := range m.Dependencies {
		if len(d.Products) == 0 {
			out = append(out, d)
			continue
		}
		for _, p := range d.Products {
			if _, ok := admittedTargets[p]; ok {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
