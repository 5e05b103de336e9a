package gps

// CheckoutStateKind distinguishes the states a source-control checkout of a
// managed dependency can be in.
type CheckoutStateKind int

const (
	CheckoutVersion CheckoutStateKind = iota
	CheckoutBranch
	CheckoutRevision
)

// CheckoutState describes how a managed dependency's working copy is
// anchored: to a version, a branch, or a bare revision.
type CheckoutState struct {
	Kind     CheckoutStateKind
	Version  string
	Branch   string
	Revision string
}

// ManagedDependencyStateKind enumerates the lifecycle states a
// ManagedDependency can occupy.
type ManagedDependencyStateKind int

const (
	StateSourceControlCheckout ManagedDependencyStateKind = iota
	StateRegistryDownload
	StateEdited
	StateFileSystem
	StateCustom
)

// ManagedDependencyState carries the fields relevant to its Kind; only the
// fields matching Kind are meaningful.
type ManagedDependencyState struct {
	Kind          ManagedDependencyStateKind
	Checkout      CheckoutState
	Version       string
	UnmanagedPath string
	CustomPath    string
}

// ManagedDependency is a package reference plus its working-copy lifecycle
// state and the subpath under the workspace's checkouts directory it lives
// at.
type ManagedDependency struct {
	Ref     PackageReference
	State   ManagedDependencyState
	Subpath string
}

// Edit transitions a checkout into the edited state, recording an optional
// path to an unmanaged (user-provided) working copy to use instead of the
// workspace-owned one.
func (d ManagedDependency) Edit(unmanagedPath string) ManagedDependency {
	d.State = ManagedDependencyState{Kind: StateEdited, UnmanagedPath: unmanagedPath}
	return d
}

// Unedit transitions an edited dependency back to a managed checkout at the
// given state.
func (d ManagedDependency) Unedit(checkout CheckoutState) ManagedDependency {
	d.State = ManagedDependencyState{Kind: StateSourceControlCheckout, Checkout: checkout}
	return d
}

// ArtifactSourceKind distinguishes where a managed build artifact's bytes
// came from.
type ArtifactSourceKind int

const (
	ArtifactRemote ArtifactSourceKind = iota
	ArtifactLocal
)

// ArtifactSource describes provenance: a remote URL plus checksum, or a
// local checksum only.
type ArtifactSource struct {
	Kind     ArtifactSourceKind
	URL      string
	Checksum string
}

// ManagedArtifact is a downloaded or locally-built binary artifact
// associated with a specific target of a package.
type ManagedArtifact struct {
	Ref        PackageReference
	TargetName string
	Source     ArtifactSource
	Path       string
}
