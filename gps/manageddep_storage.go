package gps

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps/internal/fsutil"
)

const managedDepsSchemaV1 = 1

type rawCheckoutState struct {
	Kind     string `json:"kind"`
	Version  string `json:"version,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision string `json:"revision,omitempty"`
}

type rawManagedDependency struct {
	Identity      string           `json:"identity"`
	Kind          string           `json:"kind"`
	State         string           `json:"state"`
	Checkout      rawCheckoutState `json:"checkout"`
	Version       string           `json:"version,omitempty"`
	UnmanagedPath string           `json:"unmanagedPath,omitempty"`
	CustomPath    string           `json:"customPath,omitempty"`
	Subpath       string           `json:"subpath"`
}

type rawManagedDependenciesFile struct {
	Version int                    `json:"version"`
	Object  []rawManagedDependency `json:"object"`
}

func checkoutStateKindString(k CheckoutStateKind) string {
	switch k {
	case CheckoutVersion:
		return "version"
	case CheckoutBranch:
		return "branch"
	default:
		return "revision"
	}
}

func checkoutStateKindFromString(s string) CheckoutStateKind {
	switch s {
	case "version":
		return CheckoutVersion
	case "branch":
		return CheckoutBranch
	default:
		return CheckoutRevision
	}
}

func managedStateKindString(k ManagedDependencyStateKind) string {
	switch k {
	case StateSourceControlCheckout:
		return "sourceControlCheckout"
	case StateRegistryDownload:
		return "registryDownload"
	case StateEdited:
		return "edited"
	case StateFileSystem:
		return "fileSystem"
	default:
		return "custom"
	}
}

func managedStateKindFromString(s string) ManagedDependencyStateKind {
	switch s {
	case "sourceControlCheckout":
		return StateSourceControlCheckout
	case "registryDownload":
		return StateRegistryDownload
	case "edited":
		return StateEdited
	case "fileSystem":
		return StateFileSystem
	default:
		return StateCustom
	}
}

func (d ManagedDependency) toRaw() rawManagedDependency {
	r := rawManagedDependency{
		Identity: string(d.Ref.Identity),
		Kind:     d.Ref.Kind.String(),
		State:    managedStateKindString(d.State.Kind),
		Subpath:  d.Subpath,
	}
	switch d.State.Kind {
	case StateSourceControlCheckout:
		r.Checkout = rawCheckoutState{
			Kind:     checkoutStateKindString(d.State.Checkout.Kind),
			Version:  d.State.Checkout.Version,
			Branch:   d.State.Checkout.Branch,
			Revision: d.State.Checkout.Revision,
		}
	case StateRegistryDownload:
		r.Version = d.State.Version
	case StateEdited:
		r.UnmanagedPath = d.State.UnmanagedPath
	case StateCustom:
		r.Version = d.State.Version
		r.CustomPath = d.State.CustomPath
	}
	return r
}

func managedDependencyFromRaw(r rawManagedDependency) ManagedDependency {
	d := ManagedDependency{
		Ref:     PackageReference{Identity: PackageIdentity(r.Identity), Kind: kindFromString(r.Kind)},
		Subpath: r.Subpath,
	}
	d.State.Kind = managedStateKindFromString(r.State)
	switch d.State.Kind {
	case StateSourceControlCheckout:
		d.State.Checkout = CheckoutState{
			Kind:     checkoutStateKindFromString(r.Checkout.Kind),
			Version:  r.Checkout.Version,
			Branch:   r.Checkout.Branch,
			Revision: r.Checkout.Revision,
		}
	case StateRegistryDownload:
		d.State.Version = r.Version
	case StateEdited:
		d.State.UnmanagedPath = r.UnmanagedPath
	case StateCustom:
		d.State.Version = r.Version
		d.State.CustomPath = r.CustomPath
	}
	return d
}

// LoadManagedDependencies reads the managed-dependencies state file at path.
// A missing file yields an empty slice; an unknown schema version is a hard
// error, matching the pins file's migration discipline.
func LoadManagedDependencies(path string) ([]ManagedDependency, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading managed-dependencies state file %s", path)
	}

	var f rawManagedDependenciesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing managed-dependencies state file")
	}
	if f.Version != managedDepsSchemaV1 {
		return nil, errors.Errorf("unknown managed-dependencies state schema version %d", f.Version)
	}

	deps := make([]ManagedDependency, 0, len(f.Object))
	for _, r := range f.Object {
		deps = append(deps, managedDependencyFromRaw(r))
	}
	return deps, nil
}

// SaveManagedDependencies writes deps to path under an exclusive lock,
// creating the parent directory if needed.
func SaveManagedDependencies(path string, deps []ManagedDependency) error {
	raws := make([]rawManagedDependency, 0, len(deps))
	for _, d := range deps {
		raws = append(raws, d.toRaw())
	}
	f := rawManagedDependenciesFile{Version: managedDepsSchemaV1, Object: raws}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding managed-dependencies state file")
	}

	if err := mkdirAll(parentDir(path)); err != nil {
		return err
	}

	return fsutil.WithExclusive(path+".lock", func() error {
		return ioutil.WriteFile(path, data, 0o644)
	})
}
