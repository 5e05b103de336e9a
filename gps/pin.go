package gps

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps/internal/fsutil"
)

// PinStateKind distinguishes how a Pin anchors its revision.
type PinStateKind int

const (
	// PinVersion anchors to an exact released version plus the revision it
	// resolved to at pin time.
	PinVersion PinStateKind = iota
	// PinBranch anchors to a branch name plus the revision it pointed at
	// at pin time.
	PinBranch
	// PinRevision anchors directly to a revision id.
	PinRevision
)

// PinState is the {version(v, revision) | branch(name, revision) |
// revision(id)} sum type.
type PinState struct {
	Kind     PinStateKind
	Version  string
	Branch   string
	Revision string
}

// Pin binds a package reference to an exact version or revision, persisted
// to the pins file.
type Pin struct {
	Ref      PackageReference
	Location string
	State    PinState
}

const (
	pinsSchemaV1 = 1
	pinsSchemaV2 = 2
	// pinsSchemaCurrent is the version this release writes. Reading v1 is
	// still supported via migration.
	pinsSchemaCurrent = pinsSchemaV2
)

type rawPinState struct {
	Version  string `json:"version,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Revision string `json:"revision"`
}

type rawPin struct {
	Identity string      `json:"identity"`
	Kind     string      `json:"kind"`
	Location string      `json:"location,omitempty"`
	State    rawPinState `json:"state"`
}

type rawPinsObject struct {
	Pins []rawPin `json:"pins"`
}

type rawPinsFile struct {
	Version int           `json:"version"`
	Object  rawPinsObject `json:"object"`
}

func (p Pin) toRaw() rawPin {
	r := rawPin{
		Identity: string(p.Ref.Identity),
		Kind:     p.Ref.Kind.String(),
		Location: p.Location,
	}
	switch p.State.Kind {
	case PinVersion:
		r.State = rawPinState{Version: p.State.Version, Revision: p.State.Revision}
	case PinBranch:
		r.State = rawPinState{Branch: p.State.Branch, Revision: p.State.Revision}
	default:
		r.State = rawPinState{Revision: p.State.Revision}
	}
	return r
}

func pinFromRaw(r rawPin) Pin {
	st := PinState{Revision: r.State.Revision}
	switch {
	case r.State.Version != "":
		st.Kind = PinVersion
		st.Version = r.State.Version
	case r.State.Branch != "":
		st.Kind = PinBranch
		st.Branch = r.State.Branch
	default:
		st.Kind = PinRevision
	}
	return Pin{
		Ref:      PackageReference{Identity: PackageIdentity(r.Identity), Kind: kindFromString(r.Kind)},
		Location: r.Location,
		State:    st,
	}
}

func kindFromString(s string) PackageReferenceKind {
	switch s {
	case "root":
		return KindRoot
	case "fileSystem":
		return KindFileSystem
	case "localSourceControl":
		return KindLocalSourceControl
	case "remoteSourceControl":
		return KindRemoteSourceControl
	case "registry":
		return KindRegistry
	default:
		return KindRemoteSourceControl
	}
}

// LoadPins reads the pins file at path, migrating a v1 document to the
// current in-memory representation transparently. A missing file yields an
// empty slice. Unknown schema versions are a hard error.
func LoadPins(path string) ([]Pin, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading pins file %s", path)
	}

	var f rawPinsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing pins file")
	}

	switch f.Version {
	case pinsSchemaV1, pinsSchemaV2:
		// v1 -> v2 is additive only (an explicit "location" field); a v1
		// document simply has it empty, which pinFromRaw already handles.
	default:
		return nil, errors.Errorf("unknown pins file schema version %d", f.Version)
	}

	pins := make([]Pin, 0, len(f.Object.Pins))
	for _, r := range f.Object.Pins {
		pins = append(pins, pinFromRaw(r))
	}
	return pins, nil
}

// SavePins writes pins to path in the current (v2) schema, under an
// exclusive lock, creating the parent directory if needed. Entries are
// written ordered by identity so the file is a stable, totally ordered
// mapping regardless of the order the solver produced them in.
func SavePins(path string, pins []Pin) error {
	raws := make([]rawPin, 0, len(pins))
	for _, p := range pins {
		raws = append(raws, p.toRaw())
	}
	sort.Slice(raws, func(i, j int) bool { return raws[i].Identity < raws[j].Identity })
	f := rawPinsFile{Version: pinsSchemaCurrent, Object: rawPinsObject{Pins: raws}}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding pins file")
	}

	if err := mkdirAll(parentDir(path)); err != nil {
		return err
	}

	return fsutil.WithExclusive(path+".lock", func() error {
		return ioutil.WriteFile(path, data, 0o644)
	})
}
