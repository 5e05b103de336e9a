package gps

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps/internal/fsutil"
	"github.com/kranesoft/wscore/internal/xlog"
)

// repositoryManagerStateVersion is the only schema version this release
// writes or reads. Every persisted file carries an explicit version; decode
// rejects an unrecognized one, and load then warns and starts from empty
// state.
const repositoryManagerStateVersion = 1

type repositoryEntry struct {
	RepositoryURL string `json:"repositoryURL"`
	Subpath       string `json:"subpath"`
}

type repositoryManagerStateObject struct {
	Repositories map[string]repositoryEntry `json:"repositories"`
}

type repositoryManagerStateFile struct {
	Version int                          `json:"version"`
	Object  repositoryManagerStateObject `json:"object"`
}

// managerStorage durably persists the set of specifiers whose bare clones
// are considered ready-to-use, as schema-versioned JSON under an exclusive
// lock for writes (shared for reads).
type managerStorage struct {
	path string
	log  *xlog.Logger
}

func newManagerStorage(path string, log *xlog.Logger) *managerStorage {
	if log == nil {
		log = xlog.New(nil)
	}
	return &managerStorage{path: path, log: log}
}

// load returns the persisted specifier->entry map. A missing file yields an
// empty map. A load error (corrupt JSON, or an unknown schema version)
// resets storage to empty and emits a warning rather than failing the
// manager's construction.
func (s *managerStorage) load() map[string]repositoryEntry {
	if !fsutil.Exists(s.path) {
		return map[string]repositoryEntry{}
	}

	var data []byte
	err := fsutil.WithShared(s.path+".lock", func() error {
		var readErr error
		data, readErr = ioutil.ReadFile(s.path)
		return readErr
	})
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]repositoryEntry{}
		}
		s.log.Warnf("repository manager state %s unreadable, resetting: %v", s.path, err)
		return map[string]repositoryEntry{}
	}

	m, err := s.decode(data)
	if err != nil {
		s.log.Warnf("repository manager state %s corrupt, resetting: %v", s.path, err)
		return map[string]repositoryEntry{}
	}
	return m
}

func (s *managerStorage) decode(data []byte) (map[string]repositoryEntry, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "parsing state file header")
	}

	switch probe.Version {
	case 1:
		var f repositoryManagerStateFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(err, "parsing v1 state file")
		}
		if f.Object.Repositories == nil {
			return map[string]repositoryEntry{}, nil
		}
		return f.Object.Repositories, nil
	default:
		return nil, errors.Errorf("unknown repository manager state schema version %d", probe.Version)
	}
}

// save persists m under an exclusive lock on s.path, creating the parent
// directory if needed. A failure here after a successful fetch is treated
// as fatal by the caller: the in-memory and on-disk views would otherwise
// silently diverge.
func (s *managerStorage) save(m map[string]repositoryEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", s.path)
	}

	f := repositoryManagerStateFile{
		Version: repositoryManagerStateVersion,
		Object:  repositoryManagerStateObject{Repositories: m},
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding state file")
	}

	return fsutil.WithExclusive(s.path+".lock", func() error {
		return ioutil.WriteFile(s.path, data, 0o644)
	})
}
