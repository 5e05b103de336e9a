package gps

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/kranesoft/wscore/internal/xlog"
)

var dependenciesBucket = []byte("dependencies")
var versionsBucket = []byte("versions")

// BoltMetadataCache is a shared second-tier cache: an on-disk store of
// manifest-derived metadata (dependency lists keyed by (identity, revision,
// product filter), and resolved version->revision mappings) that multiple
// workspace processes can share, backed by go.etcd.io/bbolt.
type BoltMetadataCache struct {
	db     *bolt.DB
	logger *xlog.Logger
}

// OpenBoltMetadataCache opens (creating if needed) a bbolt-backed cache file
// under cacheDir.
func OpenBoltMetadataCache(cacheDir string, logger *xlog.Logger) (*BoltMetadataCache, error) {
	if logger == nil {
		logger = xlog.New(nil)
	}
	if err := mkdirAll(cacheDir); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %s", cacheDir)
	}
	path := filepath.Join(cacheDir, "metadata.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bbolt cache %q", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(dependenciesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(versionsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing bbolt buckets")
	}
	return &BoltMetadataCache{db: db, logger: logger}, nil
}

// Close releases the underlying bbolt file handle.
func (c *BoltMetadataCache) Close() error {
	return errors.Wrap(c.db.Close(), "closing bbolt cache")
}

func depsKey(identity PackageIdentity, ref string, filter ProductFilter) []byte {
	return []byte(string(identity) + "\x00" + ref + "\x00" + filter.key())
}

// StoreDependencies persists the result of GetDependencies for later reuse
// across processes, keyed by (identity, ref, filter) exactly as the
// in-memory PackageContainer cache is: keying by ref alone would let a
// narrower product filter's result leak into a wider lookup for the same
// revision.
func (c *BoltMetadataCache) StoreDependencies(identity PackageIdentity, ref string, filter ProductFilter, encoded []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dependenciesBucket).Put(depsKey(identity, ref, filter), encoded)
	})
}

// LoadDependencies returns a previously stored encoding, if present.
func (c *BoltMetadataCache) LoadDependencies(identity PackageIdentity, ref string, filter ProductFilter) ([]byte, bool) {
	var out []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dependenciesBucket).Get(depsKey(identity, ref, filter))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil
}

// StoreRevisionForVersion persists the revision a given (identity, version)
// pair resolved to, so a later lookup of the same tag need not re-resolve
// it against the bare clone.
func (c *BoltMetadataCache) StoreRevisionForVersion(identity PackageIdentity, version, revision string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(versionsBucket).Put([]byte(string(identity)+"\x00"+version), []byte(revision))
	})
}

// LoadRevisionForVersion returns the previously stored revision for
// (identity, version), if present.
func (c *BoltMetadataCache) LoadRevisionForVersion(identity PackageIdentity, version string) (string, bool) {
	var out string
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(versionsBucket).Get([]byte(string(identity) + "\x00" + version))
		if v != nil {
			out = string(v)
		}
		return nil
	})
	return out, out != ""
}
