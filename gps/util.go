package gps

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

func removeAll(path string) error {
	return os.RemoveAll(path)
}

func readDirNames(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// appendErrorIface aggregates err onto agg, creating a *multierror.Error on
// first use, matching moby/buildkit's convention for rolling up independent
// per-item failures (e.g. a purge pass that should keep going after a
// single entry fails to delete).
func appendErrorIface(agg error, err error) error {
	if err == nil {
		return agg
	}
	me, ok := agg.(*multierror.Error)
	if !ok {
		me = &multierror.Error{}
		if agg != nil {
			me = multierror.Append(me, agg)
		}
	}
	return multierror.Append(me, err)
}
