package test

import (
	"io/ioutil"
	"os"
	"testing"
)

// TempDir creates a fresh temporary directory prefixed with name and
// registers its removal when t completes.
func TempDir(t testing.TB, name string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", name)
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
