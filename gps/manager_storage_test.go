package gps

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempStoragePath(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "gps-storage")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "checkouts-state.json")
}

func TestManagerStorageSaveLoadRoundTrip(t *testing.T) {
	s := newManagerStorage(tempStoragePath(t), nil)

	saved := map[string]repositoryEntry{
		"a-subpath": {RepositoryURL: "https://example.com/a.git", Subpath: "a-subpath"},
		"b-subpath": {RepositoryURL: "https://example.com/b.git", Subpath: "b-subpath"},
	}
	if err := s.save(saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := s.load()
	if !reflect.DeepEqual(loaded, saved) {
		t.Errorf("load after save = %+v, want %+v", loaded, saved)
	}

	// A second save/load cycle must still be stable.
	if err := s.save(loaded); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if again := s.load(); !reflect.DeepEqual(again, saved) {
		t.Errorf("second load = %+v, want %+v", again, saved)
	}
}

func TestManagerStorageMissingFileIsEmpty(t *testing.T) {
	s := newManagerStorage(tempStoragePath(t), nil)
	if m := s.load(); len(m) != 0 {
		t.Errorf("load on missing file = %+v, want empty", m)
	}
}

func TestManagerStorageUnknownVersionResetsToEmpty(t *testing.T) {
	path := tempStoragePath(t)
	future := `{"version": 99, "object": {"repositories": {"x": {"repositoryURL": "u", "subpath": "x"}}}}`
	if err := ioutil.WriteFile(path, []byte(future), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s := newManagerStorage(path, nil)
	if m := s.load(); len(m) != 0 {
		t.Errorf("load of unknown schema = %+v, want empty (reset-and-continue)", m)
	}
}

func TestManagerStorageCorruptFileResetsToEmpty(t *testing.T) {
	path := tempStoragePath(t)
	if err := ioutil.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s := newManagerStorage(path, nil)
	if m := s.load(); len(m) != 0 {
		t.Errorf("load of corrupt file = %+v, want empty (reset-and-continue)", m)
	}
}
