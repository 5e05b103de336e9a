package gps

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestBoltMetadataCacheDependenciesRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "boltcache")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	c, err := OpenBoltMetadataCache(dir, nil)
	if err != nil {
		t.Fatalf("OpenBoltMetadataCache: %v", err)
	}
	defer c.Close()

	identity := PackageIdentity("example.com/widget")
	everything := Everything()
	specific := SpecificProducts("Core")

	if _, ok := c.LoadDependencies(identity, "v1.0.0", everything); ok {
		t.Fatal("expected a miss before any Store call")
	}

	if err := c.StoreDependencies(identity, "v1.0.0", everything, []byte("everything-payload")); err != nil {
		t.Fatalf("StoreDependencies(everything): %v", err)
	}
	if err := c.StoreDependencies(identity, "v1.0.0", specific, []byte("specific-payload")); err != nil {
		t.Fatalf("StoreDependencies(specific): %v", err)
	}

	got, ok := c.LoadDependencies(identity, "v1.0.0", everything)
	if !ok || string(got) != "everything-payload" {
		t.Errorf("LoadDependencies(everything) = (%q, %v), want (%q, true)", got, ok, "everything-payload")
	}

	got, ok = c.LoadDependencies(identity, "v1.0.0", specific)
	if !ok || string(got) != "specific-payload" {
		t.Errorf("LoadDependencies(specific) = (%q, %v), want (%q, true) -- caching must key on filter, not version alone", got, ok, "specific-payload")
	}
}

func TestBoltMetadataCacheRevisionForVersion(t *testing.T) {
	dir, err := ioutil.TempDir("", "boltcache")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	c, err := OpenBoltMetadataCache(dir, nil)
	if err != nil {
		t.Fatalf("OpenBoltMetadataCache: %v", err)
	}
	defer c.Close()

	identity := PackageIdentity("example.com/widget")

	if _, ok := c.LoadRevisionForVersion(identity, "v1.0.0"); ok {
		t.Fatal("expected a miss before any Store call")
	}

	if err := c.StoreRevisionForVersion(identity, "v1.0.0", "abc123"); err != nil {
		t.Fatalf("StoreRevisionForVersion: %v", err)
	}

	rev, ok := c.LoadRevisionForVersion(identity, "v1.0.0")
	if !ok || rev != "abc123" {
		t.Errorf("LoadRevisionForVersion = (%q, %v), want (abc123, true)", rev, ok)
	}
}

func TestBoltMetadataCacheReopenPersists(t *testing.T) {
	dir, err := ioutil.TempDir("", "boltcache")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	identity := PackageIdentity("example.com/widget")

	c1, err := OpenBoltMetadataCache(dir, nil)
	if err != nil {
		t.Fatalf("OpenBoltMetadataCache (first): %v", err)
	}
	if err := c1.StoreRevisionForVersion(identity, "v1.0.0", "abc123"); err != nil {
		t.Fatalf("StoreRevisionForVersion: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := OpenBoltMetadataCache(dir, nil)
	if err != nil {
		t.Fatalf("OpenBoltMetadataCache (second): %v", err)
	}
	defer c2.Close()

	rev, ok := c2.LoadRevisionForVersion(identity, "v1.0.0")
	if !ok || rev != "abc123" {
		t.Errorf("LoadRevisionForVersion after reopen = (%q, %v), want (abc123, true)", rev, ok)
	}
}
