package gps

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"
)

// RepositorySpecifier identifies a source-control repository either by a
// local absolute path or by a remote URL. Exactly one of the two fields is
// set; which one determines whether the specifier is "local" or "remote".
type RepositorySpecifier struct {
	path string
	url  string
}

// LocalRepositorySpecifier builds a specifier for a repository that already
// exists as a directory on the local filesystem.
func LocalRepositorySpecifier(absPath string) RepositorySpecifier {
	return RepositorySpecifier{path: filepath.Clean(absPath)}
}

// RemoteRepositorySpecifier builds a specifier for a repository reachable at
// a remote URL. The default provider (vcsProvider) speaks git only.
func RemoteRepositorySpecifier(url string) RepositorySpecifier {
	return RepositorySpecifier{url: url}
}

// IsLocal reports whether this specifier names a local path rather than a
// remote URL.
func (s RepositorySpecifier) IsLocal() bool { return s.path != "" }

// Location returns the path or URL the specifier was constructed from,
// whichever is set.
func (s RepositorySpecifier) Location() string {
	if s.IsLocal() {
		return s.path
	}
	return s.url
}

// Equal reports whether two specifiers denote the same repository.
func (s RepositorySpecifier) Equal(o RepositorySpecifier) bool {
	return s.path == o.path && s.url == o.url
}

var sanitizeSpecifierRe = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// FilesystemIdentifier derives a stable, sanitized token suitable for use as
// a single path component naming this repository's on-disk clone directory.
// Two specifiers that are Equal always yield the same identifier, and
// (within the lifetime of a process) two different specifiers are
// overwhelmingly unlikely to collide because the sanitized location is
// suffixed with a short content hash of the full, unsanitized location.
func (s RepositorySpecifier) FilesystemIdentifier() string {
	loc := s.Location()
	base := sanitizeSpecifierRe.ReplaceAllString(strings.ToLower(loc), "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "repo"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	sum := sha256.Sum256([]byte(loc))
	return base + "-" + hex.EncodeToString(sum[:])[:12]
}

// String implements fmt.Stringer for diagnostic output.
func (s RepositorySpecifier) String() string {
	if s.IsLocal() {
		return "local:" + s.path
	}
	return "remote:" + s.url
}

// PackageIdentity is a canonical, case-folded identifier for a package,
// derived from either a local path or a remote URL. Two packages referenced
// by superficially different URLs (e.g. with/without a ".git" suffix, or
// differing only by scheme) that resolve to the same identity are treated as
// the same package for equality purposes.
type PackageIdentity string

// NewPackageIdentity derives a PackageIdentity from a repository location.
// It case-folds the location, strips a trailing ".git", and strips a
// trailing slash, mirroring the canonicalization a path- or URL-based
// package reference needs for stable equality.
func NewPackageIdentity(location string) PackageIdentity {
	loc := strings.ToLower(strings.TrimSpace(location))
	loc = strings.TrimSuffix(loc, "/")
	loc = strings.TrimSuffix(loc, ".git")
	if idx := strings.Index(loc, "://"); idx >= 0 {
		loc = loc[idx+3:]
	}
	return PackageIdentity(loc)
}

// PackageReferenceKind distinguishes how a package entered the dependency
// graph.
type PackageReferenceKind int

const (
	// KindRoot is the package at the root of the workspace itself.
	KindRoot PackageReferenceKind = iota
	// KindFileSystem is a package referenced by a local, unmanaged path.
	KindFileSystem
	// KindLocalSourceControl is a package referenced by a local
	// source-control checkout.
	KindLocalSourceControl
	// KindRemoteSourceControl is a package referenced by a remote
	// source-control URL.
	KindRemoteSourceControl
	// KindRegistry is a package referenced by name through a package
	// registry rather than a direct source-control location.
	KindRegistry
)

func (k PackageReferenceKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindFileSystem:
		return "fileSystem"
	case KindLocalSourceControl:
		return "localSourceControl"
	case KindRemoteSourceControl:
		return "remoteSourceControl"
	case KindRegistry:
		return "registry"
	default:
		return "unknown"
	}
}

// PackageReference names a package by its canonical identity and the kind of
// reference that introduced it to the workspace.
type PackageReference struct {
	Identity PackageIdentity
	Kind     PackageReferenceKind
}
