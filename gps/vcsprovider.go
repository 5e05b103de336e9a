package gps

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/kranesoft/wscore/gps/internal/fsutil"
)

// vcsProvider is the default RepositoryProvider, backed by
// github.com/Masterminds/vcs. It only speaks git; the VCS protocol itself
// is treated as external, so a provider for another system is just another
// implementation of RepositoryProvider.
//
// ExportRevisionTo and ReadFileAt both check out a revision in place within
// the bare clone before exporting it. That checkout mutates shared, on-disk
// state, so concurrent callers against the same clone path are serialized
// per-path; unrelated clones still proceed concurrently.
type vcsProvider struct {
	checkoutMu *keyedMutex
}

// NewVCSProvider returns the default git-backed RepositoryProvider.
func NewVCSProvider() RepositoryProvider { return vcsProvider{checkoutMu: newKeyedMutex()} }

// keyedMutex hands out a *sync.Mutex per string key, serializing operations
// against the same key without serializing unrelated keys against each
// other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (vcsProvider) repoAt(spec RepositorySpecifier, local string) (*vcs.GitRepo, error) {
	remote := spec.Location()
	if spec.IsLocal() {
		remote = spec.path
	}
	return vcs.NewGitRepo(remote, local)
}

func (p vcsProvider) Fetch(spec RepositorySpecifier, dest string, progress ProgressCallback) error {
	repo, err := p.repoAt(spec, dest)
	if err != nil {
		return errors.Wrap(err, "constructing git repo handle")
	}
	if progress != nil {
		progress("fetching " + spec.String())
	}
	if repo.CheckLocal() {
		if err := repo.Update(); err != nil {
			return errors.Wrapf(err, "updating clone of %s", spec)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", dest)
	}
	if err := repo.Get(); err != nil {
		return errors.Wrapf(err, "cloning %s", spec)
	}
	return nil
}

func (vcsProvider) Copy(src, dst string) error {
	return fsutil.CopyTree(src, dst)
}

func (vcsProvider) IsValidDirectory(path string) bool {
	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return false
	}
	return repo.CheckLocal()
}

func (vcsProvider) IsValidRefFormat(ref string) bool {
	if ref == "" {
		return false
	}
	repo, err := vcs.NewGitRepo("", os.TempDir())
	if err != nil {
		return false
	}
	return repo.IsReference(ref) || isPlausibleRefSyntax(ref)
}

// isPlausibleRefSyntax is a syntactic fallback for refs that don't exist
// locally yet (IsReference only checks the local clone), used when
// validating a ref name the caller intends to fetch.
func isPlausibleRefSyntax(ref string) bool {
	for _, r := range ref {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-' || r == '/':
		default:
			return false
		}
	}
	return true
}

func (vcsProvider) Tags(path string) ([]string, error) {
	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return nil, err
	}
	return repo.Tags()
}

func (vcsProvider) Branches(path string) ([]string, error) {
	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return nil, err
	}
	return repo.Branches()
}

func (vcsProvider) ResolveRevision(path, ref string) (string, error) {
	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return "", err
	}
	ci, err := repo.CommitInfo(ref)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %q", ref)
	}
	return ci.Commit, nil
}

func (p vcsProvider) ExportRevisionTo(path, rev, destDir string) error {
	defer p.checkoutMu.lock(path)()

	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return err
	}
	if err := repo.UpdateVersion(rev); err != nil {
		return errors.Wrapf(err, "checking out %s", rev)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return repo.ExportDir(destDir)
}

func (p vcsProvider) ReadFileAt(path, rev, relPath string) ([]byte, error) {
	defer p.checkoutMu.lock(path)()

	scratch, err := ioutil.TempDir("", "gps-readfile-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	repo, err := vcs.NewGitRepo(path, path)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateVersion(rev); err != nil {
		return nil, errors.Wrapf(err, "checking out %s", rev)
	}
	if err := repo.ExportDir(scratch); err != nil {
		return nil, err
	}
	return ioutil.ReadFile(filepath.Join(scratch, relPath))
}
