package plugin

// SandboxPolicy wraps a plugin's argv to enforce its sandbox contract: deny
// network, permit writes only under an allowed set of directories (plus the
// plugin cache directory, always included), permit reads from the package
// sources. A policy is a pure argv->argv transform; on platforms with no
// sandboxing primitive (or when disabled), IdentityPolicy is used.
type SandboxPolicy interface {
	Wrap(argv []string, writableDirectories []string) []string
}

// IdentityPolicy implements SandboxPolicy as a no-op, for platforms without
// a sandbox primitive or when sandboxing is explicitly disabled.
type IdentityPolicy struct{}

func (IdentityPolicy) Wrap(argv []string, _ []string) []string { return argv }

// BubblewrapPolicy wraps argv with the Linux bubblewrap sandbox, the
// closest widely available analogue on this platform to the macOS
// sandbox-exec profile the original host used: a read-only bind of the
// package sources, read-write binds of the writable directories (plus the
// cache directory), and network fully unshared.
type BubblewrapPolicy struct {
	// ReadOnlyDirs are additionally bind-mounted read-only (typically the
	// package sources directory).
	ReadOnlyDirs []string
	CacheDir     string
}

func (p BubblewrapPolicy) Wrap(argv []string, writableDirectories []string) []string {
	wrapped := []string{"bwrap", "--unshare-net", "--die-with-parent", "--ro-bind", "/", "/"}

	for _, d := range p.ReadOnlyDirs {
		wrapped = append(wrapped, "--ro-bind", d, d)
	}

	writable := appendUnique(writableDirectories, p.CacheDir)
	for _, d := range writable {
		if d == "" {
			continue
		}
		wrapped = append(wrapped, "--bind", d, d)
	}

	wrapped = append(wrapped, argv...)
	return wrapped
}

func appendUnique(dirs []string, extra string) []string {
	if extra == "" {
		return dirs
	}
	for _, d := range dirs {
		if d == extra {
			return dirs
		}
	}
	return append(append([]string(nil), dirs...), extra)
}
