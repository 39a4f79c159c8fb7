package rust

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/cargo2hf/pkg/deps"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// maxGitDepth bounds the search for a crate inside a git checkout.
const maxGitDepth = 3

// Locator finds dependency sources on disk the way Cargo lays them out:
// path dependencies next to the declaring crate, a vendor/ directory at the
// project root, the registry source cache and git checkouts under
// CARGO_HOME. It implements [deps.Locator].
type Locator struct {
	cargoHome string
	vendorDir string
	lock      *deps.Lockfile

	once     sync.Once
	registry map[string][]candidate // crate name -> unpacked registry sources
	vendor   map[string][]candidate
}

type candidate struct {
	version *semver.Version
	dir     string
}

// NewLocator returns a locator for dependencies of the project rooted at
// rootDir. lock may be nil. An empty cargoHome selects [CargoHome].
func NewLocator(rootDir string, lock *deps.Lockfile, cargoHome string) *Locator {
	if cargoHome == "" {
		cargoHome = CargoHome()
	}
	return &Locator{
		cargoHome: cargoHome,
		vendorDir: filepath.Join(rootDir, "vendor"),
		lock:      lock,
	}
}

// CargoHome returns $CARGO_HOME, defaulting to ~/.cargo.
func CargoHome() string {
	if h := os.Getenv("CARGO_HOME"); h != "" {
		return h
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cargo")
	}
	return ".cargo"
}

// Key implements [deps.Locator].
func (l *Locator) Key(from *deps.Project, dep deps.Dependency) string {
	crate := dep.CrateName()
	switch {
	case dep.Path != "":
		return "path:" + filepath.Clean(filepath.Join(from.Dir, dep.Path))
	case dep.Git != "":
		if v, ok := l.pin(from, dep); ok {
			return "git:" + dep.Git + "#" + crate + "@" + v
		}
		return "git:" + dep.Git + "#" + crate
	default:
		if v, ok := l.pin(from, dep); ok {
			return "registry:" + crate + "@" + v
		}
		return "registry:" + crate + " " + dep.Req
	}
}

// Pinned implements [deps.Locator].
func (l *Locator) Pinned(from *deps.Project, dep deps.Dependency) bool {
	_, ok := l.pin(from, dep)
	return ok
}

func (l *Locator) pin(from *deps.Project, dep deps.Dependency) (string, bool) {
	return l.lock.Pin(from.Name, from.Version, dep.CrateName())
}

// Locate implements [deps.Locator].
func (l *Locator) Locate(ctx context.Context, from *deps.Project, dep deps.Dependency) (*deps.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	crate := dep.CrateName()

	if dep.Path != "" {
		dir := filepath.Join(from.Dir, dep.Path)
		return l.load(dir, deps.SourcePath, crate)
	}

	match, err := l.matcher(from, dep)
	if err != nil {
		return nil, err
	}

	l.once.Do(l.index)
	if c, ok := best(l.vendor[crate], match); ok {
		return l.load(c.dir, deps.SourceVendor, crate)
	}
	if dep.Git != "" {
		if dir, ok := l.findGit(crate, match); ok {
			return l.load(dir, deps.SourceGit, crate)
		}
		return nil, errs.New(errs.ErrCodePackageNotFound, "git checkout of %s (%s) not found under %s", crate, dep.Git, l.cargoHome)
	}
	if c, ok := best(l.registry[crate], match); ok {
		return l.load(c.dir, deps.SourceRegistry, crate)
	}
	want := dep.Req
	if v, ok := l.pin(from, dep); ok {
		want = "=" + v
	}
	return nil, errs.New(errs.ErrCodePackageNotFound, "crate %s %s not found in vendor/ or the registry cache", crate, want)
}

func (l *Locator) load(dir string, src deps.Source, crate string) (*deps.Project, error) {
	p, err := Load(dir, src)
	if err != nil {
		return nil, err
	}
	if p.Name != crate && strings.ReplaceAll(p.Name, "_", "-") != strings.ReplaceAll(crate, "_", "-") {
		return nil, errs.New(errs.ErrCodeResolution, "%s contains crate %s, expected %s", dir, p.Name, crate)
	}
	return p, nil
}

// matcher returns the version predicate for dep: the lockfile pin when
// present, else the Cargo requirement.
func (l *Locator) matcher(from *deps.Project, dep deps.Dependency) (func(*semver.Version) bool, error) {
	if v, ok := l.pin(from, dep); ok {
		pinned, err := semver.NewVersion(v)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeResolution, err, "lockfile version %q of %s", v, dep.CrateName())
		}
		return pinned.Equal, nil
	}
	c, err := ParseRequirement(dep.Req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeResolution, err, "version requirement %q of %s", dep.Req, dep.CrateName())
	}
	return c.Check, nil
}

// ParseRequirement converts a Cargo version requirement to a semver
// constraint. Bare versions are caret requirements, as in Cargo; an empty
// requirement matches anything.
func ParseRequirement(req string) (*semver.Constraints, error) {
	req = strings.TrimSpace(req)
	if req == "" {
		req = "*"
	}
	parts := strings.Split(req, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" && p[0] >= '0' && p[0] <= '9' {
			p = "^" + p
		}
		parts[i] = p
	}
	return semver.NewConstraint(strings.Join(parts, ", "))
}

// best returns the highest candidate accepted by match.
func best(cands []candidate, match func(*semver.Version) bool) (candidate, bool) {
	for i := len(cands) - 1; i >= 0; i-- {
		if match(cands[i].version) {
			return cands[i], true
		}
	}
	return candidate{}, false
}

// index scans vendor/ and $CARGO_HOME/registry/src once.
func (l *Locator) index() {
	l.vendor = make(map[string][]candidate)
	l.registry = make(map[string][]candidate)

	if entries, err := os.ReadDir(l.vendorDir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dir := filepath.Join(l.vendorDir, e.Name())
			// vendor/<name> carries no version in its name; read the manifest
			p, err := Load(dir, deps.SourceVendor)
			if err != nil {
				continue
			}
			if v, err := semver.NewVersion(p.Version); err == nil {
				l.vendor[p.Name] = append(l.vendor[p.Name], candidate{version: v, dir: dir})
			}
		}
	}

	registries, _ := filepath.Glob(filepath.Join(l.cargoHome, "registry", "src", "*"))
	sort.Strings(registries)
	for _, reg := range registries {
		entries, err := os.ReadDir(reg)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name, v, ok := splitNameVersion(e.Name())
			if !ok {
				continue
			}
			l.registry[name] = append(l.registry[name], candidate{version: v, dir: filepath.Join(reg, e.Name())})
		}
	}

	for _, m := range []map[string][]candidate{l.vendor, l.registry} {
		for name := range m {
			sort.SliceStable(m[name], func(i, j int) bool {
				return m[name][i].version.LessThan(m[name][j].version)
			})
		}
	}
}

// splitNameVersion splits "serde_json-1.0.120" into its crate name and
// version. Crate names may contain '-', so the leftmost split yielding a
// valid version wins.
func splitNameVersion(s string) (string, *semver.Version, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '-' || i == 0 || i+1 >= len(s) {
			continue
		}
		if s[i+1] < '0' || s[i+1] > '9' {
			continue
		}
		if v, err := semver.StrictNewVersion(s[i+1:]); err == nil {
			return s[:i], v, true
		}
	}
	return "", nil, false
}

// findGit searches $CARGO_HOME/git/checkouts for a crate directory whose
// manifest names crate with an accepted version.
func (l *Locator) findGit(crate string, match func(*semver.Version) bool) (string, bool) {
	root := filepath.Join(l.cargoHome, "git", "checkouts")
	var found []candidate
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "target" || strings.Count(rel, string(filepath.Separator)) > maxGitDepth+1 {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestName {
			return nil
		}
		p, err := Load(filepath.Dir(path), deps.SourceGit)
		if err != nil || p.Name != crate {
			return nil
		}
		if v, err := semver.NewVersion(p.Version); err == nil && match(v) {
			found = append(found, candidate{version: v, dir: p.Dir})
		}
		return nil
	})
	if len(found) == 0 {
		return "", false
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].version.LessThan(found[j].version) })
	return found[len(found)-1].dir, true
}

var _ deps.Locator = (*Locator)(nil)
