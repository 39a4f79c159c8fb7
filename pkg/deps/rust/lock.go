package rust

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cargo2hf/pkg/deps"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// LockName is the Cargo lockfile name.
const LockName = "Cargo.lock"

type lockFile struct {
	Version int `toml:"version"`
	Package []struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Source       string   `toml:"source"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"package"`
}

// LoadLock parses the Cargo.lock at path.
func LoadLock(path string) (*deps.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf lockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	pkgs := make([]deps.LockedPackage, 0, len(lf.Package))
	for _, p := range lf.Package {
		pkgs = append(pkgs, deps.LockedPackage{
			Name:         p.Name,
			Version:      p.Version,
			Source:       p.Source,
			Dependencies: p.Dependencies,
		})
	}
	return deps.NewLockfile(pkgs), nil
}

// FindLock looks for Cargo.lock in dir and its parents (workspace members
// share the workspace root's lockfile). It returns nil, "" when there is none.
func FindLock(dir string) (*deps.Lockfile, string, error) {
	for {
		path := filepath.Join(dir, LockName)
		if _, err := os.Stat(path); err == nil {
			lock, err := LoadLock(path)
			return lock, path, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}
