package deps

import "strings"

// LockedPackage is one [[package]] entry of Cargo.lock.
type LockedPackage struct {
	Name         string
	Version      string
	Source       string   // "registry+...", "git+...", empty for path crates
	Dependencies []string // "name" or "name version" or "name version (source)"
}

// Lockfile indexes a parsed Cargo.lock.
type Lockfile struct {
	Packages []LockedPackage
	byName   map[string][]int
}

// NewLockfile builds the lookup index over pkgs.
func NewLockfile(pkgs []LockedPackage) *Lockfile {
	l := &Lockfile{Packages: pkgs, byName: make(map[string][]int)}
	for i, p := range pkgs {
		l.byName[p.Name] = append(l.byName[p.Name], i)
	}
	return l
}

// Versions returns every locked version of crate.
func (l *Lockfile) Versions(crate string) []string {
	if l == nil {
		return nil
	}
	var out []string
	for _, i := range l.byName[crate] {
		out = append(out, l.Packages[i].Version)
	}
	return out
}

// Pin returns the version the lockfile selects for crate when depended on by
// parent (name@version). It returns false when the lockfile does not record
// the edge.
func (l *Lockfile) Pin(parentName, parentVersion, crate string) (string, bool) {
	if l == nil {
		return "", false
	}
	for _, i := range l.byName[parentName] {
		p := l.Packages[i]
		if p.Version != parentVersion {
			continue
		}
		for _, entry := range p.Dependencies {
			fields := strings.Fields(entry)
			if len(fields) == 0 || fields[0] != crate {
				continue
			}
			if len(fields) >= 2 {
				return fields[1], true
			}
			// A bare name means exactly one version of crate is locked
			if vs := l.Versions(crate); len(vs) == 1 {
				return vs[0], true
			}
		}
	}
	return "", false
}
