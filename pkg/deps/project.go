package deps

import "slices"

// Source says where a crate's sources were found.
type Source string

const (
	SourceRoot     Source = "root"
	SourcePath     Source = "path"
	SourceVendor   Source = "vendor"
	SourceRegistry Source = "registry"
	SourceGit      Source = "git"
)

// Kind is the section a dependency is declared in.
type Kind string

const (
	KindNormal Kind = "normal"
	KindDev    Kind = "dev"
	KindBuild  Kind = "build"
)

// Dependency is one entry of a [dependencies], [dev-dependencies] or
// [build-dependencies] table, possibly under a [target.'cfg(..)'] section.
type Dependency struct {
	Name            string   // key in the manifest
	Package         string   // real crate name when renamed, else empty
	Req             string   // version requirement as written ("" when none)
	Kind            Kind     // normal, dev or build
	Optional        bool     // only enabled through a feature
	Target          string   // cfg expression or target triple, empty for all platforms
	Features        []string // features enabled on the dependency
	DefaultFeatures bool     // default-features (true unless disabled)
	Path            string   // path = "..." relative to the declaring manifest
	Git             string   // git = "..."
	Branch          string
	Tag             string
	Rev             string
	Registry        string // alternative registry name
}

// CrateName returns the name the crate is published under.
func (d Dependency) CrateName() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Name
}

// SourceKind classifies where the dependency comes from: path, git or registry.
func (d Dependency) SourceKind() string {
	switch {
	case d.Path != "":
		return string(SourcePath)
	case d.Git != "":
		return string(SourceGit)
	default:
		return string(SourceRegistry)
	}
}

// Feature is one entry of the [features] table.
type Feature struct {
	Name    string
	Enables []string
}

// CrateTarget is a lib, bin, example, test or bench target.
type CrateTarget struct {
	Kind string // lib, bin, example, test, bench
	Name string
	Path string
}

// Setting is one key of a profile, flattened to text.
type Setting struct {
	Key   string
	Value string
}

// Profile is a [profile.<name>] table.
type Profile struct {
	Name     string
	Settings []Setting // sorted by key
}

// BuildConfig holds the build-relevant parts of a manifest.
type BuildConfig struct {
	Script          string    // build script path relative to the crate, empty when none
	Links           string    // native library named by `links`
	Features        []Feature // sorted by name, "default" excluded
	DefaultFeatures []string  // the "default" feature list
	Platforms       []string  // cfg expressions with platform-specific dependencies
	Targets         []CrateTarget
	Profiles        []Profile // sorted by name
}

// Project is a loaded Cargo package. It is immutable once loaded.
type Project struct {
	Dir          string // crate root directory
	ManifestPath string
	Source       Source

	Name          string
	Version       string
	Authors       []string
	License       string
	LicenseFile   string
	Description   string
	Keywords      []string
	Categories    []string
	Edition       string
	RustVersion   string
	Repository    string
	Homepage      string
	Documentation string
	Readme        string
	Include       []string
	Exclude       []string

	Dependencies []Dependency // declaration order: normal, build, dev
	Build        BuildConfig
}

// ID returns the crate identity name@version.
func (p *Project) ID() string {
	return p.Name + "@" + p.Version
}

// DepsOfKind returns the declared dependencies of the given kinds, in
// declaration order.
func (p *Project) DepsOfKind(kinds ...Kind) []Dependency {
	var out []Dependency
	for _, d := range p.Dependencies {
		if slices.Contains(kinds, d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

// ResolvedDependency is a crate reached transitively from the root.
type ResolvedDependency struct {
	*Project
	Depth int      // 1 for direct dependencies
	Via   []string // crate names from the root down to the parent
}
