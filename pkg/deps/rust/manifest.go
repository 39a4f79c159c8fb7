package rust

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cargo2hf/pkg/deps"
	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// ManifestName is the Cargo manifest file name.
const ManifestName = "Cargo.toml"

type cargoFile struct {
	Package           map[string]any            `toml:"package"`
	Workspace         *workspaceTable           `toml:"workspace"`
	Lib               *targetTable              `toml:"lib"`
	Bin               []targetTable             `toml:"bin"`
	Example           []targetTable             `toml:"example"`
	Test              []targetTable             `toml:"test"`
	Bench             []targetTable             `toml:"bench"`
	Features          map[string][]string       `toml:"features"`
	Dependencies      map[string]any            `toml:"dependencies"`
	DevDependencies   map[string]any            `toml:"dev-dependencies"`
	BuildDependencies map[string]any            `toml:"build-dependencies"`
	Target            map[string]platformTable  `toml:"target"`
	Profile           map[string]map[string]any `toml:"profile"`
}

type workspaceTable struct {
	Members      []string       `toml:"members"`
	Package      map[string]any `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

type platformTable struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

type targetTable struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

var sectionKinds = map[string]deps.Kind{
	"dependencies":       deps.KindNormal,
	"build-dependencies": deps.KindBuild,
	"dev-dependencies":   deps.KindDev,
}

var kindRank = map[deps.Kind]int{deps.KindNormal: 0, deps.KindBuild: 1, deps.KindDev: 2}

// Load reads the Cargo package at path (a crate directory or its
// Cargo.toml) and tags it with src.
//
// Workspace inheritance (`key.workspace = true`) is resolved against the
// nearest enclosing workspace root. A virtual manifest (a [workspace]
// without [package]) is a CONFIGURATION_ERROR; a malformed manifest is an
// INVALID_MANIFEST error.
func Load(path string, src deps.Source) (*deps.Project, error) {
	manifest := path
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		manifest = filepath.Join(path, ManifestName)
	}
	manifest, err := filepath.Abs(manifest)
	if err != nil {
		return nil, err
	}

	cf, md, err := readManifest(manifest)
	if err != nil {
		return nil, err
	}
	if cf.Package == nil {
		if cf.Workspace != nil {
			return nil, errs.New(errs.ErrCodeConfiguration,
				"%s is a virtual workspace manifest; point at a member crate", manifest)
		}
		return nil, errs.New(errs.ErrCodeInvalidManifest, "%s has no [package] table", manifest)
	}

	dir := filepath.Dir(manifest)
	ws := &workspaceRef{crateDir: dir, self: cf.Workspace}
	f := &fieldReader{raw: cf.Package, ws: ws}

	p := &deps.Project{
		Dir:           dir,
		ManifestPath:  manifest,
		Source:        src,
		Name:          f.str("name"),
		Version:       f.str("version"),
		Authors:       f.strs("authors"),
		License:       f.str("license"),
		LicenseFile:   f.str("license-file"),
		Description:   strings.TrimSpace(f.str("description")),
		Keywords:      f.strs("keywords"),
		Categories:    f.strs("categories"),
		Edition:       f.str("edition"),
		RustVersion:   f.str("rust-version"),
		Repository:    f.str("repository"),
		Homepage:      f.str("homepage"),
		Documentation: f.str("documentation"),
		Readme:        f.readme(dir),
		Include:       f.strs("include"),
		Exclude:       f.strs("exclude"),
	}
	if f.err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, f.err, "%s", manifest)
	}
	if p.Name == "" {
		return nil, errs.New(errs.ErrCodeInvalidManifest, "%s: package.name is missing", manifest)
	}
	validName := errs.ValidateCrateName
	if src == deps.SourceRegistry {
		validName = errs.ValidateRegistryCrateName
	}
	if err := validName(p.Name); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "%s", manifest)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	if p.Edition == "" {
		p.Edition = "2015"
	}

	p.Dependencies, err = loadDependencies(cf, md, ws)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "%s", manifest)
	}
	p.Build = loadBuild(cf, md, f, dir, p.Name)
	if f.err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, f.err, "%s", manifest)
	}
	return p, nil
}

func readManifest(path string) (*cargoFile, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, toml.MetaData{}, err
	}
	var cf cargoFile
	md, err := toml.Decode(string(data), &cf)
	if err != nil {
		return nil, md, errs.Wrap(errs.ErrCodeInvalidManifest, err, "parse %s", path)
	}
	return &cf, md, nil
}

// workspaceRef lazily locates the workspace a crate belongs to.
type workspaceRef struct {
	crateDir string
	self     *workspaceTable

	loaded bool
	dir    string
	table  *workspaceTable
	err    error
}

func (w *workspaceRef) get() (string, *workspaceTable, error) {
	if w.loaded {
		return w.dir, w.table, w.err
	}
	w.loaded = true
	if w.self != nil {
		w.dir, w.table = w.crateDir, w.self
		return w.dir, w.table, nil
	}
	for dir := filepath.Dir(w.crateDir); ; dir = filepath.Dir(dir) {
		manifest := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(manifest); err == nil {
			cf, _, err := readManifest(manifest)
			if err != nil {
				w.err = err
				return "", nil, err
			}
			if cf.Workspace != nil {
				w.dir, w.table = dir, cf.Workspace
				return w.dir, w.table, nil
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	w.err = fmt.Errorf("field inherits from workspace but no workspace root encloses %s", w.crateDir)
	return "", nil, w.err
}

// fieldReader reads [package] keys, following workspace inheritance. The
// first error sticks and later reads return zero values.
type fieldReader struct {
	raw map[string]any
	ws  *workspaceRef
	err error
}

func (f *fieldReader) value(key string) any {
	if f.err != nil {
		return nil
	}
	v, ok := f.raw[key]
	if !ok {
		return nil
	}
	if t, ok := v.(map[string]any); ok {
		if inherit, _ := t["workspace"].(bool); inherit {
			_, ws, err := f.ws.get()
			if err != nil {
				f.err = err
				return nil
			}
			return ws.Package[key]
		}
	}
	return v
}

func (f *fieldReader) str(key string) string {
	switch v := f.value(key).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		if f.err == nil {
			f.err = fmt.Errorf("package.%s: expected string, got %T", key, v)
		}
		return ""
	}
}

func (f *fieldReader) strs(key string) []string {
	switch v := f.value(key).(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				if f.err == nil {
					f.err = fmt.Errorf("package.%s: expected array of strings", key)
				}
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		if f.err == nil {
			f.err = fmt.Errorf("package.%s: expected array, got %T", key, v)
		}
		return nil
	}
}

// readme applies Cargo's defaults: readme = true means README.md, an absent
// key picks the first README file present.
func (f *fieldReader) readme(dir string) string {
	switch v := f.value("readme").(type) {
	case string:
		return v
	case bool:
		if v {
			return "README.md"
		}
		return ""
	}
	for _, name := range []string{"README.md", "README.txt", "README"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return name
		}
	}
	return ""
}

type depKey struct {
	kind   deps.Kind
	target string
	name   string
}

// orderedDepKeys lists dependency keys in document order, grouped by kind.
func orderedDepKeys(cf *cargoFile, md toml.MetaData) []depKey {
	seen := make(map[depKey]bool)
	var keys []depKey
	add := func(k depKey) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for _, k := range md.Keys() {
		switch {
		case len(k) == 2:
			if kind, ok := sectionKinds[k[0]]; ok {
				add(depKey{kind: kind, name: k[1]})
			}
		case len(k) == 4 && k[0] == "target":
			if kind, ok := sectionKinds[k[2]]; ok {
				add(depKey{kind: kind, target: k[1], name: k[3]})
			}
		}
	}

	// Anything the metadata did not list (dotted keys) goes last, sorted.
	var rest []depKey
	collect := func(m map[string]any, kind deps.Kind, target string) {
		for name := range m {
			if k := (depKey{kind, target, name}); !seen[k] {
				rest = append(rest, k)
			}
		}
	}
	collect(cf.Dependencies, deps.KindNormal, "")
	collect(cf.BuildDependencies, deps.KindBuild, "")
	collect(cf.DevDependencies, deps.KindDev, "")
	for target, pt := range cf.Target {
		collect(pt.Dependencies, deps.KindNormal, target)
		collect(pt.BuildDependencies, deps.KindBuild, target)
		collect(pt.DevDependencies, deps.KindDev, target)
	}
	sort.Slice(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.target != b.target {
			return a.target < b.target
		}
		return a.name < b.name
	})
	for _, k := range rest {
		add(k)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return kindRank[keys[i].kind] < kindRank[keys[j].kind]
	})
	return keys
}

func (cf *cargoFile) depTable(k depKey) map[string]any {
	if k.target == "" {
		switch k.kind {
		case deps.KindBuild:
			return cf.BuildDependencies
		case deps.KindDev:
			return cf.DevDependencies
		default:
			return cf.Dependencies
		}
	}
	pt := cf.Target[k.target]
	switch k.kind {
	case deps.KindBuild:
		return pt.BuildDependencies
	case deps.KindDev:
		return pt.DevDependencies
	default:
		return pt.Dependencies
	}
}

func loadDependencies(cf *cargoFile, md toml.MetaData, ws *workspaceRef) ([]deps.Dependency, error) {
	var out []deps.Dependency
	for _, k := range orderedDepKeys(cf, md) {
		v, ok := cf.depTable(k)[k.name]
		if !ok {
			continue
		}
		d, err := parseDependency(k, v, ws)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func parseDependency(k depKey, v any, ws *workspaceRef) (deps.Dependency, error) {
	d := deps.Dependency{Name: k.name, Kind: k.kind, Target: k.target, DefaultFeatures: true}

	switch spec := v.(type) {
	case string:
		d.Req = spec
		return d, nil
	case map[string]any:
		if inherit, _ := spec["workspace"].(bool); inherit {
			wsDir, table, err := ws.get()
			if err != nil {
				return d, fmt.Errorf("dependency %s: %w", k.name, err)
			}
			base, ok := table.Dependencies[k.name]
			if !ok {
				return d, fmt.Errorf("dependency %s: not in [workspace.dependencies]", k.name)
			}
			if s, ok := base.(string); ok {
				d.Req = s
			} else if t, ok := base.(map[string]any); ok {
				applySpec(&d, t)
				if d.Path != "" && !filepath.IsAbs(d.Path) {
					if rel, err := filepath.Rel(ws.crateDir, filepath.Join(wsDir, d.Path)); err == nil {
						d.Path = rel
					}
				}
			}
			// The member may add features and mark the dependency optional.
			d.Features = append(d.Features, stringList(spec["features"])...)
			if opt, ok := spec["optional"].(bool); ok {
				d.Optional = opt
			}
			return d, nil
		}
		applySpec(&d, spec)
		return d, nil
	default:
		return d, fmt.Errorf("dependency %s: unsupported specification %T", k.name, v)
	}
}

func applySpec(d *deps.Dependency, t map[string]any) {
	str := func(key string) string {
		s, _ := t[key].(string)
		return s
	}
	d.Req = str("version")
	d.Package = str("package")
	d.Path = str("path")
	d.Git = str("git")
	d.Branch = str("branch")
	d.Tag = str("tag")
	d.Rev = str("rev")
	d.Registry = str("registry")
	if opt, ok := t["optional"].(bool); ok {
		d.Optional = opt
	}
	d.Features = stringList(t["features"])
	for _, key := range []string{"default-features", "default_features"} {
		if df, ok := t[key].(bool); ok {
			d.DefaultFeatures = df
		}
	}
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func loadBuild(cf *cargoFile, md toml.MetaData, f *fieldReader, dir, name string) deps.BuildConfig {
	var b deps.BuildConfig

	switch v := f.value("build").(type) {
	case string:
		b.Script = v
	case bool:
		if v {
			b.Script = "build.rs"
		}
	case nil:
		if _, err := os.Stat(filepath.Join(dir, "build.rs")); err == nil {
			b.Script = "build.rs"
		}
	}
	b.Links = f.str("links")

	for fname, enables := range cf.Features {
		if fname == "default" {
			b.DefaultFeatures = enables
			continue
		}
		b.Features = append(b.Features, deps.Feature{Name: fname, Enables: enables})
	}
	sort.Slice(b.Features, func(i, j int) bool { return b.Features[i].Name < b.Features[j].Name })

	for _, k := range md.Keys() {
		if len(k) >= 2 && k[0] == "target" && !slices.Contains(b.Platforms, k[1]) {
			b.Platforms = append(b.Platforms, k[1])
		}
	}
	for target := range cf.Target {
		if !slices.Contains(b.Platforms, target) {
			b.Platforms = append(b.Platforms, target)
		}
	}

	b.Targets = crateTargets(cf, dir, name)

	for pname, settings := range cf.Profile {
		p := deps.Profile{Name: pname}
		flattenSettings("", settings, &p.Settings)
		sort.Slice(p.Settings, func(i, j int) bool { return p.Settings[i].Key < p.Settings[j].Key })
		b.Profiles = append(b.Profiles, p)
	}
	sort.Slice(b.Profiles, func(i, j int) bool { return b.Profiles[i].Name < b.Profiles[j].Name })
	return b
}

func flattenSettings(prefix string, m map[string]any, out *[]deps.Setting) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenSettings(key, sub, out)
			continue
		}
		*out = append(*out, deps.Setting{Key: key, Value: fmt.Sprint(v)})
	}
}

// crateTargets merges declared targets with Cargo's auto-discovered ones.
func crateTargets(cf *cargoFile, dir, name string) []deps.CrateTarget {
	var out []deps.CrateTarget
	declared := make(map[string]bool)
	add := func(kind, tname, path string) {
		id := kind + ":" + tname
		if declared[id] {
			return
		}
		declared[id] = true
		out = append(out, deps.CrateTarget{Kind: kind, Name: tname, Path: filepath.ToSlash(path)})
	}
	libName := strings.ReplaceAll(name, "-", "_")

	if cf.Lib != nil {
		path := cf.Lib.Path
		if path == "" {
			path = "src/lib.rs"
		}
		tname := cf.Lib.Name
		if tname == "" {
			tname = libName
		}
		add("lib", tname, path)
	} else if exists(dir, "src/lib.rs") {
		add("lib", libName, "src/lib.rs")
	}

	for _, group := range []struct {
		kind     string
		declared []targetTable
		autoDir  string
	}{
		{"bin", cf.Bin, "src/bin"},
		{"example", cf.Example, "examples"},
		{"test", cf.Test, "tests"},
		{"bench", cf.Bench, "benches"},
	} {
		for _, t := range group.declared {
			path := t.Path
			if path == "" {
				path = group.autoDir + "/" + t.Name + ".rs"
			}
			add(group.kind, t.Name, path)
		}
		if group.kind == "bin" && exists(dir, "src/main.rs") {
			add("bin", name, "src/main.rs")
		}
		for _, auto := range discover(dir, group.autoDir) {
			add(group.kind, auto.name, auto.path)
		}
	}
	return out
}

type autoTarget struct{ name, path string }

// discover lists <sub>/*.rs and <sub>/*/main.rs in lexical order.
func discover(dir, sub string) []autoTarget {
	entries, err := os.ReadDir(filepath.Join(dir, sub))
	if err != nil {
		return nil
	}
	var out []autoTarget
	for _, e := range entries {
		switch {
		case !e.IsDir() && strings.HasSuffix(e.Name(), ".rs"):
			out = append(out, autoTarget{strings.TrimSuffix(e.Name(), ".rs"), sub + "/" + e.Name()})
		case e.IsDir() && exists(dir, sub+"/"+e.Name()+"/main.rs"):
			out = append(out, autoTarget{e.Name(), sub + "/" + e.Name() + "/main.rs"})
		}
	}
	return out
}

func exists(dir, rel string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	return err == nil
}
