package schema

import (
	"fmt"

	errs "github.com/matzehuels/cargo2hf/pkg/errors"
)

// Row is one schema-conformant record. The interface is sealed; only the
// row types in this package implement it.
type Row interface {
	// Phase returns the phase whose table the row belongs to.
	Phase() Phase
	validate() error
}

// MetadataRow holds manifest-declared facts about one target.
type MetadataRow struct {
	TargetName      string   `parquet:"target_name"`
	TargetVersion   string   `parquet:"target_version"`
	Source          string   `parquet:"source"`
	Depth           int32    `parquet:"depth"`
	IsRoot          bool     `parquet:"is_root"`
	Authors         []string `parquet:"authors"`
	License         string   `parquet:"license"`
	LicenseFile     string   `parquet:"license_file"`
	Description     string   `parquet:"description"`
	Keywords        []string `parquet:"keywords"`
	Categories      []string `parquet:"categories"`
	Edition         string   `parquet:"edition"`
	RustVersion     string   `parquet:"rust_version"`
	Repository      string   `parquet:"repository"`
	Homepage        string   `parquet:"homepage"`
	Documentation   string   `parquet:"documentation"`
	Readme          string   `parquet:"readme"`
	DependencyCount int32    `parquet:"dependency_count"`
}

func (MetadataRow) Phase() Phase { return ProjectMetadata }

func (r MetadataRow) validate() error {
	if r.TargetName == "" {
		return fmt.Errorf("target_name is empty")
	}
	if r.Depth < 0 {
		return fmt.Errorf("depth %d is negative", r.Depth)
	}
	if r.IsRoot != (r.Depth == 0) {
		return fmt.Errorf("is_root=%t inconsistent with depth %d", r.IsRoot, r.Depth)
	}
	return nil
}

// DependencyRow is one declared dependency edge.
type DependencyRow struct {
	SourceName      string   `parquet:"source_name"`
	SourceVersion   string   `parquet:"source_version"`
	DependencyName  string   `parquet:"dependency_name"`
	Package         string   `parquet:"package"`
	VersionReq      string   `parquet:"version_req"`
	Kind            string   `parquet:"kind"`
	Optional        bool     `parquet:"optional"`
	Platform        string   `parquet:"platform"`
	Features        []string `parquet:"features"`
	DefaultFeatures bool     `parquet:"default_features"`
	SourceKind      string   `parquet:"source_kind"`
	LockedVersion   string   `parquet:"locked_version"`
}

func (DependencyRow) Phase() Phase { return DependencyAnalysis }

func (r DependencyRow) validate() error {
	if r.SourceName == "" || r.DependencyName == "" {
		return fmt.Errorf("source_name and dependency_name are required")
	}
	switch r.Kind {
	case "normal", "dev", "build":
	default:
		return fmt.Errorf("kind %q is not normal, dev or build", r.Kind)
	}
	return nil
}

// SourceFileRow describes one file of a target's source tree.
type SourceFileRow struct {
	TargetName    string `parquet:"target_name"`
	TargetVersion string `parquet:"target_version"`
	Path          string `parquet:"path"`
	SizeBytes     int64  `parquet:"size_bytes"`
	Language      string `parquet:"language"`
	TotalLines    int64  `parquet:"total_lines"`
	CodeLines     int64  `parquet:"code_lines"`
	CommentLines  int64  `parquet:"comment_lines"`
	BlankLines    int64  `parquet:"blank_lines"`
	Functions     int32  `parquet:"functions"`
	Structs       int32  `parquet:"structs"`
	Enums         int32  `parquet:"enums"`
	Traits        int32  `parquet:"traits"`
	Impls         int32  `parquet:"impls"`
	ContentHash   string `parquet:"content_hash"`
}

func (SourceFileRow) Phase() Phase { return SourceCodeAnalysis }

func (r SourceFileRow) validate() error {
	if r.TargetName == "" {
		return fmt.Errorf("target_name is empty")
	}
	if err := errs.ValidatePath(r.Path); err != nil {
		return err
	}
	if r.SizeBytes < 0 {
		return fmt.Errorf("size_bytes %d is negative", r.SizeBytes)
	}
	if r.CodeLines+r.CommentLines+r.BlankLines != r.TotalLines {
		return fmt.Errorf("%s: line counts do not add up to %d", r.Path, r.TotalLines)
	}
	return nil
}

// Build categories.
const (
	BuildScript          = "build_script"
	BuildLinks           = "links"
	BuildFeature         = "feature"
	BuildDefaultFeatures = "default_features"
	BuildPlatform        = "platform"
	BuildLib             = "lib"
	BuildBin             = "bin"
	BuildExample         = "example"
	BuildTest            = "test"
	BuildBench           = "bench"
	BuildProfile         = "profile"
	BuildEdition         = "edition"
	BuildRustVersion     = "rust_version"
)

var buildCategories = map[string]bool{
	BuildScript: true, BuildLinks: true, BuildFeature: true, BuildDefaultFeatures: true,
	BuildPlatform: true, BuildLib: true, BuildBin: true, BuildExample: true, BuildTest: true,
	BuildBench: true, BuildProfile: true, BuildEdition: true, BuildRustVersion: true,
}

// BuildRow is one build-relevant artifact or setting.
type BuildRow struct {
	TargetName    string `parquet:"target_name"`
	TargetVersion string `parquet:"target_version"`
	Category      string `parquet:"category"`
	Name          string `parquet:"name"`
	Value         string `parquet:"value"`
}

func (BuildRow) Phase() Phase { return BuildExtraction }

func (r BuildRow) validate() error {
	if r.TargetName == "" {
		return fmt.Errorf("target_name is empty")
	}
	if !buildCategories[r.Category] {
		return fmt.Errorf("unknown build category %q", r.Category)
	}
	return nil
}

// EcosystemRow holds registry-wide facts about one target.
type EcosystemRow struct {
	TargetName          string   `parquet:"target_name"`
	TargetVersion       string   `parquet:"target_version"`
	Downloads           int64    `parquet:"downloads"`
	RecentDownloads     int64    `parquet:"recent_downloads"`
	VersionDownloads    int64    `parquet:"version_downloads"`
	ReverseDependencies int64    `parquet:"reverse_dependencies"`
	NumVersions         int32    `parquet:"num_versions"`
	MaxVersion          string   `parquet:"max_version"`
	Categories          []string `parquet:"categories"`
	Keywords            []string `parquet:"keywords"`
	CreatedAtMs         int64    `parquet:"created_at_ms"`
	UpdatedAtMs         int64    `parquet:"updated_at_ms"`
	Yanked              bool     `parquet:"yanked"`
}

func (EcosystemRow) Phase() Phase { return EcosystemAnalysis }

func (r EcosystemRow) validate() error {
	if r.TargetName == "" {
		return fmt.Errorf("target_name is empty")
	}
	if r.Downloads < 0 || r.ReverseDependencies < 0 {
		return fmt.Errorf("negative counters")
	}
	return nil
}

// VersionRow is one published version of a target.
type VersionRow struct {
	TargetName    string `parquet:"target_name"`
	Version       string `parquet:"version"`
	PublishedAtMs int64  `parquet:"published_at_ms"`
	Yanked        bool   `parquet:"yanked"`
	Downloads     int64  `parquet:"downloads"`
	License       string `parquet:"license"`
	CrateSize     int64  `parquet:"crate_size"`
	RustVersion   string `parquet:"rust_version"`
}

func (VersionRow) Phase() Phase { return VersionHistory }

func (r VersionRow) validate() error {
	if r.TargetName == "" || r.Version == "" {
		return fmt.Errorf("target_name and version are required")
	}
	return nil
}
