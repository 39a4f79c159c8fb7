package extract

import (
	"strings"

	"github.com/matzehuels/cargo2hf/pkg/schema"
)

// buildRows flattens the build configuration into (category, name, value)
// rows: script and links first, then features, platforms, crate targets,
// profiles and the toolchain requirements.
func buildRows(t Target) []schema.Row {
	p := t.Project
	b := p.Build
	var rows []schema.Row
	add := func(category, name, value string) {
		rows = append(rows, schema.BuildRow{
			TargetName:    p.Name,
			TargetVersion: p.Version,
			Category:      category,
			Name:          name,
			Value:         value,
		})
	}

	if b.Script != "" {
		add(schema.BuildScript, b.Script, "true")
	}
	if b.Links != "" {
		add(schema.BuildLinks, b.Links, "")
	}
	for _, f := range b.Features {
		add(schema.BuildFeature, f.Name, strings.Join(f.Enables, ","))
	}
	if len(b.DefaultFeatures) > 0 {
		add(schema.BuildDefaultFeatures, "default", strings.Join(b.DefaultFeatures, ","))
	}
	for _, platform := range b.Platforms {
		var names []string
		for _, d := range p.Dependencies {
			if d.Target == platform {
				names = append(names, d.Name)
			}
		}
		add(schema.BuildPlatform, platform, strings.Join(names, ","))
	}
	for _, ct := range b.Targets {
		add(ct.Kind, ct.Name, ct.Path)
	}
	for _, prof := range b.Profiles {
		for _, s := range prof.Settings {
			add(schema.BuildProfile, prof.Name+"."+s.Key, s.Value)
		}
	}
	if p.Edition != "" {
		add(schema.BuildEdition, "edition", p.Edition)
	}
	if p.RustVersion != "" {
		add(schema.BuildRustVersion, "rust-version", p.RustVersion)
	}
	return rows
}
