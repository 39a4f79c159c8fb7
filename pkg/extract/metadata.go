package extract

import (
	"github.com/matzehuels/cargo2hf/pkg/deps"
	"github.com/matzehuels/cargo2hf/pkg/schema"
)

func metadataRows(t Target) []schema.Row {
	p := t.Project
	return []schema.Row{schema.MetadataRow{
		TargetName:      p.Name,
		TargetVersion:   p.Version,
		Source:          string(p.Source),
		Depth:           int32(t.Depth),
		IsRoot:          t.Root(),
		Authors:         p.Authors,
		License:         p.License,
		LicenseFile:     p.LicenseFile,
		Description:     p.Description,
		Keywords:        p.Keywords,
		Categories:      p.Categories,
		Edition:         p.Edition,
		RustVersion:     p.RustVersion,
		Repository:      p.Repository,
		Homepage:        p.Homepage,
		Documentation:   p.Documentation,
		Readme:          p.Readme,
		DependencyCount: int32(len(p.Dependencies)),
	}}
}

// dependencyRows emits one row per declared edge, resolved or not.
func dependencyRows(t Target, lock *deps.Lockfile) []schema.Row {
	p := t.Project
	rows := make([]schema.Row, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		locked, _ := lock.Pin(p.Name, p.Version, d.CrateName())
		rows = append(rows, schema.DependencyRow{
			SourceName:      p.Name,
			SourceVersion:   p.Version,
			DependencyName:  d.Name,
			Package:         d.CrateName(),
			VersionReq:      d.Req,
			Kind:            string(d.Kind),
			Optional:        d.Optional,
			Platform:        d.Target,
			Features:        d.Features,
			DefaultFeatures: d.DefaultFeatures,
			SourceKind:      d.SourceKind(),
			LockedVersion:   locked,
		})
	}
	return rows
}
