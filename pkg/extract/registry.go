package extract

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/cargo2hf/pkg/schema"
)

func ecosystemRows(ctx context.Context, env *Env, t Target) ([]schema.Row, error) {
	info, err := env.Registry.FetchCrate(ctx, t.Name, env.Refresh)
	if err != nil {
		return nil, fmt.Errorf("fetch crate: %w", err)
	}
	rdeps, err := env.Registry.ReverseDependencies(ctx, t.Name, env.Refresh)
	if err != nil {
		return nil, fmt.Errorf("reverse dependencies: %w", err)
	}

	row := schema.EcosystemRow{
		TargetName:          t.Name,
		TargetVersion:       t.Version,
		Downloads:           info.Downloads,
		RecentDownloads:     info.RecentDownloads,
		ReverseDependencies: rdeps,
		NumVersions:         int32(len(info.Versions)),
		MaxVersion:          info.MaxVersion,
		Categories:          info.Categories,
		Keywords:            info.Keywords,
		CreatedAtMs:         info.CreatedAt.UnixMilli(),
		UpdatedAtMs:         info.UpdatedAt.UnixMilli(),
	}
	if v, ok := info.Version(t.Version); ok {
		row.VersionDownloads = v.Downloads
		row.Yanked = v.Yanked
	}
	return []schema.Row{row}, nil
}

// versionRows lists published versions oldest first. Versions published in
// the same millisecond are ordered by semver precedence.
func versionRows(ctx context.Context, env *Env, t Target) ([]schema.Row, error) {
	info, err := env.Registry.FetchCrate(ctx, t.Name, env.Refresh)
	if err != nil {
		return nil, fmt.Errorf("fetch crate: %w", err)
	}

	versions := append(info.Versions[:0:0], info.Versions...)
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		va, errA := semver.NewVersion(a.Num)
		vb, errB := semver.NewVersion(b.Num)
		if errA != nil || errB != nil {
			return a.Num < b.Num
		}
		return va.LessThan(vb)
	})

	rows := make([]schema.Row, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, schema.VersionRow{
			TargetName:    t.Name,
			Version:       v.Num,
			PublishedAtMs: v.CreatedAt.UnixMilli(),
			Yanked:        v.Yanked,
			Downloads:     v.Downloads,
			License:       v.License,
			CrateSize:     v.CrateSize,
			RustVersion:   v.RustVersion,
		})
	}
	return rows, nil
}
