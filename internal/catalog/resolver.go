package catalog

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/model"
)

// borelogUID identifies a borelog across projects in join maps.
func borelogUID(projectID, borelogID string) string {
	return projectID + "/" + borelogID
}

// versionStats is what the resolver learns about a borelog's versions from
// keys alone, without fetching every snapshot.
type versionStats struct {
	count  int
	latest int
}

// ResolveBorelogs joins every borelog under projectID (all projects when
// empty) against its substructure, structure, project and workflow
// documents. One listing feeds all entity kinds; document fetches for
// independent kinds run concurrently with bounded parallelism. Unreadable
// documents are skipped; dangling references produce nil type fields.
func (c *Catalog) ResolveBorelogs(ctx context.Context, projectID string) ([]model.BorelogRow, error) {
	prefix := blob.ProjectsPrefix
	if projectID != "" {
		prefix = "projects/" + projectID + "/"
	}
	infos, err := c.store.List(ctx, prefix, blob.HardListMax)
	if err != nil {
		zap.L().Warn("catalog: resolve listing failed, returning no rows",
			zap.String("prefix", prefix),
			zap.Error(err),
		)
		return nil, nil
	}

	var (
		projectKeys      []string
		structureKeys    []string
		substructureKeys []string
		borelogKeys      []string
		workflowKeys     []string
		versions         = map[string]versionStats{}
	)
	for _, info := range infos {
		key := info.Key
		switch {
		case strings.HasSuffix(key, "/project.json"):
			projectKeys = append(projectKeys, key)
		case strings.HasSuffix(key, "/substructure.json"):
			substructureKeys = append(substructureKeys, key)
		case strings.HasSuffix(key, "/structure.json"):
			structureKeys = append(structureKeys, key)
		case strings.HasSuffix(key, "/workflow.json"):
			workflowKeys = append(workflowKeys, key)
		case strings.HasSuffix(key, "/metadata.json"):
			if parts, ok := blob.ParseVersionMetadataKey(key); ok {
				recordVersion(parts, versions)
			} else if _, ok := blob.ParseBorelogMetadataKey(key); ok {
				borelogKeys = append(borelogKeys, key)
			}
		}
	}

	var (
		projects      []model.Project
		structures    []model.Structure
		substructures []model.Substructure
		borelogs      []model.Borelog
		workflows     []model.WorkflowRecord
		latestVers    []model.BorelogVersion
	)
	latestKeys := make([]string, 0, len(versions))
	for _, info := range infos {
		if parts, ok := blob.ParseVersionMetadataKey(info.Key); ok &&
			parts.VersionNo == versions[borelogUID(parts.ProjectID, parts.BorelogID)].latest {
			latestKeys = append(latestKeys, info.Key)
		}
	}

	// Independent entity kinds fetch in parallel; each fetch is already
	// bounded by fetchConcurrency.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { projects = fetchJSON[model.Project](gctx, c, projectKeys); return nil })
	g.Go(func() error { structures = fetchJSON[model.Structure](gctx, c, structureKeys); return nil })
	g.Go(func() error { substructures = fetchJSON[model.Substructure](gctx, c, substructureKeys); return nil })
	g.Go(func() error { borelogs = fetchJSON[model.Borelog](gctx, c, borelogKeys); return nil })
	g.Go(func() error { workflows = fetchJSON[model.WorkflowRecord](gctx, c, workflowKeys); return nil })
	g.Go(func() error { latestVers = fetchJSON[model.BorelogVersion](gctx, c, latestKeys); return nil })
	_ = g.Wait()

	// Hash indexes per entity kind: id -> document. Joins below are O(1)
	// lookups instead of repeated scans.
	projectByID := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		projectByID[p.ProjectID] = p
	}
	structureByID := make(map[string]model.Structure, len(structures))
	for _, s := range structures {
		structureByID[s.StructureID] = s
	}
	substructureByID := make(map[string]model.Substructure, len(substructures))
	for _, s := range substructures {
		substructureByID[s.SubstructureID] = s
	}
	workflowByUID := make(map[string]model.WorkflowRecord, len(workflows))
	for _, w := range workflows {
		workflowByUID[borelogUID(w.ProjectID, w.BorelogID)] = w
	}
	coordByUID := make(map[string]*model.Coordinate, len(latestVers))
	for _, v := range latestVers {
		if v.Coordinate != nil {
			coordByUID[borelogUID(v.ProjectID, v.BorelogID)] = v.Coordinate
		}
	}

	rows := make([]model.BorelogRow, 0, len(borelogs))
	for _, b := range borelogs {
		uid := borelogUID(b.ProjectID, b.BorelogID)
		row := model.BorelogRow{
			ProjectID:  b.ProjectID,
			BorelogID:  b.BorelogID,
			Number:     b.Number,
			CreatedBy:  b.CreatedBy,
			CreatedAt:  b.CreatedAt,
			Coordinate: coordByUID[uid],
		}
		if p, ok := projectByID[b.ProjectID]; ok {
			row.ProjectName = &p.Name
		}
		if b.SubstructureID != "" {
			if ss, ok := substructureByID[b.SubstructureID]; ok {
				row.SubstructureID = &ss.SubstructureID
				row.SubstructureType = &ss.Type
				if st, ok := structureByID[ss.StructureID]; ok {
					row.StructureID = &st.StructureID
					row.StructureType = &st.Type
				}
			}
		}
		stats := versions[uid]
		row.VersionCount = stats.count
		if w, ok := workflowByUID[uid]; ok {
			row.WorkflowStatus = w.Status
			row.VersionNo = w.VersionNo
		} else {
			row.WorkflowStatus = model.WorkflowDraft
			row.VersionNo = stats.latest
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProjectID != rows[j].ProjectID {
			return rows[i].ProjectID < rows[j].ProjectID
		}
		return rows[i].BorelogID < rows[j].BorelogID
	})
	return rows, nil
}

// recordVersion updates the per-borelog version stats from one parsed
// version-metadata key.
func recordVersion(parts blob.KeyParts, versions map[string]versionStats) {
	uid := borelogUID(parts.ProjectID, parts.BorelogID)
	stats := versions[uid]
	stats.count++
	if parts.VersionNo > stats.latest {
		stats.latest = parts.VersionNo
	}
	versions[uid] = stats
}

// fetchJSON fetches and decodes every key concurrently, skipping documents
// that cannot be read or parsed. Order of results is not significant.
func fetchJSON[T any](ctx context.Context, c *Catalog, keys []string) []T {
	slots := make([]*T, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			var v T
			if err := blob.GetJSON(gctx, c.store, key, &v); err != nil {
				zap.L().Warn("catalog: skipping unreadable document",
					zap.String("key", key),
					zap.Error(err),
				)
				return nil
			}
			slots[i] = &v
			return nil
		})
	}
	_ = g.Wait()

	out := make([]T, 0, len(keys))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
