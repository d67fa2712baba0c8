// Package catalog reconstructs relational structure from the flat object
// store: it scans hierarchical key prefixes to discover documents of each
// kind and joins them in memory via embedded id fields. Scans are
// best-effort reads; individual fetch or parse failures are logged and
// skipped, never escalated.
package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/stratabase/borecore/internal/blob"
)

// Match filters scanned keys. All set conditions must hold.
type Match struct {
	// Suffix keeps only keys ending with the given string.
	Suffix string
	// Contains keeps only keys containing the given substring.
	Contains string
	// Exclude drops keys containing any of the given substrings.
	Exclude []string
	// Max caps the underlying listing (0 = store default).
	Max int
}

func (m Match) keep(key string) bool {
	if m.Suffix != "" && !strings.HasSuffix(key, m.Suffix) {
		return false
	}
	if m.Contains != "" && !strings.Contains(key, m.Contains) {
		return false
	}
	for _, ex := range m.Exclude {
		if strings.Contains(key, ex) {
			return false
		}
	}
	return true
}

// Catalog scans and resolves domain documents out of a blob store.
type Catalog struct {
	store blob.Store
	// fetchConcurrency bounds parallel document fetches during a join.
	fetchConcurrency int
}

// Option tunes a Catalog.
type Option func(*Catalog)

// WithFetchConcurrency overrides the parallel fetch bound.
func WithFetchConcurrency(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.fetchConcurrency = n
		}
	}
}

// New returns a Catalog over the given store.
func New(store blob.Store, opts ...Option) *Catalog {
	c := &Catalog{store: store, fetchConcurrency: 16}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scan lists keys under prefix and applies the match filters. On listing
// failure it logs a warning and returns an empty slice: scans are
// best-effort and callers must tolerate partial results.
func (c *Catalog) Scan(ctx context.Context, prefix string, m Match) []string {
	infos, err := c.store.List(ctx, prefix, m.Max)
	if err != nil {
		zap.L().Warn("catalog: listing failed, returning empty scan",
			zap.String("prefix", prefix),
			zap.Error(err),
		)
		return nil
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if m.keep(info.Key) {
			keys = append(keys, info.Key)
		}
	}
	return keys
}

// BorelogMetadataKeys returns the metadata.json keys of all borelogs under a
// project, excluding version and parsed documents that share the namespace.
// Classification defers to blob.ParseBorelogMetadataKey so it cannot drift
// from the resolver's.
func (c *Catalog) BorelogMetadataKeys(ctx context.Context, projectID string) []string {
	scanned := c.Scan(ctx, blob.BorelogPrefix(projectID), Match{Suffix: "/metadata.json"})
	keys := scanned[:0]
	for _, k := range scanned {
		if _, ok := blob.ParseBorelogMetadataKey(k); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// ProjectKeys returns all project.json keys.
func (c *Catalog) ProjectKeys(ctx context.Context) []string {
	return c.Scan(ctx, blob.ProjectsPrefix, Match{Suffix: "/project.json"})
}

// StructureKeys returns all structure.json keys under a project (or all
// projects when projectID is empty).
func (c *Catalog) StructureKeys(ctx context.Context, projectID string) []string {
	prefix := blob.ProjectsPrefix
	if projectID != "" {
		prefix = "projects/" + projectID + "/"
	}
	return c.Scan(ctx, prefix, Match{Suffix: "/structure.json"})
}

// SubstructureKeys returns all substructure.json keys under a project (or
// all projects when projectID is empty).
func (c *Catalog) SubstructureKeys(ctx context.Context, projectID string) []string {
	prefix := blob.ProjectsPrefix
	if projectID != "" {
		prefix = "projects/" + projectID + "/"
	}
	return c.Scan(ctx, prefix, Match{Suffix: "/substructure.json"})
}

// ReportKeys returns the report.json keys of all lab reports under a
// borelog, or under a whole project when borelogID is empty.
func (c *Catalog) ReportKeys(ctx context.Context, projectID, borelogID string) []string {
	prefix := blob.BorelogPrefix(projectID)
	if borelogID != "" {
		prefix = blob.ReportsPrefix(projectID, borelogID)
	}
	return c.Scan(ctx, prefix, Match{Suffix: "/report.json", Contains: "/lab/reports/"})
}
