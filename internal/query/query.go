// Package query composes catalog scans and joins into filtered, sorted,
// paginated listings. It never writes to the store; identical inputs over an
// unchanged store yield identical output.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/catalog"
	"github.com/stratabase/borecore/internal/model"
)

// Service answers listing queries over the object store.
type Service struct {
	store blob.Store
	cat   *catalog.Catalog
}

// New returns a Service over the given store.
func New(store blob.Store) *Service {
	return &Service{store: store, cat: catalog.New(store)}
}

// BorelogOptions narrows and pages a borelog listing. Zero values match
// everything; Limit 0 means no cap.
type BorelogOptions struct {
	ProjectID        string
	Status           model.WorkflowStatus // exact match
	StructureType    string               // case-insensitive substring
	SubstructureType string               // case-insensitive substring
	Number           string               // case-insensitive substring
	Bounds           *geom.Bounds         // lng/lat bounding box on coordinates
	Offset           int
	Limit            int
}

// Page carries one page of results plus the total match count before
// pagination.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// ListBorelogs resolves joined borelog rows and applies filters, the fixed
// sort (structure type, substructure type, newest first) and pagination.
func (s *Service) ListBorelogs(ctx context.Context, opts BorelogOptions) (*Page[model.BorelogRow], error) {
	rows, err := s.cat.ResolveBorelogs(ctx, opts.ProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "query: resolve borelogs")
	}

	matched := rows[:0:0]
	for _, row := range rows {
		if matchBorelog(row, opts) {
			matched = append(matched, row)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if sa, sb := deref(a.StructureType), deref(b.StructureType); sa != sb {
			return sa < sb
		}
		if sa, sb := deref(a.SubstructureType), deref(b.SubstructureType); sa != sb {
			return sa < sb
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	items, total := paginate(matched, opts.Offset, opts.Limit)
	return &Page[model.BorelogRow]{Items: items, Total: total}, nil
}

func matchBorelog(row model.BorelogRow, opts BorelogOptions) bool {
	if opts.Status != "" && row.WorkflowStatus != opts.Status {
		return false
	}
	if opts.ProjectID != "" && row.ProjectID != opts.ProjectID {
		return false
	}
	if !containsFold(deref(row.StructureType), opts.StructureType) {
		return false
	}
	if !containsFold(deref(row.SubstructureType), opts.SubstructureType) {
		return false
	}
	if !containsFold(row.Number, opts.Number) {
		return false
	}
	if opts.Bounds != nil {
		c := row.Coordinate
		if c == nil || !opts.Bounds.OverlapsPoint(geom.XY, geom.Coord{c.Lng, c.Lat}) {
			return false
		}
	}
	return true
}

// ReportOptions narrows and pages a lab report listing.
type ReportOptions struct {
	ProjectID string
	BorelogID string
	Status    model.ReportStatus
	Offset    int
	Limit     int
}

// ListLabReports lists report headers newest-first. Unreadable headers are
// skipped with a warning, matching scan semantics.
func (s *Service) ListLabReports(ctx context.Context, opts ReportOptions) (*Page[model.UnifiedLabReport], error) {
	prefix := blob.ProjectsPrefix
	if opts.ProjectID != "" {
		prefix = blob.BorelogPrefix(opts.ProjectID)
	}
	m := catalog.Match{Suffix: "/report.json", Contains: "/lab/reports/"}
	if opts.BorelogID != "" {
		m.Contains = "/borelogs/" + opts.BorelogID + "/lab/reports/"
	}

	var matched []model.UnifiedLabReport
	for _, key := range s.cat.Scan(ctx, prefix, m) {
		var report model.UnifiedLabReport
		if err := blob.GetJSON(ctx, s.store, key, &report); err != nil {
			zap.L().Warn("query: skipping unreadable report", zap.String("key", key), zap.Error(err))
			continue
		}
		if opts.Status != "" && report.Status != opts.Status {
			continue
		}
		matched = append(matched, report)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ReportID < matched[j].ReportID
	})

	items, total := paginate(matched, opts.Offset, opts.Limit)
	return &Page[model.UnifiedLabReport]{Items: items, Total: total}, nil
}

func paginate[T any](in []T, offset, limit int) ([]T, int) {
	total := len(in)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []T{}, total
	}
	out := in[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// containsFold reports whether s contains substr, ignoring case. An empty
// substr matches anything.
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
