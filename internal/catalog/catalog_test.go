package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/model"
)

func seed(t *testing.T, s blob.Store, key string, doc any) {
	t.Helper()
	require.NoError(t, blob.PutJSON(context.Background(), s, key, doc))
}

// seedBorelog writes a full joinable hierarchy for one borelog.
func seedBorelog(t *testing.T, s blob.Store, projectID, borelogID string, createdAt time.Time) {
	t.Helper()
	seed(t, s, blob.ProjectKey(projectID), model.Project{ProjectID: projectID, Name: "Project " + projectID})
	seed(t, s, blob.StructureKey(projectID, "st-"+borelogID), model.Structure{
		StructureID: "st-" + borelogID, ProjectID: projectID, Type: "bridge",
	})
	seed(t, s, blob.SubstructureKey(projectID, "st-"+borelogID, "ss-"+borelogID), model.Substructure{
		SubstructureID: "ss-" + borelogID, StructureID: "st-" + borelogID, ProjectID: projectID, Type: "pier",
	})
	seed(t, s, blob.BorelogMetadataKey(projectID, borelogID), model.Borelog{
		ProjectID: projectID, BorelogID: borelogID, SubstructureID: "ss-" + borelogID,
		Number: "BH-" + borelogID, CreatedAt: createdAt,
	})
}

func TestScan_SuffixAndExcludeFilters(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()
	keys := []string{
		"projects/p1/borelogs/b1/metadata.json",
		"projects/p1/borelogs/b1/versions/v1/metadata.json",
		"projects/p1/borelogs/b1/parsed/v1/strata.json",
		"projects/p1/borelogs/b1/workflow.json",
		"projects/p1/borelogs/b2/metadata.json",
	}
	for _, k := range keys {
		require.NoError(t, s.Put(ctx, k, []byte("{}"), blob.ContentTypeJSON))
	}

	c := New(s)
	want := []string{
		"projects/p1/borelogs/b1/metadata.json",
		"projects/p1/borelogs/b2/metadata.json",
	}
	got := c.Scan(ctx, "projects/p1/", Match{Suffix: "/metadata.json", Exclude: []string{"/versions/"}})
	assert.Equal(t, want, got)
	assert.Equal(t, want, c.BorelogMetadataKeys(ctx, "p1"))
}

func TestScan_EmptyStoreReturnsEmptyNotError(t *testing.T) {
	c := New(blob.NewMemory())
	got := c.Scan(context.Background(), "projects/", Match{Suffix: ".json"})
	assert.Empty(t, got)
}

func TestScan_ListingFailureReturnsEmpty(t *testing.T) {
	s := blob.NewMemory()
	s.FailList = true
	c := New(s)
	got := c.Scan(context.Background(), "projects/", Match{})
	assert.Empty(t, got)
}

func TestResolveBorelogs_JoinsFullHierarchy(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seedBorelog(t, s, "p1", "b1", created)

	rows, err := New(s).ResolveBorelogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "b1", row.BorelogID)
	assert.Equal(t, "BH-b1", row.Number)
	require.NotNil(t, row.ProjectName)
	assert.Equal(t, "Project p1", *row.ProjectName)
	require.NotNil(t, row.SubstructureType)
	assert.Equal(t, "pier", *row.SubstructureType)
	require.NotNil(t, row.StructureType)
	assert.Equal(t, "bridge", *row.StructureType)
	assert.Equal(t, model.WorkflowDraft, row.WorkflowStatus)
	assert.Equal(t, 0, row.VersionCount)
}

func TestResolveBorelogs_DanglingReferencesAreNull(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()

	// Substructure exists but its parent structure does not.
	seed(t, s, blob.SubstructureKey("p1", "st-gone", "ss1"), model.Substructure{
		SubstructureID: "ss1", StructureID: "st-gone", ProjectID: "p1", Type: "abutment",
	})
	seed(t, s, blob.BorelogMetadataKey("p1", "b1"), model.Borelog{
		ProjectID: "p1", BorelogID: "b1", SubstructureID: "ss1", Number: "BH-01",
	})
	// Borelog whose substructure does not exist at all.
	seed(t, s, blob.BorelogMetadataKey("p1", "b2"), model.Borelog{
		ProjectID: "p1", BorelogID: "b2", SubstructureID: "ss-missing", Number: "BH-02",
	})

	rows, err := New(s).ResolveBorelogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	b1 := rows[0]
	require.NotNil(t, b1.SubstructureType)
	assert.Equal(t, "abutment", *b1.SubstructureType)
	assert.Nil(t, b1.StructureType, "dangling structure ref must join as null")
	assert.Nil(t, b1.ProjectName)

	b2 := rows[1]
	assert.Nil(t, b2.SubstructureType)
	assert.Nil(t, b2.StructureType)
}

func TestResolveBorelogs_UnparsableDocumentIsSkipped(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()
	seedBorelog(t, s, "p1", "b1", time.Now().UTC())
	require.NoError(t, s.Put(ctx, blob.BorelogMetadataKey("p1", "bad"), []byte("{broken"), blob.ContentTypeJSON))
	// A corrupt substructure document makes the reference dangle.
	require.NoError(t, s.Put(ctx, blob.SubstructureKey("p1", "st-b1", "ss-b1"), []byte("not json"), blob.ContentTypeJSON))

	rows, err := New(s).ResolveBorelogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1, "unparsable borelog metadata drops that row only")
	assert.Nil(t, rows[0].SubstructureType, "unparsable substructure joins as null")
}

func TestResolveBorelogs_WorkflowAndVersions(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()
	seedBorelog(t, s, "p1", "b1", time.Now().UTC())

	submitted := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	seed(t, s, blob.WorkflowKey("p1", "b1"), model.WorkflowRecord{
		ProjectID: "p1", BorelogID: "b1",
		Status: model.WorkflowSubmitted, VersionNo: 2,
		SubmittedBy: "eng-1", SubmittedAt: &submitted,
	})
	seed(t, s, blob.VersionMetadataKey("p1", "b1", 1), model.BorelogVersion{
		ProjectID: "p1", BorelogID: "b1", VersionNo: 1,
	})
	seed(t, s, blob.VersionMetadataKey("p1", "b1", 2), model.BorelogVersion{
		ProjectID: "p1", BorelogID: "b1", VersionNo: 2,
		Coordinate: &model.Coordinate{Lat: 17.4, Lng: 78.5},
	})

	rows, err := New(s).ResolveBorelogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, model.WorkflowSubmitted, row.WorkflowStatus)
	assert.Equal(t, 2, row.VersionNo)
	assert.Equal(t, 2, row.VersionCount)
	require.NotNil(t, row.Coordinate, "coordinate comes from the latest version")
	assert.InDelta(t, 17.4, row.Coordinate.Lat, 1e-9)
}

func TestResolveBorelogs_ReservedSegmentIDs(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()

	// Borelog ids that collide with key-schema segment names must resolve
	// like any other borelog.
	seed(t, s, blob.BorelogMetadataKey("p1", "versions"), model.Borelog{
		ProjectID: "p1", BorelogID: "versions", Number: "BH-V",
	})
	seed(t, s, blob.BorelogMetadataKey("p1", "parsed"), model.Borelog{
		ProjectID: "p1", BorelogID: "parsed", Number: "BH-P",
	})
	seed(t, s, blob.VersionMetadataKey("p1", "versions", 1), model.BorelogVersion{
		ProjectID: "p1", BorelogID: "versions", VersionNo: 1,
	})
	// A key at an unexpected depth is neither a borelog nor a version
	// document and must be ignored.
	require.NoError(t, s.Put(ctx, "projects/p1/borelogs/b1/versions/metadata.json", []byte("{}"), blob.ContentTypeJSON))

	rows, err := New(s).ResolveBorelogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "parsed", rows[0].BorelogID)
	assert.Equal(t, "versions", rows[1].BorelogID)
	assert.Equal(t, 1, rows[1].VersionCount)
}

func TestResolveBorelogs_ListingFailureYieldsNoRowsNoError(t *testing.T) {
	s := blob.NewMemory()
	s.FailList = true
	rows, err := New(s).ResolveBorelogs(context.Background(), "")
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestResolveBorelogs_AllProjects(t *testing.T) {
	s := blob.NewMemory()
	seedBorelog(t, s, "p1", "b1", time.Now().UTC())
	seedBorelog(t, s, "p2", "b9", time.Now().UTC())

	rows, err := New(s).ResolveBorelogs(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p1", rows[0].ProjectID)
	assert.Equal(t, "p2", rows[1].ProjectID)
}

func TestReportKeys(t *testing.T) {
	s := blob.NewMemory()
	ctx := context.Background()
	seed(t, s, blob.ReportKey("p1", "b1", "r1"), model.UnifiedLabReport{ReportID: "r1"})
	seed(t, s, blob.ReportVersionKey("p1", "b1", "r1", 1), model.ReportVersion{ReportID: "r1", VersionNo: 1})
	seed(t, s, blob.ReportKey("p1", "b2", "r2"), model.UnifiedLabReport{ReportID: "r2"})

	c := New(s)
	assert.Len(t, c.ReportKeys(ctx, "p1", "b1"), 1)
	assert.Len(t, c.ReportKeys(ctx, "p1", ""), 2)
}
