package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "projects/p1/project.json", ProjectKey("p1"))
	assert.Equal(t, "projects/p1/structures/s1/structure.json", StructureKey("p1", "s1"))
	assert.Equal(t,
		"projects/p1/structures/s1/substructures/ss1/substructure.json",
		SubstructureKey("p1", "s1", "ss1"))
	assert.Equal(t, "projects/p1/borelogs/b1/metadata.json", BorelogMetadataKey("p1", "b1"))
	assert.Equal(t, "projects/p1/borelogs/b1/workflow.json", WorkflowKey("p1", "b1"))
	assert.Equal(t, "projects/p1/borelogs/b1/versions/v3/metadata.json", VersionMetadataKey("p1", "b1", 3))
	assert.Equal(t, "projects/p1/borelogs/b1/parsed/v2/strata.json", StrataKey("p1", "b1", 2))
	assert.Equal(t, "projects/p1/borelogs/b1/reviews/v2/comments.json", ReviewCommentsKey("p1", "b1", 2))
	assert.Equal(t, "projects/p1/borelogs/b1/lab/requests.json", LabRequestsKey("p1", "b1"))
	assert.Equal(t, "projects/p1/borelogs/b1/lab/results.json", LabResultsKey("p1", "b1"))
	assert.Equal(t, "projects/p1/borelogs/b1/lab/reports/r1/report.json", ReportKey("p1", "b1", "r1"))
	assert.Equal(t, "projects/p1/borelogs/b1/lab/reports/r1/versions/v4.json", ReportVersionKey("p1", "b1", "r1", 4))
	assert.Equal(t, "projects/p1/borelogs/b1/lab/reports/r1/final.json", FinalReportKey("p1", "b1", "r1"))
}

func TestParseBorelogKey(t *testing.T) {
	parts, ok := ParseBorelogKey("projects/p1/borelogs/b1/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "p1", parts.ProjectID)
	assert.Equal(t, "b1", parts.BorelogID)

	parts, ok = ParseBorelogKey("projects/p1/borelogs/b1/versions/v2/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "b1", parts.BorelogID)

	_, ok = ParseBorelogKey("projects/p1/structures/s1/structure.json")
	assert.False(t, ok)

	_, ok = ParseBorelogKey("assignments/all.json")
	assert.False(t, ok)
}

func TestParseBorelogMetadataKey(t *testing.T) {
	parts, ok := ParseBorelogMetadataKey("projects/p1/borelogs/b1/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "p1", parts.ProjectID)
	assert.Equal(t, "b1", parts.BorelogID)

	// Deeper metadata documents in the same namespace never match.
	_, ok = ParseBorelogMetadataKey("projects/p1/borelogs/b1/versions/v2/metadata.json")
	assert.False(t, ok)

	// A borelog literally named "versions" is still plain metadata.
	parts, ok = ParseBorelogMetadataKey("projects/p1/borelogs/versions/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "versions", parts.BorelogID)

	_, ok = ParseBorelogMetadataKey("projects/p1/borelogs/b1/workflow.json")
	assert.False(t, ok)
}

func TestParseVersionMetadataKey(t *testing.T) {
	parts, ok := ParseVersionMetadataKey("projects/p1/borelogs/b1/versions/v2/metadata.json")
	require.True(t, ok)
	assert.Equal(t, "p1", parts.ProjectID)
	assert.Equal(t, "b1", parts.BorelogID)
	assert.Equal(t, 2, parts.VersionNo)

	_, ok = ParseVersionMetadataKey("projects/p1/borelogs/b1/metadata.json")
	assert.False(t, ok)

	_, ok = ParseVersionMetadataKey("projects/p1/borelogs/versions/metadata.json")
	assert.False(t, ok)

	_, ok = ParseVersionMetadataKey("projects/p1/borelogs/b1/versions/metadata.json")
	assert.False(t, ok)

	_, ok = ParseVersionMetadataKey("projects/p1/borelogs/b1/versions/v2/strata.json")
	assert.False(t, ok)
}

func TestParseStructureKey(t *testing.T) {
	parts, ok := ParseStructureKey("projects/p1/structures/s1/structure.json")
	require.True(t, ok)
	assert.Equal(t, "s1", parts.StructureID)
	assert.Empty(t, parts.SubstructureID)

	parts, ok = ParseStructureKey("projects/p1/structures/s1/substructures/ss1/substructure.json")
	require.True(t, ok)
	assert.Equal(t, "s1", parts.StructureID)
	assert.Equal(t, "ss1", parts.SubstructureID)
}

func TestParseVersionNo(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"v1", 1, true},
		{"v12", 12, true},
		{"v3.json", 3, true},
		{"v0", 0, false},
		{"version", 0, false},
		{"x9", 0, false},
		{"v", 0, false},
	}
	for _, tc := range cases {
		n, ok := ParseVersionNo(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, n, tc.in)
		}
	}
}

func TestParseReportVersionKey(t *testing.T) {
	parts, ok := ParseReportVersionKey("projects/p1/borelogs/b1/lab/reports/r1/versions/v7.json")
	require.True(t, ok)
	assert.Equal(t, "r1", parts.ReportID)
	assert.Equal(t, 7, parts.VersionNo)

	_, ok = ParseReportVersionKey("projects/p1/borelogs/b1/lab/reports/r1/report.json")
	assert.False(t, ok)
}
