package blob

import (
	"fmt"
	"strconv"
	"strings"
)

// Key schema. The hierarchical paths below substitute for tables and foreign
// keys; builders and parsers here are the only place the layout is known.
//
//	projects/{p}/project.json
//	projects/{p}/structures/{s}/structure.json
//	projects/{p}/structures/{s}/substructures/{ss}/substructure.json
//	projects/{p}/borelogs/{b}/metadata.json
//	projects/{p}/borelogs/{b}/workflow.json
//	projects/{p}/borelogs/{b}/versions/v{n}/metadata.json
//	projects/{p}/borelogs/{b}/parsed/v{n}/strata.json
//	projects/{p}/borelogs/{b}/reviews/v{n}/comments.json
//	projects/{p}/borelogs/{b}/lab/requests.json
//	projects/{p}/borelogs/{b}/lab/results.json
//	projects/{p}/borelogs/{b}/lab/reports/{r}/report.json
//	projects/{p}/borelogs/{b}/lab/reports/{r}/versions/v{n}.json
//	projects/{p}/borelogs/{b}/lab/reports/{r}/comments.json
//	projects/{p}/borelogs/{b}/lab/reports/{r}/final.json
//	assignments/all.json

const (
	ProjectsPrefix = "projects/"
	// AssignmentsKey is the single flat collection document for assignments.
	AssignmentsKey = "assignments/all.json"
)

func ProjectKey(projectID string) string {
	return fmt.Sprintf("projects/%s/project.json", projectID)
}

func StructureKey(projectID, structureID string) string {
	return fmt.Sprintf("projects/%s/structures/%s/structure.json", projectID, structureID)
}

func SubstructureKey(projectID, structureID, substructureID string) string {
	return fmt.Sprintf("projects/%s/structures/%s/substructures/%s/substructure.json",
		projectID, structureID, substructureID)
}

func BorelogPrefix(projectID string) string {
	return fmt.Sprintf("projects/%s/borelogs/", projectID)
}

func BorelogMetadataKey(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/metadata.json", projectID, borelogID)
}

func WorkflowKey(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/workflow.json", projectID, borelogID)
}

func VersionMetadataKey(projectID, borelogID string, versionNo int) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/versions/v%d/metadata.json", projectID, borelogID, versionNo)
}

func VersionsPrefix(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/versions/", projectID, borelogID)
}

func StrataKey(projectID, borelogID string, versionNo int) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/parsed/v%d/strata.json", projectID, borelogID, versionNo)
}

func ReviewCommentsKey(projectID, borelogID string, versionNo int) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/reviews/v%d/comments.json", projectID, borelogID, versionNo)
}

func LabRequestsKey(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/requests.json", projectID, borelogID)
}

func LabResultsKey(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/results.json", projectID, borelogID)
}

func ReportKey(projectID, borelogID, reportID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/%s/report.json", projectID, borelogID, reportID)
}

func ReportVersionKey(projectID, borelogID, reportID string, versionNo int) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/%s/versions/v%d.json",
		projectID, borelogID, reportID, versionNo)
}

func ReportVersionsPrefix(projectID, borelogID, reportID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/%s/versions/", projectID, borelogID, reportID)
}

func ReportCommentsKey(projectID, borelogID, reportID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/%s/comments.json", projectID, borelogID, reportID)
}

func FinalReportKey(projectID, borelogID, reportID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/%s/final.json", projectID, borelogID, reportID)
}

func ReportsPrefix(projectID, borelogID string) string {
	return fmt.Sprintf("projects/%s/borelogs/%s/lab/reports/", projectID, borelogID)
}

// KeyParts holds ids recovered from a document key.
type KeyParts struct {
	ProjectID      string
	StructureID    string
	SubstructureID string
	BorelogID      string
	ReportID       string
	VersionNo      int
}

// ParseBorelogKey extracts (projectID, borelogID) from any key under a
// borelog. Returns false when the key is not borelog-shaped.
func ParseBorelogKey(key string) (KeyParts, bool) {
	seg := strings.Split(key, "/")
	if len(seg) < 4 || seg[0] != "projects" || seg[2] != "borelogs" {
		return KeyParts{}, false
	}
	return KeyParts{ProjectID: seg[1], BorelogID: seg[3]}, true
}

// ParseBorelogMetadataKey matches exactly
// projects/{p}/borelogs/{b}/metadata.json. Version and parsed documents
// share the /metadata.json suffix but sit deeper, so anything longer is
// rejected regardless of the ids involved.
func ParseBorelogMetadataKey(key string) (KeyParts, bool) {
	seg := strings.Split(key, "/")
	if len(seg) != 5 || seg[0] != "projects" || seg[2] != "borelogs" || seg[4] != "metadata.json" {
		return KeyParts{}, false
	}
	return KeyParts{ProjectID: seg[1], BorelogID: seg[3]}, true
}

// ParseVersionMetadataKey matches exactly
// projects/{p}/borelogs/{b}/versions/v{n}/metadata.json.
func ParseVersionMetadataKey(key string) (KeyParts, bool) {
	seg := strings.Split(key, "/")
	if len(seg) != 7 || seg[0] != "projects" || seg[2] != "borelogs" ||
		seg[4] != "versions" || seg[6] != "metadata.json" {
		return KeyParts{}, false
	}
	n, ok := ParseVersionNo(seg[5])
	if !ok {
		return KeyParts{}, false
	}
	return KeyParts{ProjectID: seg[1], BorelogID: seg[3], VersionNo: n}, true
}

// ParseStructureKey extracts ids from structure and substructure keys.
func ParseStructureKey(key string) (KeyParts, bool) {
	seg := strings.Split(key, "/")
	if len(seg) < 4 || seg[0] != "projects" || seg[2] != "structures" {
		return KeyParts{}, false
	}
	p := KeyParts{ProjectID: seg[1], StructureID: seg[3]}
	if len(seg) >= 6 && seg[4] == "substructures" {
		p.SubstructureID = seg[5]
	}
	return p, true
}

// ParseVersionNo extracts n from a path segment of the form "v{n}" or a
// version file name "v{n}.json".
func ParseVersionNo(segment string) (int, bool) {
	s := strings.TrimSuffix(segment, ".json")
	if !strings.HasPrefix(s, "v") {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ParseReportVersionKey extracts the report id and version number from a
// lab report version key.
func ParseReportVersionKey(key string) (KeyParts, bool) {
	seg := strings.Split(key, "/")
	// projects/p/borelogs/b/lab/reports/r/versions/vN.json
	if len(seg) != 9 || seg[0] != "projects" || seg[2] != "borelogs" ||
		seg[4] != "lab" || seg[5] != "reports" || seg[7] != "versions" {
		return KeyParts{}, false
	}
	n, ok := ParseVersionNo(seg[8])
	if !ok {
		return KeyParts{}, false
	}
	return KeyParts{ProjectID: seg[1], BorelogID: seg[3], ReportID: seg[6], VersionNo: n}, true
}
