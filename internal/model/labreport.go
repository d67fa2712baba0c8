package model

import "time"

// LabRequestSource says how a request came to exist: authored explicitly or
// inferred from parsed strata samples that still lack results.
type LabRequestSource string

const (
	SourceExplicit LabRequestSource = "explicit"
	SourceInferred LabRequestSource = "inferred"
)

// LabRequest asks a lab engineer to run tests on samples from a borelog.
type LabRequest struct {
	RequestID  string           `json:"request_id"`
	ProjectID  string           `json:"project_id"`
	BorelogID  string           `json:"borelog_id"`
	SampleIDs  []string         `json:"sample_ids"`
	AssignedTo string           `json:"assigned_to,omitempty"`
	Priority   string           `json:"priority,omitempty"` // low | normal | high
	DueDate    *time.Time       `json:"due_date,omitempty"`
	Source     LabRequestSource `json:"source"`
	CreatedAt  time.Time        `json:"created_at"`
}

// LabRequestDoc is the explicit lab/requests.json document.
type LabRequestDoc struct {
	BorelogID string       `json:"borelog_id"`
	Requests  []LabRequest `json:"requests"`
}

// LabResultEntry is one recorded test outcome for a sample.
type LabResultEntry struct {
	SampleID   string         `json:"sample_id"`
	TestType   string         `json:"test_type"`
	Values     map[string]any `json:"values,omitempty"`
	RecordedBy string         `json:"recorded_by,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// LabResultsDoc is the lab/results.json document. A present document with no
// entries means the samples were tested and nothing is pending; an absent
// document means testing has not happened yet. The two are distinct.
type LabResultsDoc struct {
	BorelogID string           `json:"borelog_id"`
	Entries   []LabResultEntry `json:"entries"`
}

// ReportStatus is the version-level state of a lab report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "draft"
	ReportSubmitted ReportStatus = "submitted"
	ReportApproved  ReportStatus = "approved"
	ReportRejected  ReportStatus = "rejected"
	ReportReturned  ReportStatus = "returned_for_revision"
)

// SoilTest holds soil lab test values for one sample.
type SoilTest struct {
	SampleID        string   `json:"sample_id"`
	MoistureContent *float64 `json:"moisture_content,omitempty"`
	LiquidLimit     *float64 `json:"liquid_limit,omitempty"`
	PlasticLimit    *float64 `json:"plastic_limit,omitempty"`
	Cohesion        *float64 `json:"cohesion,omitempty"`
	FrictionAngle   *float64 `json:"friction_angle,omitempty"`
}

// RockTest holds rock lab test values for one sample.
type RockTest struct {
	SampleID  string   `json:"sample_id"`
	UCS       *float64 `json:"ucs_mpa,omitempty"`
	PointLoad *float64 `json:"point_load_mpa,omitempty"`
	Density   *float64 `json:"density_gcc,omitempty"`
}

// UnifiedLabReport is the report.json header document. Status is a
// projection of the latest version and is rewritten whenever a new version
// is created or reviewed.
type UnifiedLabReport struct {
	ReportID     string       `json:"report_id"`
	AssignmentID string       `json:"assignment_id,omitempty"`
	ProjectID    string       `json:"project_id"`
	BorelogID    string       `json:"borelog_id"`
	Status       ReportStatus `json:"status"`
	TestTypes    []string     `json:"test_types,omitempty"`
	SoilTestData []SoilTest   `json:"soil_test_data,omitempty"`
	RockTestData []RockTest   `json:"rock_test_data,omitempty"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ReportVersion is one immutable entry in a report's append-only history.
type ReportVersion struct {
	ReportID        string       `json:"report_id"`
	VersionNo       int          `json:"version_no"`
	Status          ReportStatus `json:"status"`
	TestTypes       []string     `json:"test_types,omitempty"`
	SoilTestData    []SoilTest   `json:"soil_test_data,omitempty"`
	RockTestData    []RockTest   `json:"rock_test_data,omitempty"`
	CreatedBy       string       `json:"created_by,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	SubmittedAt     *time.Time   `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	RejectedAt      *time.Time   `json:"rejected_at,omitempty"`
	ReturnedAt      *time.Time   `json:"returned_at,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	ReviewComments  string       `json:"review_comments,omitempty"`
}

// ReportComment is one entry in a report's comment log.
type ReportComment struct {
	CommentID string      `json:"comment_id"`
	ReportID  string      `json:"report_id"`
	VersionNo int         `json:"version_no"`
	Type      CommentType `json:"type"`
	Text      string      `json:"text"`
	Author    string      `json:"author,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ReportCommentDoc is the per-report comments.json document.
type ReportCommentDoc struct {
	ReportID string          `json:"report_id"`
	Comments []ReportComment `json:"comments"`
}

// VersionWithComment pairs a version with the most recent submission comment
// authored for that exact (report, version), for history display.
type VersionWithComment struct {
	ReportVersion
	LatestComment *ReportComment `json:"latest_comment,omitempty"`
}

// FinalReport is the composite materialized on approval: the approved
// version plus derived metadata, written best-effort to final.json.
type FinalReport struct {
	Report       UnifiedLabReport `json:"report"`
	Version      ReportVersion    `json:"version"`
	ApprovedBy   string           `json:"approved_by"`
	ApprovedAt   time.Time        `json:"approved_at"`
	VersionCount int              `json:"version_count"`
	SampleCount  int              `json:"sample_count"`
}
