package model

import "time"

// WorkflowStatus is the approval state of a borelog.
type WorkflowStatus string

const (
	WorkflowDraft               WorkflowStatus = "DRAFT"
	WorkflowSubmitted           WorkflowStatus = "SUBMITTED"
	WorkflowApproved            WorkflowStatus = "APPROVED"
	WorkflowRejected            WorkflowStatus = "REJECTED"
	WorkflowReturnedForRevision WorkflowStatus = "RETURNED_FOR_REVISION"
)

// WorkflowRecord is the single approval-state document for a borelog. It is
// only ever overwritten, never deleted.
type WorkflowRecord struct {
	ProjectID   string         `json:"project_id"`
	BorelogID   string         `json:"borelog_id"`
	Status      WorkflowStatus `json:"status"`
	VersionNo   int            `json:"version_no"`
	SubmittedBy string         `json:"submitted_by,omitempty"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	ReviewedBy  string         `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty"`
	Comments    string         `json:"comments,omitempty"`
}

// ReviewAction is a reviewer decision on a submitted record.
type ReviewAction string

const (
	ActionApprove           ReviewAction = "approve"
	ActionReject            ReviewAction = "reject"
	ActionReturnForRevision ReviewAction = "return_for_revision"
)

// CommentType tags a review comment by the decision that produced it.
type CommentType string

const (
	CommentSubmission         CommentType = "submission_comment"
	CommentApproval           CommentType = "approval_comment"
	CommentRejectionReason    CommentType = "rejection_reason"
	CommentCorrectionRequired CommentType = "correction_required"
)

// ReviewComment is one entry in a per-(borelog, version) comment stream.
type ReviewComment struct {
	CommentID string      `json:"comment_id"`
	BorelogID string      `json:"borelog_id"`
	VersionNo int         `json:"version_no"`
	Type      CommentType `json:"type"`
	Text      string      `json:"text"`
	Author    string      `json:"author,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// CommentThread is the reviews/v{n}/comments.json document. Keeping one
// document per (borelog, version) means concurrent reviews of different
// versions never touch the same comment stream.
type CommentThread struct {
	BorelogID string          `json:"borelog_id"`
	VersionNo int             `json:"version_no"`
	Comments  []ReviewComment `json:"comments"`
}
