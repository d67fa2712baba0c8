package model

import "time"

// AssignmentStatus is the lifecycle state of an engineer assignment.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentInactive  AssignmentStatus = "inactive"
	AssignmentCompleted AssignmentStatus = "completed"
)

// TargetKind says what kind of entity an assignment points at.
type TargetKind string

const (
	TargetBorelog      TargetKind = "borelog"
	TargetStructure    TargetKind = "structure"
	TargetSubstructure TargetKind = "substructure"
	TargetLabReport    TargetKind = "lab_report"
)

// Assignment maps an engineer to a unit of work. Invariant: for a given
// (TargetID, AssignedTo) pair at most one assignment is active at any time.
type Assignment struct {
	AssignmentID           string           `json:"assignment_id"`
	TargetID               string           `json:"target_id"`
	TargetKind             TargetKind       `json:"target_kind"`
	AssignedTo             string           `json:"assigned_to"`
	AssignedBy             string           `json:"assigned_by,omitempty"`
	AssignedAt             time.Time        `json:"assigned_at"`
	Status                 AssignmentStatus `json:"status"`
	Notes                  string           `json:"notes,omitempty"`
	ExpectedCompletionDate *time.Time       `json:"expected_completion_date,omitempty"`
	CompletedAt            *time.Time       `json:"completed_at,omitempty"`
}

// AssignmentCollection is the single flat assignments/all.json document.
type AssignmentCollection struct {
	Assignments []Assignment `json:"assignments"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Role is a user's function in the approval lifecycle.
type Role string

const (
	RoleSiteEngineer     Role = "site_engineer"
	RoleLabEngineer      Role = "lab_engineer"
	RoleApprovalEngineer Role = "approval_engineer"
	RoleAdmin            Role = "admin"
)

// User is a directory entry. Users live in the relational directory, not in
// the object store.
type User struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
