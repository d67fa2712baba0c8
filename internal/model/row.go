package model

import "time"

// BorelogRow is the denormalized result of joining a borelog against its
// substructure, structure and project documents. Pointer fields are nil when
// the referenced document is absent or unparsable (dangling reference).
type BorelogRow struct {
	ProjectID        string         `json:"project_id"`
	ProjectName      *string        `json:"project_name"`
	BorelogID        string         `json:"borelog_id"`
	Number           string         `json:"number"`
	SubstructureID   *string        `json:"substructure_id"`
	SubstructureType *string        `json:"substructure_type"`
	StructureID      *string        `json:"structure_id"`
	StructureType    *string        `json:"structure_type"`
	WorkflowStatus   WorkflowStatus `json:"workflow_status"`
	VersionNo        int            `json:"version_no"`
	VersionCount     int            `json:"version_count"`
	Coordinate       *Coordinate    `json:"coordinate,omitempty"`
	CreatedBy        string         `json:"created_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
