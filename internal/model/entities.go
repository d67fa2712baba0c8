// Package model defines the persisted document shapes and derived row types
// for the borelog registry. Every type here maps 1:1 onto a JSON document in
// the object store; there is no schema registry, so these structs are the
// contract.
package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Project is the root of the hierarchy. Other entities reference it by id.
type Project struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
}

// Structure is a physical structure within a project (bridge, abutment, ...).
type Structure struct {
	StructureID string `json:"structure_id"`
	ProjectID   string `json:"project_id"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Substructure belongs to a structure. The parent is referenced by id only;
// nothing enforces its existence at write time, so joins must treat a
// dangling structure_id as unknown.
type Substructure struct {
	SubstructureID string `json:"substructure_id"`
	StructureID    string `json:"structure_id"`
	ProjectID      string `json:"project_id"`
	Type           string `json:"type"`
	Description    string `json:"description,omitempty"`
}

// Coordinate is a WGS84 position recorded for a borelog version.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the coordinate to a go-geom XY point (lng, lat order).
func (c *Coordinate) Point() *geom.Point {
	if c == nil {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
}

// Borelog is the per-hole metadata document. Measurement data lives in
// numbered version documents, never here.
type Borelog struct {
	ProjectID      string    `json:"project_id"`
	BorelogID      string    `json:"borelog_id"`
	SubstructureID string    `json:"substructure_id,omitempty"`
	Number         string    `json:"number"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// BorelogVersion is an immutable numbered snapshot of field measurements.
type BorelogVersion struct {
	ProjectID        string      `json:"project_id"`
	BorelogID        string      `json:"borelog_id"`
	VersionNo        int         `json:"version_no"`
	TerminationDepth float64     `json:"termination_depth,omitempty"`
	WaterTableDepth  *float64    `json:"water_table_depth,omitempty"`
	SPTCounts        []int       `json:"spt_counts,omitempty"`
	CoreRecoveryPct  *float64    `json:"core_recovery_pct,omitempty"`
	RQDPct           *float64    `json:"rqd_pct,omitempty"`
	Coordinate       *Coordinate `json:"coordinate,omitempty"`
	Remarks          string      `json:"remarks,omitempty"`
	CreatedBy        string      `json:"created_by,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Sample is a specimen taken from a stratum layer.
type Sample struct {
	SampleID     string  `json:"sample_id"`
	Depth        float64 `json:"depth"`
	Type         string  `json:"type,omitempty"` // SPT | UDS | CR | ...
	TestRequired bool    `json:"test_required,omitempty"`
}

// Stratum is one layer in the parsed strata document.
type Stratum struct {
	LayerNo     int      `json:"layer_no"`
	Description string   `json:"description,omitempty"`
	DepthFrom   float64  `json:"depth_from"`
	DepthTo     float64  `json:"depth_to"`
	Samples     []Sample `json:"samples,omitempty"`
}

// Strata is the parsed/v{n}/strata.json document for one borelog version.
type Strata struct {
	ProjectID string    `json:"project_id"`
	BorelogID string    `json:"borelog_id"`
	VersionNo int       `json:"version_no"`
	Layers    []Stratum `json:"layers"`
}
