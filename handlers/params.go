package handlers

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// ContiguityPolicy decides what happens to the parts of a result.
type ContiguityPolicy string

const (
	// AllParts keeps every part and may reattach islands within the island radius.
	AllParts ContiguityPolicy = "all_parts"
	// LargestPart keeps only the largest part and never reattaches islands.
	LargestPart ContiguityPolicy = "largest_part"
)

// SnapParameters are the tunables of one reconciliation run. Every distance is
// in meters. A zero island radius, simplification or precision grid disables
// that step.
type SnapParameters struct {
	ToleranceM     float64          `json:"tolerance_m" yaml:"tolerance_m" default:"250" validate:"gte=0"`
	// IslandRadiusM reattaches boundary pieces that do not touch the result
	// and intersect a disk of this radius around the subject centroid.
	IslandRadiusM  float64          `json:"island_radius_m" yaml:"island_radius_m" validate:"gte=0"`
	SimplifyM      float64          `json:"simplify_m" yaml:"simplify_m" validate:"gte=0"`
	PrecisionGridM float64          `json:"precision_grid_m" yaml:"precision_grid_m" validate:"gte=0"`
	SearchRadiusM  float64          `json:"search_radius_m" yaml:"search_radius_m" default:"1000" validate:"gte=0"`
	Contiguity     ContiguityPolicy `json:"contiguity" yaml:"contiguity" default:"all_parts" validate:"oneof=all_parts largest_part"`
}

var validate = validator.New()

// DefaultSnapParameters returns the parameters used when a caller sets nothing.
func DefaultSnapParameters() SnapParameters {
	var p SnapParameters
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("snap parameter defaults: %v", err))
	}
	return p
}

// Validate rejects negative distances and unknown policies.
func (p SnapParameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid snap parameters: %w", err)
	}
	return nil
}
