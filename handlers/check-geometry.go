package handlers

import (
	"github.com/bsaid97/go-border-snapper/logger"
)

// ValidityError describes one feature that fails the validity check.
type ValidityError struct {
	Ref          int    `json:"ref"`
	ErrorMessage string `json:"errorMessage"`
	Repairable   bool   `json:"repairable"`
}

// CheckGeometry reports every feature of fc whose geometry is invalid or not
// polygonal. Repairable tells whether Repair recovers a non-empty polygon.
func CheckGeometry(fc FeatureCollection) []ValidityError {
	var problems []ValidityError

	logger.L().Info("check_geometry", "features", len(fc.Features))
	for i, feature := range fc.Features {
		shape := feature.Geom
		if isEmpty(shape) {
			problems = append(problems, ValidityError{Ref: i, ErrorMessage: "empty geometry"})
			continue
		}
		if len(Parts(shape)) == 0 {
			problems = append(problems, ValidityError{Ref: i, ErrorMessage: "not a polygon: " + shape.Type()})
			continue
		}

		ok, err := checkValid(shape)
		if err != nil {
			problems = append(problems, ValidityError{Ref: i, ErrorMessage: err.Error()})
			continue
		}
		if !ok {
			problems = append(problems, ValidityError{
				Ref:          i,
				ErrorMessage: shape.IsValidReason(),
				Repairable:   !isEmpty(Repair(shape, 0, false)),
			})
		}
	}
	return problems
}
