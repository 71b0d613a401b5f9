package handlers

import (
	"fmt"

	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/utils"
	"github.com/twpayne/go-geos"
)

// Repair normalizes g into a valid polygonal geometry. It is best effort: a
// failing sub-step is skipped and the best geometry so far is returned, so
// callers that depend on validity must re-check it.
//
// Quantization onto gridSize only happens when applyPrecision is set and
// gridSize is positive. Boundary line-work must never be repaired with
// precision on.
func Repair(g *geos.Geom, gridSize float64, applyPrecision bool) *geos.Geom {
	if isEmpty(g) {
		return g
	}

	current := g
	if applyPrecision && gridSize > 0 {
		if quantized, err := quantize(current, gridSize); err != nil {
			logger.L().Debug("repair_quantize_skipped", "grid", gridSize, "err", err)
		} else {
			current = quantized
		}
	}

	if !valid(current) {
		if fixed, err := makeValid(current); err != nil {
			logger.L().Debug("repair_make_valid_failed", "err", err)
		} else {
			current = fixed
		}
	}

	if !valid(current) {
		if unioned, err := selfUnion(current); err != nil {
			logger.L().Debug("repair_self_union_failed", "err", err)
		} else {
			current = unioned
		}
	}

	polygonal, err := polygonalOnly(current)
	if err != nil {
		logger.L().Debug("repair_collapsed", "err", err)
		return emptyPolygon()
	}
	return polygonal
}

// valid reports false when the check itself fails so the repair steps run.
func valid(g *geos.Geom) bool {
	ok, err := checkValid(g)
	if err != nil {
		logger.L().Debug("repair_validity_check_failed", "err", err)
	}
	return ok
}

func quantize(g *geos.Geom, gridSize float64) (result *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("quantize: %v", r)
		}
	}()
	polygonal, err := polygonalOnly(g)
	if err != nil {
		return nil, err
	}
	return utils.QuantizeFullGeometry(polygonal, gridSize)
}

func makeValid(g *geos.Geom) (*geos.Geom, error) {
	return safe("make valid", func() *geos.Geom {
		return g.MakeValidWithParams(geos.MakeValidStructure, geos.MakeValidDiscardCollapsed)
	})
}

func selfUnion(g *geos.Geom) (*geos.Geom, error) {
	return safe("self union", func() *geos.Geom {
		return g.Buffer(0, 8)
	})
}

// polygonalOnly strips non-polygonal members from collections.
func polygonalOnly(g *geos.Geom) (*geos.Geom, error) {
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return g, nil
	}
	parts := Parts(g)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no polygonal parts in %v", g.TypeID())
	}
	return multiPolygonOf(parts), nil
}
