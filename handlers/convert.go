package handlers

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// ToGeom converts a GEOS geometry to its go-geom representation.
func ToGeom(g *geos.Geom) (geom.T, error) {
	if g == nil {
		return nil, ErrEmptyInput
	}
	t, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return t, nil
}

// FromGeom converts a go-geom geometry to GEOS.
func FromGeom(t geom.T) (*geos.Geom, error) {
	if t == nil {
		return nil, ErrEmptyInput
	}
	data, err := wkb.Marshal(t, wkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return geos.NewGeomFromWKB(data)
}
