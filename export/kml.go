package export

import (
	"bytes"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-kml/v3"

	"github.com/bsaid97/go-border-snapper/handlers"
)

// KML writes one Placemark per polygon part. Only the outer ring of each part
// is written and every vertex gets a zero altitude.
func KML(fc handlers.FeatureCollection, name string) ([]byte, error) {
	if fc.CRS != "" && fc.CRS != handlers.WGS84 {
		return nil, fmt.Errorf("kml output must be %s, got %s", handlers.WGS84, fc.CRS)
	}
	if name == "" {
		name = "result"
	}

	placemarks := []kml.Element{kml.Name(name)}
	part := 0
	for i, feature := range fc.Features {
		for _, polygon := range handlers.Parts(feature.Geom) {
			t, err := handlers.ToGeom(polygon)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			p, ok := t.(*geom.Polygon)
			if !ok || p.NumLinearRings() == 0 {
				return nil, fmt.Errorf("feature %d: unsupported geometry %T", i, t)
			}
			part++
			placemarks = append(placemarks, kml.Placemark(
				kml.Name(fmt.Sprintf("%s %d", name, part)),
				kml.Polygon(kml.OuterBoundaryIs(kml.LinearRing(outerRingCoordinates(p)))),
			))
		}
	}

	var buf bytes.Buffer
	if err := kml.KML(kml.Document(placemarks...)).WriteIndent(&buf, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// outerRingCoordinates flattens the exterior ring into lon,lat,0 triples.
func outerRingCoordinates(p *geom.Polygon) kml.Element {
	ring := p.LinearRing(0)
	flat := make([]float64, 0, ring.NumCoords()*3)
	for i := range ring.NumCoords() {
		c := ring.Coord(i)
		flat = append(flat, c.X(), c.Y(), 0)
	}
	return kml.CoordinatesFlat(flat, 0, len(flat), 3, 3)
}
