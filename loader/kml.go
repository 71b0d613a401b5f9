package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

// placemark accumulates the geometries of one KML Placemark.
type placemark struct {
	properties map[string]interface{}
	polygons   [][][]geom.Coord
	lines      [][]geom.Coord
	points     []geom.Coord
}

// loadKML flattens every Placemark of every Document and Folder. Altitudes are
// dropped.
func loadKML(data []byte) (handlers.FeatureCollection, error) {
	placemarks, err := parsePlacemarks(bytes.NewReader(data))
	if err != nil {
		return handlers.FeatureCollection{}, err
	}
	fc := handlers.FeatureCollection{CRS: handlers.WGS84}
	for i, p := range placemarks {
		fc.Features = append(fc.Features, p.features(i)...)
	}
	return fc, nil
}

// loadKMZ reads every .kml document in the archive into one collection.
func loadKMZ(data []byte) (handlers.FeatureCollection, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return handlers.FeatureCollection{}, fmt.Errorf("open kmz: %w", err)
	}
	fc := handlers.FeatureCollection{CRS: handlers.WGS84}
	documents := 0
	for _, file := range archive.File {
		if !strings.EqualFold(path.Ext(file.Name), ".kml") {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return fc, fmt.Errorf("open %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return fc, fmt.Errorf("read %s: %w", file.Name, err)
		}
		layer, err := loadKML(content)
		if err != nil {
			return fc, fmt.Errorf("%s: %w", file.Name, err)
		}
		documents++
		fc.Features = append(fc.Features, layer.Features...)
	}
	if documents == 0 {
		return fc, errors.New("kmz contains no .kml document")
	}
	return fc, nil
}

func parsePlacemarks(r io.Reader) ([]*placemark, error) {
	decoder := xml.NewDecoder(r)
	var (
		placemarks []*placemark
		current    *placemark
		stack      []string
		dataName   string
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse kml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case name == "Placemark":
				current = &placemark{properties: map[string]interface{}{}}
			case current == nil:
			case name == "Polygon":
				current.polygons = append(current.polygons, nil)
			case name == "Data":
				dataName = attr(t, "name")
			case name == "SimpleData":
				var value string
				if err := decoder.DecodeElement(&value, &t); err != nil {
					return nil, fmt.Errorf("parse kml: %w", err)
				}
				current.properties[attr(t, "name")] = strings.TrimSpace(value)
				continue
			case name == "value" && dataName != "":
				var value string
				if err := decoder.DecodeElement(&value, &t); err != nil {
					return nil, fmt.Errorf("parse kml: %w", err)
				}
				current.properties[dataName] = strings.TrimSpace(value)
				continue
			case (name == "name" || name == "description") && parent(stack) == "Placemark":
				var value string
				if err := decoder.DecodeElement(&value, &t); err != nil {
					return nil, fmt.Errorf("parse kml: %w", err)
				}
				current.properties[name] = strings.TrimSpace(value)
				continue
			case name == "coordinates":
				var text string
				if err := decoder.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("parse kml: %w", err)
				}
				coords, err := parseCoordinates(text)
				if err != nil {
					return nil, err
				}
				current.add(stack, coords)
				continue
			}
			stack = append(stack, name)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch t.Name.Local {
			case "Placemark":
				if current != nil {
					placemarks = append(placemarks, current)
				}
				current = nil
			case "Data":
				dataName = ""
			}
		}
	}
	return placemarks, nil
}

// add files coords under the geometry its enclosing elements describe.
func (p *placemark) add(stack []string, coords []geom.Coord) {
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case "LinearRing":
			if i > 0 && (stack[i-1] == "outerBoundaryIs" || stack[i-1] == "innerBoundaryIs") {
				continue
			}
			p.lines = append(p.lines, coords)
			return
		case "outerBoundaryIs", "innerBoundaryIs":
			if len(p.polygons) == 0 {
				p.polygons = append(p.polygons, nil)
			}
			last := len(p.polygons) - 1
			if stack[i] == "outerBoundaryIs" {
				p.polygons[last] = append([][]geom.Coord{coords}, p.polygons[last]...)
			} else {
				p.polygons[last] = append(p.polygons[last], coords)
			}
			return
		case "LineString":
			p.lines = append(p.lines, coords)
			return
		case "Point":
			if len(coords) > 0 {
				p.points = append(p.points, coords[0])
			}
			return
		}
	}
}

// features turns the placemark into one polygonal feature plus one feature per
// line or point.
func (p *placemark) features(index int) []handlers.GeomFeature {
	var out []handlers.GeomFeature
	emit := func(t geom.T, err error) {
		if err == nil {
			var g *geos.Geom
			if g, err = handlers.FromGeom(t); err == nil {
				out = append(out, handlers.GeomFeature{Geom: g, Properties: p.properties})
				return
			}
		}
		logger.L().Warn("kml_geometry_skipped", "placemark", index, "err", err)
	}

	polygons := make([][][]geom.Coord, 0, len(p.polygons))
	for _, rings := range p.polygons {
		if len(rings) > 0 && len(rings[0]) >= 4 {
			polygons = append(polygons, rings)
		}
	}
	switch len(polygons) {
	case 0:
	case 1:
		emit(geom.NewPolygon(geom.XY).SetCoords(polygons[0]))
	default:
		emit(geom.NewMultiPolygon(geom.XY).SetCoords(polygons))
	}
	for _, line := range p.lines {
		emit(geom.NewLineString(geom.XY).SetCoords(line))
	}
	for _, point := range p.points {
		emit(geom.NewPoint(geom.XY).SetCoords(point))
	}
	return out
}

// parseCoordinates reads whitespace separated "lon,lat[,alt]" tuples.
func parseCoordinates(text string) ([]geom.Coord, error) {
	fields := strings.Fields(text)
	coords := make([]geom.Coord, 0, len(fields))
	for _, tuple := range fields {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid kml coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kml longitude %q: %w", parts[0], err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kml latitude %q: %w", parts[1], err)
		}
		coords = append(coords, geom.Coord{lon, lat})
	}
	return coords, nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parent(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}
