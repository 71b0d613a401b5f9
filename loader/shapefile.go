package loader

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

// loadShapefileZip reads every .shp layer of a zip archive. DBF attributes
// become properties; numeric looking values are parsed as numbers. Each layer
// takes its CRS from the .prj beside it.
func loadShapefileZip(data []byte) (handlers.FeatureCollection, error) {
	// go-shp reads archives from disk only.
	tmp, err := os.CreateTemp("", "upload_*.zip")
	if err != nil {
		return handlers.FeatureCollection{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return handlers.FeatureCollection{}, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return handlers.FeatureCollection{}, err
	}

	layers, err := shp.ShapesInZip(tmp.Name())
	if err != nil {
		return handlers.FeatureCollection{}, fmt.Errorf("open shapefile archive: %w", err)
	}
	if len(layers) == 0 {
		return handlers.FeatureCollection{}, errors.New("archive does not contain a .shp file")
	}

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return handlers.FeatureCollection{}, fmt.Errorf("open shapefile archive: %w", err)
	}

	collections := make([]handlers.FeatureCollection, 0, len(layers))
	for _, layer := range layers {
		crs, err := layerCRS(archive, layer)
		if err != nil {
			return handlers.FeatureCollection{}, fmt.Errorf("%s: %w", layer, err)
		}
		features, err := readLayer(tmp.Name(), layer)
		if err != nil {
			return handlers.FeatureCollection{}, fmt.Errorf("%s: %w", layer, err)
		}
		collections = append(collections, handlers.FeatureCollection{CRS: crs, Features: features})
	}
	return mergeLayers(collections), nil
}

// layerCRS reads the .prj next to layer. A layer without one is WGS84.
func layerCRS(archive *zip.Reader, layer string) (handlers.CRS, error) {
	prj := strings.TrimSuffix(layer, path.Ext(layer)) + ".prj"
	for _, file := range archive.File {
		if !strings.EqualFold(file.Name, prj) {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", file.Name, err)
		}
		definition, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file.Name, err)
		}
		crs, err := handlers.IdentifyCRS(string(definition))
		if err != nil {
			return "", fmt.Errorf("%s: %w", file.Name, err)
		}
		return crs, nil
	}
	return handlers.WGS84, nil
}

// mergeLayers keeps a shared CRS when every layer agrees and otherwise brings
// all layers to WGS84.
func mergeLayers(collections []handlers.FeatureCollection) handlers.FeatureCollection {
	crs := collections[0].CRS
	for _, c := range collections[1:] {
		if c.CRS != crs {
			crs = handlers.WGS84
			break
		}
	}
	fc := handlers.FeatureCollection{CRS: crs}
	for _, c := range collections {
		if c.CRS != crs {
			projected, failed := handlers.ReprojectCollection(c, crs)
			if failed > 0 {
				logger.L().Warn("shapefile_features_dropped", "from", c.CRS, "failed", failed)
			}
			c = projected
		}
		fc.Features = append(fc.Features, c.Features...)
	}
	return fc
}

func readLayer(archive, layer string) ([]handlers.GeomFeature, error) {
	reader, err := shp.OpenShapeFromZip(archive, layer)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	fields := reader.Fields()
	var features []handlers.GeomFeature
	for reader.Next() {
		n, shape := reader.Shape()
		t, err := shapeToGeom(shape)
		if err != nil {
			logger.L().Warn("shapefile_record_skipped", "layer", layer, "record", n, "err", err)
			continue
		}
		g, err := handlers.FromGeom(t)
		if err != nil {
			logger.L().Warn("shapefile_record_skipped", "layer", layer, "record", n, "err", err)
			continue
		}

		properties := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			properties[field.String()] = attributeValue(reader.Attribute(i))
		}
		features = append(features, handlers.GeomFeature{Geom: g, Properties: properties})
	}
	if err := reader.Err(); err != nil {
		return features, err
	}
	return features, nil
}

func shapeToGeom(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case *shp.Polygon:
		return ringsToPolygons(s.Parts, s.Points)
	case *shp.PolygonZ:
		return ringsToPolygons(s.Parts, s.Points)
	case *shp.PolygonM:
		return ringsToPolygons(s.Parts, s.Points)
	case *shp.PolyLine:
		return partsToLines(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return partsToLines(s.Parts, s.Points)
	case *shp.Point:
		return geom.NewPoint(geom.XY).SetCoords(geom.Coord{s.X, s.Y})
	case *shp.PointZ:
		return geom.NewPoint(geom.XY).SetCoords(geom.Coord{s.X, s.Y})
	case nil, *shp.Null:
		return nil, errors.New("null shape")
	default:
		return nil, fmt.Errorf("unsupported shape %T", shape)
	}
}

func splitParts(parts []int32, points []shp.Point) [][]geom.Coord {
	out := make([][]geom.Coord, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}
		out = append(out, ring)
	}
	return out
}

// ringsToPolygons groups shapefile rings: clockwise rings start a polygon and
// counter-clockwise rings are holes of the polygon before them.
func ringsToPolygons(parts []int32, points []shp.Point) (geom.T, error) {
	var polygons [][][]geom.Coord
	for _, ring := range splitParts(parts, points) {
		if len(ring) < 4 {
			continue
		}
		flat := make([]float64, 0, 2*len(ring))
		for _, c := range ring {
			flat = append(flat, c[0], c[1])
		}
		hole := xy.IsRingCounterClockwise(geom.XY, flat)
		if !hole || len(polygons) == 0 {
			polygons = append(polygons, [][]geom.Coord{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}
	switch len(polygons) {
	case 0:
		return nil, errors.New("polygon has no usable ring")
	case 1:
		return geom.NewPolygon(geom.XY).SetCoords(polygons[0])
	default:
		return geom.NewMultiPolygon(geom.XY).SetCoords(polygons)
	}
}

func partsToLines(parts []int32, points []shp.Point) (geom.T, error) {
	lines := splitParts(parts, points)
	if len(lines) == 1 {
		return geom.NewLineString(geom.XY).SetCoords(lines[0])
	}
	return geom.NewMultiLineString(geom.XY).SetCoords(lines)
}

func attributeValue(raw string) interface{} {
	value := strings.TrimSpace(raw)
	if value == "" {
		return value
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
