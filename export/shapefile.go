package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

// wgs84PRJ is the ESRI WKT written next to every shapefile.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ShapefileZip writes fc as a polygon shapefile (.shp, .shx, .dbf, .prj) and
// returns the zip archive holding it.
func ShapefileZip(fc handlers.FeatureCollection, name string) ([]byte, error) {
	if fc.CRS != "" && fc.CRS != handlers.WGS84 {
		return nil, fmt.Errorf("shapefile output must be %s, got %s", handlers.WGS84, fc.CRS)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("no features to write to shapefile")
	}
	base := baseName(name)

	// go-shp only writes to files, so build the layer in a temp directory
	tempDir, err := os.MkdirTemp("", "shapefile_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	shapefilePath := filepath.Join(tempDir, base+".shp")
	if err := generateShapefile(shapefilePath, fc); err != nil {
		return nil, fmt.Errorf("failed to generate shapefile: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, base+".prj"), []byte(wgs84PRJ), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write projection file: %w", err)
	}

	var zipBuffer bytes.Buffer
	zipWriter := zip.NewWriter(&zipBuffer)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		content, err := os.ReadFile(filepath.Join(tempDir, base+ext))
		if err != nil {
			return nil, fmt.Errorf("failed to read shapefile component %s: %w", ext, err)
		}
		zipFile, err := zipWriter.Create(base + ext)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s file in zip: %w", ext, err)
		}
		if _, err := zipFile.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write %s data to zip: %w", ext, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}
	return zipBuffer.Bytes(), nil
}

func generateShapefile(shapefilePath string, fc handlers.FeatureCollection) error {
	shapes := make([]*shp.Polygon, len(fc.Features))
	for i, feature := range fc.Features {
		polygon, err := toShapePolygon(feature.Geom)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		shapes[i] = polygon
	}

	writer, err := shp.Create(shapefilePath, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer writer.Close()

	fields, keys := fieldsFromProperties(fc.Features[0].Properties)
	if err := writer.SetFields(fields); err != nil {
		return fmt.Errorf("failed to set fields: %w", err)
	}

	for i, shape := range shapes {
		row := int(writer.Write(shape))
		writeAttributes(writer, row, fields, keys, fc.Features[i].Properties)
	}
	return nil
}

// toShapePolygon flattens every part of g into shapefile rings: outer rings
// clockwise, holes counter-clockwise.
func toShapePolygon(g *geos.Geom) (*shp.Polygon, error) {
	var rings [][]shp.Point
	for _, part := range handlers.Parts(g) {
		t, err := handlers.ToGeom(part)
		if err != nil {
			return nil, err
		}
		polygon, ok := t.(*geom.Polygon)
		if !ok {
			return nil, fmt.Errorf("unsupported geometry %T", t)
		}
		for r := range polygon.NumLinearRings() {
			ring := polygon.LinearRing(r)
			counterClockwise := xy.IsRingCounterClockwise(ring.Layout(), ring.FlatCoords())
			wantCounterClockwise := r > 0
			points := make([]shp.Point, ring.NumCoords())
			for j := range ring.NumCoords() {
				c := ring.Coord(j)
				points[j] = shp.Point{X: c.X(), Y: c.Y()}
			}
			if counterClockwise != wantCounterClockwise {
				for a, b := 0, len(points)-1; a < b; a, b = a+1, b-1 {
					points[a], points[b] = points[b], points[a]
				}
			}
			rings = append(rings, points)
		}
	}
	if len(rings) == 0 {
		return nil, fmt.Errorf("no polygon to write")
	}
	return (*shp.Polygon)(shp.NewPolyLine(rings)), nil
}

// fieldsFromProperties derives DBF fields from the first feature's properties.
// Keys are sorted so the column order is stable. Names are cut to the 10
// characters DBF allows.
func fieldsFromProperties(properties map[string]interface{}) ([]shp.Field, []string) {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make([]shp.Field, 0, len(keys))
	used := make(map[string]bool, len(keys))
	kept := make([]string, 0, len(keys))
	for _, key := range keys {
		fieldName := key
		if len(fieldName) > 10 {
			fieldName = fieldName[:10]
		}
		if used[strings.ToUpper(fieldName)] {
			continue
		}
		used[strings.ToUpper(fieldName)] = true
		kept = append(kept, key)

		switch v := properties[key].(type) {
		case float64, float32:
			fields = append(fields, shp.FloatField(fieldName, 24, 8))
		case int, int32, int64:
			fields = append(fields, shp.NumberField(fieldName, 18))
		case bool:
			fields = append(fields, shp.StringField(fieldName, 5))
		case string:
			length := min(max(len(v), 50), 254)
			fields = append(fields, shp.StringField(fieldName, uint8(length)))
		default:
			fields = append(fields, shp.StringField(fieldName, 100))
		}
	}

	if len(fields) == 0 {
		fields = append(fields, shp.NumberField("ID", 10))
		kept = append(kept, "")
	}
	return fields, kept
}

func writeAttributes(writer *shp.Writer, row int, fields []shp.Field, keys []string, properties map[string]interface{}) {
	for i, field := range fields {
		key := keys[i]
		if key == "" {
			logAttributeError(writer.WriteAttribute(row, i, row+1), field)
			continue
		}
		value, found := properties[key]
		logAttributeError(writer.WriteAttribute(row, i, attributeValue(field, value, found)), field)
	}
}

func attributeValue(field shp.Field, value interface{}, found bool) interface{} {
	switch field.Fieldtype {
	case 'N':
		switch v := value.(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
		return 0
	case 'F':
		switch v := value.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
		return 0.0
	default:
		if !found || value == nil {
			return ""
		}
		s := fmt.Sprintf("%v", value)
		if len(s) > int(field.Size) {
			s = s[:field.Size]
		}
		return s
	}
}

func logAttributeError(err error, field shp.Field) {
	if err != nil {
		logger.L().Warn("shapefile_attribute_failed", "field", field.String(), "err", err)
	}
}

func baseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "result"
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
