// Package loader reads uploaded vector files into feature collections.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

type Format string

const (
	GeoJSON   Format = "geojson"
	KML       Format = "kml"
	KMZ       Format = "kmz"
	Shapefile Format = "shapefile"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrDecode wraps every failure to parse an otherwise supported file.
	ErrDecode = errors.New("cannot decode input file")
)

// DetectFormat guesses the format from a file name. Zip archives are read as
// zipped shapefiles.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		return GeoJSON, nil
	case ".kml":
		return KML, nil
	case ".kmz":
		return KMZ, nil
	case ".zip", ".shp":
		return Shapefile, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// ParseFormat accepts a declared format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case GeoJSON, KML, KMZ, Shapefile:
		return f, nil
	case "json":
		return GeoJSON, nil
	case "shp", "zip":
		return Shapefile, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Load decodes data in the declared format. Features of every type are kept;
// callers filter polygons with handlers.PolygonFeatures. The CRS defaults to
// WGS84 when the file does not declare one.
func Load(data []byte, format Format) (handlers.FeatureCollection, error) {
	var (
		fc  handlers.FeatureCollection
		err error
	)
	switch format {
	case GeoJSON:
		fc, err = loadGeoJSON(data)
	case KML:
		fc, err = loadKML(data)
	case KMZ:
		fc, err = loadKMZ(data)
	case Shapefile:
		fc, err = loadShapefileZip(data)
	default:
		return handlers.FeatureCollection{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return handlers.FeatureCollection{}, fmt.Errorf("%w: load %s: %w", ErrDecode, format, err)
	}
	if fc.CRS == "" {
		fc.CRS = handlers.WGS84
	}
	logger.L().Debug("loaded", "format", format, "features", len(fc.Features), "crs", fc.CRS)
	return fc, nil
}
