// Package export writes reconciled feature collections to interchange formats.
package export

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

type Format string

const (
	FormatGeoJSON   Format = "geojson"
	FormatKML       Format = "kml"
	FormatShapefile Format = "shapefile"
)

// Formats lists every supported export format.
var Formats = []Format{FormatGeoJSON, FormatKML, FormatShapefile}

var ErrUnknownFormat = errors.New("unknown export format")

// FormatError is a failure of one format writer.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// ParseFormat accepts a format name case-insensitively; "json" and "shp" are
// accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "kml":
		return FormatKML, nil
	case "shapefile", "shp", "zip":
		return FormatShapefile, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType is the media type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatGeoJSON:
		return "application/geo+json"
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	default:
		return "application/zip"
	}
}

// Extension is the file extension written for f, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatGeoJSON:
		return ".geojson"
	case FormatKML:
		return ".kml"
	default:
		return ".zip"
	}
}

// Write produces one format. Failures are returned as *FormatError.
func Write(f Format, fc handlers.FeatureCollection, name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatGeoJSON:
		data, err = GeoJSON(fc)
	case FormatKML:
		data, err = KML(fc, name)
	case FormatShapefile:
		data, err = ShapefileZip(fc, name)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return nil, &FormatError{Format: f, Err: err}
	}
	return data, nil
}

// Outputs holds the result of All: the formats that succeeded and the errors
// of those that did not.
type Outputs struct {
	Files  map[Format][]byte
	Errors map[Format]error
}

// Err joins the per-format errors in a stable order, or returns nil.
func (o Outputs) Err() error {
	formats := make([]string, 0, len(o.Errors))
	for f := range o.Errors {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)
	errs := make([]error, 0, len(formats))
	for _, f := range formats {
		errs = append(errs, o.Errors[Format(f)])
	}
	return errors.Join(errs...)
}

// All writes every format. A failing format never blocks the others.
func All(fc handlers.FeatureCollection, name string) Outputs {
	out := Outputs{
		Files:  make(map[Format][]byte, len(Formats)),
		Errors: make(map[Format]error),
	}
	for _, f := range Formats {
		data, err := Write(f, fc, name)
		if err != nil {
			logger.L().Warn("export_failed", "format", f, "err", err)
			out.Errors[f] = err
			continue
		}
		out.Files[f] = data
	}
	return out
}
