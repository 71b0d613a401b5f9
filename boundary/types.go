// Package boundary retrieves and caches administrative boundary datasets.
package boundary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrFetch wraps every failure to reach the boundary source.
	ErrFetch = errors.New("boundary fetch failed; retry later or choose another release")
	// ErrNoGeometryURL means the metadata carries no download URL for the
	// requested fidelity.
	ErrNoGeometryURL = errors.New("boundary metadata has no geometry URL; try another fidelity or release")
)

// Fidelity selects the full or the simplified geometry of a dataset.
type Fidelity string

const (
	Full       Fidelity = "full"
	Simplified Fidelity = "simplified"
)

func ParseFidelity(s string) (Fidelity, error) {
	switch Fidelity(strings.ToLower(strings.TrimSpace(s))) {
	case "", Full:
		return Full, nil
	case Simplified:
		return Simplified, nil
	}
	return "", fmt.Errorf("unknown fidelity %q", s)
}

// Key identifies one boundary dataset.
type Key struct {
	Country string `json:"country"`
	Level   int    `json:"level" validate:"gte=0,lte=5"`
	Release string `json:"release"`
}

var validate = validator.New()

// Validate checks the administrative level range.
func (k Key) Validate() error {
	return validate.Struct(k)
}

func (k Key) normalized() Key {
	k.Country = strings.ToUpper(strings.TrimSpace(k.Country))
	k.Release = strings.TrimSpace(k.Release)
	return k
}

func (k Key) String() string {
	k = k.normalized()
	return fmt.Sprintf("%s/%s/ADM%d", k.Release, k.Country, k.Level)
}

// cacheName is the file and redis key for one dataset at one fidelity.
func (k Key) cacheName(f Fidelity) string {
	k = k.normalized()
	return fmt.Sprintf("%s_%s_ADM%d_%s.geojson", k.Release, k.Country, k.Level, f)
}

// Metadata is the subset of the geoBoundaries API response the service uses.
type Metadata struct {
	BoundaryID                string `json:"boundaryID"`
	BoundaryName              string `json:"boundaryName"`
	BoundaryISO               string `json:"boundaryISO"`
	BoundaryType              string `json:"boundaryType"`
	BoundaryYear              string `json:"boundaryYearRepresented"`
	BoundaryLicense           string `json:"boundaryLicense"`
	GeoJSONURL                string `json:"gjDownloadURL"`
	SimplifiedGeometryGeoJSON string `json:"simplifiedGeometryGeoJSON"`
}

// URL returns the download URL for f.
func (m Metadata) URL(f Fidelity) (string, error) {
	url := m.GeoJSONURL
	if f == Simplified {
		url = m.SimplifiedGeometryGeoJSON
	}
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w (%s %s)", ErrNoGeometryURL, m.BoundaryISO, f)
	}
	return url, nil
}
