package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-border-snapper/boundary"
	"github.com/bsaid97/go-border-snapper/country"
	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/loader"
)

const regionsADM1 = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"shapeName":"West"},"geometry":{"type":"Polygon","coordinates":[[[10,50],[11,50],[11,51],[10,51],[10,50]]]}},
{"type":"Feature","properties":{"shapeName":"East"},"geometry":{"type":"Polygon","coordinates":[[[11,50],[12,50],[12,51],[11,51],[11,50]]]}}
]}`

const straddlingUpload = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"site"},"geometry":{"type":"Polygon","coordinates":[[[11.9,50.4],[12.3,50.4],[12.3,50.6],[11.9,50.6],[11.9,50.4]]]}}]}`

type fakeBoundaries struct {
	calls    atomic.Int32
	document string
	err      error
	lastKey  boundary.Key
}

func (f *fakeBoundaries) Load(_ context.Context, key boundary.Key, _ boundary.Fidelity) ([]byte, error) {
	f.calls.Add(1)
	f.lastKey = key
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.document), nil
}

type fakeCountries map[string]string

func (f fakeCountries) Resolve(_ context.Context, name string) (string, country.Strategy, error) {
	if code, ok := f[name]; ok {
		return code, country.StrategyExact, nil
	}
	return "", "", fmt.Errorf("%w: %q", country.ErrUnresolved, name)
}

func newTestRunner() (*Runner, *fakeBoundaries) {
	boundaries := &fakeBoundaries{document: regionsADM1}
	return NewRunner(boundaries, fakeCountries{"Germany": "DEU"}), boundaries
}

func request(upload string) Request {
	return Request{
		Upload:  []byte(upload),
		Format:  loader.GeoJSON,
		Country: "Germany",
		Level:   1,
		Params:  handlers.DefaultSnapParameters(),
	}
}

func TestRunRejectsBeforeFetch(t *testing.T) {
	var tests = []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{name: "no features", mutate: func(r *Request) { r.Upload = []byte(`{"type":"FeatureCollection","features":[]}`) }, want: handlers.ErrEmptyInput},
		{name: "no polygons", mutate: func(r *Request) {
			r.Upload = []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[10,50]}}]}`)
		}, want: handlers.ErrNoPolygons},
		{name: "garbage", mutate: func(r *Request) { r.Upload = []byte(`<<<`) }, want: loader.ErrDecode},
		{name: "level out of range", mutate: func(r *Request) { r.Level = 6 }, want: ErrInvalidRequest},
		{name: "negative tolerance", mutate: func(r *Request) { r.Params.ToleranceM = -5 }, want: ErrInvalidRequest},
		{name: "short country code", mutate: func(r *Request) { r.CountryCode = "DE" }, want: ErrInvalidRequest},
		{name: "unknown country", mutate: func(r *Request) { r.Country = "Atlantis" }, want: country.ErrUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, boundaries := newTestRunner()
			req := request(straddlingUpload)
			tt.mutate(&req)

			_, err := runner.Run(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(0), boundaries.calls.Load())
		})
	}
}

func TestRun(t *testing.T) {
	runner, boundaries := newTestRunner()

	result, err := runner.Run(context.Background(), request(straddlingUpload))
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, country.StrategyExact, result.Strategy)
	assert.Equal(t, boundary.Key{Country: "DEU", Level: 1}, boundaries.lastKey)

	require.Len(t, result.Collection.Features, 1)
	assert.Equal(t, handlers.WGS84, result.Collection.CRS)
	feature := result.Collection.Features[0]
	assert.Equal(t, "DEU", feature.Properties["country"])
	assert.Equal(t, 1, feature.Properties["level"])
	assert.Equal(t, result.Report.RunID, feature.Properties["run_id"])

	report := result.Report
	assert.False(t, report.EmptyResult)
	assert.Equal(t, handlers.MatchProximity, report.MatchStrategy)
	assert.Equal(t, 2, report.BoundaryFeatures)
	assert.Equal(t, 1, report.CandidateFeatures)
	// A quarter of the upload lies inside the East region.
	assert.InDelta(t, 0.25, feature.Geom.Area()/(0.4*0.2), 0.02)
}

func TestRunSessionCache(t *testing.T) {
	runner, boundaries := newTestRunner()
	ctx := context.Background()

	first, err := runner.Run(ctx, request(straddlingUpload))
	require.NoError(t, err)

	second, err := runner.Run(ctx, request(straddlingUpload))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Report.RunID, second.Report.RunID)
	assert.Equal(t, int32(1), boundaries.calls.Load())

	last, ok := runner.Last()
	require.True(t, ok)
	assert.Equal(t, first.Report.RunID, last.Report.RunID)
	assert.False(t, last.Cached)

	// Changing a parameter is a new request.
	req := request(straddlingUpload)
	req.Params.ToleranceM = 100
	third, err := runner.Run(ctx, req)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, int32(2), boundaries.calls.Load())

	runner.Reset()
	_, ok = runner.Last()
	assert.False(t, ok)
}

func TestRunExplicitCountryCode(t *testing.T) {
	runner, boundaries := newTestRunner()
	req := request(straddlingUpload)
	req.Country = ""
	req.CountryCode = "deu"
	req.Release = "gbHumanitarian"

	result, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, country.StrategyCode, result.Strategy)
	assert.Equal(t, boundary.Key{Country: "DEU", Level: 1, Release: "gbHumanitarian"}, boundaries.lastKey)
}

func TestRunOutsideBoundaryIsEmpty(t *testing.T) {
	runner, _ := newTestRunner()
	upload := `{"type":"Polygon","coordinates":[[[20,50.4],[20.2,50.4],[20.2,50.6],[20,50.6],[20,50.4]]]}`

	result, err := runner.Run(context.Background(), request(upload))
	require.NoError(t, err)
	assert.True(t, result.Report.EmptyResult)
	assert.Equal(t, handlers.MatchNearestCentroid, result.Report.MatchStrategy)
	require.Len(t, result.Collection.Features, 1)
	assert.True(t, result.Collection.Features[0].Geom.IsEmpty())
}

func TestRunFetchFailure(t *testing.T) {
	runner, boundaries := newTestRunner()
	boundaries.err = fmt.Errorf("%w: status 503", boundary.ErrFetch)

	_, err := runner.Run(context.Background(), request(straddlingUpload))
	require.ErrorIs(t, err, boundary.ErrFetch)
	assert.Equal(t, "fetch", Class(err))

	boundaries.err = nil
	boundaries.document = `{"type":"FeatureCollection","features":[]}`
	_, err = runner.Run(context.Background(), request(straddlingUpload))
	assert.ErrorIs(t, err, boundary.ErrFetch)
}

func TestRunCancelled(t *testing.T) {
	runner, boundaries := newTestRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, request(straddlingUpload))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "cancelled", Class(err))
	assert.Equal(t, int32(0), boundaries.calls.Load())
}

func TestClass(t *testing.T) {
	var tests = []struct {
		err   error
		class string
	}{
		0: {err: fmt.Errorf("wrap: %w", ErrInvalidRequest), class: "input"},
		1: {err: loader.ErrUnsupportedFormat, class: "input"},
		2: {err: fmt.Errorf("%w: load kml: %w", loader.ErrDecode, errors.New("bad")), class: "input"},
		3: {err: handlers.ErrNoPolygons, class: "input"},
		4: {err: country.ErrUnresolved, class: "resolution"},
		5: {err: boundary.ErrNoGeometryURL, class: "fetch"},
		6: {err: context.DeadlineExceeded, class: "cancelled"},
		7: {err: errors.New("geos exploded"), class: "internal"},
	}

	for k, test := range tests {
		assert.Equal(t, test.class, Class(test.err), "test %d", k)
	}
}
