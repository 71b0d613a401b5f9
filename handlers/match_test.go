package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchBoundary(t *testing.T) FeatureCollection {
	return collectionOf(t, WGS84,
		"POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))",
		"POLYGON ((1 0, 2 0, 2 1, 1 1, 1 0))",
		"POLYGON ((5 5, 6 5, 6 6, 5 6, 5 5))",
		"POLYGON ((0.45 0.45, 0.55 0.45, 0.55 0.55, 0.45 0.55, 0.45 0.45))",
	)
}

func TestMatch(t *testing.T) {
	var tests = []struct {
		name     string
		subject  string
		radius   float64
		strategy MatchStrategy
		refs     []int
	}{
		{
			name:     "inside one feature",
			subject:  "POLYGON ((0.1 0.1, 0.3 0.1, 0.3 0.3, 0.1 0.3, 0.1 0.1))",
			radius:   1000,
			strategy: MatchProximity,
			refs:     []int{0},
		},
		{
			name:     "search radius reaches the neighbour",
			subject:  "POLYGON ((0.1 0.1, 0.3 0.1, 0.3 0.3, 0.1 0.3, 0.1 0.1))",
			radius:   100000,
			strategy: MatchProximity,
			refs:     []int{0, 1, 3},
		},
		{
			name:     "feature inside the hole of the subject",
			subject:  "POLYGON ((0.3 0.3, 0.7 0.3, 0.7 0.7, 0.3 0.7, 0.3 0.3), (0.35 0.35, 0.35 0.65, 0.65 0.65, 0.65 0.35, 0.35 0.35))",
			radius:   0,
			strategy: MatchProximity,
			refs:     []int{0},
		},
		{
			name:     "far from everything",
			subject:  "POLYGON ((2.9 2.9, 3.1 2.9, 3.1 3.1, 2.9 3.1, 2.9 2.9))",
			radius:   1000,
			strategy: MatchNearestCentroid,
			refs:     []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Match(mustWKT(t, tt.subject), matchBoundary(t), tt.radius)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, result.Strategy)
			assert.Equal(t, WGS84, result.Candidates.CRS)
			assert.Equal(t, CRS("EPSG:32631"), result.Projection)

			var refs []int
			for _, feature := range result.Candidates.Features {
				refs = append(refs, feature.Properties["ref"].(int))
			}
			assert.Equal(t, tt.refs, refs)
		})
	}
}

func TestMatchContainment(t *testing.T) {
	boundary := collectionOf(t, WGS84,
		"POLYGON ((10.45 50.45, 10.55 50.45, 10.55 50.55, 10.45 50.55, 10.45 50.45))",
		"POLYGON ((20 50, 21 50, 21 51, 20 51, 20 50))",
	)
	// The boundary feature sits in the hole, out of reach of the search radius.
	subject := mustWKT(t, "POLYGON ((10 50, 11 50, 11 51, 10 51, 10 50), (10.2 50.2, 10.8 50.2, 10.8 50.8, 10.2 50.8, 10.2 50.2))")

	result, err := Match(subject, boundary, 1000)
	require.NoError(t, err)
	assert.Equal(t, MatchContainment, result.Strategy)
	require.Len(t, result.Candidates.Features, 1)
	assert.Equal(t, 0, result.Candidates.Features[0].Properties["ref"])
}

func TestMatchErrors(t *testing.T) {
	_, err := Match(mustWKT(t, "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"), FeatureCollection{CRS: WGS84}, 1000)
	assert.ErrorIs(t, err, ErrEmptyBoundary)

	_, err = Match(mustWKT(t, "POLYGON EMPTY"), matchBoundary(t), 1000)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
